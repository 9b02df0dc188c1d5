package render

import "fmt"

// LockSupport describes what a dialect accepts for one locking mode.
type LockSupport struct {
	Supported  bool // FOR UPDATE / FOR SHARE itself
	Nowait     bool // ... NOWAIT
	SkipLocked bool // ... SKIP LOCKED
	Of         bool // ... OF <targets>
}

func (s LockSupport) any() bool {
	return s.Supported || s.Nowait || s.SkipLocked || s.Of
}

// Capabilities describes the row-locking features supported by a dialect.
// A value is computed once per connection from its ServerInfo.
type Capabilities struct {
	Transactions  bool        // explicit transactions are available
	Update        LockSupport // FOR UPDATE family
	Share         LockSupport // FOR SHARE family
	KeyShare      bool        // FOR KEY SHARE
	NoKeyUpdate   bool        // FOR NO KEY UPDATE
	OfColumn      bool        // OF names "table"."column" rather than "table"
	LockWithLimit bool        // LIMIT/OFFSET may be combined with a lock
	LockAfterFrom bool        // lock is a hint on every table reference, not a trailing clause
}

// Support returns the LockSupport for the share or update family.
func (c Capabilities) Support(share bool) LockSupport {
	if share {
		return c.Share
	}
	return c.Update
}

// RowLocking reports whether any row locking is available.
func (c Capabilities) RowLocking() bool {
	return c.Update.Supported || c.Share.Supported
}

// Validate checks that the flags are internally consistent.
func (c Capabilities) Validate() error {
	for _, m := range []struct {
		name string
		s    LockSupport
	}{{"update", c.Update}, {"share", c.Share}} {
		if m.s.any() && !m.s.Supported {
			return fmt.Errorf("capabilities: %s options set without %s support", m.name, m.name)
		}
		if m.s.Supported && !c.Transactions {
			return fmt.Errorf("capabilities: %s locking requires transactions", m.name)
		}
	}
	if c.KeyShare && !c.Share.Supported {
		return fmt.Errorf("capabilities: key share requires share support")
	}
	if c.NoKeyUpdate && !c.Update.Supported {
		return fmt.Errorf("capabilities: no key update requires update support")
	}
	if c.OfColumn && !c.Update.Of && !c.Share.Of {
		return fmt.Errorf("capabilities: of column requires of support")
	}
	return nil
}

// ServerInfo holds what is known about a database server: the inputs to
// capability computation.
type ServerInfo struct {
	Dialect       string
	Version       Version
	Variant       string // alternate implementation, e.g. "mariadb"
	StorageEngine string // default storage engine, when the dialect has one
}
