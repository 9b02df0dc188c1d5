package lockql

import "strings"

// FieldKind classifies a model field.
type FieldKind int

const (
	Scalar          FieldKind = iota // plain column
	ForeignKey                       // many-to-one relation
	OneToOne                         // one-to-one relation
	ReverseOneToOne                  // the far side of a OneToOne, no column of its own
	ParentLink                       // multi-table inheritance pointer to the parent model
)

// Relational reports whether the field refers to another model.
func (k FieldKind) Relational() bool {
	return k != Scalar
}

// FieldDef declares a relation on a model. Scalar fields are derived from
// the DBML table and need not be declared.
type FieldDef struct {
	Name        string
	Column      string // defaults to Name + "_id"
	Kind        FieldKind
	Target      string // related model name
	Null        bool
	RelatedName string // reverse accessor added to Target for OneToOne
}

// ModelDef declares a model backed by a DBML table.
type ModelDef struct {
	Name       string
	Table      string // defaults to the lowercased Name
	PK         string // defaults to "id"; a child's key is its parent link column
	Parent     string // multi-table inheritance parent
	ParentLink string // defaults to the lowercased Parent + "_ptr"
	Proxy      string // concrete model this model proxies; proxies have no table
	Fields     []FieldDef
}

// Model is a registered model.
type Model struct {
	name     string
	table    string
	pk       string
	columns  []string
	parent   *Model
	link     *Field
	proxyFor *Model
	fields   map[string]*Field
	order    []string
}

// Field is a registered model field.
type Field struct {
	name   string
	column string
	kind   FieldKind
	target *Model
	null   bool
	owner  *Model
	remote *Field // for ReverseOneToOne, the forward field on target
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Table returns the concrete table backing the model.
func (m *Model) Table() string { return m.Concrete().table }

// PK returns the primary key column on the model's own table.
func (m *Model) PK() string { return m.Concrete().pk }

// Parent returns the inheritance parent, or nil.
func (m *Model) Parent() *Model { return m.Concrete().parent }

// IsProxy reports whether the model proxies another.
func (m *Model) IsProxy() bool { return m.proxyFor != nil }

// Concrete follows proxies to the model that owns a table.
func (m *Model) Concrete() *Model {
	for m.proxyFor != nil {
		m = m.proxyFor
	}
	return m
}

// Fields returns the model's own field names in declaration order.
func (m *Model) Fields() []string {
	c := m.Concrete()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// lookup finds a field on the model or one of its ancestors and returns the
// model that declares it.
func (m *Model) lookup(name string) (*Field, *Model) {
	for cur := m.Concrete(); cur != nil; cur = cur.parent {
		if f, ok := cur.fields[name]; ok {
			return f, cur
		}
	}
	return nil, nil
}

func (m *Model) addField(f *Field) {
	f.owner = m
	m.fields[f.name] = f
	m.order = append(m.order, f.name)
}

// Name returns the field name.
func (f *Field) Name() string { return f.name }

// Column returns the field's column, empty for reverse relations.
func (f *Field) Column() string { return f.column }

// Kind returns the field kind.
func (f *Field) Kind() FieldKind { return f.kind }

// Target returns the related model, or nil for scalar fields.
func (f *Field) Target() *Model { return f.target }

func defaultLink(parent string) string {
	return strings.ToLower(parent) + "_ptr"
}
