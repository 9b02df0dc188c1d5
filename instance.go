package lockql

import (
	"fmt"
	"strings"

	"github.com/zoobzio/dbml"
)

// Schema holds the models a query builder works against, validated
// against a DBML project.
type Schema struct {
	project *dbml.Project
	// Internal indexes for fast validation
	tables  map[string]*dbml.Table
	columns map[string][]string        // table -> columns in declaration order
	fields  map[string]map[string]bool // table -> column set
	models  map[string]*Model
}

// NewFromDBML creates a Schema from a DBML project.
func NewFromDBML(project *dbml.Project) (*Schema, error) {
	if project == nil {
		return nil, fmt.Errorf("project cannot be nil")
	}

	s := &Schema{
		project: project,
		tables:  make(map[string]*dbml.Table),
		columns: make(map[string][]string),
		fields:  make(map[string]map[string]bool),
		models:  make(map[string]*Model),
	}

	for _, table := range project.Tables {
		s.tables[table.Name] = table
		s.fields[table.Name] = make(map[string]bool)
		for _, col := range table.Columns {
			s.columns[table.Name] = append(s.columns[table.Name], col.Name)
			s.fields[table.Name][col.Name] = true
		}
	}

	return s, nil
}

// validateTable checks if a table exists in the schema.
func (s *Schema) validateTable(name string) error {
	if _, ok := s.tables[name]; !ok {
		return fmt.Errorf("table '%s' not found in schema", name)
	}
	return nil
}

// validateColumn checks if a column exists on a table.
func (s *Schema) validateColumn(table, column string) error {
	if !s.fields[table][column] {
		return fmt.Errorf("column '%s' not found on table '%s'", column, table)
	}
	return nil
}

// Register adds models to the schema. Definitions may refer to each other
// and to models registered earlier, in any order.
func (s *Schema) Register(defs ...ModelDef) error {
	staged := make(map[string]*Model, len(defs))
	byName := make(map[string]ModelDef, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			return fmt.Errorf("model name is required")
		}
		if _, dup := s.models[def.Name]; dup {
			return fmt.Errorf("model '%s' already registered", def.Name)
		}
		if _, dup := staged[def.Name]; dup {
			return fmt.Errorf("model '%s' declared twice", def.Name)
		}
		staged[def.Name] = &Model{name: def.Name, fields: make(map[string]*Field)}
		byName[def.Name] = def
	}
	find := func(name string) (*Model, error) {
		if m, ok := staged[name]; ok {
			return m, nil
		}
		if m, ok := s.models[name]; ok {
			return m, nil
		}
		return nil, fmt.Errorf("model '%s' not found", name)
	}

	// Tables, keys, proxies and inheritance first: relations need target keys.
	for _, def := range defs {
		m := staged[def.Name]
		if def.Proxy != "" {
			if def.Table != "" || def.Parent != "" || len(def.Fields) > 0 {
				return fmt.Errorf("proxy model '%s' cannot declare a table, parent or fields", def.Name)
			}
			target, err := find(def.Proxy)
			if err != nil {
				return fmt.Errorf("proxy model '%s': %w", def.Name, err)
			}
			m.proxyFor = target
			continue
		}
		m.table = def.Table
		if m.table == "" {
			m.table = strings.ToLower(def.Name)
		}
		if err := s.validateTable(m.table); err != nil {
			return fmt.Errorf("model '%s': %w", def.Name, err)
		}
		m.columns = s.columns[m.table]
		if def.Parent != "" {
			parent, err := find(def.Parent)
			if err != nil {
				return fmt.Errorf("model '%s' parent: %w", def.Name, err)
			}
			link := def.ParentLink
			if link == "" {
				link = defaultLink(parent.Name())
			}
			column := link + "_id"
			if err := s.validateColumn(m.table, column); err != nil {
				return fmt.Errorf("model '%s' parent link: %w", def.Name, err)
			}
			m.parent = parent
			m.pk = column
			m.link = &Field{name: link, column: column, kind: ParentLink, target: parent}
			m.addField(m.link)
			continue
		}
		m.pk = def.PK
		if m.pk == "" {
			m.pk = "id"
		}
		if err := s.validateColumn(m.table, m.pk); err != nil {
			return fmt.Errorf("model '%s' primary key: %w", def.Name, err)
		}
	}

	for _, m := range staged {
		if err := checkAncestry(m); err != nil {
			return err
		}
	}

	// Parent models must be concrete; proxies resolve at use.
	for _, def := range defs {
		m := staged[def.Name]
		if m.parent != nil {
			m.parent = m.parent.Concrete()
			m.link.target = m.parent
		}
	}

	var reverse []reverseField
	for _, def := range defs {
		m := staged[def.Name]
		if m.proxyFor != nil {
			continue
		}
		used := map[string]bool{}
		if m.link != nil {
			used[m.link.column] = true
		}
		for _, fd := range def.Fields {
			if err := s.addRelation(m, fd, find, used, &reverse); err != nil {
				return fmt.Errorf("model '%s' field '%s': %w", def.Name, fd.Name, err)
			}
		}
		for _, col := range m.columns {
			if used[col] {
				continue
			}
			if _, taken := m.fields[col]; taken {
				return fmt.Errorf("model '%s': column '%s' clashes with a relation name", def.Name, col)
			}
			m.addField(&Field{name: col, column: col, kind: Scalar})
		}
	}

	// Reverse fields may land on models registered earlier, so they are
	// checked as a whole before any of them is applied.
	claimed := map[*Model]map[string]bool{}
	for _, r := range reverse {
		if _, dup := r.on.fields[r.field.name]; dup || claimed[r.on][r.field.name] {
			return fmt.Errorf("model '%s' field '%s': related name '%s' clashes with a field on '%s'",
				r.field.target.name, r.field.remote.name, r.field.name, r.on.name)
		}
		if claimed[r.on] == nil {
			claimed[r.on] = map[string]bool{}
		}
		claimed[r.on][r.field.name] = true
	}
	for _, r := range reverse {
		r.on.addField(r.field)
	}
	for name, m := range staged {
		s.models[name] = m
	}
	return nil
}

// reverseField is a reverse one-to-one waiting for its batch to validate.
type reverseField struct {
	on    *Model
	field *Field
}

func (s *Schema) addRelation(m *Model, fd FieldDef, find func(string) (*Model, error), used map[string]bool, reverse *[]reverseField) error {
	if fd.Name == "" {
		return fmt.Errorf("field name is required")
	}
	if _, dup := m.fields[fd.Name]; dup {
		return fmt.Errorf("duplicate field")
	}
	switch fd.Kind {
	case ForeignKey, OneToOne:
	case Scalar:
		return fmt.Errorf("scalar fields are derived from the table and must not be declared")
	default:
		return fmt.Errorf("kind %d cannot be declared", fd.Kind)
	}
	target, err := find(fd.Target)
	if err != nil {
		return err
	}
	column := fd.Column
	if column == "" {
		column = fd.Name + "_id"
	}
	if err := s.validateColumn(m.table, column); err != nil {
		return err
	}
	f := &Field{name: fd.Name, column: column, kind: fd.Kind, target: target, null: fd.Null}
	m.addField(f)
	used[column] = true

	if fd.RelatedName == "" {
		return nil
	}
	if fd.Kind != OneToOne {
		return fmt.Errorf("related name is only supported on one-to-one fields")
	}
	*reverse = append(*reverse, reverseField{
		on: target.Concrete(),
		field: &Field{
			name:   fd.RelatedName,
			kind:   ReverseOneToOne,
			target: m,
			null:   true,
			remote: f,
		},
	})
	return nil
}

// checkAncestry rejects inheritance and proxy cycles.
func checkAncestry(m *Model) error {
	seen := map[*Model]bool{}
	for cur := m; cur != nil; {
		if seen[cur] {
			return fmt.Errorf("model '%s': inheritance cycle", m.name)
		}
		seen[cur] = true
		if cur.proxyFor != nil {
			cur = cur.proxyFor
		} else {
			cur = cur.parent
		}
	}
	return nil
}

// TryModel returns a registered model, or an error if it is unknown.
func (s *Schema) TryModel(name string) (*Model, error) {
	m, ok := s.models[name]
	if !ok {
		return nil, fmt.Errorf("model '%s' not found in schema", name)
	}
	return m, nil
}

// Model returns a registered model and panics if it is unknown.
func (s *Schema) Model(name string) *Model {
	m, err := s.TryModel(name)
	if err != nil {
		panic(err)
	}
	return m
}

// Select starts a SELECT over the named model.
func (s *Schema) Select(model string) *Builder {
	m, err := s.TryModel(model)
	if err != nil {
		return &Builder{err: err}
	}
	return Select(m)
}
