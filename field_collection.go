package tca

// FieldCollection is an insertion-ordered set of fields keyed by column name.
type FieldCollection struct {
	names  []string
	fields map[string]FieldType
}

// NewFieldCollection creates a collection in the given order. A later field
// with an existing name replaces the earlier one in place.
func NewFieldCollection(fields ...FieldType) *FieldCollection {
	c := &FieldCollection{fields: make(map[string]FieldType, len(fields))}
	for _, field := range fields {
		c.add(field)
	}
	return c
}

func (c *FieldCollection) add(field FieldType) {
	if _, exists := c.fields[field.Name()]; !exists {
		c.names = append(c.names, field.Name())
	}
	c.fields[field.Name()] = field
}

func (c *FieldCollection) Has(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.fields[name]
	return ok
}

// Get returns the named field or an UNDEFINED_FIELD error.
func (c *FieldCollection) Get(name string) (FieldType, error) {
	if c != nil {
		if field, ok := c.fields[name]; ok {
			return field, nil
		}
	}
	return nil, NewUndefinedFieldError("", name)
}

// Names returns the column names in declaration order.
func (c *FieldCollection) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.names))
	copy(names, c.names)
	return names
}

// All returns the fields in declaration order.
func (c *FieldCollection) All() []FieldType {
	if c == nil {
		return nil
	}
	all := make([]FieldType, 0, len(c.names))
	for _, name := range c.names {
		all = append(all, c.fields[name])
	}
	return all
}

func (c *FieldCollection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Filter returns the fields accepted by keep, keeping the order.
func (c *FieldCollection) Filter(keep func(FieldType) bool) *FieldCollection {
	filtered := NewFieldCollection()
	for _, field := range c.All() {
		if keep(field) {
			filtered.add(field)
		}
	}
	return filtered
}
