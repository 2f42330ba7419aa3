package internal

import (
	"fmt"
	"sync"

	"github.com/lychee-technology/tca"
)

// Names of the built-in restrictions.
const (
	RestrictionDeleted      = "deleted"
	RestrictionEnableFields = "enableFields"
)

// RestrictionContainer ANDs the expressions of its restrictions in the order
// they were added.
type RestrictionContainer struct {
	mu           sync.RWMutex
	names        []string
	restrictions map[string]tca.RestrictionBuilder
}

var _ tca.RestrictionBuilder = (*RestrictionContainer)(nil)

func NewRestrictionContainer() *RestrictionContainer {
	return &RestrictionContainer{restrictions: make(map[string]tca.RestrictionBuilder)}
}

// NewDefaultRestrictionContainer holds the restrictions enabled in cfg.
func NewDefaultRestrictionContainer(schemas tca.SchemaResolver, cfg tca.RestrictionConfig) *RestrictionContainer {
	container := NewRestrictionContainer()
	if cfg.Deleted {
		container.Add(RestrictionDeleted, NewDeletedRestriction(schemas))
	}
	if cfg.EnableFields {
		container.Add(RestrictionEnableFields, NewEnableFieldsRestriction(schemas))
	}
	return container
}

// Add registers restriction under name, replacing one of the same name in place.
func (c *RestrictionContainer) Add(name string, restriction tca.RestrictionBuilder) *RestrictionContainer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.restrictions[name]; !exists {
		c.names = append(c.names, name)
	}
	c.restrictions[name] = restriction
	return c
}

// Remove drops the restriction registered under name, if any.
func (c *RestrictionContainer) Remove(name string) *RestrictionContainer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.restrictions[name]; !exists {
		return c
	}
	delete(c.restrictions, name)
	for i, existing := range c.names {
		if existing == name {
			c.names = append(c.names[:i:i], c.names[i+1:]...)
			break
		}
	}
	return c
}

func (c *RestrictionContainer) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.names))
	copy(names, c.names)
	return names
}

func (c *RestrictionContainer) BuildExpression(queriedTables tca.QueriedTables, eb tca.ExpressionBuilder, tc *tca.Context) (*tca.CompositeExpression, error) {
	c.mu.RLock()
	names := make([]string, len(c.names))
	copy(names, c.names)
	restrictions := make([]tca.RestrictionBuilder, len(names))
	for i, name := range names {
		restrictions[i] = c.restrictions[name]
	}
	c.mu.RUnlock()

	constraints := eb.And()
	for i, restriction := range restrictions {
		expr, err := restriction.BuildExpression(queriedTables, eb, tc)
		if err != nil {
			return nil, fmt.Errorf("restriction %s: %w", names[i], err)
		}
		constraints = constraints.With(expr)
	}
	return constraints, nil
}
