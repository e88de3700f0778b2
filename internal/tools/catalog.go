package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/adviserops/chaser/internal/domain"
)

// InvokeFunc executes a tool against the firm's data. Arguments arrive as the
// raw JSON the reasoner produced; results must be JSON-serializable.
type InvokeFunc func(ctx context.Context, firmID string, args json.RawMessage) (any, error)

// Descriptor describes one tool well enough for a reasoner to choose it by
// semantics alone: the description carries what the tool answers, not how.
type Descriptor struct {
	Name        string
	Description string
	Parameters  json.RawMessage // JSON schema for the arguments
	Invoke      InvokeFunc
}

// Catalog is the registry the orchestration loop selects tools from. It is
// mutable only until Seal is called; a sealed catalog is safe for concurrent
// readers without locking.
type Catalog struct {
	byName map[string]*Descriptor
	order  []string
	sealed bool
}

// NewCatalog creates an empty Catalog
func NewCatalog() *Catalog {
	return &Catalog{byName: make(map[string]*Descriptor)}
}

// Register adds a tool to the catalog. Registration fails on a name collision
// and after the catalog has been sealed.
func (c *Catalog) Register(d *Descriptor) error {
	if c.sealed {
		return domain.ErrCatalogSealed
	}
	if d == nil || d.Name == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "tool name is required")
	}
	if d.Description == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("tool %q requires a description", d.Name))
	}
	if d.Invoke == nil {
		return domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("tool %q requires an invoke function", d.Name))
	}
	if _, exists := c.byName[d.Name]; exists {
		return domain.NewDomainError(domain.ErrCodeDuplicateTool, fmt.Sprintf("tool %q is already registered", d.Name))
	}
	c.byName[d.Name] = d
	c.order = append(c.order, d.Name)
	return nil
}

// MustRegister registers a tool and panics on failure. Used during wiring
// where a registration error is a programming mistake.
func (c *Catalog) MustRegister(d *Descriptor) {
	if err := c.Register(d); err != nil {
		panic(err)
	}
}

// Seal freezes the catalog. Call once wiring is complete, before serving.
func (c *Catalog) Seal() {
	c.sealed = true
	sort.Strings(c.order)
}

// Sealed reports whether the catalog has been sealed
func (c *Catalog) Sealed() bool {
	return c.sealed
}

// Get returns the descriptor for a tool name
func (c *Catalog) Get(name string) (*Descriptor, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// List returns all descriptors in name order
func (c *Catalog) List() []*Descriptor {
	names := c.order
	if !c.sealed {
		names = append([]string(nil), c.order...)
		sort.Strings(names)
	}
	out := make([]*Descriptor, 0, len(names))
	for _, name := range names {
		out = append(out, c.byName[name])
	}
	return out
}

// Len returns the number of registered tools
func (c *Catalog) Len() int {
	return len(c.byName)
}

// objectSchema builds a JSON schema for an object with the given properties.
// Helper for tool constructors; keeps the schemas readable at the call site.
func objectSchema(properties map[string]any, required ...string) json.RawMessage {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		panic(err)
	}
	return raw
}
