package tools

import (
	"errors"
	"fmt"
	"log"
)

// ErrDuplicateTool indicates two collections declared a tool with the same
// name. Tool names are globally unique; this is a fatal configuration error
// surfaced at startup, never at call time.
var ErrDuplicateTool = errors.New("duplicate tool name")

// Catalog maps tool name -> tool and tool name -> owning collection.
// It is populated once at startup by a single goroutine and read-only
// afterwards, so lookups need no locking.
type Catalog struct {
	tools       map[string]*Tool
	owners      map[string]Collection
	order       []string // insertion order for AllSchemas
	collections []Collection
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		tools:  make(map[string]*Tool),
		owners: make(map[string]Collection),
	}
}

// Register adds every tool of a collection to the catalog. A duplicate tool
// name fails with ErrDuplicateTool naming both collections.
func (c *Catalog) Register(collection Collection) error {
	for _, tool := range collection.ListTools() {
		if tool.Name == "" {
			return fmt.Errorf("collection %q declares a tool with an empty name", collection.Name())
		}
		if tool.Execute == nil {
			return fmt.Errorf("tool %s in collection %q has no Execute function", tool.Name, collection.Name())
		}
		if existing, ok := c.owners[tool.Name]; ok {
			return fmt.Errorf("%w: %q declared by both %q and %q",
				ErrDuplicateTool, tool.Name, existing.Name(), collection.Name())
		}
		c.tools[tool.Name] = tool
		c.owners[tool.Name] = collection
		c.order = append(c.order, tool.Name)
	}
	c.collections = append(c.collections, collection)
	log.Printf("🧰 Registered tool collection %q (%d tools, total: %d)",
		collection.Name(), len(collection.ListTools()), len(c.tools))
	return nil
}

// Resolve returns the tool and its owning collection
func (c *Catalog) Resolve(name string) (*Tool, Collection, bool) {
	tool, ok := c.tools[name]
	if !ok {
		return nil, nil, false
	}
	return tool, c.owners[name], true
}

// Call executes a tool through its owning collection. Unknown names come
// back as an error payload so the model can see and react to the failure.
func (c *Catalog) Call(name string, args map[string]interface{}) map[string]interface{} {
	_, owner, ok := c.Resolve(name)
	if !ok {
		return ErrorResult("unknown_tool", fmt.Sprintf("no tool named %q is registered", name))
	}
	return owner.CallTool(name, args)
}

// AllTools returns every registered tool in insertion order
func (c *Catalog) AllTools() []*Tool {
	result := make([]*Tool, 0, len(c.order))
	for _, name := range c.order {
		result = append(result, c.tools[name])
	}
	return result
}

// AllSchemas returns every tool definition in OpenAI function-calling
// format, in insertion order.
func (c *Catalog) AllSchemas() []map[string]interface{} {
	result := make([]map[string]interface{}, 0, len(c.order))
	for _, name := range c.order {
		result = append(result, c.tools[name].Schema())
	}
	return result
}

// SchemasByCategory returns tool definitions for a single category,
// in insertion order.
func (c *Catalog) SchemasByCategory(category Category) []map[string]interface{} {
	var result []map[string]interface{}
	for _, name := range c.order {
		if c.tools[name].Category == category {
			result = append(result, c.tools[name].Schema())
		}
	}
	return result
}

// Count returns the number of registered tools
func (c *Catalog) Count() int {
	return len(c.tools)
}
