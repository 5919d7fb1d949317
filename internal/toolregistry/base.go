package toolregistry

import "github.com/harpou-com/llm-gateway/internal/config"

// base carries the fields every variant shares (name, description, schema),
// so each variant type only has to implement Execute.
type base struct {
	name        string
	description string
	schema      map[string]any
}

func newBase(c config.ToolConfig) base {
	return base{name: c.Name, description: c.Description, schema: c.ParametersSchema}
}

func (b base) Name() string           { return b.name }
func (b base) Description() string    { return b.description }
func (b base) Schema() map[string]any { return b.schema }
