package toolregistry

import (
	"encoding/json"
	"fmt"

	"github.com/harpou-com/llm-gateway/internal/config"
	"github.com/harpou-com/llm-gateway/internal/webfetch"
)

// build constructs the right Tool implementation for c.Type, decoding
// c.ExecutionDetails into the variant-specific struct (spec 4.2: "Four
// tool types, each with declarative execution_details").
func build(c config.ToolConfig, searcher *webfetch.Searcher, reader *webfetch.Reader, globals map[string]string) (Tool, error) {
	switch c.Type {
	case TypeInternalFunction:
		var details internalFunctionDetails
		if len(c.ExecutionDetails) > 0 {
			if err := json.Unmarshal(c.ExecutionDetails, &details); err != nil {
				return nil, fmt.Errorf("invalid internal_function execution_details: %w", err)
			}
		}
		return newInternalFunctionTool(c, details, searcher, reader)

	case TypeAPICall:
		var details apiCallDetails
		if err := json.Unmarshal(c.ExecutionDetails, &details); err != nil {
			return nil, fmt.Errorf("invalid api_call execution_details: %w", err)
		}
		return newAPICallTool(c, details), nil

	case TypeSearchAndReadWebpage:
		var details searchAndReadDetails
		if err := json.Unmarshal(c.ExecutionDetails, &details); err != nil {
			return nil, fmt.Errorf("invalid search_and_read_webpage execution_details: %w", err)
		}
		return newSearchAndReadTool(c, details, searcher, reader), nil

	case TypeURLFromTemplate:
		var details urlFromTemplateDetails
		if err := json.Unmarshal(c.ExecutionDetails, &details); err != nil {
			return nil, fmt.Errorf("invalid url_from_template execution_details: %w", err)
		}
		return newURLFromTemplateTool(c, details, reader, globals), nil

	default:
		return nil, fmt.Errorf("unknown tool type %q", c.Type)
	}
}
