package harmony

import (
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidateToolSchema checks that params, when non-empty, is a structurally
// valid JSON Schema document (SPEC_FULL §4, §7: Invalid-Tool-Schema). It is
// called by the tools-block renderer ahead of projection; callers may also
// invoke it directly when constructing a ToolDescription.
//
// A params value that isn't even parseable JSON is left to the projector's
// existing best-effort "any" fallback — this validator only rejects
// schemas that parse but don't conform to the JSON Schema metaschema.
func ValidateToolSchema(params json.RawMessage) error {
	if len(params) == 0 {
		return nil
	}
	var doc any
	if err := json.Unmarshal(params, &doc); err != nil {
		return nil
	}

	const resourceURL = "mem://harmony/tool-schema.json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(resourceURL, doc); err != nil {
		return wrapRenderErr(ErrInvalidToolSchema, "registering tool parameter schema", err)
	}
	if _, err := c.Compile(resourceURL); err != nil {
		return wrapRenderErr(ErrInvalidToolSchema, "tool parameter schema failed validation", err)
	}
	return nil
}
