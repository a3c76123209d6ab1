package transform

import "encoding/json"

// decodeToolArguments parses a canonical tool call's JSON-string
// arguments into the object form Anthropic's tool_use input expects.
// An empty or malformed string degrades to an empty object rather than
// failing the whole request translation — the caller already has the
// raw string available in the canonical model if it needs it verbatim.
func decodeToolArguments(argsJSON string) map[string]any {
	if argsJSON == "" {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &out); err != nil {
		return map[string]any{}
	}
	return out
}

// encodeToolArguments serializes Anthropic's tool_use input object
// back into the JSON-string form the canonical model always carries
// arguments in.
func encodeToolArguments(input map[string]any) string {
	if input == nil {
		return "{}"
	}
	b, err := json.Marshal(input)
	if err != nil {
		return "{}"
	}
	return string(b)
}
