package protocol

// Tool describes a capability the model may invoke.
// This is the canonical tool definition type used across the service.
// Parameters uses JSON Schema format to describe the tool's input.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}
