package domain

// ReferenceType is a category such as "article" or "book".
type ReferenceType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// FieldDefinition describes one attribute a reference type may carry.
// Kind is the declared value kind ("str", "int"); InputType is a UI hint.
type FieldDefinition struct {
	ID         int64  `json:"id"`
	Key        string `json:"key"`
	Kind       string `json:"type"`
	InputType  string `json:"input_type,omitempty"`
	Required   bool   `json:"required"`
	Additional bool   `json:"additional"`
}
