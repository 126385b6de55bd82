package domain

// PresentationDefinition declares what a wallet has to present, using the
// DIF Presentation Exchange shape.
type PresentationDefinition struct {
	ID               string                     `json:"id"`
	Name             string                     `json:"name,omitempty"`
	Purpose          string                     `json:"purpose,omitempty"`
	Format           map[string]FormatAlgorithm `json:"format,omitempty"`
	InputDescriptors []InputDescriptor          `json:"input_descriptors"`
}

// FormatAlgorithm lists the accepted issuer and key binding signing
// algorithms for a credential format.
type FormatAlgorithm struct {
	Alg           []string `json:"sd-jwt_alg_values,omitempty"`
	KeyBindingAlg []string `json:"kb-jwt_alg_values,omitempty"`
}

// InputDescriptor requests one credential with a set of field constraints.
type InputDescriptor struct {
	ID         string                     `json:"id"`
	Name       string                     `json:"name,omitempty"`
	Purpose    string                     `json:"purpose,omitempty"`
	Format     map[string]FormatAlgorithm `json:"format,omitempty"`
	Constraint Constraint                 `json:"constraints"`
}

// Constraint groups the field constraints of an input descriptor.
type Constraint struct {
	ID      string  `json:"id,omitempty"`
	Name    string  `json:"name,omitempty"`
	Purpose string  `json:"purpose,omitempty"`
	Format  string  `json:"format,omitempty"`
	Fields  []Field `json:"fields"`
}

// Field is a single requested claim, addressed by JSONPath. Every path must
// resolve in the disclosed claim set, and when a filter is present the
// resolved value has to satisfy it.
type Field struct {
	Path   []string `json:"path"`
	Filter *Filter  `json:"filter,omitempty"`
}

// Filter restricts the value a field may take. Only string const filters are
// supported, which is what the vct check needs.
type Filter struct {
	Type  string `json:"type"`
	Const string `json:"const"`
}

// PresentationSubmission maps the tokens of a vp_token to the input
// descriptors they answer.
type PresentationSubmission struct {
	ID            string                   `json:"id"`
	DefinitionID  string                   `json:"definition_id"`
	DescriptorMap []PresentationDescriptor `json:"descriptor_map"`
}

// PresentationDescriptor locates one submitted token and names its format.
type PresentationDescriptor struct {
	ID     string `json:"id"`
	Format string `json:"format"`
	Path   string `json:"path"`
}
