package domain

// DcqlQuery is a Digital Credentials Query Language request: a set of
// credential queries plus optional credential set constraints over them.
type DcqlQuery struct {
	Credentials    []DcqlCredential    `json:"credentials"`
	CredentialSets []DcqlCredentialSet `json:"credential_sets,omitempty"`
}

// DcqlCredential requests one kind of credential by format, metadata and
// claims. Multiple tells whether the wallet may return several instances.
type DcqlCredential struct {
	ID       string              `json:"id"`
	Format   string              `json:"format"`
	Multiple bool                `json:"multiple,omitempty"`
	Meta     *DcqlCredentialMeta `json:"meta,omitempty"`
	Claims   []DcqlClaim         `json:"claims,omitempty"`
}

// DcqlCredentialMeta constrains the credential type depending on the format.
type DcqlCredentialMeta struct {
	VctValues    []string `json:"vct_values,omitempty"`
	TypeValues   []string `json:"type_values,omitempty"`
	DoctypeValue string   `json:"doctype_value,omitempty"`
}

// DcqlClaim requests one claim by path. Path elements are strings for object
// keys, numbers for array indexes and nil to select all array elements.
// Values, when present, restricts which disclosed values are acceptable.
type DcqlClaim struct {
	ID     string `json:"id,omitempty"`
	Path   []any  `json:"path"`
	Values []any  `json:"values,omitempty"`
}

// DcqlCredentialSet asks that at least one of the listed options (each a set
// of credential query ids) is fully satisfied, unless the set is optional.
type DcqlCredentialSet struct {
	Options  [][]string `json:"options"`
	Required *bool      `json:"required,omitempty"`
}

// IsRequired returns the effective required flag, which defaults to true.
func (s DcqlCredentialSet) IsRequired() bool {
	return s.Required == nil || *s.Required
}
