package ir

// ResultStatus tags an operation outcome.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailure ResultStatus = "failure"
)

// Result is the outcome of executing one plan operation, as fed to the
// state recorder.
type Result struct {
	OpID         string
	Address      string
	Kind         Action
	Status       ResultStatus
	Provider     string
	ProviderID   string         // provider-assigned identifier, may be set on partial failures
	Attributes   map[string]any // post-operation attribute values
	Dependencies []string       // resource addresses, persisted for destroy ordering
	Partial      bool           // create obtained an identifier but incomplete attributes
	Error        string
}

// Succeeded reports whether the operation completed successfully.
func (r *Result) Succeeded() bool {
	return r.Status == ResultSuccess
}
