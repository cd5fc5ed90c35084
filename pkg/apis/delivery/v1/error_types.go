package v1

// ErrorResponse is the body of every non-2xx hub response. The transition
// fields are set on 422 responses.
type ErrorResponse struct {
	Error    string   `json:"error"`
	Current  string   `json:"current,omitempty"`
	Proposed string   `json:"proposed,omitempty"`
	Allowed  []string `json:"allowed,omitempty"`
}
