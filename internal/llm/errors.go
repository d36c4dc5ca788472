package llm

import "fmt"

// BackendError is a typed failure from a model backend. Unauthorized is
// set for 401/403 responses so callers can prompt for credentials instead
// of retrying.
type BackendError struct {
	Provider     string
	Status       int
	Unauthorized bool
	Message      string
}

func (e *BackendError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s backend error (status %d): %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s backend error: %s", e.Provider, e.Message)
}

// backendErr classifies an SDK error into a BackendError, flagging
// unauthorized responses by status code where the SDK exposes one.
func backendErr(provider string, status int, err error) *BackendError {
	return &BackendError{
		Provider:     provider,
		Status:       status,
		Unauthorized: status == 401 || status == 403,
		Message:      err.Error(),
	}
}
