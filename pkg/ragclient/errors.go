package ragclient

import "fmt"

// APIError is a non-2xx answer from the backend. Body is kept verbatim so
// the most specific diagnostic can be shown to the user.
type APIError struct {
	StatusCode int
	Path       string
	Body       []byte
}

func (e *APIError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("rag error: %s returned status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("rag error: %s returned status %d, body: %s", e.Path, e.StatusCode, string(e.Body))
}

// ResponseBody exposes the raw body to errnorm.FromError.
func (e *APIError) ResponseBody() []byte {
	return e.Body
}
