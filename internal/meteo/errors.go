package meteo

import "fmt"

// AuthError indicates the destination rejected the login itself, or
// rejected an authenticated request with 401/403. During upload an
// AuthError is what arms the single re-authentication retry.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authorization failed (%d): %s", e.StatusCode, e.Message)
	}
	return "authorization failed: " + e.Message
}

// QueryError indicates the list endpoint failed for a reason unrelated
// to authorization.
type QueryError struct {
	StatusCode int
	Message    string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("list query failed (%d): %s", e.StatusCode, e.Message)
}

// UploadError indicates the create endpoint rejected the reading outside
// the retry path, or that the single reauth retry was exhausted.
type UploadError struct {
	StatusCode int
	Message    string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed (%d): %s", e.StatusCode, e.Message)
}

// isAuthStatus reports whether an HTTP status is an authorization
// rejection eligible for the reauth retry.
func isAuthStatus(code int) bool {
	return code == 401 || code == 403
}
