package fakebox

import "fmt"

// apiError mirrors a Dropbox API error summary such as "path/not_found/".
type apiError struct {
	Summary string
	Path    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("Dropbox API error: %s (%s)", e.Summary, e.Path)
}

func conflict(kind, p string) error {
	return &apiError{Summary: "path/conflict/" + kind + "/", Path: p}
}

func notFound(p string) error {
	return &apiError{Summary: "path/not_found/", Path: p}
}

func malformedPath(p string) error {
	return &apiError{Summary: "path/malformed_path/", Path: p}
}

// authError is reported as error content, the way the Dropbox server reports
// a rejected token.
type authError struct{}

func (e *authError) Error() string {
	return "Error: invalid_access_token/"
}

// argumentError is a missing or mistyped tool argument.
type argumentError struct {
	Msg string
}

func (e *argumentError) Error() string {
	return e.Msg
}
