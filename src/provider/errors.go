package provider

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrNoConfig          = errors.New("no build configuration for repository")
	ErrTransport         = errors.New("CI server request failed")
	ErrUnauthorized      = errors.New("not authorized on CI server")
	ErrUnknownBuildState = errors.New("unknown build state")
	ErrInvalidURL        = errors.New("invalid change-request URL")
)

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts core errors to user-friendly messages
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrInvalidURL):
		return &UserError{
			Message: "Not a change-request page",
			Hint:    "Supported formats:\n  - https://github.com/owner/repo/pull/123\n  - https://gitlab.com/group/repo/-/merge_requests/456",
			Err:     err,
		}
	case errors.Is(err, ErrInvalidConfig):
		return &UserError{
			Message: "Configuration is invalid",
			Hint:    "BaseUrl (ending in \"/\"), credentials and Repository are required.\n  - Basic auth: Username and Password\n  - Cookie auth: SessionToken\n  - Jar auth: CookieFile",
			Err:     err,
		}
	case errors.Is(err, ErrNoConfig):
		return &UserError{
			Message: "No builds configured for this repository",
			Hint:    "Add the repository name under Repository in the configuration.",
			Err:     err,
		}
	case errors.Is(err, ErrUnauthorized):
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Log in to TeamCity or check the configured credentials.",
			Err:     err,
		}
	case errors.Is(err, ErrTransport):
		return &UserError{
			Message: "Could not reach the CI server",
			Hint:    "Check BaseUrl and your network connection.",
			Err:     err,
		}
	}

	return err
}
