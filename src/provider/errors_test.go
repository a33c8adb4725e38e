package provider

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrapError_Sentinels(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantMessage string
		wantHint    string
	}{
		{
			name:        "invalid URL",
			err:         fmt.Errorf("%w: https://example.com/x", ErrInvalidURL),
			wantMessage: "Not a change-request page",
			wantHint:    "github.com",
		},
		{
			name:        "invalid config",
			err:         fmt.Errorf("%w: BaseUrl is required", ErrInvalidConfig),
			wantMessage: "Configuration is invalid",
			wantHint:    "SessionToken",
		},
		{
			name:        "no config",
			err:         fmt.Errorf("%w: acme/web", ErrNoConfig),
			wantMessage: "No builds configured for this repository",
			wantHint:    "Repository",
		},
		{
			name:        "unauthorized",
			err:         ErrUnauthorized,
			wantMessage: "Authentication failed",
			wantHint:    "Log in to TeamCity",
		},
		{
			name:        "transport",
			err:         fmt.Errorf("query queue: %w", ErrTransport),
			wantMessage: "Could not reach the CI server",
			wantHint:    "BaseUrl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapError(tt.err)

			var userErr *UserError
			if !errors.As(wrapped, &userErr) {
				t.Fatalf("WrapError() returned %T, want *UserError", wrapped)
			}
			if userErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", userErr.Message, tt.wantMessage)
			}
			if !strings.Contains(userErr.Hint, tt.wantHint) {
				t.Errorf("Hint should contain %q, got %q", tt.wantHint, userErr.Hint)
			}
			if !errors.Is(wrapped, tt.err) {
				t.Error("wrapped error should unwrap to the original")
			}
		})
	}
}

func TestWrapError_OtherErrors(t *testing.T) {
	err := errors.New("something went wrong")
	if got := WrapError(err); got != err {
		t.Errorf("WrapError() = %v, want original error %v", got, err)
	}
	if got := WrapError(nil); got != nil {
		t.Errorf("WrapError(nil) = %v, want nil", got)
	}
}

func TestUserError_Error(t *testing.T) {
	tests := []struct {
		name    string
		userErr *UserError
		want    []string
	}{
		{
			name:    "message only",
			userErr: &UserError{Message: "Something went wrong"},
			want:    []string{"Something went wrong"},
		},
		{
			name:    "message with hint and error",
			userErr: &UserError{Message: "Something went wrong", Hint: "Try this", Err: errors.New("original error")},
			want:    []string{"Something went wrong", "Hint: Try this", "Details: original error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.userErr.Error()
			last := -1
			for _, part := range tt.want {
				idx := strings.Index(got, part)
				if idx < 0 {
					t.Fatalf("Error() should contain %q, got %q", part, got)
				}
				if idx <= last {
					t.Errorf("%q appears out of order in %q", part, got)
				}
				last = idx
			}
		})
	}
}
