// Package platform defines the contract every job board adapter fulfils.
// An adapter hides one board's protocol (REST, OAuth, DOM automation)
// behind uniform login/search/apply operations.
package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/autovagas/autovagas/internal/core"
)

// Credential holds the login secrets for one platform.
type Credential struct {
	Platform    string
	Username    string
	Password    string
	AccessToken string
	// ExpiresAt marks when the token stops being valid. Zero means the
	// token never expires.
	ExpiresAt time.Time
}

// Expired reports whether the credential's token is past its expiry.
// Credentials without an expiry never expire.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

type Adapter interface {
	// Platform returns the board's stable identifier, e.g. "infojobs".
	Platform() string
	Login(ctx context.Context, cred *Credential) error
	Search(ctx context.Context, params *core.JobSearchParams) ([]*core.Job, error)
	Apply(ctx context.Context, job *core.Job, profile *core.CandidateProfile, message string) (*core.ApplicationResult, error)
	// ApplicationStatus resolves the board-side state of a submitted
	// application, e.g. "pending" or "viewed".
	ApplicationStatus(ctx context.Context, applicationID string) (string, error)
}

// AuthError marks failures that mean the session is invalid and a
// re-login is required before the platform can be used again.
type AuthError struct {
	Platform string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %v", e.Platform, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthError reports whether err (or anything it wraps) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
