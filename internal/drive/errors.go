package drive

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Kind classifies a store failure so callers can react without inspecting messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindCredential
	KindPermission
	KindQuota
	KindNotFound
	KindBadRequest
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindCredential:
		return "credential"
	case KindPermission:
		return "permission"
	case KindQuota:
		return "quota"
	case KindNotFound:
		return "not_found"
	case KindBadRequest:
		return "bad_request"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is returned by every Store operation that fails upstream.
// Identity names the credential that needs access for permission and quota failures.
type Error struct {
	Op       string
	Kind     Kind
	Identity string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("drive %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is a not-found store failure.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// NewError builds a classified error. Fakes use it to inject failures.
func NewError(op string, kind Kind, identity string, err error) *Error {
	return &Error{Op: op, Kind: kind, Identity: identity, Err: err}
}

// classify wraps an upstream error with its Kind at the point of failure.
func classify(op, identity string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kindFor(err), Identity: identity, Err: err}
}

func kindFor(err error) Kind {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return KindCredential
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return kindForAPIError(apiErr)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindUnavailable
	}
	return KindUnknown
}

func kindForAPIError(apiErr *googleapi.Error) Kind {
	reason := ""
	if len(apiErr.Errors) > 0 {
		reason = apiErr.Errors[0].Reason
	}

	switch apiErr.Code {
	case http.StatusUnauthorized:
		return KindCredential
	case http.StatusForbidden:
		switch reason {
		case "storageQuotaExceeded", "quotaExceeded", "teamDriveFileLimitExceeded":
			return KindQuota
		case "rateLimitExceeded", "userRateLimitExceeded", "sharingRateLimitExceeded":
			return KindUnavailable
		}
		return KindPermission
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusBadRequest:
		if reason == "invalid_grant" {
			return KindCredential
		}
		return KindBadRequest
	case http.StatusTooManyRequests:
		return KindUnavailable
	}
	if apiErr.Code >= 500 {
		return KindUnavailable
	}
	return KindUnknown
}
