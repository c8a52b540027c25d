package drive

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"unauthorized", &googleapi.Error{Code: 401}, KindCredential},
		{"token exchange", &oauth2.RetrieveError{ErrorCode: "invalid_grant"}, KindCredential},
		{"invalid grant reason", &googleapi.Error{Code: 400, Errors: []googleapi.ErrorItem{{Reason: "invalid_grant"}}}, KindCredential},
		{"forbidden", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "insufficientFilePermissions"}}}, KindPermission},
		{"storage quota", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "storageQuotaExceeded"}}}, KindQuota},
		{"rate limited", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}}}, KindUnavailable},
		{"not found", &googleapi.Error{Code: 404}, KindNotFound},
		{"bad request", &googleapi.Error{Code: 400}, KindBadRequest},
		{"too many requests", &googleapi.Error{Code: 429}, KindUnavailable},
		{"server error", &googleapi.Error{Code: 503}, KindUnavailable},
		{"deadline", context.DeadlineExceeded, KindUnavailable},
		{"wrapped api error", fmt.Errorf("call: %w", &googleapi.Error{Code: 404}), KindNotFound},
		{"plain", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("op", "svc@example.iam.gserviceaccount.com", tt.err)
			if got := KindOf(err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Error("classified error does not wrap the original")
			}
		})
	}
}

func TestClassifyNil(t *testing.T) {
	if err := classify("op", "", nil); err != nil {
		t.Fatalf("classify(nil) = %v, want nil", err)
	}
}

func TestErrorCarriesIdentity(t *testing.T) {
	err := fmt.Errorf("upload: %w", classify("upload file", "svc@example.iam.gserviceaccount.com", &googleapi.Error{Code: 403}))

	var de *Error
	if !errors.As(err, &de) {
		t.Fatal("expected *Error in chain")
	}
	if de.Identity != "svc@example.iam.gserviceaccount.com" {
		t.Errorf("Identity = %q", de.Identity)
	}
	if de.Op != "upload file" {
		t.Errorf("Op = %q", de.Op)
	}
}

func TestKindOfForeignError(t *testing.T) {
	if KindOf(nil) != KindUnknown {
		t.Error("KindOf(nil) should be unknown")
	}
	if IsNotFound(errors.New("not found")) {
		t.Error("message text must not decide the kind")
	}
}

func TestQuote(t *testing.T) {
	tests := map[string]string{
		"aprobadas":  "'aprobadas'",
		"O'Brien":    `'O\'Brien'`,
		`back\slash`: `'back\\slash'`,
		"":           "''",
	}
	for in, want := range tests {
		if got := quote(in); got != want {
			t.Errorf("quote(%q) = %s, want %s", in, got, want)
		}
	}
}
