package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("submit seller: %w", New(CodeSellerInvalidStatusTransition, "cannot submit approved seller"))
	if !stderrors.Is(err, New(CodeSellerInvalidStatusTransition, "")) {
		t.Fatal("expected errors.Is to match by code")
	}
	if stderrors.Is(err, New(CodeNotFound, "")) {
		t.Fatal("expected different code not to match")
	}
}

func TestWrapUnwrapsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodeUnavailable, "store unavailable", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"plain", stderrors.New("boom"), http.StatusInternalServerError},
		{"invalid", New(CodeInvalidArgument, "bad"), http.StatusBadRequest},
		{"unauthenticated", New(CodeUnauthenticated, "login"), http.StatusUnauthorized},
		{"not approved", New(CodeSellerNotApproved, "pending"), http.StatusForbidden},
		{"missing", fmt.Errorf("get: %w", New(CodeNotFound, "missing")), http.StatusNotFound},
		{"owned", New(CodePurchaseAlreadyOwned, "owned"), http.StatusConflict},
		{"too large", New(CodeUploadTooLarge, "big"), http.StatusRequestEntityTooLarge},
		{"provider", New(CodePaymentProviderFailed, "stripe"), http.StatusBadGateway},
		{"maintenance", New(CodeMaintenance, "down"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Fatalf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPublicMessageHidesUncodedErrors(t *testing.T) {
	if got := PublicMessage(stderrors.New("sql: connection refused")); got != "internal error" {
		t.Fatalf("PublicMessage() = %q", got)
	}
	if got := PublicMessage(New(CodeCampaignFull, "campaign is full")); got != "campaign is full" {
		t.Fatalf("PublicMessage() = %q", got)
	}
	if got := CodeOf(fmt.Errorf("wrap: %w", New(CodeCampaignFull, "full"))); got != CodeCampaignFull {
		t.Fatalf("CodeOf() = %q", got)
	}
}
