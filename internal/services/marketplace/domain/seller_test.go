package domain

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func completeSeller(t *testing.T) SellerProfile {
	t.Helper()
	profile, err := RegisterSeller("user-1", SellerInput{DisplayName: "Ada", Bio: "Runs horror one-shots"}, testNow)
	if err != nil {
		t.Fatalf("register seller: %v", err)
	}
	profile.StripeAccountID = "acct_123"
	return profile
}

func TestCanTransitionSeller(t *testing.T) {
	t.Parallel()

	statuses := []SellerStatus{SellerPreRegister, SellerPending, SellerApproved, SellerRejected}
	allowed := map[[2]SellerStatus]bool{
		{SellerPreRegister, SellerPending}: true,
		{SellerPending, SellerApproved}:    true,
		{SellerPending, SellerRejected}:    true,
		{SellerRejected, SellerPending}:    true,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			want := allowed[[2]SellerStatus{from, to}]
			if got := CanTransitionSeller(from, to); got != want {
				t.Errorf("CanTransitionSeller(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestRegisterSeller(t *testing.T) {
	t.Parallel()

	profile, err := RegisterSeller(" user-1 ", SellerInput{DisplayName: "  Ada ", Bio: " bio "}, testNow)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if profile.UserID != "user-1" || profile.DisplayName != "Ada" || profile.Bio != "bio" {
		t.Fatalf("profile = %+v", profile)
	}
	if profile.Status != SellerPreRegister {
		t.Fatalf("status = %s, want %s", profile.Status, SellerPreRegister)
	}

	if _, err := RegisterSeller("", SellerInput{}, testNow); apperrors.CodeOf(err) != apperrors.CodeInvalidArgument {
		t.Fatalf("empty user code = %s", apperrors.CodeOf(err))
	}
}

func TestSellerLifecycle(t *testing.T) {
	t.Parallel()

	profile := completeSeller(t)
	pending, err := SubmitSeller(profile, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if pending.Status != SellerPending || pending.SubmittedAt == nil {
		t.Fatalf("pending = %+v", pending)
	}

	rejected, err := RejectSeller(pending, "admin-1", "missing sample adventure", testNow.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != SellerRejected || rejected.RejectionReason != "missing sample adventure" || rejected.DecidedBy != "admin-1" {
		t.Fatalf("rejected = %+v", rejected)
	}

	resubmitted, err := SubmitSeller(rejected, testNow.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if resubmitted.RejectionReason != "" || resubmitted.DecidedAt != nil {
		t.Fatalf("resubmit should clear the previous decision: %+v", resubmitted)
	}

	approved, err := ApproveSeller(resubmitted, "admin-1", testNow.Add(4*time.Hour))
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !approved.CanPublish() {
		t.Fatal("approved seller should be able to publish")
	}

	if _, err := SubmitSeller(approved, testNow); apperrors.CodeOf(err) != apperrors.CodeSellerInvalidStatusTransition {
		t.Fatalf("submit approved code = %s", apperrors.CodeOf(err))
	}
	if _, err := RejectSeller(approved, "admin-1", "late", testNow); apperrors.CodeOf(err) != apperrors.CodeSellerInvalidStatusTransition {
		t.Fatalf("reject approved code = %s", apperrors.CodeOf(err))
	}
}

func TestApproveSellerRequiresPending(t *testing.T) {
	t.Parallel()

	_, err := ApproveSeller(completeSeller(t), "admin-1", testNow)
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected domain error, got %v", err)
	}
	if domainErr.Code != apperrors.CodeSellerInvalidStatusTransition {
		t.Fatalf("code = %s", domainErr.Code)
	}
	if domainErr.Metadata["From"] != string(SellerPreRegister) || domainErr.Metadata["To"] != string(SellerApproved) {
		t.Fatalf("metadata = %v", domainErr.Metadata)
	}
}

func TestSubmitSellerReportsMissingFields(t *testing.T) {
	t.Parallel()

	profile, err := RegisterSeller("user-1", SellerInput{DisplayName: "Ada"}, testNow)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err = SubmitSeller(profile, testNow)
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) || domainErr.Code != apperrors.CodeSellerIncompleteProfile {
		t.Fatalf("err = %v", err)
	}
	if got := domainErr.Metadata["Missing"]; got != "bio,stripe_account_id" {
		t.Fatalf("missing = %q", got)
	}
}

func TestRejectSellerRequiresReason(t *testing.T) {
	t.Parallel()

	pending, err := SubmitSeller(completeSeller(t), testNow)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := RejectSeller(pending, "admin-1", "  ", testNow); apperrors.CodeOf(err) != apperrors.CodeInvalidArgument {
		t.Fatalf("code = %s", apperrors.CodeOf(err))
	}
	if _, err := ApproveSeller(pending, "", testNow); apperrors.CodeOf(err) != apperrors.CodeInvalidArgument {
		t.Fatalf("missing admin code = %s", apperrors.CodeOf(err))
	}
}

func TestParseSellerStatus(t *testing.T) {
	t.Parallel()

	if got, ok := ParseSellerStatus(" pending "); !ok || got != SellerPending {
		t.Fatalf("ParseSellerStatus = %q, %v", got, ok)
	}
	if _, ok := ParseSellerStatus("banned"); ok {
		t.Fatal("expected unknown status to fail")
	}
}
