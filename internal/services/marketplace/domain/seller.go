package domain

import (
	"strings"
	"time"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
)

// SellerStatus is the verification state of a seller profile.
type SellerStatus string

const (
	SellerPreRegister SellerStatus = "PRE_REGISTER"
	SellerPending     SellerStatus = "PENDING"
	SellerApproved    SellerStatus = "APPROVED"
	SellerRejected    SellerStatus = "REJECTED"
)

const (
	maxSellerDisplayName = 80
	maxSellerBio         = 2000
	maxRejectionReason   = 500
)

// ParseSellerStatus normalizes a seller status label.
func ParseSellerStatus(value string) (SellerStatus, bool) {
	switch status := SellerStatus(strings.ToUpper(strings.TrimSpace(value))); status {
	case SellerPreRegister, SellerPending, SellerApproved, SellerRejected:
		return status, true
	default:
		return "", false
	}
}

var sellerTransitions = map[SellerStatus][]SellerStatus{
	SellerPreRegister: {SellerPending},
	SellerPending:     {SellerApproved, SellerRejected},
	SellerRejected:    {SellerPending},
}

// CanTransitionSeller reports whether from may move to to.
func CanTransitionSeller(from, to SellerStatus) bool {
	for _, allowed := range sellerTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// SellerProfile is a user's seller identity and verification state.
type SellerProfile struct {
	UserID          string
	DisplayName     string
	Bio             string
	StripeAccountID string
	Status          SellerStatus
	RejectionReason string
	SubmittedAt     *time.Time
	DecidedAt       *time.Time
	DecidedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CanPublish reports whether the seller may publish listings.
func (s SellerProfile) CanPublish() bool {
	return s.Status == SellerApproved
}

// SellerInput carries editable seller profile fields.
type SellerInput struct {
	DisplayName string
	Bio         string
}

func normalizeSellerInput(input SellerInput) (SellerInput, error) {
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	input.Bio = strings.TrimSpace(input.Bio)
	if len([]rune(input.DisplayName)) > maxSellerDisplayName {
		return SellerInput{}, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "display name is too long", map[string]string{"Field": "display_name"})
	}
	if len([]rune(input.Bio)) > maxSellerBio {
		return SellerInput{}, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "bio is too long", map[string]string{"Field": "bio"})
	}
	return input, nil
}

// RegisterSeller creates a PRE_REGISTER seller profile for userID.
func RegisterSeller(userID string, input SellerInput, now time.Time) (SellerProfile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return SellerProfile{}, apperrors.New(apperrors.CodeInvalidArgument, "user id is required")
	}
	input, err := normalizeSellerInput(input)
	if err != nil {
		return SellerProfile{}, err
	}
	now = now.UTC()
	return SellerProfile{
		UserID:      userID,
		DisplayName: input.DisplayName,
		Bio:         input.Bio,
		Status:      SellerPreRegister,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UpdateSellerProfile edits profile fields. Approved sellers keep their status.
func UpdateSellerProfile(profile SellerProfile, input SellerInput, now time.Time) (SellerProfile, error) {
	input, err := normalizeSellerInput(input)
	if err != nil {
		return SellerProfile{}, err
	}
	profile.DisplayName = input.DisplayName
	profile.Bio = input.Bio
	profile.UpdatedAt = now.UTC()
	return profile, nil
}

// SubmitSeller moves a profile to PENDING review. The profile must be
// complete, including a connected payout account.
func SubmitSeller(profile SellerProfile, now time.Time) (SellerProfile, error) {
	if !CanTransitionSeller(profile.Status, SellerPending) {
		return SellerProfile{}, invalidSellerTransition(profile.Status, SellerPending)
	}
	var missing []string
	if profile.DisplayName == "" {
		missing = append(missing, "display_name")
	}
	if profile.Bio == "" {
		missing = append(missing, "bio")
	}
	if strings.TrimSpace(profile.StripeAccountID) == "" {
		missing = append(missing, "stripe_account_id")
	}
	if len(missing) > 0 {
		return SellerProfile{}, apperrors.WithMetadata(
			apperrors.CodeSellerIncompleteProfile,
			"seller profile is incomplete",
			map[string]string{"Missing": strings.Join(missing, ",")},
		)
	}
	now = now.UTC()
	profile.Status = SellerPending
	profile.SubmittedAt = &now
	profile.RejectionReason = ""
	profile.DecidedAt = nil
	profile.DecidedBy = ""
	profile.UpdatedAt = now
	return profile, nil
}

// ApproveSeller records an admin approval of a PENDING profile.
func ApproveSeller(profile SellerProfile, adminID string, now time.Time) (SellerProfile, error) {
	return decideSeller(profile, SellerApproved, adminID, "", now)
}

// RejectSeller records an admin rejection of a PENDING profile.
func RejectSeller(profile SellerProfile, adminID, reason string, now time.Time) (SellerProfile, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return SellerProfile{}, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "rejection reason is required", map[string]string{"Field": "reason"})
	}
	if len([]rune(reason)) > maxRejectionReason {
		return SellerProfile{}, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "rejection reason is too long", map[string]string{"Field": "reason"})
	}
	return decideSeller(profile, SellerRejected, adminID, reason, now)
}

func decideSeller(profile SellerProfile, to SellerStatus, adminID, reason string, now time.Time) (SellerProfile, error) {
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return SellerProfile{}, apperrors.New(apperrors.CodeInvalidArgument, "admin id is required")
	}
	if !CanTransitionSeller(profile.Status, to) {
		return SellerProfile{}, invalidSellerTransition(profile.Status, to)
	}
	now = now.UTC()
	profile.Status = to
	profile.RejectionReason = reason
	profile.DecidedAt = &now
	profile.DecidedBy = adminID
	profile.UpdatedAt = now
	return profile, nil
}

func invalidSellerTransition(from, to SellerStatus) error {
	return apperrors.WithMetadata(
		apperrors.CodeSellerInvalidStatusTransition,
		"seller cannot move from "+string(from)+" to "+string(to),
		map[string]string{"From": string(from), "To": string(to)},
	)
}
