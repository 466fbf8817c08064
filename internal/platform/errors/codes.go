package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request errors
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeNotFound         Code = "NOT_FOUND"
	CodeAlreadyExists    Code = "ALREADY_EXISTS"
	CodeUnavailable      Code = "UNAVAILABLE"
	CodeMaintenance      Code = "MAINTENANCE"

	// Seller errors
	CodeSellerInvalidStatusTransition Code = "SELLER_INVALID_STATUS_TRANSITION"
	CodeSellerNotApproved             Code = "SELLER_NOT_APPROVED"
	CodeSellerIncompleteProfile       Code = "SELLER_INCOMPLETE_PROFILE"

	// Campaign and item errors
	CodeCampaignInvalidStatusTransition Code = "CAMPAIGN_INVALID_STATUS_TRANSITION"
	CodeCampaignNotPublished            Code = "CAMPAIGN_NOT_PUBLISHED"
	CodeCampaignFull                    Code = "CAMPAIGN_FULL"
	CodeListingInvalidPrice             Code = "LISTING_INVALID_PRICE"

	// Purchase errors
	CodePurchaseAlreadyOwned Code = "PURCHASE_ALREADY_OWNED"
	CodePurchaseOwnListing   Code = "PURCHASE_OWN_LISTING"

	// Payment errors
	CodePaymentSignatureInvalid Code = "PAYMENT_SIGNATURE_INVALID"
	CodePaymentProviderFailed   Code = "PAYMENT_PROVIDER_FAILED"

	// Room errors
	CodeRoomAccessDenied Code = "ROOM_ACCESS_DENIED"

	// Dice errors
	CodeDiceInvalidRequest Code = "DICE_INVALID_REQUEST"
	CodeDiceRerollLimit    Code = "DICE_REROLL_LIMIT"

	// Upload errors
	CodeUploadTooLarge        Code = "UPLOAD_TOO_LARGE"
	CodeUploadUnsupportedType Code = "UPLOAD_UNSUPPORTED_TYPE"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// 400 - validation failures, bad input
	case CodeInvalidArgument,
		CodeSellerIncompleteProfile,
		CodeListingInvalidPrice,
		CodePurchaseOwnListing,
		CodePaymentSignatureInvalid,
		CodeDiceInvalidRequest,
		CodeUploadUnsupportedType:
		return http.StatusBadRequest

	case CodeUnauthenticated:
		return http.StatusUnauthorized

	case CodePermissionDenied,
		CodeSellerNotApproved,
		CodeRoomAccessDenied:
		return http.StatusForbidden

	case CodeNotFound:
		return http.StatusNotFound

	// 409 - state doesn't allow operation
	case CodeAlreadyExists,
		CodeSellerInvalidStatusTransition,
		CodeCampaignInvalidStatusTransition,
		CodeCampaignNotPublished,
		CodeCampaignFull,
		CodePurchaseAlreadyOwned:
		return http.StatusConflict

	case CodeUploadTooLarge:
		return http.StatusRequestEntityTooLarge

	case CodeDiceRerollLimit:
		return http.StatusUnprocessableEntity

	case CodePaymentProviderFailed:
		return http.StatusBadGateway

	case CodeUnavailable, CodeMaintenance:
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
