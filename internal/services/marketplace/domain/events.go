package domain

// Outbox event types emitted by the marketplace.
const (
	// EventPurchaseCompleted is emitted once per paid checkout and drives the
	// seller payout.
	EventPurchaseCompleted = "payments.purchase_completed"
	// EventListingGranted is emitted when a free listing is granted.
	EventListingGranted = "marketplace.listing_granted"
	// EventSellerDecided is emitted when an admin approves or rejects a seller.
	EventSellerDecided = "marketplace.seller_decided"
)

// PurchaseCompletedPayload is the JSON payload of EventPurchaseCompleted.
type PurchaseCompletedPayload struct {
	TransactionID string `json:"transaction_id"`
	BuyerID       string `json:"buyer_id"`
	SellerID      string `json:"seller_id"`
	Kind          string `json:"kind"`
	ListingID     string `json:"listing_id"`
	AmountCents   int64  `json:"amount_cents"`
	PayoutCents   int64  `json:"payout_cents"`
	Currency      string `json:"currency"`
}

// ListingGrantedPayload is the JSON payload of EventListingGranted.
type ListingGrantedPayload struct {
	PurchaseID string `json:"purchase_id"`
	UserID     string `json:"user_id"`
	Kind       string `json:"kind"`
	ListingID  string `json:"listing_id"`
}

// SellerDecidedPayload is the JSON payload of EventSellerDecided.
type SellerDecidedPayload struct {
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	DecidedBy string `json:"decided_by"`
}
