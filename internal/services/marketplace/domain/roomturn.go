package domain

import "time"

// RoomTurn is one entry in a campaign room's append-only GM log.
type RoomTurn struct {
	ID          string
	CampaignID  string
	UserID      string
	ActorName   string
	Kind        string
	Description string
	// CheckJSON holds the serialized dice result, empty when no check ran.
	CheckJSON string
	Narration string
	CreatedAt time.Time
}

// IsRoomMember reports whether userID may enter the campaign room: the
// seller running it, or a player holding a confirmed booking.
func IsRoomMember(c Campaign, userID string, booking *Booking) bool {
	if userID == "" {
		return false
	}
	if c.SellerID == userID {
		return true
	}
	return booking != nil && booking.UserID == userID && booking.CampaignID == c.ID && booking.Status == BookingConfirmed
}
