package domain

import "time"

// WorkOrder is the owning entity whose activity history the core streams.
// Only the fields the sync core touches are modelled here; the wider fleet
// service owns the rest of the record.
type WorkOrder struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// UserProfile is the denormalised display identity attached to activities.
type UserProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}
