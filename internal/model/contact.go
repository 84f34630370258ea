package model

import "time"

type Contact struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	Birthday    time.Time `json:"birthday"`
	AddInfo     string    `json:"add_info,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UserID      int64     `json:"-"`
}

// ContactFilter holds the optional exact-match filters for contact listing.
// Zero-value fields are ignored.
type ContactFilter struct {
	FirstName string
	LastName  string
	Email     string
}
