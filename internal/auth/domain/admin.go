package domain

import "time"

// Admin is the authenticated operator behind an admin API token.
type Admin struct {
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AdminSubject is the only subject admin tokens are issued for.
const AdminSubject = "admin"
