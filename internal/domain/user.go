package domain

import "time"

// AppUser is an application user record keyed by the external SSO user id.
// Rows are upserted after each successful identity verification.
type AppUser struct {
	ID        int64
	UserID    string
	Username  string
	Avatar    string
	CompanyID int64
	LastLogin time.Time
}
