package domain

import "time"

// RecoveryCode is a single-use fallback credential, stored only as an
// argon2id hash. A fresh batch is issued whenever TOTP is confirmed and the
// whole batch is destroyed when the factor is disabled.
type RecoveryCode struct {
	ID        string
	AccountID string
	CodeHash  string
	CreatedAt time.Time
}
