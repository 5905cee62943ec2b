package domain

import "time"

// ChallengePurpose distinguishes the two security-key ceremonies.
type ChallengePurpose string

const (
	ChallengeRegistration ChallengePurpose = "registration"
	ChallengeAssertion    ChallengePurpose = "assertion"
)

// Challenge persists the provider's session data between the begin and
// finish halves of a security-key ceremony. Single use: redeeming a
// challenge removes it, and expired challenges are swept by housekeeping.
type Challenge struct {
	ID          string // ULID, returned to the caller as the challenge ref
	AccountID   string
	Purpose     ChallengePurpose
	SessionData []byte // provider-opaque JSON
	ExpiresAt   time.Time
	CreatedAt   time.Time
}
