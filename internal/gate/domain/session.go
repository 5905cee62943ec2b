package domain

import "time"

// LoginSession tracks, per logical login session, whether a second factor
// is still owed. The session id itself is minted by the web layer at
// password-authentication time; this service only gates it.
//
// SecondFactorRequired is true whenever the account holds at least one
// active factor and this session has not yet presented a valid factor or
// remember token since its last password authentication.
type LoginSession struct {
	ID                   string
	AccountID            string
	SecondFactorRequired bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
