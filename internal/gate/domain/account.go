package domain

// Account is the directory service's read-only view of an account. The
// directory owns the record; this service only consults it when deciding
// whether to gate a fresh login session.
type Account struct {
	ID       string
	Username string

	// EnabledFactorKinds mirrors the directory's 2FA summary. The local
	// registry remains authoritative for enrollment state; this is a
	// cross-check, not a source of truth.
	EnabledFactorKinds []FactorKind
}
