package domain

import "time"

// FactorKind identifies a second-factor method.
type FactorKind string

const (
	FactorTOTP        FactorKind = "totp"
	FactorSecurityKey FactorKind = "security_key"
)

// Valid reports whether k is a known factor kind.
func (k FactorKind) Valid() bool {
	return k == FactorTOTP || k == FactorSecurityKey
}

// EnrollmentStatus is the lifecycle state of a factor enrollment. A setup
// flow creates a Pending record; only a successful confirmation promotes it
// to Active. Disable destroys records outright, there is no pending-disable.
type EnrollmentStatus string

const (
	EnrollmentPending EnrollmentStatus = "pending"
	EnrollmentActive  EnrollmentStatus = "active"
)

// Enrollment is one factor record for an account. At most one Active and at
// most one Pending enrollment exist per (account, kind); the store enforces
// this with unique indexes.
type Enrollment struct {
	ID        string     // ULID
	AccountID string     // opaque id owned by the account directory
	Kind      FactorKind //
	Status    EnrollmentStatus

	// Secret is the AES-GCM sealed TOTP seed. Only set for totp records.
	Secret []byte

	// KeyHandle is the JSON-encoded security-key credential returned by the
	// provider at registration. Only set for security_key records; empty on
	// a pending record until registration finishes.
	KeyHandle []byte

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ActiveKinds returns the distinct kinds with an Active enrollment,
// preserving input order.
func ActiveKinds(enrollments []Enrollment) []FactorKind {
	var kinds []FactorKind
	for _, e := range enrollments {
		if e.Status == EnrollmentActive {
			kinds = append(kinds, e.Kind)
		}
	}
	return kinds
}
