package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChallengeStatus represents the OTP state machine:
// PENDING -> VERIFIED -> CONSUMED, or PENDING -> EXPIRED.
type ChallengeStatus string

const (
	ChallengeStatusPending  ChallengeStatus = "PENDING"
	ChallengeStatusVerified ChallengeStatus = "VERIFIED"
	ChallengeStatusExpired  ChallengeStatus = "EXPIRED"
	ChallengeStatusConsumed ChallengeStatus = "CONSUMED"
)

// Challenge is an ephemeral one-time-passcode gate scoped to a
// (account, instrument, operation) triple. The code itself is stored
// only as a SHA-256 hash; the cleartext goes to the out-of-band sender
// and nowhere else. Invariant: at most one PENDING challenge exists per
// (account, operation) pair.
type Challenge struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	InstrumentID uuid.UUID       `json:"instrument_id"`
	Operation    TransactionType `json:"operation"`
	Currency     Currency        `json:"currency"`
	Amount       string          `json:"amount"` // decimal string, bound at issue time
	CodeHash     string          `json:"-"`
	Attempts     int             `json:"attempts"`
	Status       ChallengeStatus `json:"status"`
	IssuedAt     time.Time       `json:"issued_at"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

// IsExpired reports whether the challenge TTL has elapsed at the given time.
func (c *Challenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
