package domain

import (
	"time"

	"github.com/google/uuid"
)

// InstrumentScheme distinguishes the card network rules applied at
// registration time.
type InstrumentScheme string

const (
	SchemeCard   InstrumentScheme = "CARD"   // card-present fiat (expiry + CVV)
	SchemeShetab InstrumentScheme = "SHETAB" // IRR scheme (expiry + CVV2)
)

// Instrument is a registered payment card. Immutable once created except
// for deletion; the full number is AES-encrypted at rest and only the
// masked form is ever returned to callers.
type Instrument struct {
	ID           uuid.UUID        `json:"id"`
	AccountID    uuid.UUID        `json:"account_id"`
	Scheme       InstrumentScheme `json:"scheme"`
	Currency     Currency         `json:"currency"`
	Last4        string           `json:"last4"`
	NumberEnc    string           `json:"-"` // AES-256-GCM encrypted PAN
	HolderName   string           `json:"holder_name"`
	ContactPhone string           `json:"-"` // OTP delivery channel
	BankName     string           `json:"bank_name,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Masked returns the display form of the card number.
func (i *Instrument) Masked() string {
	return "****" + i.Last4
}
