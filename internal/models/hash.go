package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DedupHash computes the stable fingerprint used to detect re-imports of the
// same transaction. It is built from the account, the booking date, the
// canonical amount string and the bank-provided external ID. When the bank
// supplied no external ID the normalized description is used instead.
func DedupHash(accountID string, date time.Time, amount decimal.Decimal, externalID, description string) string {
	discriminator := externalID
	if discriminator == "" {
		discriminator = normalizeDescription(description)
	}

	h := sha256.New()
	h.Write([]byte(accountID))
	h.Write([]byte{'|'})
	h.Write([]byte(date.Format("2006-01-02")))
	h.Write([]byte{'|'})
	h.Write([]byte(amount.String()))
	h.Write([]byte{'|'})
	h.Write([]byte(discriminator))
	return hex.EncodeToString(h.Sum(nil))
}

// normalizeDescription lowercases and collapses whitespace so cosmetic
// differences between exports of the same statement do not defeat dedup.
func normalizeDescription(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
