package model

import (
	"strings"
	"time"
)

const (
	// AccessCodeLength is the length of generated access codes
	AccessCodeLength = 8
	// AccessCodeAlphabet avoids characters that are easy to confuse when read aloud
	AccessCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// DefaultAccessCodeTTL is how long an issued code stays redeemable
	DefaultAccessCodeTTL = 7 * 24 * time.Hour
)

// NormalizeCode upper-cases and trims a code so comparisons are case-insensitive
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AccessCode is a short-lived, single-use secret a player hands to a guardian
type AccessCode struct {
	Code          string
	OwnerID       AccountID
	CreatedAt     time.Time
	ExpiresAt     time.Time
	ConsumedAt    *time.Time
	ConsumedBy    *AccountID
	InvalidatedAt *time.Time // set when a newer code replaced this one
}

// IsConsumed reports whether the code has been redeemed
func (c *AccessCode) IsConsumed() bool {
	return c.ConsumedAt != nil
}

// IsExpired reports whether the code is past its expiry at the given time
func (c *AccessCode) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsRedeemable reports whether the code can still be redeemed at the given time
func (c *AccessCode) IsRedeemable(now time.Time) bool {
	return !c.IsConsumed() && !c.IsExpired(now)
}

// RedemptionError returns the error a redemption attempt at now would fail with,
// or nil if the code is redeemable. Expiry is checked before consumption.
func (c *AccessCode) RedemptionError(now time.Time) error {
	if c.IsExpired(now) {
		return ErrExpired
	}
	if c.IsConsumed() {
		return ErrAlreadyConsumed
	}
	return nil
}
