package model

import "time"

// OTP models a row in the `email_otps` table. There is at most one
// row per email: issuing a new code overwrites the previous one
// (upsert semantics), and rows are never deleted on success — the
// next issuance simply replaces them.
//
// Fields:
//  Email     – primary key; the address the code was sent to.
//  Code      – six-digit one-time code.
//  ExpiresAt – absolute expiry; a code is valid strictly before it.
type OTP struct {
	Email     string    // email_otps.email
	Code      string    // email_otps.code
	ExpiresAt time.Time // email_otps.expires_at
}

// Expired reports whether the code is no longer valid at the given
// instant.
func (o *OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// Remaining returns how long the code stays valid from now, clamped
// at zero. Handlers use it to report the resend cooldown.
func (o *OTP) Remaining(now time.Time) time.Duration {
	d := o.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
