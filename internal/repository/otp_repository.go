package repository

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/user-account-service/internal/model"
)

// OTPRepo persists one-time codes in the `email_otps` table, one row
// per email with upsert semantics. When a Redis client is available
// the live code is mirrored there with the same TTL so it can be
// checked without touching the database; the mirror write runs
// concurrently with the row write and its failure is logged only.
type OTPRepo struct {
	DB  *sql.DB
	RDB *redis.Client // optional; nil disables the mirror
}

func NewOTPRepo(db *sql.DB, rdb *redis.Client) *OTPRepo { return &OTPRepo{DB: db, RDB: rdb} }

// Upsert writes the current code and expiry for an email, replacing
// any previous row. The next issuance overwrites the record; rows
// are never deleted on successful verification.
func (r *OTPRepo) Upsert(ctx context.Context, o *model.OTP) error {
	o.Email = strings.ToLower(strings.TrimSpace(o.Email))

	var wg sync.WaitGroup
	if r.RDB != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ttl := time.Until(o.ExpiresAt)
			if ttl <= 0 {
				return
			}
			if err := r.RDB.Set(ctx, "otp:"+o.Email, o.Code, ttl).Err(); err != nil {
				log.Printf("otp-cache: mirror write failed for %s: %v", o.Email, err)
			}
		}()
	}

	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO email_otps (email, code, expires_at) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE code=VALUES(code), expires_at=VALUES(expires_at)`,
		o.Email, o.Code, o.ExpiresAt)
	wg.Wait()
	return err
}

// Get returns the current record for an email, expired or not.
// Callers decide what expiry means for their flow (cooldown check vs
// verification). Live codes are served from the mirror when it is
// up; a mirror miss falls through to the row, which also covers
// expired codes since the mirror key carries the same TTL.
// ErrNotFound when no code was ever issued.
func (r *OTPRepo) Get(ctx context.Context, email string) (model.OTP, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if r.RDB != nil {
		key := "otp:" + email
		if code, err := r.RDB.Get(ctx, key).Result(); err == nil && code != "" {
			if ttl, err := r.RDB.TTL(ctx, key).Result(); err == nil && ttl > 0 {
				return model.OTP{Email: email, Code: code,
					ExpiresAt: time.Now().UTC().Add(ttl)}, nil
			}
		}
	}

	var o model.OTP
	err := r.DB.QueryRowContext(ctx,
		"SELECT email, code, expires_at FROM email_otps WHERE email=? LIMIT 1",
		email).Scan(&o.Email, &o.Code, &o.ExpiresAt)
	if err == sql.ErrNoRows {
		return o, ErrNotFound
	}
	return o, err
}
