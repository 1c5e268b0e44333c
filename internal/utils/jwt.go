package utils // package utils provides helper functions for token creation and hashing

import (
    "errors" // sentinel error for rejected tokens
    "time"   // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalidToken is returned by ParseToken for any token that fails
// signature verification, has expired, or does not carry the expected
// claim shape. Callers do not learn which of those happened.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the decoded payload of a signed token. Email is always
// present. UserID and Role are set only on session tokens issued
// after login; registration and password-reset flows mint tokens
// that carry the email alone.
type Claims struct {
    UserID uint64 // "sub" claim; zero on email-only tokens
    Email  string // "email" claim
    Role   string // "role" claim; empty on email-only tokens
}

// Session reports whether the claims came from a full session token
// (issued at login) rather than a pre-verification email token.
func (c Claims) Session() bool { return c.Role != "" }

// NewEmailToken builds and signs an HS256 JWT that binds a pending
// registration or password-reset flow to an email address. The token
// carries only the email plus the standard exp/iat claims and lives
// for the given TTL.
func NewEmailToken(secret, email string, ttl time.Duration) (string, error) {
    now := time.Now().UTC()
    claims := jwt.MapClaims{
        "email": email,
        "exp":   now.Add(ttl).Unix(),
        "iat":   now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    return t.SignedString([]byte(secret))
}

// NewSessionToken builds and signs an HS256 JWT for an authenticated
// user. The JWT includes standard claims: subject (sub), email, role,
// expiration (exp) and issued at (iat).
func NewSessionToken(secret string, userID uint64, email, role string, ttl time.Duration) (string, error) {
    now := time.Now().UTC()
    claims := jwt.MapClaims{
        "sub":   userID,
        "email": email,
        "role":  role,
        "exp":   now.Add(ttl).Unix(),
        "iat":   now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    return t.SignedString([]byte(secret))
}

// ParseToken verifies the signature and expiry of a token issued by
// NewEmailToken or NewSessionToken and returns its claims. Only the
// HMAC family of signing methods is accepted; tokens signed with any
// other algorithm are rejected.
func ParseToken(secret, raw string) (Claims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        // Type assert the signing method to HMAC; reject others.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidToken
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return Claims{}, ErrInvalidToken
    }
    mc, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return Claims{}, ErrInvalidToken
    }

    var out Claims
    email, _ := mc["email"].(string)
    if email == "" {
        return Claims{}, ErrInvalidToken
    }
    out.Email = email
    // JWT numeric values decode as float64; session tokens carry the
    // user ID in "sub" and the role name in "role".
    if sub, ok := mc["sub"].(float64); ok {
        out.UserID = uint64(sub)
    }
    if role, ok := mc["role"].(string); ok {
        out.Role = role
    }
    return out, nil
}
