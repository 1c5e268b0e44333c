package utils

import (
	"testing"
	"time"
)

const testSecret = "unit-test-secret"

func TestEmailTokenRoundTrip(t *testing.T) {
	raw, err := NewEmailToken(testSecret, "alice@example.com", time.Minute)
	if err != nil {
		t.Fatalf("NewEmailToken: %v", err)
	}
	claims, err := ParseToken(testSecret, raw)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("email = %q, want alice@example.com", claims.Email)
	}
	if claims.Session() {
		t.Error("email token must not count as a session token")
	}
	if claims.UserID != 0 || claims.Role != "" {
		t.Errorf("email token leaked id/role: %+v", claims)
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	raw, err := NewSessionToken(testSecret, 42, "bob@example.com", "admin", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	claims, err := ParseToken(testSecret, raw)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "bob@example.com" || claims.Role != "admin" {
		t.Errorf("claims = %+v", claims)
	}
	if !claims.Session() {
		t.Error("session token must report Session() = true")
	}
}

func TestParseTokenRejects(t *testing.T) {
	expired, _ := NewSessionToken(testSecret, 1, "x@example.com", "user", -time.Minute)
	valid, _ := NewSessionToken(testSecret, 1, "x@example.com", "user", time.Minute)

	cases := []struct {
		name   string
		secret string
		raw    string
	}{
		{"expired", testSecret, expired},
		{"wrong secret", "other-secret", valid},
		{"garbage", testSecret, "not.a.token"},
		{"empty", testSecret, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseToken(tc.secret, tc.raw); err != ErrInvalidToken {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}
