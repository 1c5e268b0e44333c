// Package queue defines message payloads exchanged over the message broker.
package queue

// Event kinds published to the account.notifications queue.
const (
	KindWelcome    = "user.welcome"     // sent to a freshly registered user
	KindAdminAlert = "admin.new_user"   // tells admins a new account exists
	KindVerified   = "user.verified"    // emitted after a successful OTP check
)

// NotificationEvent is published whenever the account service emits an
// in-app realtime notification. It contains enough information for
// downstream consumers to log, display, or fan out without querying
// the primary database.
type NotificationEvent struct {
	Kind      string `json:"kind"`
	UserID    uint64 `json:"user_id,omitempty"`
	Email     string `json:"email"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}
