package model

import "time"

// Role names stored in users.role. Admin accounts may list and delete
// users; manager accounts carry a ManagerInfo record that is reviewed
// before approval; everything else is a regular user.
const (
	RoleUser    = "user"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. The json tags are omitted here because these structs
// are used internally by the repository layer; handlers define
// separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address, stored lowercased.
//  Phone        – optional phone number.
//  PasswordHash – bcrypt hashed password. Never leaves the server.
//  Role         – role name (user, manager or admin).
//  IsVerified   – whether the email was confirmed via OTP.
//  IsDeleted    – soft-delete flag; deleted accounts cannot log in.
//  Name         – display name.
//  ImagePath    – storage path of the uploaded profile image, if any.
//  ImageURL     – public URL of the profile image, if any.
//  Address      – optional free-form address.
//  AgeRange     – optional age bracket (e.g. "25-34").
//  FCMToken     – device push token, overwritten on each login.
//  CreatedAt    – timestamp of creation (used by admin list filters).
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	Phone        *string   // users.phone (nullable)
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsVerified   bool      // users.is_verified
	IsDeleted    bool      // users.is_deleted
	Name         string    // users.name
	ImagePath    *string   // users.image_path (nullable)
	ImageURL     *string   // users.image_url (nullable)
	Address      *string   // users.address (nullable)
	AgeRange     *string   // users.age_range (nullable)
	FCMToken     *string   // users.fcm_token (nullable)
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at

	// Manager is attached by the list query for manager accounts.
	// It is never stored on the users table itself.
	Manager *ManagerInfo
}

// PublicUser is the response-safe projection of a User. It carries
// no password hash and no soft-delete flag.
type PublicUser struct {
	ID         uint64       `json:"id"`
	Email      string       `json:"email"`
	Phone      *string      `json:"phone,omitempty"`
	Role       string       `json:"role"`
	IsVerified bool         `json:"isVerified"`
	Name       string       `json:"name"`
	ImageURL   *string      `json:"imageUrl,omitempty"`
	Address    *string      `json:"address,omitempty"`
	AgeRange   *string      `json:"ageRange,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	Manager    *ManagerInfo `json:"managerInfo,omitempty"`
}

// Public returns the projection of u that is safe to serialize in
// API responses.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Email:      u.Email,
		Phone:      u.Phone,
		Role:       u.Role,
		IsVerified: u.IsVerified,
		Name:       u.Name,
		ImageURL:   u.ImageURL,
		Address:    u.Address,
		AgeRange:   u.AgeRange,
		CreatedAt:  u.CreatedAt,
		Manager:    u.Manager,
	}
}

// ManagerInfo holds the review record of a manager account as stored
// in the `manager_info` table. It is populated only for listing and
// admin views.
//
// Fields:
//  UserID          – owning user.
//  BusinessAddress – registered business address.
//  Website         – optional business website.
//  GovIDImageURL   – uploaded government ID image, if any.
//  Status          – review state (pending, approved or rejected).
type ManagerInfo struct {
	UserID          uint64  `json:"-"`               // manager_info.user_id
	BusinessAddress string  `json:"businessAddress"` // manager_info.business_address
	Website         *string `json:"website,omitempty"`
	GovIDImageURL   *string `json:"govIdImageUrl,omitempty"`
	Status          string  `json:"status"` // pending | approved | rejected
}

// Manager review states stored in manager_info.status.
const (
	ManagerPending  = "pending"
	ManagerApproved = "approved"
	ManagerRejected = "rejected"
)
