// Package service implements the account orchestration layer. The
// AccountService composes the repositories and outbound dispatchers;
// HTTP handlers stay thin adapters over it.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/user-account-service/internal/config"
	"github.com/iliyamo/user-account-service/internal/model"
	"github.com/iliyamo/user-account-service/internal/notify"
	"github.com/iliyamo/user-account-service/internal/queue"
	"github.com/iliyamo/user-account-service/internal/repository"
	"github.com/iliyamo/user-account-service/internal/utils"
)

// ErrInvalidCredentials is returned when a password check fails.
// Handlers translate it into an HTTP 401 response.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrOTPInvalid is the single failure for OTP verification. A wrong
// code and an expired code are deliberately indistinguishable to the
// caller.
var ErrOTPInvalid = errors.New("invalid or expired code")

// UserStore is the slice of the user repository the service needs.
// *repository.UserRepo satisfies it; tests substitute fakes.
type UserStore interface {
	Create(ctx context.Context, u *model.User) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	SetVerified(ctx context.Context, email string) error
	SetPassword(ctx context.Context, id uint64, hash string) error
	SetPasswordByEmail(ctx context.Context, email, hash string) error
	SetFCMToken(ctx context.Context, id uint64, token string) error
}

// OTPStore is the slice of the OTP repository the service needs.
type OTPStore interface {
	Upsert(ctx context.Context, o *model.OTP) error
	Get(ctx context.Context, email string) (model.OTP, error)
}

// ManagerStore records the review row created for manager
// registrations. *repository.ManagerRepo satisfies it.
type ManagerStore interface {
	Upsert(ctx context.Context, m *model.ManagerInfo) error
}

// MailSender sends one transactional mail; notify.Mailer satisfies it.
type MailSender interface {
	Send(kind notify.EmailKind, to, name, code string) error
}

// PushSender sends one push notification; notify.Pusher satisfies it.
type PushSender interface {
	Send(ctx context.Context, token, title, body string) error
}

// AccountService orchestrates registration, authentication, the OTP
// lifecycle and the password flows.
type AccountService struct {
	Users    UserStore
	OTPs     OTPStore
	Managers ManagerStore
	Mailer   MailSender
	Pusher   PushSender
	Publish  func(ctx context.Context, ev queue.NotificationEvent) error
	Cfg      config.Config
}

func NewAccountService(users UserStore, otps OTPStore, managers ManagerStore, mailer MailSender, pusher PushSender, cfg config.Config) *AccountService {
	return &AccountService{
		Users:    users,
		OTPs:     otps,
		Managers: managers,
		Mailer:   mailer,
		Pusher:   pusher,
		Publish:  queue.PublishNotification,
		Cfg:      cfg,
	}
}

func (s *AccountService) otpTTL() time.Duration {
	return time.Duration(s.Cfg.OTPTTLSec) * time.Second
}

func (s *AccountService) emailTokenTTL() time.Duration {
	return time.Duration(s.Cfg.EmailTokenTTLMin) * time.Minute
}

func (s *AccountService) sessionTTL() time.Duration {
	return time.Duration(s.Cfg.SessionTTLHours) * time.Hour
}

// RegisterInput carries everything the registration endpoint accepts.
// Optional fields are pointers; image metadata is filled by the
// handler after storing the upload.
type RegisterInput struct {
	Name      string
	Email     string
	Password  string
	Phone     *string
	Role      string
	FCMToken  *string
	ImagePath *string
	ImageURL  *string

	// Manager applications only.
	BusinessAddress *string
	Website         *string
	GovIDImageURL   *string
}

// Register starts a pending registration. It generates the OTP code
// and an email-bound token and returns the token for the immediate
// response; the user record itself is created by a detached
// background task, so the caller's success response may precede — or
// outlive — a duplicate-email failure. That ordering is deliberate
// and documented; background failures are logged, never surfaced and
// never retried.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (string, error) {
	code, err := utils.NewOTPCode()
	if err != nil {
		return "", err
	}
	token, err := utils.NewEmailToken(s.Cfg.JWTSecret, in.Email, s.emailTokenTTL())
	if err != nil {
		return "", err
	}

	go s.completeRegistration(in, code)
	return token, nil
}

// completeRegistration is the background half of Register. It runs
// detached from the request; every failure is reported through the
// log sink only.
func (s *AccountService) completeRegistration(in RegisterInput, code string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	hash, err := utils.HashPassword(in.Password, s.Cfg.BcryptCost)
	if err != nil {
		log.Printf("register: hash password failed for %s: %v", in.Email, err)
		return
	}

	role := in.Role
	if role != model.RoleManager {
		role = model.RoleUser
	}
	u := &model.User{
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
		Role:         role,
		IsVerified:   false,
		Name:         in.Name,
		ImagePath:    in.ImagePath,
		ImageURL:     in.ImageURL,
		FCMToken:     in.FCMToken,
	}
	id, err := s.Users.Create(ctx, u)
	if err != nil {
		// Duplicate emails surface here, after the client already got
		// its success response. Logged only.
		log.Printf("register: create user failed for %s: %v", in.Email, err)
		return
	}

	if role == model.RoleManager && s.Managers != nil {
		m := &model.ManagerInfo{
			UserID:        id,
			Website:       in.Website,
			GovIDImageURL: in.GovIDImageURL,
			Status:        model.ManagerPending,
		}
		if in.BusinessAddress != nil {
			m.BusinessAddress = *in.BusinessAddress
		}
		if err := s.Managers.Upsert(ctx, m); err != nil {
			log.Printf("register: save manager info failed for %s: %v", in.Email, err)
		}
	}

	if err := s.OTPs.Upsert(ctx, &model.OTP{
		Email:     in.Email,
		Code:      code,
		ExpiresAt: time.Now().UTC().Add(s.otpTTL()),
	}); err != nil {
		log.Printf("register: save otp failed for %s: %v", in.Email, err)
	}

	s.emit(ctx, queue.NotificationEvent{
		Kind:   queue.KindWelcome,
		UserID: id,
		Email:  in.Email,
		Title:  "Welcome",
		Body:   "Your account was created. Verify your email to get started.",
	})
	s.emit(ctx, queue.NotificationEvent{
		Kind:  queue.KindAdminAlert,
		Email: in.Email,
		Title: "New registration",
		Body:  "A new " + role + " account was registered: " + in.Email,
	})

	if err := s.Mailer.Send(notify.EmailWelcome, in.Email, in.Name, ""); err != nil {
		log.Printf("register: welcome mail failed for %s: %v", in.Email, err)
	}
	if err := s.Mailer.Send(notify.EmailVerification, in.Email, in.Name, code); err != nil {
		log.Printf("register: verification mail failed for %s: %v", in.Email, err)
	}

	if in.FCMToken != nil && *in.FCMToken != "" {
		title, body := "Welcome to the app", "Verify your email to finish signing up."
		if role == model.RoleManager {
			body = "Your manager account is pending review. We'll notify you once it's approved."
		}
		if err := s.Pusher.Send(ctx, *in.FCMToken, title, body); err != nil {
			log.Printf("register: welcome push failed for %s: %v", in.Email, err)
		}
	}
}

// checkCooldown fails with a CooldownError while a previous code for
// the email is still valid. The live code is never overwritten inside
// its window.
func (s *AccountService) checkCooldown(ctx context.Context, email string) error {
	o, err := s.OTPs.Get(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	now := time.Now().UTC()
	if !o.Expired(now) {
		return &repository.CooldownError{Remaining: o.Remaining(now)}
	}
	return nil
}

// ResendOTP issues a fresh code for an email unless the previous one
// is still inside its window. The caller's response is sent before the
// email dispatch and record save, which run detached.
func (s *AccountService) ResendOTP(ctx context.Context, email string) error {
	// A missing user is tolerated here because the registration insert
	// may still be in flight, but a soft-deleted account is locked out
	// of the OTP flow like everywhere else.
	if u, err := s.Users.GetByEmail(ctx, email); err == nil && u.IsDeleted {
		return repository.ErrNotFound
	}
	if err := s.checkCooldown(ctx, email); err != nil {
		return err
	}
	code, err := utils.NewOTPCode()
	if err != nil {
		return err
	}
	go s.deliverOTP(email, code, notify.EmailVerification)
	return nil
}

// deliverOTP persists a new code and mails it. Background half of the
// resend and forgot-password flows.
func (s *AccountService) deliverOTP(email, code string, kind notify.EmailKind) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.OTPs.Upsert(ctx, &model.OTP{
		Email:     email,
		Code:      code,
		ExpiresAt: time.Now().UTC().Add(s.otpTTL()),
	}); err != nil {
		log.Printf("otp: save failed for %s: %v", email, err)
	}

	name := email
	if u, err := s.Users.GetByEmail(ctx, email); err == nil && u.Name != "" {
		name = u.Name
	}
	if err := s.Mailer.Send(kind, email, name, code); err != nil {
		log.Printf("otp: %s mail failed for %s: %v", kind, email, err)
	}
}

// VerifyOTP validates a submitted code against the stored record for
// the token's email. The code must match exactly and still be inside
// its window; any other outcome is the one opaque ErrOTPInvalid.
// Soft-deleted accounts are rejected outright, like login. On
// success the user is marked verified and a session token is
// returned so the client can proceed without logging in again.
func (s *AccountService) VerifyOTP(ctx context.Context, claims utils.Claims, code string) (string, error) {
	u, err := s.Users.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrOTPInvalid
		}
		return "", err
	}
	if u.IsDeleted {
		// A still-valid token must not reopen a deleted account.
		return "", repository.ErrNotFound
	}

	o, err := s.OTPs.Get(ctx, claims.Email)
	if err != nil {
		return "", ErrOTPInvalid
	}
	if o.Code != code || o.Expired(time.Now().UTC()) {
		return "", ErrOTPInvalid
	}

	if err := s.Users.SetVerified(ctx, claims.Email); err != nil {
		return "", err
	}
	u.IsVerified = true

	token, err := utils.NewSessionToken(s.Cfg.JWTSecret, u.ID, u.Email, u.Role, s.sessionTTL())
	if err != nil {
		return "", err
	}

	ev := queue.NotificationEvent{
		Kind:   queue.KindVerified,
		UserID: u.ID,
		Email:  u.Email,
		Title:  "Email verified",
		Body:   "Your email address has been confirmed.",
	}
	go func() {
		bg, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.emit(bg, ev)
	}()

	return token, nil
}

// LoginResult is what Login hands back to the handler. Verified
// selects between the full 200 response and the reduced-trust
// response for accounts still waiting on OTP verification.
type LoginResult struct {
	User     model.User
	Token    string
	Verified bool
}

// Login authenticates by email and password. Soft-deleted accounts
// behave as absent. Unverified accounts short-circuit before the
// password check: they receive a session token and are funnelled back
// into the OTP flow, with a fresh code issued in the background.
func (s *AccountService) Login(ctx context.Context, email, password string, fcmToken *string) (LoginResult, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, err
	}
	if u.IsDeleted {
		// Deleted accounts are locked out before any credential check.
		return LoginResult{}, repository.ErrNotFound
	}

	token, err := utils.NewSessionToken(s.Cfg.JWTSecret, u.ID, u.Email, u.Role, s.sessionTTL())
	if err != nil {
		return LoginResult{}, err
	}

	if !u.IsVerified {
		// Password deliberately not checked on this branch.
		code, err := utils.NewOTPCode()
		if err != nil {
			return LoginResult{}, err
		}
		go s.deliverOTP(u.Email, code, notify.EmailVerification)
		return LoginResult{User: u, Token: token, Verified: false}, nil
	}

	if !utils.VerifyPassword(u.PasswordHash, password) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if fcmToken != nil && *fcmToken != "" {
		if err := s.Users.SetFCMToken(ctx, u.ID, *fcmToken); err != nil {
			log.Printf("login: save fcm token failed for %s: %v", u.Email, err)
		}
		u.FCMToken = fcmToken
	}
	return LoginResult{User: u, Token: token, Verified: true}, nil
}

// ForgotPassword starts a reset flow for an existing, non-deleted
// account. The same cooldown as resend applies. It returns an
// email-bound token; the reset mail and OTP save run detached.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) (string, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if u.IsDeleted {
		return "", repository.ErrNotFound
	}
	if err := s.checkCooldown(ctx, email); err != nil {
		return "", err
	}
	token, err := utils.NewEmailToken(s.Cfg.JWTSecret, u.Email, s.emailTokenTTL())
	if err != nil {
		return "", err
	}
	code, err := utils.NewOTPCode()
	if err != nil {
		return "", err
	}
	go s.deliverOTP(u.Email, code, notify.EmailPasswordReset)
	return token, nil
}

// ResetPassword accepts a new password for the account named in the
// claims. It requires a session token (role claim present) — the raw
// registration token is not enough. The caller gets its success
// response before the hash is persisted; that write runs detached.
func (s *AccountService) ResetPassword(claims utils.Claims, newPassword string) error {
	if !claims.Session() {
		return utils.ErrInvalidToken
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		hash, err := utils.HashPassword(newPassword, s.Cfg.BcryptCost)
		if err != nil {
			log.Printf("reset-password: hash failed for %s: %v", claims.Email, err)
			return
		}
		if err := s.Users.SetPasswordByEmail(ctx, claims.Email, hash); err != nil {
			log.Printf("reset-password: persist failed for %s: %v", claims.Email, err)
		}
	}()
	return nil
}

// ChangePassword replaces the password of an authenticated user. The
// old password must verify against the stored hash first; both the
// check and the write happen before the response.
func (s *AccountService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}
	hash, err := utils.HashPassword(newPassword, s.Cfg.BcryptCost)
	if err != nil {
		return err
	}
	return s.Users.SetPassword(ctx, u.ID, hash)
}

// emit publishes a realtime notification event, logging failures.
func (s *AccountService) emit(ctx context.Context, ev queue.NotificationEvent) {
	if s.Publish == nil {
		return
	}
	ev.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := s.Publish(ctx, ev); err != nil {
		log.Printf("notify: emit %s failed for %s: %v", ev.Kind, ev.Email, err)
	}
}
