package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/user-account-service/internal/config"
	"github.com/iliyamo/user-account-service/internal/model"
	"github.com/iliyamo/user-account-service/internal/notify"
	"github.com/iliyamo/user-account-service/internal/queue"
	"github.com/iliyamo/user-account-service/internal/repository"
	"github.com/iliyamo/user-account-service/internal/utils"
)

// ----- in-memory fakes -----
// The service spawns goroutines against these, so every fake is
// mutex-guarded.

type fakeUsers struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]*model.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{nextID: 1, byID: map[uint64]*model.User{}}
}

func (f *fakeUsers) add(u model.User) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = f.nextID
	f.nextID++
	cp := u
	f.byID[cp.ID] = &cp
	return &cp
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ex := range f.byID {
		if ex.Email == u.Email {
			return 0, repository.ErrEmailExists
		}
	}
	u.ID = f.nextID
	f.nextID++
	cp := *u
	f.byID[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range f.byID {
		if u.Email == email {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		return *u, nil
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) SetVerified(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			u.IsVerified = true
		}
	}
	return nil
}

func (f *fakeUsers) SetPassword(_ context.Context, id uint64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (f *fakeUsers) SetPasswordByEmail(_ context.Context, email, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			u.PasswordHash = hash
		}
	}
	return nil
}

func (f *fakeUsers) SetFCMToken(_ context.Context, id uint64, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.FCMToken = &token
	}
	return nil
}

type fakeOTPs struct {
	mu      sync.Mutex
	byEmail map[string]model.OTP
}

func newFakeOTPs() *fakeOTPs { return &fakeOTPs{byEmail: map[string]model.OTP{}} }

func (f *fakeOTPs) Upsert(_ context.Context, o *model.OTP) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byEmail[o.Email] = *o
	return nil
}

func (f *fakeOTPs) Get(_ context.Context, email string) (model.OTP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.byEmail[email]; ok {
		return o, nil
	}
	return model.OTP{}, repository.ErrNotFound
}

type fakeManagers struct {
	mu     sync.Mutex
	byUser map[uint64]model.ManagerInfo
}

func newFakeManagers() *fakeManagers { return &fakeManagers{byUser: map[uint64]model.ManagerInfo{}} }

func (f *fakeManagers) Upsert(_ context.Context, m *model.ManagerInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byUser[m.UserID] = *m
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []notify.EmailKind
}

func (f *fakeMailer) Send(kind notify.EmailKind, _, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, kind)
	return nil
}

type fakePusher struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakePusher) Send(_ context.Context, token, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, token)
	return nil
}

func testService(users *fakeUsers, otps *fakeOTPs) *AccountService {
	return &AccountService{
		Users:    users,
		OTPs:     otps,
		Managers: newFakeManagers(),
		Mailer:   &fakeMailer{},
		Pusher:   &fakePusher{},
		Publish: func(context.Context, queue.NotificationEvent) error {
			return nil
		},
		Cfg: config.Config{
			JWTSecret:        "test-secret",
			EmailTokenTTLMin: 15,
			SessionTTLHours:  1,
			BcryptCost:       4,
			OTPTTLSec:        60,
		},
	}
}

// ----- registration -----

func TestRegisterReturnsEmailToken(t *testing.T) {
	s := testService(newFakeUsers(), newFakeOTPs())

	token, err := s.Register(context.Background(), RegisterInput{
		Name: "Dave", Email: "dave@example.com", Password: "pw",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	claims, err := utils.ParseToken("test-secret", token)
	if err != nil {
		t.Fatalf("returned token does not parse: %v", err)
	}
	if claims.Email != "dave@example.com" {
		t.Errorf("token email = %q", claims.Email)
	}
	if claims.Session() {
		t.Error("registration token must not carry a role claim")
	}
}

func TestCompleteRegistrationCreatesUnverifiedUser(t *testing.T) {
	users := newFakeUsers()
	otps := newFakeOTPs()
	s := testService(users, otps)
	fcm := "device-token"

	// Run the background half synchronously.
	addr := "12 Harbour St"
	s.completeRegistration(RegisterInput{
		Name: "Eve", Email: "eve@example.com", Password: "pw",
		Role: model.RoleManager, FCMToken: &fcm,
		BusinessAddress: &addr,
	}, "123456")

	u, err := users.GetByEmail(context.Background(), "eve@example.com")
	if err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if u.IsVerified {
		t.Error("new user must start unverified")
	}
	if u.Role != model.RoleManager {
		t.Errorf("role = %q, want manager", u.Role)
	}
	if !utils.VerifyPassword(u.PasswordHash, "pw") {
		t.Error("stored hash does not verify")
	}

	o, err := otps.Get(context.Background(), "eve@example.com")
	if err != nil {
		t.Fatalf("otp not stored: %v", err)
	}
	if o.Code != "123456" || o.Expired(time.Now().UTC()) {
		t.Errorf("otp record wrong: %+v", o)
	}

	p := s.Pusher.(*fakePusher)
	p.mu.Lock()
	if len(p.sent) != 1 || p.sent[0] != "device-token" {
		t.Errorf("welcome push not sent: %v", p.sent)
	}
	p.mu.Unlock()

	// Both the welcome mail and the code mail go out at registration.
	ml := s.Mailer.(*fakeMailer)
	ml.mu.Lock()
	kinds := map[notify.EmailKind]bool{}
	for _, k := range ml.sent {
		kinds[k] = true
	}
	ml.mu.Unlock()
	if !kinds[notify.EmailWelcome] || !kinds[notify.EmailVerification] {
		t.Errorf("mails sent = %v, want welcome and verification", ml.sent)
	}

	// Manager registrations open a pending review record.
	m := s.Managers.(*fakeManagers)
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.byUser[u.ID]
	if !ok {
		t.Fatal("manager info not created")
	}
	if info.Status != model.ManagerPending || info.BusinessAddress != "12 Harbour St" {
		t.Errorf("manager info wrong: %+v", info)
	}
}

func TestCompleteRegistrationDuplicateIsSilent(t *testing.T) {
	users := newFakeUsers()
	users.add(model.User{Email: "dup@example.com"})
	s := testService(users, newFakeOTPs())

	// Must not panic or error; the conflict is logged only.
	s.completeRegistration(RegisterInput{Name: "X", Email: "dup@example.com", Password: "pw"}, "111111")

	if _, err := s.OTPs.Get(context.Background(), "dup@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Error("otp must not be stored when the create failed")
	}
}

// ----- OTP state machine -----

func TestResendCooldown(t *testing.T) {
	otps := newFakeOTPs()
	s := testService(newFakeUsers(), otps)
	ctx := context.Background()

	// Live record: resend is rejected with the remaining window.
	otps.Upsert(ctx, &model.OTP{Email: "a@example.com", Code: "222222",
		ExpiresAt: time.Now().UTC().Add(40 * time.Second)})

	err := s.ResendOTP(ctx, "a@example.com")
	ce, ok := repository.AsCooldown(err)
	if !ok {
		t.Fatalf("err = %v, want CooldownError", err)
	}
	if ce.Remaining <= 0 || ce.Remaining > 60*time.Second {
		t.Errorf("remaining = %v, want within (0, 60s]", ce.Remaining)
	}

	// The live code must not have been overwritten.
	o, _ := otps.Get(ctx, "a@example.com")
	if o.Code != "222222" {
		t.Errorf("cooldown overwrote the live code: %q", o.Code)
	}

	// Expired record: resend goes through.
	otps.Upsert(ctx, &model.OTP{Email: "b@example.com", Code: "333333",
		ExpiresAt: time.Now().UTC().Add(-time.Second)})
	if err := s.ResendOTP(ctx, "b@example.com"); err != nil {
		t.Errorf("resend after expiry: %v", err)
	}
}

func TestVerifyOTP(t *testing.T) {
	users := newFakeUsers()
	u := users.add(model.User{Email: "v@example.com", Role: model.RoleUser})
	otps := newFakeOTPs()
	s := testService(users, otps)
	ctx := context.Background()
	claims := utils.Claims{Email: "v@example.com"}

	otps.Upsert(ctx, &model.OTP{Email: "v@example.com", Code: "654321",
		ExpiresAt: time.Now().UTC().Add(time.Minute)})

	// Wrong code and missing record are the same opaque failure.
	if _, err := s.VerifyOTP(ctx, claims, "000000"); !errors.Is(err, ErrOTPInvalid) {
		t.Errorf("wrong code: err = %v, want ErrOTPInvalid", err)
	}
	if _, err := s.VerifyOTP(ctx, utils.Claims{Email: "nobody@example.com"}, "654321"); !errors.Is(err, ErrOTPInvalid) {
		t.Errorf("missing record: err = %v, want ErrOTPInvalid", err)
	}

	token, err := s.VerifyOTP(ctx, claims, "654321")
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	got, _ := users.GetByID(ctx, u.ID)
	if !got.IsVerified {
		t.Error("user not marked verified")
	}
	sc, err := utils.ParseToken("test-secret", token)
	if err != nil || !sc.Session() {
		t.Errorf("expected session token after verification, got %+v (%v)", sc, err)
	}

	// Expired code fails with the same opaque error.
	otps.Upsert(ctx, &model.OTP{Email: "v@example.com", Code: "654321",
		ExpiresAt: time.Now().UTC().Add(-time.Second)})
	if _, err := s.VerifyOTP(ctx, claims, "654321"); !errors.Is(err, ErrOTPInvalid) {
		t.Errorf("expired code: err = %v, want ErrOTPInvalid", err)
	}
}

func TestDeletedAccountCannotReauthenticate(t *testing.T) {
	users := newFakeUsers()
	otps := newFakeOTPs()
	s := testService(users, otps)
	ctx := context.Background()

	users.add(model.User{Email: "gone@example.com", Role: model.RoleUser,
		IsVerified: true, IsDeleted: true})
	otps.Upsert(ctx, &model.OTP{Email: "gone@example.com", Code: "424242",
		ExpiresAt: time.Now().UTC().Add(time.Minute)})

	// A deleted account holding a still-valid token must not get a
	// fresh code, and must not mint a session token through the
	// verification path.
	if err := s.ResendOTP(ctx, "gone@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("resend for deleted account: err = %v, want ErrNotFound", err)
	}
	if _, err := s.VerifyOTP(ctx, utils.Claims{Email: "gone@example.com"}, "424242"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("verify for deleted account: err = %v, want ErrNotFound", err)
	}
	got, _ := users.GetByEmail(ctx, "gone@example.com")
	if !got.IsDeleted {
		t.Error("deleted flag must survive the attempts")
	}
}

// ----- login -----

func TestLoginBranches(t *testing.T) {
	users := newFakeUsers()
	otps := newFakeOTPs()
	s := testService(users, otps)
	ctx := context.Background()

	hash, _ := utils.HashPassword("right", 4)
	users.add(model.User{Email: "ok@example.com", PasswordHash: hash,
		Role: model.RoleUser, IsVerified: true})
	users.add(model.User{Email: "gone@example.com", PasswordHash: hash,
		Role: model.RoleUser, IsVerified: true, IsDeleted: true})
	// Garbage hash: the unverified branch must never look at it.
	users.add(model.User{Email: "new@example.com", PasswordHash: "",
		Role: model.RoleUser, IsVerified: false})

	if _, err := s.Login(ctx, "missing@example.com", "x", nil); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("missing account: err = %v", err)
	}
	if _, err := s.Login(ctx, "gone@example.com", "right", nil); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("deleted account: err = %v", err)
	}
	if _, err := s.Login(ctx, "ok@example.com", "wrong", nil); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v", err)
	}

	res, err := s.Login(ctx, "new@example.com", "whatever", nil)
	if err != nil {
		t.Fatalf("unverified login must not fail on the password: %v", err)
	}
	if res.Verified {
		t.Error("unverified account reported as verified")
	}
	if _, err := utils.ParseToken("test-secret", res.Token); err != nil {
		t.Errorf("unverified branch token invalid: %v", err)
	}

	fcm := "new-device"
	res, err = s.Login(ctx, "ok@example.com", "right", &fcm)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.Verified {
		t.Error("verified account reported as unverified")
	}
	stored, _ := users.GetByEmail(ctx, "ok@example.com")
	if stored.FCMToken == nil || *stored.FCMToken != "new-device" {
		t.Error("fcm token not persisted on login")
	}
}

// ----- password flows -----

func TestForgotPassword(t *testing.T) {
	users := newFakeUsers()
	otps := newFakeOTPs()
	s := testService(users, otps)
	ctx := context.Background()

	users.add(model.User{Email: "f@example.com", Role: model.RoleUser})
	users.add(model.User{Email: "del@example.com", Role: model.RoleUser, IsDeleted: true})

	if _, err := s.ForgotPassword(ctx, "nobody@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("missing account: err = %v", err)
	}
	if _, err := s.ForgotPassword(ctx, "del@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("deleted account: err = %v", err)
	}

	token, err := s.ForgotPassword(ctx, "f@example.com")
	if err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	claims, err := utils.ParseToken("test-secret", token)
	if err != nil || claims.Email != "f@example.com" || claims.Session() {
		t.Errorf("forgot token wrong: %+v (%v)", claims, err)
	}

	// A live code blocks a second request.
	otps.Upsert(ctx, &model.OTP{Email: "f@example.com", Code: "999999",
		ExpiresAt: time.Now().UTC().Add(30 * time.Second)})
	if _, err := s.ForgotPassword(ctx, "f@example.com"); err == nil {
		t.Error("expected cooldown error on second request")
	} else if _, ok := repository.AsCooldown(err); !ok {
		t.Errorf("err = %v, want CooldownError", err)
	}
}

func TestResetPasswordRequiresSessionToken(t *testing.T) {
	s := testService(newFakeUsers(), newFakeOTPs())
	if err := s.ResetPassword(utils.Claims{Email: "x@example.com"}, "new"); !errors.Is(err, utils.ErrInvalidToken) {
		t.Errorf("email-only token accepted: err = %v", err)
	}
	if err := s.ResetPassword(utils.Claims{UserID: 1, Email: "x@example.com", Role: "user"}, "new"); err != nil {
		t.Errorf("session token rejected: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	users := newFakeUsers()
	s := testService(users, newFakeOTPs())
	ctx := context.Background()

	hash, _ := utils.HashPassword("old", 4)
	u := users.add(model.User{Email: "c@example.com", PasswordHash: hash, Role: model.RoleUser})

	if err := s.ChangePassword(ctx, u.ID, "nope", "new"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong old password: err = %v", err)
	}
	if err := s.ChangePassword(ctx, u.ID, "old", "new"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	got, _ := users.GetByID(ctx, u.ID)
	if !utils.VerifyPassword(got.PasswordHash, "new") {
		t.Error("new password does not verify")
	}
	if utils.VerifyPassword(got.PasswordHash, "old") {
		t.Error("old password still verifies")
	}
}

// ----- seeding -----

func TestSeedAdminsIdempotent(t *testing.T) {
	users := newFakeUsers()
	cfg := config.Config{
		BcryptCost:    4,
		AdminEmails:   []string{"root@example.com"},
		AdminPassword: "bootstrap",
	}
	ctx := context.Background()

	SeedAdmins(ctx, users, cfg)
	SeedAdmins(ctx, users, cfg)

	users.mu.Lock()
	defer users.mu.Unlock()
	if len(users.byID) != 1 {
		t.Fatalf("seeded %d accounts, want 1", len(users.byID))
	}
	for _, u := range users.byID {
		if u.Role != model.RoleAdmin || !u.IsVerified {
			t.Errorf("seeded account wrong: %+v", u)
		}
	}
}
