package repository

import (
	"context"
	"database/sql"
	"math"
	"strings"
	"time"

	"github.com/iliyamo/user-account-service/internal/model"
)

// UserRepo wraps CRUD and query operations on the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,phone,password_hash,role,is_verified,is_deleted,name,image_path,image_url,address,age_range,fcm_token,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.PasswordHash, &u.Role,
		&u.IsVerified, &u.IsDeleted, &u.Name, &u.ImagePath, &u.ImageURL,
		&u.Address, &u.AgeRange, &u.FCMToken, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

// Create inserts a new user and returns its ID. The email is
// normalized to lowercase before insert. A duplicate email is
// reported as ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) (uint64, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (email, phone, password_hash, role, is_verified, is_deleted, name, image_path, image_url, fcm_token)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		u.Email, u.Phone, u.PasswordHash, u.Role, u.IsVerified, false, u.Name, u.ImagePath, u.ImageURL, u.FCMToken)
	if err != nil {
		// MySQL error 1062: duplicate entry for the unique email key.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// SetVerified flips the verification flag after a successful OTP check.
func (r *UserRepo) SetVerified(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_verified=TRUE WHERE email=? AND is_deleted=FALSE", email)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either the user never finished registration or was deleted.
		if _, err := r.GetByEmail(ctx, email); err != nil {
			return err
		}
	}
	return nil
}

// SetPassword replaces the stored password hash.
func (r *UserRepo) SetPassword(ctx context.Context, id uint64, hash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", hash, id)
	return err
}

// SetPasswordByEmail replaces the stored password hash, addressing the
// user by email. Used by the reset flow whose token carries the email.
func (r *UserRepo) SetPasswordByEmail(ctx context.Context, email, hash string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE email=?", hash, email)
	return err
}

// SetFCMToken overwrites the device push token. Each login replaces
// whatever token the previous device registered.
func (r *UserRepo) SetFCMToken(ctx context.Context, id uint64, token string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET fcm_token=? WHERE id=?", token, id)
	return err
}

// ProfileUpdate carries the optional fields of a partial profile
// update. Nil fields are left untouched.
type ProfileUpdate struct {
	Name      *string
	AgeRange  *string
	Address   *string
	ImagePath *string
	ImageURL  *string
}

// UpdateProfile applies a partial update to the caller's own record.
// Only non-nil fields produce SET clauses; an update with no fields
// is a no-op.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, p ProfileUpdate) error {
	set := []string{}
	args := []any{}
	if p.Name != nil {
		set = append(set, "name=?")
		args = append(args, *p.Name)
	}
	if p.AgeRange != nil {
		set = append(set, "age_range=?")
		args = append(args, *p.AgeRange)
	}
	if p.Address != nil {
		set = append(set, "address=?")
		args = append(args, *p.Address)
	}
	if p.ImagePath != nil {
		set = append(set, "image_path=?")
		args = append(args, *p.ImagePath)
	}
	if p.ImageURL != nil {
		set = append(set, "image_url=?")
		args = append(args, *p.ImageURL)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(set, ", ")+" WHERE id=?", args...)
	return err
}

// SoftDelete marks a user as deleted without removing the row.
// Deleting an already-deleted account fails with ErrAlreadyDeleted.
func (r *UserRepo) SoftDelete(ctx context.Context, id uint64) error {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.IsDeleted {
		return ErrAlreadyDeleted
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET is_deleted=TRUE WHERE id=?", id)
	return err
}

// UserListQuery defines filters & pagination for the admin user list.
type UserListQuery struct {
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Name          string // partial, case-insensitive
	Email         string // partial, case-insensitive
	Role          string
	ManagerStatus string // filters manager accounts by review state
	Page          int
	Limit         int
}

// UserPage is one page of the admin list plus its count totals.
type UserPage struct {
	Users      []model.User
	TotalItems int64
	TotalPages int
}

// List returns a filtered, paginated slice of users with their
// manager-info records attached. Soft-deleted accounts are excluded.
func (r *UserRepo) List(ctx context.Context, q UserListQuery) (UserPage, error) {
	where := []string{"u.is_deleted=FALSE"}
	args := []any{}

	if q.CreatedFrom != nil {
		where = append(where, "u.created_at >= ?")
		args = append(args, *q.CreatedFrom)
	}
	if q.CreatedTo != nil {
		where = append(where, "u.created_at <= ?")
		args = append(args, *q.CreatedTo)
	}
	if q.Name != "" {
		where = append(where, "LOWER(u.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Name)+"%")
	}
	if q.Email != "" {
		where = append(where, "LOWER(u.email) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Email)+"%")
	}
	if q.Role != "" {
		where = append(where, "u.role = ?")
		args = append(args, q.Role)
	}
	if q.ManagerStatus != "" {
		where = append(where, "EXISTS (SELECT 1 FROM manager_info m WHERE m.user_id=u.id AND m.status=?)")
		args = append(args, q.ManagerStatus)
	}
	cond := strings.Join(where, " AND ")

	var page UserPage
	countSQL := "SELECT COUNT(*) FROM users u WHERE " + cond
	if err := r.DB.QueryRowContext(ctx, countSQL, args...).Scan(&page.TotalItems); err != nil {
		return page, err
	}

	limit := q.Limit
	if limit < 1 {
		limit = 10
	}
	pageNum := q.Page
	if pageNum < 1 {
		pageNum = 1
	}
	offset := (pageNum - 1) * limit

	dataSQL := "SELECT " + prefixColumns("u.") + ` FROM users u
		WHERE ` + cond + `
		ORDER BY u.created_at DESC
		LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.DB.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return page, err
	}
	defer rows.Close()

	out := make([]model.User, 0, limit)
	managerIDs := []uint64{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Phone, &u.PasswordHash, &u.Role,
			&u.IsVerified, &u.IsDeleted, &u.Name, &u.ImagePath, &u.ImageURL,
			&u.Address, &u.AgeRange, &u.FCMToken, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return page, err
		}
		if u.Role == model.RoleManager {
			managerIDs = append(managerIDs, u.ID)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return page, err
	}

	// Denormalized join: fetch the page's manager-info rows in one
	// query and attach them to the corresponding users.
	if len(managerIDs) > 0 {
		infos, err := NewManagerRepo(r.DB).GetByUserIDs(ctx, managerIDs)
		if err != nil {
			return page, err
		}
		for i := range out {
			if mi, ok := infos[out[i].ID]; ok {
				out[i].Manager = mi
			}
		}
	}

	page.Users = out
	page.TotalPages = int(math.Ceil(float64(page.TotalItems) / float64(limit)))
	return page, nil
}

// prefixColumns rewrites userColumns with a table alias for joins.
func prefixColumns(alias string) string {
	cols := strings.Split(userColumns, ",")
	for i := range cols {
		cols[i] = alias + cols[i]
	}
	return strings.Join(cols, ",")
}
