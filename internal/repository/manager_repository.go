package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/user-account-service/internal/model"
)

// ManagerRepo persists the review records of manager accounts
// (`manager_info` table, one row per manager user).
type ManagerRepo struct{ DB *sql.DB }

func NewManagerRepo(db *sql.DB) *ManagerRepo { return &ManagerRepo{DB: db} }

// Upsert inserts or replaces the manager-info row for a user.
func (r *ManagerRepo) Upsert(ctx context.Context, m *model.ManagerInfo) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO manager_info (user_id, business_address, website, gov_id_image_url, status)
		 VALUES (?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE business_address=VALUES(business_address),
		   website=VALUES(website), gov_id_image_url=VALUES(gov_id_image_url), status=VALUES(status)`,
		m.UserID, m.BusinessAddress, m.Website, m.GovIDImageURL, m.Status)
	return err
}

// GetByUserIDs loads manager-info rows for a set of users in one
// query, keyed by user id. Used by the admin list to attach the
// records to each page of managers.
func (r *ManagerRepo) GetByUserIDs(ctx context.Context, ids []uint64) (map[uint64]*model.ManagerInfo, error) {
	out := make(map[uint64]*model.ManagerInfo, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	ph := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		ph[i] = "?"
		args[i] = id
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT user_id, business_address, website, gov_id_image_url, status FROM manager_info WHERE user_id IN ("+strings.Join(ph, ",")+")",
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m model.ManagerInfo
		if err := rows.Scan(&m.UserID, &m.BusinessAddress, &m.Website, &m.GovIDImageURL, &m.Status); err != nil {
			return nil, err
		}
		out[m.UserID] = &m
	}
	return out, rows.Err()
}
