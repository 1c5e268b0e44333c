package service

import (
	"context"
	"errors"
	"log"

	"github.com/iliyamo/user-account-service/internal/config"
	"github.com/iliyamo/user-account-service/internal/model"
	"github.com/iliyamo/user-account-service/internal/repository"
	"github.com/iliyamo/user-account-service/internal/utils"
)

// SeedAdmins makes sure each configured admin account exists. It is
// idempotent: every email is checked before insert, so repeated
// startups never create duplicates. Accounts are created verified.
// Seeding failures are logged and skipped; a broken seed entry must
// not keep the server from starting.
func SeedAdmins(ctx context.Context, users UserStore, cfg config.Config) {
	if len(cfg.AdminEmails) == 0 {
		return
	}
	if cfg.AdminPassword == "" {
		log.Printf("seed: ADMIN_EMAILS set but ADMIN_PASSWORD empty, skipping")
		return
	}
	for _, email := range cfg.AdminEmails {
		if _, err := users.GetByEmail(ctx, email); err == nil {
			continue // already present
		} else if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("seed: lookup %s failed: %v", email, err)
			continue
		}
		hash, err := utils.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
		if err != nil {
			log.Printf("seed: hash for %s failed: %v", email, err)
			continue
		}
		if _, err := users.Create(ctx, &model.User{
			Email:        email,
			PasswordHash: hash,
			Role:         model.RoleAdmin,
			IsVerified:   true,
			Name:         "Administrator",
		}); err != nil {
			log.Printf("seed: create %s failed: %v", email, err)
			continue
		}
		log.Printf("seed: created admin account %s", email)
	}
}
