package seed

import (
	"context"
	"errors"
	"fmt"

	"fieldreport/internal/auth"
	"fieldreport/internal/store"
	"fieldreport/pkg/types"
)

// SeedAdmin creates the administrator account if it does not exist yet. This
// is the only way admin accounts come into being; no API route creates them.
func SeedAdmin(ctx context.Context, adminRepo *store.AdminRepository, email, name, password string) error {
	_, err := adminRepo.AdminByEmail(ctx, email)
	if err == nil {
		return fmt.Errorf("admin %s already exists", email)
	}
	if !errors.Is(err, types.ErrAdminNotFound) {
		return fmt.Errorf("failed to check for existing admin: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &types.Admin{
		Email:    email,
		Password: hash,
		Name:     name,
	}

	if err := adminRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	return nil
}
