package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cutroom/internal/domain"
	"cutroom/internal/engine/auth"
	"cutroom/internal/repo"
)

type InviteInput struct {
	FullName string
	Email    string
	Password string
	Role     domain.Role
}

func (e Engine) InviteUser(ctx context.Context, actor auth.Actor, in InviteInput) (domain.Profile, error) {
	if err := auth.RequireRole(actor, "invite user", domain.RoleAdmin); err != nil {
		return domain.Profile{}, err
	}
	return e.createProfile(ctx, in)
}

// SeedAdmin creates the first admin profile. It refuses once any profile exists.
func (e Engine) SeedAdmin(ctx context.Context, in InviteInput) (domain.Profile, error) {
	n, err := e.Repo.CountProfiles(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	if n > 0 {
		return domain.Profile{}, invalid("profiles", "profiles already exist")
	}
	in.Role = domain.RoleAdmin
	return e.createProfile(ctx, in)
}

func (e Engine) createProfile(ctx context.Context, in InviteInput) (domain.Profile, error) {
	name := strings.TrimSpace(in.FullName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case name == "":
		return domain.Profile{}, invalid("full_name", "required")
	case email == "" || !strings.Contains(email, "@"):
		return domain.Profile{}, invalid("email", "valid email required")
	case len(in.Password) < auth.MinPasswordLength:
		return domain.Profile{}, invalid("password", fmt.Sprintf("must be at least %d characters", auth.MinPasswordLength))
	case !in.Role.Valid():
		return domain.Profile{}, invalid("role", fmt.Sprintf("unknown role %q", in.Role))
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("hash password: %w", err)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Profile{}, err
	}
	defer tx.Rollback()
	if _, err := e.Repo.GetProfileByEmailTx(ctx, tx, email); err == nil {
		return domain.Profile{}, invalid("email", "already registered")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Profile{}, err
	}
	p := domain.Profile{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     name,
		Role:         in.Role,
		PasswordHash: hash,
		CreatedAt:    domain.FormatTime(e.now()),
	}
	if err := e.Repo.InsertProfileTx(ctx, tx, p); err != nil {
		return domain.Profile{}, fmt.Errorf("insert profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Profile{}, err
	}
	e.logger().Info("profile created", zap.String("profile_id", p.ID), zap.String("role", string(p.Role)))
	return p, nil
}

// UpdateUserRole changes a role. The last admin cannot be demoted.
func (e Engine) UpdateUserRole(ctx context.Context, actor auth.Actor, userID string, role domain.Role) error {
	if err := auth.RequireRole(actor, "update user role", domain.RoleAdmin); err != nil {
		return err
	}
	if !role.Valid() {
		return invalid("role", fmt.Sprintf("unknown role %q", role))
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	target, err := e.Repo.GetProfileTx(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("user", userID)
		}
		return err
	}
	if target.Role == domain.RoleAdmin && role != domain.RoleAdmin {
		admins, err := e.Repo.CountAdminsTx(ctx, tx)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return invalid("role", "cannot demote the last admin")
		}
	}
	if err := e.Repo.UpdateProfileRoleTx(ctx, tx, userID, role); err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.logger().Info("role updated", zap.String("profile_id", userID), zap.String("role", string(role)), zap.String("actor_id", actor.ID))
	return nil
}

type AccountInput struct {
	Email    *string
	Password *string
}

// UpdateAccount lets a user change their own email and password.
func (e Engine) UpdateAccount(ctx context.Context, actor auth.Actor, in AccountInput) (domain.Profile, error) {
	if actor.ID == "" {
		return domain.Profile{}, auth.ForbiddenError{Action: "update account", Requirement: "signed-in user"}
	}
	var email, hash *string
	if in.Email != nil {
		v := strings.ToLower(strings.TrimSpace(*in.Email))
		if v == "" || !strings.Contains(v, "@") {
			return domain.Profile{}, invalid("email", "valid email required")
		}
		email = &v
	}
	if in.Password != nil {
		if len(*in.Password) < auth.MinPasswordLength {
			return domain.Profile{}, invalid("password", fmt.Sprintf("must be at least %d characters", auth.MinPasswordLength))
		}
		h, err := auth.HashPassword(*in.Password)
		if err != nil {
			return domain.Profile{}, fmt.Errorf("hash password: %w", err)
		}
		hash = &h
	}
	if email == nil && hash == nil {
		return domain.Profile{}, invalid("account", "nothing to update")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Profile{}, err
	}
	defer tx.Rollback()
	if email != nil {
		existing, err := e.Repo.GetProfileByEmailTx(ctx, tx, *email)
		if err == nil && existing.ID != actor.ID {
			return domain.Profile{}, invalid("email", "already registered")
		}
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return domain.Profile{}, err
		}
	}
	if err := e.Repo.UpdateProfileAccountTx(ctx, tx, actor.ID, email, hash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Profile{}, notFound("user", actor.ID)
		}
		return domain.Profile{}, err
	}
	p, err := e.Repo.GetProfileTx(ctx, tx, actor.ID)
	if err != nil {
		return domain.Profile{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}
