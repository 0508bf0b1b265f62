package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"cutroom/internal/domain"
	"cutroom/internal/repo"
)

// ForbiddenError indicates the actor may not perform an action.
type ForbiddenError struct {
	Action      string
	Requirement string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("permission denied: %s requires %s", e.Action, e.Requirement)
}

// ErrInvalidCredentials is returned for any failed login, without saying which part was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

const MinPasswordLength = 8

// Actor is an authenticated user and their role.
type Actor struct {
	ID   string
	Role domain.Role
}

func (a Actor) Is(roles ...domain.Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

func RequireRole(a Actor, action string, roles ...domain.Role) error {
	if a.ID != "" && a.Is(roles...) {
		return nil
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}
	return ForbiddenError{Action: action, Requirement: "role " + strings.Join(names, " or ")}
}

func RequireAdminOrCreator(a Actor, action string, p domain.Project) error {
	if a.ID != "" && (a.Role == domain.RoleAdmin || a.ID == p.CreatedBy) {
		return nil
	}
	return ForbiddenError{Action: action, Requirement: "admin role or project creator"}
}

func RequireAssignedEditor(a Actor, action string, p domain.Project) error {
	if a.ID != "" && p.AssignedEditorID != nil && *p.AssignedEditorID == a.ID {
		return nil
	}
	return ForbiddenError{Action: action, Requirement: "assigned editor"}
}

// Service resolves identities from the profile table.
type Service struct {
	Repo repo.Repo
}

// Actor loads the current role for a user id. The stored profile is authoritative.
func (s Service) Actor(ctx context.Context, userID string) (Actor, error) {
	if strings.TrimSpace(userID) == "" {
		return Actor{}, errors.New("user id required")
	}
	p, err := s.Repo.GetProfile(ctx, userID)
	if err != nil {
		return Actor{}, err
	}
	return Actor{ID: p.ID, Role: p.Role}, nil
}

// ActorByEmailOrID accepts either identifier, as used by the CLI --actor flag.
func (s Service) ActorByEmailOrID(ctx context.Context, ident string) (Actor, error) {
	if strings.Contains(ident, "@") {
		p, err := s.Repo.GetProfileByEmail(ctx, ident)
		if err != nil {
			return Actor{}, err
		}
		return Actor{ID: p.ID, Role: p.Role}, nil
	}
	return s.Actor(ctx, ident)
}

func (s Service) Authenticate(ctx context.Context, email, password string) (domain.Profile, error) {
	p, err := s.Repo.GetProfileByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Profile{}, ErrInvalidCredentials
		}
		return domain.Profile{}, err
	}
	if p.PasswordHash == "" {
		return domain.Profile{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return domain.Profile{}, ErrInvalidCredentials
	}
	return p, nil
}

func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
