package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// UserService provisions and manages user accounts. Only administrators may
// create or mutate accounts; there is no self-service signup.
type UserService struct {
	users       persistence.UserRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

func NewUserService(users persistence.UserRepository, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, idGenerator, now, nil)
}

func NewUserServiceWithLogger(users persistence.UserRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

// CreateUser provisions an account with an argon2id password hash. Email and
// PIN collisions surface as ErrAlreadyExists.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (persistence.User, error) {
	if s == nil || s.users == nil {
		return persistence.User{}, fmt.Errorf("user repository not configured")
	}
	if !params.Principal.IsAdmin {
		return persistence.User{}, ErrUnauthorized
	}

	input := normalizeUserInput(params.Input)
	if vErr := validateUserInput(input, true); vErr != nil {
		return persistence.User{}, vErr
	}

	hash, err := CreatePasswordHash(input.Password, DefaultArgon2idParams)
	if err != nil {
		return persistence.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := persistence.User{
		ID:           s.idGenerator(),
		Name:         input.Name,
		Email:        input.Email,
		PIN:          input.PIN,
		Phone:        input.Phone,
		Department:   input.Department,
		Designation:  input.Designation,
		Role:         input.Role,
		Status:       input.Status,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return persistence.User{}, mapUserRepoError(err)
	}

	serviceLogger(ctx, s.logger, "user", "create", "user_id", user.ID).
		InfoContext(ctx, "user provisioned", "role", user.Role)
	return user, nil
}

// UpdateUser rewrites profile attributes. The password hash is untouched
// unless a new password is supplied.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (persistence.User, error) {
	if s == nil || s.users == nil {
		return persistence.User{}, fmt.Errorf("user repository not configured")
	}
	if !params.Principal.IsAdmin {
		return persistence.User{}, ErrUnauthorized
	}

	existing, err := s.users.GetUser(ctx, params.UserID)
	if err != nil {
		return persistence.User{}, mapUserRepoError(err)
	}

	input := normalizeUserInput(params.Input)
	if vErr := validateUserInput(input, input.Password != ""); vErr != nil {
		return persistence.User{}, vErr
	}

	updated := existing
	updated.Name = input.Name
	updated.Email = input.Email
	updated.PIN = input.PIN
	updated.Phone = input.Phone
	updated.Department = input.Department
	updated.Designation = input.Designation
	updated.Role = input.Role
	updated.Status = input.Status
	updated.UpdatedAt = s.now()

	if input.Password != "" {
		hash, err := CreatePasswordHash(input.Password, DefaultArgon2idParams)
		if err != nil {
			return persistence.User{}, fmt.Errorf("hash password: %w", err)
		}
		updated.PasswordHash = hash
	}

	if err := s.users.UpdateUser(ctx, updated); err != nil {
		return persistence.User{}, mapUserRepoError(err)
	}
	return updated, nil
}

func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID string) error {
	if s == nil || s.users == nil {
		return fmt.Errorf("user repository not configured")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return mapUserRepoError(err)
	}
	return nil
}

// GetUser returns one account. Users may read their own profile; reading
// anyone else requires the admin role.
func (s *UserService) GetUser(ctx context.Context, principal Principal, userID string) (persistence.User, error) {
	if s == nil || s.users == nil {
		return persistence.User{}, fmt.Errorf("user repository not configured")
	}
	if userID != principal.UserID && !principal.IsAdmin {
		return persistence.User{}, ErrUnauthorized
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return persistence.User{}, mapUserRepoError(err)
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]persistence.User, error) {
	if s == nil || s.users == nil {
		return nil, fmt.Errorf("user repository not configured")
	}
	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, mapUserRepoError(err)
	}
	return users, nil
}

func normalizeUserInput(input UserInput) UserInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.PIN = strings.TrimSpace(input.PIN)
	input.Phone = strings.TrimSpace(input.Phone)
	if input.Role == "" {
		input.Role = RoleUser
	}
	if input.Status == "" {
		input.Status = UserStatusActive
	}
	return input
}

func validateUserInput(input UserInput, requirePassword bool) *ValidationError {
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if !strings.Contains(input.Email, "@") {
		vErr.add("email", "email is not valid")
	}
	if input.PIN == "" {
		vErr.add("pin", "pin is required")
	}
	if input.Role != RoleUser && input.Role != RoleAdmin {
		vErr.add("role", "role must be user or admin")
	}
	if input.Status != UserStatusActive && input.Status != UserStatusBlocked {
		vErr.add("status", "status must be active or blocked")
	}
	if requirePassword && len(input.Password) < 8 {
		vErr.add("password", "password must be at least 8 characters")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func mapUserRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	default:
		return err
	}
}
