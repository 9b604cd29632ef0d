package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gatelog/internal/auth"
	"gatelog/internal/domain"
	"gatelog/internal/repository"
)

const minPasswordLength = 8

// Credentials hashes passwords and signs tokens. *auth.Service satisfies it.
type Credentials interface {
	HashPassword(password string) (string, error)
	CheckPassword(password, hash string) bool
	GenerateToken(user *domain.User) (string, error)
	VerifyToken(token string) (*auth.Claims, error)
}

// RegisterInput is the payload of an admin-issued registration.
type RegisterInput struct {
	Username string
	Password string
	RFID     string
	Fullname string
}

// AdminAccount describes the administrator provisioned at startup.
type AdminAccount struct {
	Username string
	Password string
	RFID     string
	Fullname string
}

// UserService describes user lifecycle operations and the access guard.
type UserService interface {
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
	Authenticate(ctx context.Context, token string) (*domain.User, error)
	Authorize(user *domain.User, required domain.Role) error
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Delete(ctx context.Context, id int64) error
	EnsureAdmin(ctx context.Context, account AdminAccount) (bool, error)
}

type userService struct {
	users repository.UserRepository
	creds Credentials

	// dummyHash is checked on unknown usernames: every failed login runs one bcrypt compare.
	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(users repository.UserRepository, creds Credentials) UserService {
	return &userService{
		users: users,
		creds: creds,
	}
}

func (s *userService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", nil, invalid("Username harus diisi")
	}
	if len(password) < minPasswordLength {
		return "", nil, invalid("Password minimal 8 karakter")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.creds.CheckPassword(password, s.dummy())
			return "", nil, ErrInvalidCredential
		}
		return "", nil, err
	}
	if !s.creds.CheckPassword(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredential
	}

	token, err := s.creds.GenerateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, sanitizeUser(user), nil
}

// Authenticate resolves a bearer token to a user that still exists in the store.
// Every failure, including a deleted or renamed user, yields ErrInvalidToken.
func (s *userService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.creds.VerifyToken(strings.TrimSpace(token))
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if user.Username != claims.Username {
		return nil, ErrInvalidToken
	}
	return sanitizeUser(user), nil
}

func (s *userService) Authorize(user *domain.User, required domain.Role) error {
	if user == nil {
		return ErrInvalidToken
	}
	if required == domain.RoleAdmin && !user.IsAdmin() {
		return ErrUnauthorized
	}
	return nil
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.RFID = strings.TrimSpace(in.RFID)
	in.Fullname = strings.TrimSpace(in.Fullname)

	switch {
	case in.Username == "":
		return nil, invalid("Username harus diisi")
	case len(in.Password) < minPasswordLength:
		return nil, invalid("Password minimal 8 karakter")
	case in.RFID == "":
		return nil, invalid("RFID harus diisi")
	case in.Fullname == "":
		return nil, invalid("Nama lengkap harus diisi")
	}

	exists, err := s.users.ExistsAny(ctx, in.Username, in.RFID, in.Fullname)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrConflict
	}

	hash, err := s.creds.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     in.Username,
		PasswordHash: hash,
		RFID:         in.RFID,
		Fullname:     in.Fullname,
		Role:         domain.RoleUser,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListExcludingRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return invalid("Id harus diisi")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// EnsureAdmin creates the administrator when no admin-role user exists yet.
// It reports whether an account was created.
func (s *userService) EnsureAdmin(ctx context.Context, account AdminAccount) (bool, error) {
	exists, err := s.users.HasRole(ctx, domain.RoleAdmin)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if strings.TrimSpace(account.Username) == "" || len(account.Password) < minPasswordLength {
		return false, fmt.Errorf("admin account needs a username and a password of at least %d characters", minPasswordLength)
	}

	hash, err := s.creds.HashPassword(account.Password)
	if err != nil {
		return false, err
	}
	admin := &domain.User{
		Username:     strings.TrimSpace(account.Username),
		PasswordHash: hash,
		RFID:         strings.TrimSpace(account.RFID),
		Fullname:     strings.TrimSpace(account.Fullname),
		Role:         domain.RoleAdmin,
	}
	if _, err := s.users.Create(ctx, admin); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}

func (s *userService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.creds.HashPassword("gatelog-unknown-user")
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	out := *user
	out.PasswordHash = ""
	return &out
}
