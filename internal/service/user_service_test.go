package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gatelog/internal/auth"
	"gatelog/internal/domain"
	"gatelog/internal/repository"
	"gatelog/internal/repository/sqlite"
	"gatelog/internal/service"
)

type fixture struct {
	users   repository.UserRepository
	sensors repository.SensorRepository
	creds   *auth.Service
	svc     service.UserService
	logger  *logrus.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "gate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		users:   sqlite.NewUserRepository(db),
		sensors: sqlite.NewSensorRepository(db),
		creds:   auth.NewService("test-secret", time.Hour, auth.WithBcryptCost(bcrypt.MinCost)),
		logger:  logrus.New(),
	}
	f.logger.SetLevel(logrus.WarnLevel)

	ctx := context.Background()
	require.NoError(t, f.users.Init(ctx))
	require.NoError(t, f.sensors.Init(ctx))
	f.svc = service.NewUserService(f.users, f.creds)

	created, err := f.svc.EnsureAdmin(ctx, service.AdminAccount{
		Username: "admin",
		Password: "admin-password",
		RFID:     "12345678",
		Fullname: "Administrator",
	})
	require.NoError(t, err)
	require.True(t, created)
	return f
}

func (f *fixture) register(t *testing.T, username, rfid string) *domain.User {
	t.Helper()

	user, err := f.svc.Register(context.Background(), service.RegisterInput{
		Username: username,
		Password: "password123",
		RFID:     rfid,
		Fullname: "Nama " + username,
	})
	require.NoError(t, err)
	return user
}

func TestUserService_EnsureAdminOnce(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.EnsureAdmin(context.Background(), service.AdminAccount{
		Username: "admin2",
		Password: "admin-password",
		RFID:     "87654321",
		Fullname: "Second",
	})
	require.NoError(t, err)
	assert.False(t, created)

	admin, err := f.users.GetByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
}

func TestUserService_Login(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token, user, err := f.svc.Login(ctx, "admin", "admin-password")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "admin", user.Username)
	assert.Empty(t, user.PasswordHash)

	claims, err := f.creds.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)

	_, _, err = f.svc.Login(ctx, "admin", "wrong-password")
	assert.ErrorIs(t, err, service.ErrInvalidCredential)

	_, _, err = f.svc.Login(ctx, "ghost", "whatever-password")
	assert.ErrorIs(t, err, service.ErrInvalidCredential)

	_, _, err = f.svc.Login(ctx, "admin", "short")
	assert.ErrorIs(t, err, service.ErrValidation)

	_, _, err = f.svc.Login(ctx, " ", "admin-password")
	assert.ErrorIs(t, err, service.ErrValidation)
}

// countingCreds records how many password comparisons a login performs.
type countingCreds struct {
	*auth.Service
	compares int
}

func (c *countingCreds) CheckPassword(password, hash string) bool {
	c.compares++
	return c.Service.CheckPassword(password, hash)
}

func TestUserService_LoginFailuresCostOneCompare(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creds := &countingCreds{Service: f.creds}
	svc := service.NewUserService(f.users, creds)

	_, _, err := svc.Login(ctx, "ghost", "whatever-password")
	assert.ErrorIs(t, err, service.ErrInvalidCredential)
	assert.Equal(t, 1, creds.compares)

	_, _, err = svc.Login(ctx, "admin", "wrong-password")
	assert.ErrorIs(t, err, service.ErrInvalidCredential)
	assert.Equal(t, 2, creds.compares)

	_, _, err = svc.Login(ctx, "ghost", "admin-password")
	assert.ErrorIs(t, err, service.ErrInvalidCredential)
	assert.Equal(t, 3, creds.compares)
}

func TestUserService_AuthenticateAfterDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	budi := f.register(t, "budi", "11112222")

	token, _, err := f.svc.Login(ctx, "budi", "password123")
	require.NoError(t, err)

	user, err := f.svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, budi.ID, user.ID)
	assert.Equal(t, domain.RoleUser, user.Role)

	require.NoError(t, f.svc.Delete(ctx, budi.ID))

	_, err = f.svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	_, err = f.svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestUserService_Authorize(t *testing.T) {
	f := newFixture(t)

	admin := &domain.User{ID: 1, Role: domain.RoleAdmin}
	user := &domain.User{ID: 2, Role: domain.RoleUser}

	assert.NoError(t, f.svc.Authorize(admin, domain.RoleAdmin))
	assert.NoError(t, f.svc.Authorize(user, domain.RoleUser))
	assert.ErrorIs(t, f.svc.Authorize(user, domain.RoleAdmin), service.ErrUnauthorized)
	assert.ErrorIs(t, f.svc.Authorize(nil, domain.RoleUser), service.ErrInvalidToken)
}

func TestUserService_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	budi := f.register(t, "budi", "11112222")
	assert.NotZero(t, budi.ID)
	assert.Equal(t, domain.RoleUser, budi.Role)
	assert.Empty(t, budi.PasswordHash)

	conflicts := map[string]service.RegisterInput{
		"username": {Username: "budi", Password: "password123", RFID: "99990000", Fullname: "Lain"},
		"rfid":     {Username: "other", Password: "password123", RFID: "11112222", Fullname: "Lain"},
		"fullname": {Username: "other", Password: "password123", RFID: "99990000", Fullname: "Nama budi"},
	}
	for name, in := range conflicts {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, in)
			assert.ErrorIs(t, err, service.ErrConflict)
		})
	}

	invalid := map[string]service.RegisterInput{
		"username": {Password: "password123", RFID: "99990000", Fullname: "Lain"},
		"password": {Username: "other", Password: "short", RFID: "99990000", Fullname: "Lain"},
		"rfid":     {Username: "other", Password: "password123", Fullname: "Lain"},
		"fullname": {Username: "other", Password: "password123", RFID: "99990000"},
	}
	for name, in := range invalid {
		t.Run("invalid "+name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, in)
			assert.ErrorIs(t, err, service.ErrValidation)
		})
	}
}

func TestUserService_ListHidesAdmins(t *testing.T) {
	f := newFixture(t)
	f.register(t, "budi", "11112222")
	f.register(t, "sari", "33334444")

	users, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.NotEqual(t, domain.RoleAdmin, u.Role)
		assert.Empty(t, u.PasswordHash)
	}
}

func TestUserService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Delete(ctx, 0), service.ErrValidation)
	assert.ErrorIs(t, f.svc.Delete(ctx, 4242), service.ErrNotFound)
}
