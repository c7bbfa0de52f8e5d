package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/studynote/studynote-api/internal/models"
	"github.com/studynote/studynote-api/internal/platform"
	appErrors "github.com/studynote/studynote-api/pkg/errors"
)

type fakeUserRepo struct {
	users map[string]*models.User
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email != nil && *u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) Upsert(_ context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = "user-" + user.PlatformUserID
	}
	if f.users == nil {
		f.users = map[string]*models.User{}
	}
	f.users[user.ID] = user
	return user, nil
}

type fakeProvider struct {
	name     string
	identity *platform.Identity
	err      error
	sent     []string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) VerifyToken(context.Context, string) (*platform.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

func (f *fakeProvider) SendMessage(_ context.Context, platformUserID, text string) error {
	f.sent = append(f.sent, platformUserID+": "+text)
	return nil
}

func authTestConfig() AuthConfig {
	return AuthConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "studynote-test"}
}

func TestLoginWithPlatformToken(t *testing.T) {
	repo := &fakeUserRepo{users: map[string]*models.User{}}
	provider := &fakeProvider{name: "zalo", identity: &platform.Identity{UserID: "z-123", Name: "Co Lan"}}
	svc := NewAuthService(repo, provider, nil, nil, authTestConfig())

	result, err := svc.Login(context.Background(), models.LoginRequest{AccessToken: "zalo-token"})
	require.NoError(t, err)

	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, "zalo", result.User.Platform)
	assert.Equal(t, "z-123", result.User.PlatformUserID)
	assert.Equal(t, models.RoleTeacher, result.User.Role)
	assert.Equal(t, int64(3600), result.ExpiresIn)

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, "zalo", claims.Platform)
}

func TestLoginWithPlatformTokenParentRole(t *testing.T) {
	repo := &fakeUserRepo{users: map[string]*models.User{}}
	provider := &fakeProvider{name: "zalo", identity: &platform.Identity{UserID: "z-456", Name: "Phu Huynh"}}
	svc := NewAuthService(repo, provider, nil, nil, authTestConfig())

	result, err := svc.Login(context.Background(), models.LoginRequest{AccessToken: "zalo-token", Role: "parent"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleParent, result.User.Role)
}

func TestLoginRejectsBadPlatformToken(t *testing.T) {
	repo := &fakeUserRepo{users: map[string]*models.User{}}
	provider := &fakeProvider{name: "zalo", err: appErrors.Clone(appErrors.ErrUnauthorized, "token rejected")}
	svc := NewAuthService(repo, provider, nil, nil, authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{AccessToken: "bad"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestLoginWithCredentials(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	email := "teacher@example.com"
	hashStr := string(hash)

	repo := &fakeUserRepo{users: map[string]*models.User{
		"user-1": {ID: "user-1", Platform: "web", Email: &email, PasswordHash: &hashStr, Role: models.RoleTeacher},
	}}
	svc := NewAuthService(repo, &fakeProvider{name: "web"}, nil, nil, authTestConfig())

	result, err := svc.Login(context.Background(), models.LoginRequest{Email: email, Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", result.User.ID)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: email, Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "s3cret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestRegisterThenLogin(t *testing.T) {
	repo := &fakeUserRepo{users: map[string]*models.User{}}
	svc := NewAuthService(repo, &fakeProvider{name: "web"}, nil, nil, authTestConfig())

	result, err := svc.Register(context.Background(), models.RegisterRequest{
		Name:     "Co Lan",
		Email:    "lan@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, "web", result.User.Platform)
	assert.Equal(t, models.RoleTeacher, result.User.Role)
	require.NotNil(t, result.User.PasswordHash)
	assert.NotEqual(t, "s3cret-pass", *result.User.PasswordHash)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "lan@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, login.User.ID)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "lan@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := &fakeUserRepo{users: map[string]*models.User{}}
	svc := NewAuthService(repo, &fakeProvider{name: "web"}, nil, nil, authTestConfig())

	req := models.RegisterRequest{Name: "Co Lan", Email: "lan@example.com", Password: "s3cret-pass"}
	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRegisterRejectedOnZalo(t *testing.T) {
	svc := NewAuthService(&fakeUserRepo{users: map[string]*models.User{}}, &fakeProvider{name: "zalo"}, nil, nil, authTestConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{Name: "X", Email: "x@example.com", Password: "s3cret-pass"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	repo := &fakeUserRepo{users: map[string]*models.User{}}
	provider := &fakeProvider{name: "zalo", identity: &platform.Identity{UserID: "z-1", Name: "X"}}
	svc := NewAuthService(repo, provider, nil, nil, authTestConfig())

	result, err := svc.Login(context.Background(), models.LoginRequest{AccessToken: "tok"})
	require.NoError(t, err)

	other := NewAuthService(repo, provider, nil, nil, AuthConfig{Secret: "different", Expiration: time.Hour})
	_, err = other.ValidateToken(result.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	_, err = svc.ValidateToken("not-a-token")
	require.Error(t, err)
}

func TestCurrentUserMissing(t *testing.T) {
	svc := NewAuthService(&fakeUserRepo{users: map[string]*models.User{}}, &fakeProvider{name: "web"}, nil, nil, authTestConfig())

	_, err := svc.CurrentUser(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
