package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alphaani/marks-management-api/internal/models"
	appErrors "github.com/alphaani/marks-management-api/pkg/errors"
)

type authRepoStub struct {
	users map[string]*models.User
	audit []*models.AuditLog
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{users: make(map[string]*models.User)}
}

func (r *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (r *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if user, ok := r.users[id]; ok {
		user.LastLogin = &ts
	}
	return nil
}

func (r *authRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = updatedAt
	return nil
}

func (r *authRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.audit = append(r.audit, log)
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *authRepoStub) {
	t.Helper()
	repo := newAuthRepoStub()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.users["user-1"] = &models.User{
		ID:           "user-1",
		Email:        "student@school.test",
		PasswordHash: string(hash),
		FullName:     "Test Student",
		Role:         models.RoleStudent,
		Active:       true,
	}
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "marks-api-test",
	})
	return svc, repo
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc, repo := newAuthFixture(t)
	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@school.test",
		Password: "secret123",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, models.RoleStudent, resp.User.Role)
	require.NotNil(t, repo.users["user-1"].LastLogin)
	require.Len(t, repo.audit, 1)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, models.RoleStudent, claims.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)
	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@school.test",
		Password: "wrong",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	svc, repo := newAuthFixture(t)
	repo.users["user-1"].Active = false
	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@school.test",
		Password: "secret123",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc, _ := newAuthFixture(t)
	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@school.test",
		Password: "secret123",
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken + "x")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestChangePasswordVerifiesOldPassword(t *testing.T) {
	svc, repo := newAuthFixture(t)
	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "newsecret",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "newsecret",
	})
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users["user-1"].PasswordHash), []byte("newsecret")))
}
