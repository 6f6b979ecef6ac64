package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/biblioteca-api/internal/models"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
)

type mockAuthRepo struct {
	users            []*models.User
	findErr          error
	lastLoginErr     error
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(_ context.Context, id int64) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(_ context.Context, _ int64, _ time.Time) error {
	if m.lastLoginErr != nil {
		return m.lastLoginErr
	}
	m.lastLoginUpdated = true
	return nil
}

type recordingActivity struct {
	mu      sync.Mutex
	entries []models.LogEntry
}

func (r *recordingActivity) Record(_ context.Context, entry models.LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func newAuthServiceForTest(repo *mockAuthRepo, activity activityRecorder, policy CredentialPolicy) *AuthService {
	svc := NewAuthService(repo, NewCredentialVerifier(policy), activity, nil, nil, AuthConfig{Secret: "test-secret", Expiry: time.Hour, Issuer: "biblioteca"})
	return svc
}

func hashed(t *testing.T, plain string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{users: []*models.User{{ID: 7, Email: "ana@liceo.cl", Nombre: "Ana", Password: hashed(t, "clave"), Role: "alumno,admin"}}}
	activity := &recordingActivity{}
	svc := newAuthServiceForTest(repo, activity, CredentialPolicy{})

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "  ANA@liceo.cl ", Password: " clave "})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alumno", resp.User.Role)
	assert.Equal(t, models.RoleSet{"alumno", "admin"}, resp.User.Roles)
	assert.NotNil(t, resp.User.LastLogin)
	assert.True(t, repo.lastLoginUpdated)
	require.Len(t, activity.entries, 1)
	assert.Equal(t, models.LogActionLogin, activity.entries[0].Action)
	assert.Equal(t, "ana@liceo.cl", activity.entries[0].Usuario)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "alumno", claims.Role)
	assert.Equal(t, models.RoleSet{"alumno", "admin"}, claims.Roles)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, "biblioteca", claims.Issuer)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	repo := &mockAuthRepo{users: []*models.User{{ID: 1, Email: "ana@liceo.cl", Password: hashed(t, "clave"), Rut: "1-9"}}}
	svc := newAuthServiceForTest(repo, nil, CredentialPolicy{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nadie@liceo.cl", Password: "x"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "ana@liceo.cl", Password: "otra"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "ana@liceo.cl", Password: "1-9"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "", Password: "  "})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	repo.findErr = errors.New("connection refused")
	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "ana@liceo.cl", Password: "clave"})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestAuthServiceLoginLegacyFallbackAndBestEffortLastLogin(t *testing.T) {
	repo := &mockAuthRepo{
		users:        []*models.User{{ID: 2, Email: "beto@liceo.cl", Password: "plain", Rut: "22222222-2"}},
		lastLoginErr: errors.New("write failed"),
	}
	activity := &recordingActivity{}
	svc := newAuthServiceForTest(repo, activity, CredentialPolicy{LegacyCredentialFallback: true, AllowPlaintextPasswords: true})

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "beto@liceo.cl", Password: "22222222-2"})
	require.NoError(t, err)
	assert.Nil(t, resp.User.LastLogin)
	assert.Equal(t, "alumno", resp.User.Role)
	assert.False(t, repo.lastLoginUpdated)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "beto@liceo.cl", Password: "plain"})
	require.NoError(t, err)
	require.Len(t, activity.entries, 2)
	assert.Equal(t, "beto@liceo.cl", activity.entries[1].Usuario)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "beto@liceo.cl", Password: "otra"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginAcceptsLegacyIdentifier(t *testing.T) {
	repo := &mockAuthRepo{users: []*models.User{{ID: 4, Email: "biblioteca", Password: hashed(t, "clave"), Role: "admin"}}}
	svc := NewAuthService(repo, NewCredentialVerifier(CredentialPolicy{}), nil, validator.New(), nil, AuthConfig{Secret: "test-secret"})

	resp, err := svc.AdminLogin(context.Background(), models.LoginRequest{Email: " Biblioteca ", Password: "clave"})
	require.NoError(t, err)
	assert.Equal(t, "admin", resp.User.Role)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "  ", Password: "clave"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceLoginWithoutActivityRecorder(t *testing.T) {
	repo := &mockAuthRepo{users: []*models.User{{ID: 3, Email: "caro@liceo.cl", Password: hashed(t, "clave")}}}
	svc := newAuthServiceForTest(repo, nil, CredentialPolicy{})

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "caro@liceo.cl", Password: "clave"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.True(t, repo.lastLoginUpdated)
}

func TestAuthServiceAdminLogin(t *testing.T) {
	repo := &mockAuthRepo{users: []*models.User{
		{ID: 1, Email: "dual@liceo.cl", Password: hashed(t, "clave"), Role: "alumno", Roles: []string{"admin"}},
		{ID: 2, Email: "alumno@liceo.cl", Password: hashed(t, "clave"), Role: "alumno"},
	}}
	activity := &recordingActivity{}
	svc := newAuthServiceForTest(repo, activity, CredentialPolicy{})

	resp, err := svc.AdminLogin(context.Background(), models.LoginRequest{Email: "dual@liceo.cl", Password: "clave"})
	require.NoError(t, err)
	assert.Equal(t, "admin", resp.User.Role)
	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, models.LogActionAdminLogin, activity.entries[0].Action)

	_, err = svc.AdminLogin(context.Background(), models.LoginRequest{Email: "alumno@liceo.cl", Password: "clave"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.AdminLogin(context.Background(), models.LoginRequest{Email: "alumno@liceo.cl", Password: "bad"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceValidateTokenRejects(t *testing.T) {
	svc := newAuthServiceForTest(&mockAuthRepo{}, nil, CredentialPolicy{})
	authCtx := models.AuthContext{UserID: 1, Email: "a@b.cl", Roles: models.RoleSet{"admin"}, ActiveRole: "admin"}

	good, err := svc.IssueToken(authCtx)
	require.NoError(t, err)

	other := NewAuthService(&mockAuthRepo{}, nil, nil, nil, nil, AuthConfig{Secret: "other"})
	forged, err := other.IssueToken(authCtx)
	require.NoError(t, err)
	_, err = svc.ValidateToken(forged)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(good)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JWTClaims{UserID: 1, Role: "admin"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(unsigned)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.ValidateToken("garbage")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceIssueTokenRejectsForeignActiveRole(t *testing.T) {
	svc := newAuthServiceForTest(&mockAuthRepo{}, nil, CredentialPolicy{})
	_, err := svc.IssueToken(models.AuthContext{UserID: 1, Roles: models.RoleSet{"alumno"}, ActiveRole: "admin"})
	assert.ErrorIs(t, err, models.ErrActiveRoleNotHeld)
}

func TestAuthServiceAuthenticate(t *testing.T) {
	svc := newAuthServiceForTest(&mockAuthRepo{}, nil, CredentialPolicy{})
	token, err := svc.IssueToken(models.AuthContext{UserID: 3, Email: "p@liceo.cl", Roles: models.RoleSet{"profesor", "admin"}, ActiveRole: "admin"})
	require.NoError(t, err)

	authCtx, err := svc.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), authCtx.UserID)
	assert.Equal(t, "admin", authCtx.ActiveRole)
	assert.Equal(t, models.RoleSet{"profesor", "admin"}, authCtx.Roles)
}

func TestAuthServiceMe(t *testing.T) {
	repo := &mockAuthRepo{users: []*models.User{{ID: 4, Email: "x@liceo.cl", Nombre: "X", Role: "profesor"}}}
	svc := newAuthServiceForTest(repo, nil, CredentialPolicy{})

	info, err := svc.Me(context.Background(), models.AuthContext{UserID: 4})
	require.NoError(t, err)
	assert.Equal(t, "profesor", info.Role)

	_, err = svc.Me(context.Background(), models.AuthContext{UserID: 5})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
