package service

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rilaconsulting/pmpulse/internal/config"
	"github.com/rilaconsulting/pmpulse/internal/dto"
	"github.com/rilaconsulting/pmpulse/internal/model"
	"github.com/rilaconsulting/pmpulse/internal/repository"
)

// ── In-memory UserRepository stub ────────────────────────────────────────────

type stubUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return errors.New("unique constraint violation")
		}
	}
	r.users[u.ID] = u
	return nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username && u.Active {
			return u, nil
		}
	}
	return nil, errors.New("record not found")
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return u, nil
}

func (r *stubUserRepo) List(_ context.Context) ([]model.User, error) {
	var result []model.User
	for _, u := range r.users {
		if u.Active {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (r *stubUserRepo) Update(_ context.Context, u *model.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *stubUserRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	u, ok := r.users[id]
	if !ok {
		return errors.New("record not found")
	}
	u.Active = false
	return nil
}

var _ repository.UserRepository = (*stubUserRepo)(nil)

// ── Helpers ──────────────────────────────────────────────────────────────────

func testAuthConfig() *config.Config {
	return &config.Config{
		JWTSecret:          "test-secret",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
	}
}

func seedUser(repo *stubUserRepo, username, password, role string) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	u := &model.User{
		ID:           uuid.New(),
		Username:     username,
		Name:         "Test User",
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	repo.users[u.ID] = u
	return u
}

func buildAuthSvc() (AuthService, *stubUserRepo) {
	repo := newStubUserRepo()
	return NewAuthService(repo, testAuthConfig()), repo
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestLogin(t *testing.T) {
	svc, repo := buildAuthSvc()
	seedUser(repo, "manager1", "s3cretpass", "manager")

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		Username: "manager1",
		Password: "s3cretpass",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 8*3600, resp.ExpiresIn)
	assert.Equal(t, "manager", resp.User.Role)
}

func TestLogin_TokenCarriesClaims(t *testing.T) {
	svc, repo := buildAuthSvc()
	u := seedUser(repo, "admin1", "s3cretpass", "admin")

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		Username: "admin1",
		Password: "s3cretpass",
	})
	require.NoError(t, err)

	token, err := jwt.Parse(resp.AccessToken, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, u.ID.String(), claims["user_id"])
	assert.Equal(t, "admin1", claims["username"])
	assert.Equal(t, "admin", claims["role"])
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, repo := buildAuthSvc()
	seedUser(repo, "manager1", "s3cretpass", "manager")

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Username: "manager1",
		Password: "wrong",
	})

	assert.EqualError(t, err, "invalid credentials")
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _ := buildAuthSvc()

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Username: "ghost",
		Password: "whatever",
	})

	assert.EqualError(t, err, "invalid credentials")
}

func TestLogin_InactiveUser(t *testing.T) {
	svc, repo := buildAuthSvc()
	u := seedUser(repo, "former", "s3cretpass", "staff")
	u.Active = false

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Username: "former",
		Password: "s3cretpass",
	})

	assert.Error(t, err)
}

func TestRefresh(t *testing.T) {
	svc, repo := buildAuthSvc()
	seedUser(repo, "manager1", "s3cretpass", "manager")

	login, err := svc.Login(context.Background(), dto.LoginRequest{
		Username: "manager1",
		Password: "s3cretpass",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), login.RefreshToken)

	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, "manager1", refreshed.User.Username)
}

func TestRefresh_GarbageToken(t *testing.T) {
	svc, _ := buildAuthSvc()

	_, err := svc.Refresh(context.Background(), "not-a-jwt")

	assert.Error(t, err)
}

func TestRefresh_DeactivatedUserRejected(t *testing.T) {
	svc, repo := buildAuthSvc()
	u := seedUser(repo, "former", "s3cretpass", "staff")

	login, err := svc.Login(context.Background(), dto.LoginRequest{
		Username: "former",
		Password: "s3cretpass",
	})
	require.NoError(t, err)

	u.Active = false
	_, err = svc.Refresh(context.Background(), login.RefreshToken)

	assert.Error(t, err)
}

func TestCreateUser(t *testing.T) {
	svc, repo := buildAuthSvc()

	resp, err := svc.CreateUser(context.Background(), dto.CreateUserRequest{
		Username: "newstaff",
		Name:     "New Staff",
		Password: "longenough",
		Role:     "staff",
	})

	require.NoError(t, err)
	assert.Equal(t, "newstaff", resp.Username)
	assert.Equal(t, "staff", resp.Role)
	assert.True(t, resp.Active)

	// Password must be stored hashed, never verbatim.
	stored, err := repo.FindByUsername(context.Background(), "newstaff")
	require.NoError(t, err)
	assert.NotEqual(t, "longenough", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("longenough")))
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	svc, repo := buildAuthSvc()
	seedUser(repo, "taken", "s3cretpass", "staff")

	_, err := svc.CreateUser(context.Background(), dto.CreateUserRequest{
		Username: "taken",
		Name:     "Someone Else",
		Password: "longenough",
		Role:     "staff",
	})

	assert.Error(t, err)
}

func TestDeactivateUser(t *testing.T) {
	svc, repo := buildAuthSvc()
	u := seedUser(repo, "leaving", "s3cretpass", "staff")

	require.NoError(t, svc.DeactivateUser(context.Background(), u.ID))

	assert.False(t, repo.users[u.ID].Active)

	users, err := svc.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}
