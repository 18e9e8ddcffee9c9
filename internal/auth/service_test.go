package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sumanshinde/Rpos/internal/apperr"
	"github.com/sumanshinde/Rpos/internal/aws/awstest"
	"github.com/sumanshinde/Rpos/internal/uniqueness"
)

func newService(t *testing.T) *Service {
	t.Helper()
	db := awstest.NewDynamo()
	db.CreateTable("users", "user_id")
	db.CreateTable("uniques", "unique_key")
	uniq := uniqueness.NewStore(db, "uniques")
	svc := NewService(NewUserStore(db, "users", uniq), NewTokens("test-secret", 2160*time.Hour), uniq)
	svc.cost = bcrypt.MinCost
	return svc
}

func register(t *testing.T, s *Service, email string) *Result {
	t.Helper()
	res, err := s.Register(context.Background(), RegisterInput{Name: "Asha", Email: email, Password: "password1"})
	require.NoError(t, err)
	return res
}

func TestRegisterDefaultsAndDuplicates(t *testing.T) {
	s := newService(t)
	res := register(t, s, " Asha@Example.COM ")

	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "asha@example.com", res.User.Email)
	assert.Equal(t, RoleCashier, res.User.Role)
	assert.NotEqual(t, "password1", res.User.PasswordHash)

	_, err := s.Register(context.Background(), RegisterInput{Name: "B", Email: "asha@example.com", Password: "password2"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestRegisterValidation(t *testing.T) {
	s := newService(t)
	_, err := s.Register(context.Background(), RegisterInput{Name: "", Email: "bad", Password: "short", Role: "chef"})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Len(t, ae.Fields, 4)
}

func TestLogin(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	register(t, s, "asha@example.com")

	res, err := s.Login(ctx, "ASHA@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", res.User.Email)

	_, err = s.Login(ctx, "asha@example.com", "wrong-password")
	assert.True(t, apperr.Is(err, apperr.KindAuth))
	_, err = s.Login(ctx, "nobody@example.com", "password1")
	assert.True(t, apperr.Is(err, apperr.KindAuth))
	_, err = s.Login(ctx, "", "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestAuthenticateAndLogout(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	res := register(t, s, "asha@example.com")

	sess, err := s.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, sess.UserID)
	assert.Equal(t, RoleCashier, sess.Role)
	assert.WithinDuration(t, time.Now().Add(2160*time.Hour), sess.ExpiresAt, time.Minute)

	require.NoError(t, s.Logout(ctx, sess))
	_, err = s.Authenticate(ctx, res.Token)
	assert.True(t, apperr.Is(err, apperr.KindAuth))
}

func TestAuthenticateRejectsForeignAndExpiredTokens(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	res := register(t, s, "asha@example.com")

	other := NewTokens("another-secret", time.Hour)
	forged, _, err := other.Issue(res.User)
	require.NoError(t, err)
	_, err = s.Authenticate(ctx, forged)
	assert.True(t, apperr.Is(err, apperr.KindAuth))

	s.tokens.nowFunc = func() time.Time { return time.Now().Add(-3000 * time.Hour) }
	expired, _, err := s.tokens.Issue(res.User)
	require.NoError(t, err)
	s.tokens.nowFunc = time.Now
	_, err = s.Authenticate(ctx, expired)
	assert.True(t, apperr.Is(err, apperr.KindAuth))

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: res.User.ID})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Authenticate(ctx, unsigned)
	assert.True(t, apperr.Is(err, apperr.KindAuth))
}

func TestUpdateMe(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	res := register(t, s, "asha@example.com")
	register(t, s, "kiran@example.com")
	sess, err := s.Authenticate(ctx, res.Token)
	require.NoError(t, err)

	pw := "newpassword"
	_, err = s.UpdateMe(ctx, sess, UpdateMeInput{Password: &pw})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	taken := "kiran@example.com"
	_, err = s.UpdateMe(ctx, sess, UpdateMeInput{Email: &taken})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	name, email := "Asha R", "asha.r@example.com"
	u, err := s.UpdateMe(ctx, sess, UpdateMeInput{Name: &name, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "asha.r@example.com", u.Email)

	_, err = s.Login(ctx, "asha.r@example.com", "password1")
	require.NoError(t, err)
	_, err = s.Login(ctx, "asha@example.com", "password1")
	assert.True(t, apperr.Is(err, apperr.KindAuth))
}

func TestSessionContext(t *testing.T) {
	_, ok := SessionFrom(context.Background())
	assert.False(t, ok)

	ctx := WithSession(context.Background(), &Session{UserID: "u1", Role: RoleAdmin})
	sess, ok := SessionFrom(ctx)
	require.True(t, ok)
	assert.True(t, sess.HasRole(RoleAdmin, RoleCashier))
	assert.False(t, sess.HasRole(RoleKitchen))
}
