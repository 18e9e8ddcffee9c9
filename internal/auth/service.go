// Package auth registers staff users, issues JWT session tokens and turns
// bearer tokens back into request sessions.
package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sumanshinde/Rpos/internal/apperr"
	"github.com/sumanshinde/Rpos/internal/logging"
	"github.com/sumanshinde/Rpos/internal/uniqueness"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     Role
}

// UpdateMeInput changes the caller's profile. Password must stay nil; it is
// only present so the request can be rejected when a client sends one.
type UpdateMeInput struct {
	Name     *string
	Email    *string
	Password *string
}

// Result is returned by Register and Login.
type Result struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

type Service struct {
	users   *UserStore
	tokens  *Tokens
	revoked *uniqueness.Store
	cost    int
	nowFunc func() time.Time
}

func NewService(users *UserStore, tokens *Tokens, revoked *uniqueness.Store) *Service {
	return &Service{users: users, tokens: tokens, revoked: revoked, cost: bcrypt.DefaultCost, nowFunc: time.Now}
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	role := in.Role
	if role == "" {
		role = RoleCashier
	}

	fields := map[string]string{}
	if name == "" {
		fields["name"] = "Please tell us your name!"
	}
	if !emailPattern.MatchString(email) {
		fields["email"] = "Please provide a valid email"
	}
	if len(in.Password) < MinPasswordLength {
		fields["password"] = "Password must be at least 8 characters"
	}
	if !role.Valid() {
		fields["role"] = "role is one of admin, cashier, waiter, kitchen"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid registration").WithFields(fields)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, apperr.Validation("password cannot be used").Wrap(err)
	}
	now := s.nowFunc().UTC()
	u := &User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).WithField("user_id", u.ID).Info("user registered")
	return s.issue(u)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("Please provide email and password!")
	}
	u, err := s.users.FindByEmail(ctx, email)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Auth("Incorrect email or password")
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Auth("Incorrect email or password")
	}
	return s.issue(u)
}

func (s *Service) issue(u *User) (*Result, error) {
	token, claims, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &Result{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: u}, nil
}

// Authenticate resolves a bearer token into a session. Revoked tokens and
// tokens of deleted users are rejected. The role comes from the stored user,
// not the token.
func (s *Service) Authenticate(ctx context.Context, raw string) (*Session, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, apperr.Auth("Invalid token. Please log in again!").Wrap(err)
	}
	holder, err := s.revoked.Owner(ctx, uniqueness.Key(uniqueness.Revoked, claims.ID))
	if err != nil {
		return nil, err
	}
	if holder != "" {
		return nil, apperr.Auth("Token has been revoked. Please log in again!")
	}
	u, err := s.users.Get(ctx, claims.UserID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Auth("The user belonging to this token no longer exists.")
	}
	if err != nil {
		return nil, err
	}
	return &Session{
		UserID:    u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Me returns the stored user behind sess.
func (s *Service) Me(ctx context.Context, sess *Session) (*User, error) {
	if sess == nil {
		return nil, apperr.Auth("You are not logged in!")
	}
	return s.users.Get(ctx, sess.UserID)
}

// UpdateMe changes name and email. Password changes are refused here.
func (s *Service) UpdateMe(ctx context.Context, sess *Session, in UpdateMeInput) (*User, error) {
	if in.Password != nil {
		return nil, apperr.Validation("This route is not for password updates.")
	}
	u, err := s.Me(ctx, sess)
	if err != nil {
		return nil, err
	}
	name, email := u.Name, u.Email
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email = normalizeEmail(*in.Email)
	}
	fields := map[string]string{}
	if name == "" {
		fields["name"] = "Please tell us your name!"
	}
	if !emailPattern.MatchString(email) {
		fields["email"] = "Please provide a valid email"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid profile").WithFields(fields)
	}
	return s.users.UpdateProfile(ctx, u, name, email, s.nowFunc())
}

// Logout revokes the session's token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, sess *Session) error {
	if sess == nil {
		return apperr.Auth("You are not logged in!")
	}
	if sess.TokenID == "" {
		return errors.New("session without token id")
	}
	return s.revoked.PutExpiring(ctx, uniqueness.Key(uniqueness.Revoked, sess.TokenID), sess.UserID, sess.ExpiresAt)
}
