// Package session is the single process-wide identity accessor. main builds
// one Accessor and hands it to the middleware and to every flow, so "who is
// signed in" is answered in exactly one place.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"bakustack/backend/gateway"
	"bakustack/backend/models"
	"bakustack/backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

var (
	ErrAnonymous          = errors.New("no authenticated identity")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
)

// ValidationError lists input problems found before any store call.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type ProfileStore interface {
	ProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	CreateProfile(ctx context.Context, profile *models.Profile) error
}

type Options struct {
	Secret  string
	TTL     time.Duration
	Revoker Revoker
	Log     *zap.Logger
}

type Accessor struct {
	store   ProfileStore
	secret  string
	ttl     time.Duration
	revoker Revoker
	log     *zap.Logger
}

func NewAccessor(store ProfileStore, opts Options) *Accessor {
	if opts.Revoker == nil {
		opts.Revoker = NewMemoryRevoker()
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = 72 * time.Hour
	}
	return &Accessor{
		store:   store,
		secret:  opts.Secret,
		ttl:     opts.TTL,
		revoker: opts.Revoker,
		log:     opts.Log.With(zap.String("component", "session")),
	}
}

// Result is what sign-up and sign-in hand back to the client.
type Result struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   *models.Profile `json:"profile"`
}

type SignUpInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FullName        string `json:"full_name"`
}

func (in SignUpInput) Validate() error {
	fields := map[string]string{}
	// Только голый адрес: "Name <a@b>" не подходит для входа
	email := strings.TrimSpace(in.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		fields["email"] = "a valid email address is required"
	}
	if strings.TrimSpace(in.FullName) == "" {
		fields["full_name"] = "full name is required"
	}
	if len(in.Password) < MinPasswordLength {
		fields["password"] = fmt.Sprintf("password must be at least %d characters", MinPasswordLength)
	}
	if in.Password != in.ConfirmPassword {
		fields["confirm_password"] = "passwords do not match"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// SignUp creates the student profile for a new identity and signs it in.
func (a *Accessor) SignUp(ctx context.Context, in SignUpInput) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	profile := &models.Profile{
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
		FullName:     strings.TrimSpace(in.FullName),
	}
	if err := a.store.CreateProfile(ctx, profile); err != nil {
		if errors.Is(err, gateway.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	a.log.Info("profile created", zap.String("profile_id", profile.ID.String()))
	return a.issue(profile)
}

func (a *Accessor) SignIn(ctx context.Context, email, password string) (*Result, error) {
	fields := map[string]string{}
	if strings.TrimSpace(email) == "" {
		fields["email"] = "email is required"
	}
	if password == "" {
		fields["password"] = "password is required"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	profile, err := a.store.ProfileByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return a.issue(profile)
}

// SignOut tears the session down: the token is unusable from now on.
func (a *Accessor) SignOut(ctx context.Context, token string) error {
	claims, err := utils.ParseJWTToken(token, a.secret)
	if err != nil {
		return ErrAnonymous
	}
	if err := a.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	a.log.Info("signed out", zap.String("profile_id", claims.Subject))
	return nil
}

// Resolve maps a token to its profile. Bad, expired, revoked or orphaned
// tokens all resolve to ErrAnonymous; store outages are returned as is.
func (a *Accessor) Resolve(ctx context.Context, token string) (*models.Profile, error) {
	claims, err := utils.ParseJWTToken(token, a.secret)
	if err != nil {
		return nil, ErrAnonymous
	}

	revoked, err := a.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		a.log.Warn("revocation check failed, treating token as revoked", zap.Error(err))
		return nil, ErrAnonymous
	}
	if revoked {
		return nil, ErrAnonymous
	}

	id, _ := claims.ProfileID()
	profile, err := a.store.ProfileByID(ctx, id)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, ErrAnonymous
		}
		return nil, err
	}
	return profile, nil
}

// Current answers "who is viewing" for the request carried by ctx.
func (a *Accessor) Current(ctx context.Context) (*models.Profile, error) {
	if profile, ok := ctx.Value(profileKey).(*models.Profile); ok && profile != nil {
		return profile, nil
	}
	token, _ := ctx.Value(tokenKey).(string)
	if token == "" {
		return nil, ErrAnonymous
	}
	return a.Resolve(ctx, token)
}

func (a *Accessor) issue(profile *models.Profile) (*Result, error) {
	token, claims, err := utils.GenerateJWTToken(profile.ID, string(profile.Role), a.secret, a.ttl)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Result{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Profile:   profile,
	}, nil
}

type ctxKey int

const (
	tokenKey ctxKey = iota
	profileKey
)

func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

func WithProfile(ctx context.Context, profile *models.Profile) context.Context {
	return context.WithValue(ctx, profileKey, profile)
}

func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}
