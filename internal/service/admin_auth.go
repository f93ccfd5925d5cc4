package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/apperrors"
	"storefront/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost factor for hashing the admin password
const BcryptCost = 10

var (
	ErrInvalidCredentials = apperrors.NewUnauthorizedError("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
)

// AdminAuthenticator issues and checks admin credentials
type AdminAuthenticator interface {
	// Login exchanges the admin email and password for a token.
	Login(ctx context.Context, email, password string) (string, error)
	// Verify reports whether token grants admin access.
	Verify(token string) error
}

// NewAdminAuthenticator builds the authenticator selected by cfg.Mode
func NewAdminAuthenticator(cfg config.AdminConfig) (AdminAuthenticator, error) {
	switch cfg.Mode {
	case config.AdminAuthModeJWT:
		return NewJWTAuthenticator(cfg.JWTSecret, cfg.Email, cfg.Password, cfg.JWTTTL)
	case config.AdminAuthModeStatic, "":
		return NewStaticAuthenticator(cfg.Token, cfg.Email, cfg.Password)
	default:
		return nil, fmt.Errorf("unknown admin auth mode %q", cfg.Mode)
	}
}

// adminCredentials holds the configured login. The password is only kept as
// a bcrypt hash.
type adminCredentials struct {
	email        string
	passwordHash []byte
}

func newAdminCredentials(email, password string) (*adminCredentials, error) {
	if email == "" || password == "" {
		return nil, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}

	return &adminCredentials{
		email:        strings.ToLower(strings.TrimSpace(email)),
		passwordHash: hash,
	}, nil
}

func (c *adminCredentials) check(email, password string) error {
	if c == nil {
		return ErrInvalidCredentials
	}

	emailMatch := subtle.ConstantTimeCompare(
		[]byte(strings.ToLower(strings.TrimSpace(email))),
		[]byte(c.email),
	) == 1

	// always pay for the hash comparison so a wrong email is not faster
	passwordErr := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password))

	if !emailMatch || passwordErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

type staticAuthenticator struct {
	token []byte
	creds *adminCredentials
}

// NewStaticAuthenticator accepts a single shared token. Login hands that
// token out when email and password are configured and match.
func NewStaticAuthenticator(token, email, password string) (AdminAuthenticator, error) {
	if token == "" {
		return nil, errors.New("admin token is required")
	}

	creds, err := newAdminCredentials(email, password)
	if err != nil {
		return nil, err
	}

	return &staticAuthenticator{token: []byte(token), creds: creds}, nil
}

func (a *staticAuthenticator) Login(_ context.Context, email, password string) (string, error) {
	if err := a.creds.check(email, password); err != nil {
		return "", err
	}
	return string(a.token), nil
}

func (a *staticAuthenticator) Verify(token string) error {
	if token == "" || subtle.ConstantTimeCompare([]byte(token), a.token) != 1 {
		return ErrInvalidToken
	}
	return nil
}

type jwtAuthenticator struct {
	secret []byte
	ttl    time.Duration
	creds  *adminCredentials
	now    func() time.Time
}

// NewJWTAuthenticator issues HS256 tokens whose subject is the admin email
func NewJWTAuthenticator(secret, email, password string, ttl time.Duration) (AdminAuthenticator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("jwt ttl must be positive")
	}

	creds, err := newAdminCredentials(email, password)
	if err != nil {
		return nil, err
	}
	if creds == nil {
		return nil, errors.New("admin email and password are required for jwt auth")
	}

	return &jwtAuthenticator{
		secret: []byte(secret),
		ttl:    ttl,
		creds:  creds,
		now:    time.Now,
	}, nil
}

func (a *jwtAuthenticator) Login(_ context.Context, email, password string) (string, error) {
	if err := a.creds.check(email, password); err != nil {
		return "", err
	}

	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   a.creds.email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign admin token: %w", err)
	}

	return signed, nil
}

func (a *jwtAuthenticator) Verify(tokenString string) error {
	if tokenString == "" {
		return ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrInvalidToken
	}

	if !token.Valid || claims.Subject != a.creds.email {
		return ErrInvalidToken
	}

	return nil
}
