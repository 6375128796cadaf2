// Package auth issues and invalidates demo sessions. Wallet signature
// verification is mocked: any address is accepted and every login resolves to
// the seeded demo user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/paracipher/coverage_layer/internal/app/domain/session"
	"github.com/paracipher/coverage_layer/internal/app/storage"
	"github.com/paracipher/coverage_layer/pkg/logger"
)

// ErrInvalidToken reports a logout or lookup with no matching session.
var ErrInvalidToken = errors.New("invalid token")

// Service manages login sessions backed by signed tokens.
type Service struct {
	users    storage.UserStore
	sessions storage.SessionStore
	clock    clockwork.Clock
	secret   []byte
	expiry   time.Duration
	seedUser string
	log      *logger.Logger
}

// New constructs an auth service. Tokens are HS256 JWTs signed with secret and
// valid for the given expiry.
func New(users storage.UserStore, sessions storage.SessionStore, clock clockwork.Clock, secret string, expiry time.Duration, seedUserID string, log *logger.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &Service{
		users:    users,
		sessions: sessions,
		clock:    clock,
		secret:   []byte(secret),
		expiry:   expiry,
		seedUser: seedUserID,
		log:      log,
	}
}

// LoginResult carries the issued token and the resolved user.
type LoginResult struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// Login accepts any wallet address (signature verification is out of scope),
// resolves the demo user, issues a token and records a session.
func (s *Service) Login(ctx context.Context, walletAddress string) (LoginResult, error) {
	u, err := s.users.GetUser(ctx, s.seedUser)
	if err != nil {
		return LoginResult{}, err
	}

	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   u.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign token: %w", err)
	}

	if _, err := s.sessions.CreateSession(ctx, session.Session{Token: signed, UserID: u.ID}); err != nil {
		return LoginResult{}, err
	}

	s.log.WithField("wallet", walletAddress).Infof("session issued for %s", u.ID)
	return LoginResult{Token: signed, UserID: u.ID}, nil
}

// Logout removes the session for the token. Returns ErrInvalidToken when no
// session matches.
func (s *Service) Logout(ctx context.Context, token string) error {
	removed, err := s.sessions.InvalidateSession(ctx, token)
	if err != nil {
		return err
	}
	if !removed {
		return ErrInvalidToken
	}
	return nil
}

// Authenticate resolves a bearer token to a user id. The token must both
// verify as a signed, unexpired JWT and have a live session.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	sess, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	return sess.UserID, nil
}
