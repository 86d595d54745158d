// Package auth implements wallet-signature login: a single-use nonce
// challenge followed by signature verification that mints a session token.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ujamaadao/backend/internal/app/domain/identity"
	"github.com/ujamaadao/backend/internal/app/signing"
	"github.com/ujamaadao/backend/internal/app/storage"
	"github.com/ujamaadao/backend/internal/errors"
	"github.com/ujamaadao/backend/pkg/logger"
)

// MessagePrefix is the text the wallet signs ahead of the nonce.
const MessagePrefix = "Login nonce: "

// Claims is the session token payload.
type Claims struct {
	UserID        string `json:"user_id"`
	WalletAddress string `json:"wallet_address"`
	jwt.RegisteredClaims
}

// Session is the result of a successful verification.
type Session struct {
	Token string        `json:"token"`
	User  identity.User `json:"user"`
}

// Service issues nonce challenges and verifies signed responses.
type Service struct {
	users     storage.IdentityStore
	recoverer signing.Recoverer
	secret    []byte
	ttl       time.Duration
	log       *logger.Logger
}

// New creates the auth service. A nil recoverer defaults to Ethereum
// personal-message recovery; a nil log gets a default logger.
func New(users storage.IdentityStore, recoverer signing.Recoverer, secret string, ttl time.Duration, log *logger.Logger) *Service {
	if recoverer == nil {
		recoverer = signing.EthereumRecoverer{}
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &Service{
		users:     users,
		recoverer: recoverer,
		secret:    []byte(secret),
		ttl:       ttl,
		log:       log,
	}
}

// Nonce returns the login challenge for walletAddress, registering a
// placeholder user on first contact so the wallet can sign in before
// completing a profile.
func (s *Service) Nonce(ctx context.Context, walletAddress string) (string, error) {
	walletAddress = strings.ToLower(strings.TrimSpace(walletAddress))
	if walletAddress == "" {
		return "", errors.Validation("wallet address is required")
	}

	user, err := s.users.GetUserByWallet(ctx, walletAddress)
	if err == nil {
		if user.Nonce == "" {
			nonce, err := identity.NewNonce()
			if err != nil {
				return "", errors.Internal("generate nonce", err)
			}
			if err := s.users.RotateNonce(ctx, walletAddress, "", nonce); err != nil {
				return "", errors.Internal("store nonce", err)
			}
			return nonce, nil
		}
		return user.Nonce, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", errors.Internal("look up wallet", err)
	}

	nonce, err := identity.NewNonce()
	if err != nil {
		return "", errors.Internal("generate nonce", err)
	}
	placeholder := identity.User{
		WalletAddress: walletAddress,
		Email:         fmt.Sprintf("user_%d@placeholder.local", time.Now().UnixNano()),
		Name:          "New User",
		Nonce:         nonce,
	}
	created, err := s.users.CreateUser(ctx, placeholder)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// Lost a registration race; the other caller's nonce wins.
			existing, lookupErr := s.users.GetUserByWallet(ctx, walletAddress)
			if lookupErr != nil {
				return "", errors.Internal("look up wallet", lookupErr)
			}
			return existing.Nonce, nil
		}
		return "", errors.Internal("register wallet", err)
	}
	s.log.WithField("wallet", walletAddress).Info("registered placeholder user")
	return created.Nonce, nil
}

// Verify checks that signature covers the current nonce challenge, rotates
// the nonce so it can never be replayed, and returns a session token.
func (s *Service) Verify(ctx context.Context, walletAddress, signature string) (Session, error) {
	walletAddress = strings.ToLower(strings.TrimSpace(walletAddress))
	if walletAddress == "" || signature == "" {
		return Session{}, errors.Validation("wallet address and signature are required")
	}

	user, err := s.users.GetUserByWallet(ctx, walletAddress)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Session{}, errors.NotFound("wallet not registered")
		}
		return Session{}, errors.Internal("look up wallet", err)
	}
	if user.Nonce == "" {
		return Session{}, errors.Unauthorized("no login challenge outstanding")
	}

	message := MessagePrefix + user.Nonce
	recovered, err := s.recoverer.Recover(message, signature)
	if err != nil {
		s.log.WithError(err).WithField("wallet", walletAddress).Warn("signature recovery failed")
		return Session{}, errors.Unauthorized("invalid signature")
	}
	if !strings.EqualFold(recovered, walletAddress) {
		return Session{}, errors.Unauthorized("signature does not match wallet")
	}

	next, err := identity.NewNonce()
	if err != nil {
		return Session{}, errors.Internal("generate nonce", err)
	}
	// Compare-and-swap rotation: if a concurrent verify already consumed the
	// nonce, this one loses and is rejected.
	if err := s.users.RotateNonce(ctx, walletAddress, user.Nonce, next); err != nil {
		if errors.Is(err, storage.ErrStaleNonce) {
			return Session{}, errors.Unauthorized("login challenge already used")
		}
		return Session{}, errors.Internal("rotate nonce", err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return Session{}, errors.Internal("sign session token", err)
	}
	user.Nonce = ""
	s.log.WithField("user_id", user.ID).Info("wallet authenticated")
	return Session{Token: token, User: user}, nil
}

func (s *Service) issueToken(user identity.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:        user.ID,
		WalletAddress: user.WalletAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken validates a session token and returns its claims.
func ParseToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.InvalidToken(err)
	}
	return claims, nil
}
