package services

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"chat-meter/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// CredentialVerifier checks a name/secret pair against the static account list.
type CredentialVerifier interface {
	Verify(username, password string) (models.Account, error)
	Lookup(username string) (models.Account, bool)
}

// StaticVerifier verifies against accounts read from configuration.
// Secrets may be stored plaintext or as bcrypt hashes.
type StaticVerifier struct {
	accounts map[string]models.Account
}

func NewStaticVerifier(accounts []models.Account) *StaticVerifier {
	m := make(map[string]models.Account, len(accounts))
	for _, a := range accounts {
		m[a.Name] = a
	}
	return &StaticVerifier{accounts: m}
}

func (v *StaticVerifier) Lookup(username string) (models.Account, bool) {
	a, ok := v.accounts[username]
	return a, ok
}

func (v *StaticVerifier) Verify(username, password string) (models.Account, error) {
	account, ok := v.accounts[username]
	if !ok {
		return models.Account{}, ErrInvalidCredentials
	}

	if isBcryptHash(account.Password) {
		if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)); err != nil {
			return models.Account{}, ErrInvalidCredentials
		}
		return account, nil
	}

	if subtle.ConstantTimeCompare([]byte(account.Password), []byte(password)) != 1 {
		return models.Account{}, ErrInvalidCredentials
	}
	return account, nil
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// AuthService logs accounts in and attaches their session record.
type AuthService struct {
	Verifier CredentialVerifier
	Sessions *SessionRegistry
}

func NewAuthService(verifier CredentialVerifier, sessions *SessionRegistry) *AuthService {
	return &AuthService{Verifier: verifier, Sessions: sessions}
}

// Login verifies the credentials. Failed attempts are unlimited.
func (s *AuthService) Login(username, password string) (*AccountState, error) {
	account, err := s.Verifier.Verify(username, password)
	if err != nil {
		return nil, err
	}
	return s.Sessions.Open(account), nil
}

// Resume reattaches a session for an identity carried by a cookie or token.
// The account must still exist in configuration.
func (s *AuthService) Resume(username string) (*AccountState, error) {
	account, ok := s.Verifier.Lookup(username)
	if !ok {
		return nil, ErrNotAuthenticated
	}
	return s.Sessions.Open(account), nil
}

// TokenIssuer signs and verifies bearer tokens for the JSON API.
// Logged out tokens are remembered until they would have expired anyway.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

// Issue generates a new JWT token for the given account
func (t *TokenIssuer) Issue(account models.Account) (string, time.Time, error) {
	issuedAt := t.now()
	expiresAt := issuedAt.Add(t.ttl)

	claims := models.Claims{
		Username: account.Name,
		Role:     account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   account.Name,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates a token and returns its claims.
func (t *TokenIssuer) Parse(tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if t.isRevoked(claims.ID) {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke rejects the token from now on.
func (t *TokenIssuer) Revoke(claims *models.Claims) {
	if claims == nil || claims.ID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for id, exp := range t.revoked {
		if now.After(exp) {
			delete(t.revoked, id)
		}
	}
	exp := now.Add(t.ttl)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	t.revoked[claims.ID] = exp
}

func (t *TokenIssuer) isRevoked(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.revoked[id]
	return ok
}
