package auth

import (
	"encoding/hex"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/refshelf/refshelf-server/internal/domain"
	"github.com/refshelf/refshelf-server/internal/id"
)

const (
	tokenIssuer   = "refshelf-server"
	tokenAudience = "refshelf-client"

	// PASETO v4 local tokens use a 256-bit symmetric key.
	keyBytesSize = 32
	keyHexSize   = 64

	claimUsername = "username"
)

// Claims are the identity fields carried by a verified access token.
type Claims struct {
	UserID    string
	Username  string
	TokenID   string
	ExpiresAt time.Time
}

// TokenService issues and verifies PASETO v4.local access tokens.
type TokenService struct {
	key      paseto.V4SymmetricKey
	duration time.Duration
	now      func() time.Time
}

// NewTokenService builds a service from a hex-encoded 32-byte key.
func NewTokenService(keyHex string, duration time.Duration) (*TokenService, error) {
	if len(keyHex) != keyHexSize {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d hex characters, got %d", keyHexSize, len(keyHex))
	}
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string for PASETO key: %w", err)
	}
	key, err := paseto.V4SymmetricKeyFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("create PASETO symmetric key: %w", err)
	}

	return &TokenService{key: key, duration: duration, now: time.Now}, nil
}

// Duration returns the access token lifetime.
func (s *TokenService) Duration() time.Duration {
	return s.duration
}

// GenerateAccessToken issues an encrypted token for user and returns it with its expiry.
func (s *TokenService) GenerateAccessToken(user *domain.User) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.duration)

	tokenID, err := id.Generate(id.PrefixToken)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token id: %w", err)
	}

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetSubject(user.ID)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(expires)
	token.SetJti(tokenID)
	token.SetString(claimUsername, user.Username)

	return token.V4Encrypt(s.key, nil), expires, nil
}

// VerifyAccessToken decrypts tokenString and checks issuer, audience and validity window.
func (s *TokenService) VerifyAccessToken(tokenString string) (*Claims, error) {
	now := s.now()

	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(now))

	token, err := parser.ParseV4Local(s.key, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var c Claims
	if c.UserID, err = token.GetSubject(); err != nil {
		return nil, fmt.Errorf("read subject: %w", err)
	}
	if c.TokenID, err = token.GetJti(); err != nil {
		return nil, fmt.Errorf("read token id: %w", err)
	}
	if c.ExpiresAt, err = token.GetExpiration(); err != nil {
		return nil, fmt.Errorf("read expiration: %w", err)
	}
	// Username is informational; older tokens may not carry it.
	c.Username, _ = token.GetString(claimUsername)

	return &c, nil
}
