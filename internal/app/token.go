package app

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
)

var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature mismatch")
	ErrTokenExpired   = errors.New("token expired")
)

// Claims scope a credential to one (room, identity) pair.
type Claims struct {
	Room     domain.RoomName `json:"room"`
	Identity string          `json:"identity"`
	Role     domain.Role     `json:"role"`
	Exp      int64           `json:"exp"`
}

// TokenIssuer mints and verifies short-lived HMAC-signed access
// tokens. The client side treats them as opaque strings.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

func (t *TokenIssuer) Mint(room domain.RoomName, identity string, role domain.Role) (string, error) {
	c := Claims{
		Room:     room,
		Identity: identity,
		Role:     role,
		Exp:      time.Now().Add(t.ttl).Unix(),
	}
	body, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(body)
	return payload + "." + t.sign(payload), nil
}

func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok {
		return nil, ErrTokenMalformed
	}
	if !hmac.Equal([]byte(t.sign(payload)), []byte(sig)) {
		return nil, ErrTokenSignature
	}
	body, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrTokenMalformed
	}
	var c Claims
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, ErrTokenMalformed
	}
	if time.Now().Unix() > c.Exp {
		return nil, ErrTokenExpired
	}
	return &c, nil
}

func (t *TokenIssuer) sign(payload string) string {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
