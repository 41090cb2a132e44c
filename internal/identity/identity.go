package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/c-pro/geche"
	"github.com/golang-jwt/jwt/v5"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
)

// Provider resolves the current user's identity before the realtime
// handshake. Implementations must fail with models.ErrUnauthenticated when no
// session is available so the connection manager can fail fast.
type Provider interface {
	Resolve(ctx context.Context) (models.Identity, error)
}

const cacheTTL = 5 * time.Minute

// TokenProvider resolves identities from an HS256 session token. Resolved
// identities are cached so repeated reconnect handshakes do not re-verify
// the signature every time.
type TokenProvider struct {
	secret []byte
	token  string
	cache  geche.Geche[string, models.Identity]
}

func NewTokenProvider(ctx context.Context, secret, token string) *TokenProvider {
	return &TokenProvider{
		secret: []byte(secret),
		token:  token,
		cache:  geche.NewMapTTLCache[string, models.Identity](ctx, cacheTTL, time.Minute),
	}
}

func (p *TokenProvider) Resolve(_ context.Context) (models.Identity, error) {
	if p.token == "" {
		return models.Identity{}, models.ErrUnauthenticated
	}

	if id, err := p.cache.Get(p.token); err == nil {
		return id, nil
	}

	claims, err := p.parse(p.token)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", models.ErrUnauthenticated, err)
	}

	id := models.Identity{
		UserID:      stringClaim(claims, "sub"),
		UserName:    stringClaim(claims, "userName"),
		DisplayName: stringClaim(claims, "displayName"),
		AvatarURL:   stringClaim(claims, "avatarUrl"),
	}
	if id.UserID == "" {
		return models.Identity{}, fmt.Errorf("%w: token has no subject", models.ErrUnauthenticated)
	}

	p.cache.Set(p.token, id)
	return id, nil
}

func (p *TokenProvider) parse(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok {
		return claims, nil
	}
	return nil, jwt.ErrTokenMalformed
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// MintToken creates a session token for the given identity. Used by the dev
// token generator and test fixtures.
func MintToken(secret string, id models.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":         id.UserID,
		"userName":    id.UserName,
		"displayName": id.DisplayName,
		"avatarUrl":   id.AvatarURL,
		"iat":         now.Unix(),
		"exp":         now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Static is a fixed identity, handy for tests and the local demo mode.
type Static struct {
	Identity models.Identity
}

func (s Static) Resolve(context.Context) (models.Identity, error) {
	if s.Identity.UserID == "" {
		return models.Identity{}, models.ErrUnauthenticated
	}
	return s.Identity, nil
}
