package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	adaptermiddleware "practice-governance/internal/adapters/http/middleware"
)

// RoleClaim is the Cognito custom attribute carrying the user's practice role.
const RoleClaim = "custom:role"

const (
	keySetTTL          = 15 * time.Minute
	minRefreshInterval = 30 * time.Second
	fetchTimeout       = 5 * time.Second
	clockLeeway        = 30 * time.Second
)

// sessionClaims are the ID token claims the session is built from. Custom
// attributes are only present on ID tokens, so access tokens are refused.
type sessionClaims struct {
	jwt.RegisteredClaims
	Role     string `json:"custom:role"`
	TokenUse string `json:"token_use"`
}

type jsonWebKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jsonWebKeySet struct {
	Keys []jsonWebKey `json:"keys"`
}

// keySet caches the user pool's signing keys. An unknown kid triggers a
// refetch, at most once per minRefreshInterval, to pick up key rotation.
// Fetches run outside mu; a stale key keeps verifying until the refresh lands.
type keySet struct {
	url    string
	client *http.Client

	mu          sync.Mutex
	keys        map[string]*rsa.PublicKey
	fetchedAt   time.Time
	lastAttempt time.Time
	lastErr     error
	// refreshing is closed when the in-flight fetch finishes; nil when idle.
	refreshing chan struct{}
}

func newKeySet(url string) *keySet {
	return &keySet{
		url:    url,
		client: &http.Client{Timeout: fetchTimeout},
		keys:   map[string]*rsa.PublicKey{},
	}
}

func (s *keySet) lookup(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	s.mu.Lock()
	key, ok := s.keys[kid]
	if ok && time.Since(s.fetchedAt) <= keySetTTL {
		s.mu.Unlock()
		return key, nil
	}
	done := s.startRefreshLocked()
	s.mu.Unlock()

	if ok {
		return key, nil
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.keys[kid]; ok {
		return key, nil
	}
	if s.lastErr != nil {
		return nil, fmt.Errorf("fetch jwks: %w", s.lastErr)
	}
	return nil, fmt.Errorf("no signing key for kid %q", kid)
}

// startRefreshLocked returns the channel of the in-flight refresh, starting
// one unless throttled, in which case it returns nil. s.mu must be held.
func (s *keySet) startRefreshLocked() <-chan struct{} {
	if s.refreshing != nil {
		return s.refreshing
	}
	if time.Since(s.lastAttempt) < minRefreshInterval {
		return nil
	}
	s.lastAttempt = time.Now()
	done := make(chan struct{})
	s.refreshing = done
	go s.refresh(done)
	return done
}

// refresh runs on its own context; waiting callers may give up without
// cancelling it.
func (s *keySet) refresh(done chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	keys, err := s.fetch(ctx)

	s.mu.Lock()
	if err == nil {
		s.keys, s.fetchedAt = keys, time.Now()
	}
	s.lastErr = err
	s.refreshing = nil
	s.mu.Unlock()
	close(done)
}

func (s *keySet) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var set jsonWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, err
	}
	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		if pub, err := rsaPublicKey(k.N, k.E); err == nil {
			keys[k.Kid] = pub
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("no usable RSA keys")
	}
	return keys, nil
}

func rsaPublicKey(modulus, exponent string) (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(modulus)
	if err != nil {
		return nil, err
	}
	e, err := base64.RawURLEncoding.DecodeString(exponent)
	if err != nil {
		return nil, err
	}
	exp := new(big.Int).SetBytes(e)
	if len(n) == 0 || exp.Sign() == 0 || !exp.IsInt64() || exp.Int64() > 1<<31-1 {
		return nil, errors.New("invalid rsa key parameters")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// CognitoMiddleware verifies Cognito ID tokens and resolves the session actor
// from the sub and custom:role claims.
type CognitoMiddleware struct {
	keys   *keySet
	parser *jwt.Parser
}

func NewCognitoMiddleware(userPoolID, region string) *CognitoMiddleware {
	issuer := "https://cognito-idp." + region + ".amazonaws.com/" + userPoolID
	return newCognitoMiddleware(issuer, issuer+"/.well-known/jwks.json")
}

func newCognitoMiddleware(issuer, jwksURL string) *CognitoMiddleware {
	return &CognitoMiddleware{
		keys: newKeySet(jwksURL),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockLeeway),
		),
	}
}

func (m *CognitoMiddleware) Handler(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
		}
		ctx := c.Request().Context()
		var claims sessionClaims
		_, err := m.parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("token has no kid")
			}
			return m.keys.lookup(ctx, kid)
		})
		if err != nil || claims.TokenUse != "id" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		}
		actor, err := adaptermiddleware.ResolveActor(claims.Subject, claims.Role)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "token carries no valid session"})
		}
		adaptermiddleware.SetActor(c, actor)
		return next(c)
	}
}
