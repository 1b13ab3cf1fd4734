// Package auth verifies Firebase ID tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

const (
	DefaultJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
	issuerPrefix   = "https://securetoken.google.com/"
	UnknownEmail   = "unknown"
)

var ErrUnauthenticated = errors.New("unauthenticated")

type Identity struct {
	UID   string
	Email string
}

type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

type Config struct {
	ProjectID  string
	JWKSURL    string
	KeysTTL    time.Duration
	HTTPClient *http.Client
	// Now overrides the clock, for tests.
	Now func() time.Time
}

type firebaseVerifier struct {
	log       *logger.Logger
	projectID string
	issuer    string
	jwks      *jwksCache
	now       func() time.Time
}

func NewFirebaseVerifier(log *logger.Logger, cfg Config) (Verifier, error) {
	project := strings.TrimSpace(cfg.ProjectID)
	if project == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	url := strings.TrimSpace(cfg.JWKSURL)
	if url == "" {
		url = DefaultJWKSURL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &firebaseVerifier{
		log:       log.With("service", "FirebaseVerifier"),
		projectID: project,
		issuer:    issuerPrefix + project,
		jwks:      newJWKSCache(httpClient, url, cfg.KeysTTL),
		now:       now,
	}, nil
}

// Verify checks signature, issuer, audience, subject and time claims. Every
// failure wraps ErrUnauthenticated except an unreachable key endpoint with an
// empty cache.
func (v *firebaseVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, fmt.Errorf("%w: token is empty", ErrUnauthenticated)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithoutClaimsValidation(),
	)
	claims := jwt.MapClaims{}
	tok, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("missing kid")
		}
		return v.jwks.getKey(ctx, kid)
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if tok == nil || !tok.Valid {
		return Identity{}, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}

	if err := validateTimeClaims(claims, v.now(), 30*time.Second); err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	iss, _ := claims["iss"].(string)
	if !constantTimeEq(iss, v.issuer) {
		return Identity{}, fmt.Errorf("%w: issuer mismatch: %q", ErrUnauthenticated, iss)
	}
	if !audContains(claims["aud"], v.projectID) {
		return Identity{}, fmt.Errorf("%w: audience mismatch", ErrUnauthenticated)
	}
	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return Identity{}, fmt.Errorf("%w: missing sub", ErrUnauthenticated)
	}

	email, _ := claims["email"].(string)
	if strings.TrimSpace(email) == "" {
		email = UnknownEmail
	}
	return Identity{UID: sub, Email: email}, nil
}

// StaticVerifier accepts "<uid>" or "<uid>:<email>" as the token. It exists
// for local development without a Firebase project.
type StaticVerifier struct{}

func (StaticVerifier) Verify(_ context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, fmt.Errorf("%w: token is empty", ErrUnauthenticated)
	}
	uid, email, _ := strings.Cut(token, ":")
	if email == "" {
		email = UnknownEmail
	}
	return Identity{UID: uid, Email: email}, nil
}
