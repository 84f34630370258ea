package service

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"contacts-api/pkg/apierror"
)

const (
	ScopeAccess  = "access_token"
	ScopeRefresh = "refresh_token"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	defaultEmailTTL   = 7 * 24 * time.Hour
)

// TokenClaims is the decoded view of a signed token. Scope is empty for
// email-confirmation tokens.
type TokenClaims struct {
	Subject string
	Scope   string
}

// TokenService signs and verifies the compact bearer tokens used for access,
// refresh and email confirmation. The signing algorithm is fixed at
// construction from the HS256/HS512 allow-list.
type TokenService struct {
	secret []byte
	method *jwt.SigningMethodHMAC
}

func NewTokenService(secret string, algorithm string) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	var method *jwt.SigningMethodHMAC
	switch algorithm {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}

	return &TokenService{secret: []byte(secret), method: method}, nil
}

// CreateAccessToken issues a short-lived token carrying the subject email.
// A non-positive ttl falls back to the 15 minute default.
func (s *TokenService) CreateAccessToken(email string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = defaultAccessTTL
	}
	return s.sign(email, ScopeAccess, ttl)
}

func (s *TokenService) CreateRefreshToken(email string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = defaultRefreshTTL
	}
	return s.sign(email, ScopeRefresh, ttl)
}

// CreateEmailToken issues an email-confirmation token. Confirmation tokens
// carry no scope claim.
func (s *TokenService) CreateEmailToken(email string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = defaultEmailTTL
	}
	return s.sign(email, "", ttl)
}

// Verify checks signature and expiry and returns the claims. It does not
// inspect the scope; callers reject scope mismatches themselves. Every
// failure surfaces as the same generic unauthorized error so token
// rejections never explain why.
func (s *TokenService) Verify(tokenString string) (TokenClaims, error) {
	credentialsErr := apierror.New("UNAUTHORIZED", "Could not validate credentials", http.StatusUnauthorized)

	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != s.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return TokenClaims{}, credentialsErr
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, credentialsErr
	}

	subject, _ := claimsMap["sub"].(string)
	if subject == "" {
		return TokenClaims{}, credentialsErr
	}

	scope, _ := claimsMap["scope"].(string)
	return TokenClaims{Subject: subject, Scope: scope}, nil
}

func (s *TokenService) sign(email string, scope string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": email,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if scope != "" {
		claims["scope"] = scope
	}

	token := jwt.NewWithClaims(s.method, claims)
	return token.SignedString(s.secret)
}
