// Issues and verifies the bearer tokens guarding mutating requests.

package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/maruel/ksid"
)

// tokenCookie is the cookie the HTML forms authenticate with.
const tokenCookie = "token"

var (
	errNoToken        = errors.New("missing token")
	errInvalidAuthHdr = errors.New("invalid authorization header")
	errInvalidToken   = errors.New("invalid token")
	errInvalidSubject = errors.New("invalid subject in token")
	errEmptySecret    = errors.New("api secret is empty")
	errEmptySubject   = errors.New("token subject is empty")
)

// NewToken returns an HS256 token for subject valid for ttl.
func NewToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errEmptySecret
	}
	if subject == "" {
		return "", errEmptySubject
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"jti": ksid.NewID().String(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// tokenFromRequest returns the bearer token or, failing that, the token
// cookie.
func tokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if !ok || scheme != "Bearer" || tok == "" {
			return "", errInvalidAuthHdr
		}
		return tok, nil
	}
	if c, err := r.Cookie(tokenCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", errNoToken
}

// verifyToken checks the signature and expiry of tokenString and returns its
// subject.
func verifyToken(tokenString string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errInvalidSubject
	}
	return sub, nil
}
