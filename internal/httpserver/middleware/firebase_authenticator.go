package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// ErrTokenExpired marks an expired ID token.
var ErrTokenExpired = errors.New("firebase token expired")

// defaultRoleClaims are the custom claims read for operator roles.
var defaultRoleClaims = []string{"role", "roles"}

// FirebaseTokenVerifier is the slice of the Firebase Admin auth client the console uses.
type FirebaseTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseAuthenticator turns verified Firebase ID tokens into console operators.
type FirebaseAuthenticator struct {
	verifier   FirebaseTokenVerifier
	roleClaims []string
}

// FirebaseOption customises a FirebaseAuthenticator.
type FirebaseOption func(*FirebaseAuthenticator)

// WithRoleClaims replaces the custom claims that carry roles.
func WithRoleClaims(claims ...string) FirebaseOption {
	return func(f *FirebaseAuthenticator) {
		if len(claims) > 0 {
			f.roleClaims = claims
		}
	}
}

// NewFirebaseAuthenticator wraps verifier.
func NewFirebaseAuthenticator(verifier FirebaseTokenVerifier, opts ...FirebaseOption) (*FirebaseAuthenticator, error) {
	if verifier == nil {
		return nil, errors.New("middleware: firebase token verifier is required")
	}
	f := &FirebaseAuthenticator{verifier: verifier, roleClaims: defaultRoleClaims}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Authenticate implements Authenticator.
func (f *FirebaseAuthenticator) Authenticate(r *http.Request, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, NewAuthError(ReasonMissingToken, ErrUnauthorized)
	}

	verified, err := f.verifier.VerifyIDToken(r.Context(), token)
	switch {
	case err == nil:
	case firebaseauth.IsIDTokenExpired(err) || errors.Is(err, ErrTokenExpired):
		return nil, NewAuthError(ReasonTokenExpired, err)
	default:
		return nil, NewAuthError(ReasonTokenInvalid, err)
	}

	email, _ := verified.Claims["email"].(string)
	return &User{
		UID:   verified.UID,
		Email: strings.TrimSpace(email),
		Roles: rolesFromClaims(verified.Claims, f.roleClaims),
		Token: token,
	}, nil
}

// rolesFromClaims collects role names in claim order. A claim may hold one name, a list
// of names, or a map of name to enabled flag.
func rolesFromClaims(claims map[string]any, keys []string) []string {
	var roles []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		for _, have := range roles {
			if have == name {
				return
			}
		}
		roles = append(roles, name)
	}

	for _, key := range keys {
		switch v := claims[key].(type) {
		case string:
			add(v)
		case []string:
			for _, name := range v {
				add(name)
			}
		case []any:
			for _, item := range v {
				if name, ok := item.(string); ok {
					add(name)
				}
			}
		case map[string]any:
			for name, enabled := range v {
				if on, ok := enabled.(bool); ok && on {
					add(name)
				}
			}
		}
	}
	return roles
}
