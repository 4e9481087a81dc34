package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/clothhaven/storefront/internal/platform/observability"
)

const (
	ReasonMissingToken = "missing_token"
	ReasonTokenInvalid = "token_invalid"
	ReasonTokenExpired = "token_expired"
)

// ErrUnauthorized is returned when a credential is rejected.
var ErrUnauthorized = errors.New("unauthorized")

// sessionCookies may carry the ID token for browser sessions.
var sessionCookies = []string{"__session", "idToken"}

type operatorKey struct{}

// User is the authenticated console operator.
type User struct {
	UID   string
	Email string
	Roles []string
	Token string
}

// HasAnyRole reports whether the user holds one of roles, ignoring case. No roles means
// no restriction.
func (u *User) HasAnyRole(roles ...string) bool {
	if len(roles) == 0 {
		return true
	}
	if u == nil {
		return false
	}
	for _, want := range roles {
		for _, have := range u.Roles {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// Authenticator resolves a bearer credential into a User.
type Authenticator interface {
	Authenticate(r *http.Request, token string) (*User, error)
}

// AuthError carries the reason code reported in the WWW-Authenticate challenge.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError wraps err with reason.
func NewAuthError(reason string, err error) error {
	return &AuthError{Reason: reason, Err: err}
}

// DefaultAuthenticator trusts any non-empty token as an admin operator. Local use only.
func DefaultAuthenticator() Authenticator {
	return devAuthenticator{}
}

type devAuthenticator struct{}

func (devAuthenticator) Authenticate(_ *http.Request, token string) (*User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	return &User{UID: token, Roles: []string{"admin"}, Token: token}, nil
}

// Auth requires a valid credential from the Authorization header or a session cookie.
// Rejected requests get 401; an expired token on an htmx request also asks for a refresh.
func Auth(authenticator Authenticator) func(http.Handler) http.Handler {
	if authenticator == nil {
		authenticator = DefaultAuthenticator()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := observability.FromContext(r.Context())

			token := credential(r)
			if token == "" {
				logger.Info("console auth rejected", zap.String("reason", ReasonMissingToken))
				reject(w, r, ReasonMissingToken)
				return
			}

			user, err := authenticator.Authenticate(r, token)
			if err == nil && user != nil {
				ctx := context.WithValue(r.Context(), operatorKey{}, user)
				ctx = observability.WithLogger(ctx, logger.With(zap.String("operator", user.UID)))
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			reason := ReasonTokenInvalid
			var authErr *AuthError
			if errors.As(err, &authErr) && authErr.Reason != "" {
				reason = authErr.Reason
			}
			if err == nil {
				err = ErrUnauthorized
			}
			logger.Info("console auth rejected", zap.String("reason", reason), zap.Error(err))
			reject(w, r, reason)
		})
	}
}

// RequireRole answers 403 unless the operator holds one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if ok && user.HasAnyRole(roles...) {
				next.ServeHTTP(w, r)
				return
			}
			observability.FromContext(r.Context()).Info("console role rejected", zap.Strings("required", roles))
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// UserFromContext returns the operator set by Auth.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(operatorKey{}).(*User)
	return user, ok && user != nil
}

func credential(r *http.Request) string {
	if token := stripBearer(r.Header.Get("Authorization"), true); token != "" {
		return token
	}
	for _, name := range sessionCookies {
		if c, err := r.Cookie(name); err == nil {
			if token := stripBearer(c.Value, false); token != "" {
				return token
			}
		}
	}
	return ""
}

// stripBearer removes a "Bearer " prefix. When required is set, values without it are
// ignored.
func stripBearer(value string, required bool) string {
	value = strings.TrimSpace(value)
	const prefix = "bearer "
	if len(value) >= len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
		return strings.TrimSpace(value[len(prefix):])
	}
	if required {
		return ""
	}
	return value
}

func reject(w http.ResponseWriter, r *http.Request, reason string) {
	if reason == ReasonTokenExpired && IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Refresh", "true")
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="inventory", error="`+reason+`"`)
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}
