package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"mindtrack/domain/identity"
	"mindtrack/pkg/auth"
	apperrors "mindtrack/pkg/errors"

	"go.uber.org/zap"
)

// Session cookie names
const (
	AccessTokenCookie  = "mt-access-token"
	RefreshTokenCookie = "mt-refresh-token"

	refreshCookieTTL = 30 * 24 * time.Hour
	accessCookieTTL  = time.Hour
)

// SessionResolver turns request credentials into a session
type SessionResolver interface {
	CurrentSession(ctx context.Context, creds identity.Credentials) (*identity.Session, error)
}

type sessionKey struct{}

// SessionFromContext returns the session a session middleware attached
func SessionFromContext(ctx context.Context) *identity.Session {
	session, _ := ctx.Value(sessionKey{}).(*identity.Session)
	return session
}

// WithSession attaches session and its user to ctx
func WithSession(ctx context.Context, session *identity.Session) context.Context {
	ctx = context.WithValue(ctx, sessionKey{}, session)
	return auth.SetUserInContext(ctx, &auth.UserContext{
		UserID: session.User.ID,
		Email:  session.User.Email,
	})
}

// Credentials reads the session tokens of a request. A bearer token takes
// precedence over the access-token cookie.
func Credentials(r *http.Request) identity.Credentials {
	var creds identity.Credentials

	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			creds.AccessToken = strings.TrimSpace(parts[1])
		}
	}
	if creds.AccessToken == "" {
		if c, err := r.Cookie(AccessTokenCookie); err == nil {
			creds.AccessToken = c.Value
		}
	}
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		creds.RefreshToken = c.Value
	}
	return creds
}

// SetSessionCookies stores the session tokens in HttpOnly cookies
func SetSessionCookies(w http.ResponseWriter, session *identity.Session, secure bool, now time.Time) {
	accessAge := accessCookieTTL
	if !session.ExpiresAt.IsZero() {
		accessAge = session.ExpiresAt.Sub(now)
	}
	if accessAge < time.Second {
		accessAge = time.Second
	}

	http.SetCookie(w, sessionCookie(AccessTokenCookie, session.AccessToken, accessAge, secure))
	if session.RefreshToken != "" {
		http.SetCookie(w, sessionCookie(RefreshTokenCookie, session.RefreshToken, refreshCookieTTL, secure))
	}
}

// ClearSessionCookies expires both session cookies
func ClearSessionCookies(w http.ResponseWriter, secure bool) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		c := sessionCookie(name, "", 0, secure)
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func sessionCookie(name, value string, age time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(age.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SessionMiddleware attaches the current session to requests
type SessionMiddleware struct {
	resolver     SessionResolver
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
	secure       bool
	now          func() time.Time
}

// NewSessionMiddleware creates the middleware. secure marks the cookies it
// rewrites after a refresh as Secure.
func NewSessionMiddleware(resolver SessionResolver, errorHandler *apperrors.ErrorHandler, logger *zap.Logger, secure bool) *SessionMiddleware {
	return &SessionMiddleware{
		resolver:     resolver,
		errorHandler: errorHandler,
		logger:       logger,
		secure:       secure,
		now:          time.Now,
	}
}

// Require rejects requests without a valid session with 401
func (m *SessionMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.resolve(w, r)
		if err != nil {
			m.errorHandler.Handle(w, r, err)
			return
		}
		if session == nil {
			m.errorHandler.Handle(w, r, apperrors.NewUnauthorizedError("Authentication required"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

// Optional attaches a session when one is present and never rejects
func (m *SessionMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.resolve(w, r)
		if err != nil {
			m.logger.Debug("Ignoring unresolvable session", zap.Error(err))
		}
		if session != nil {
			r = r.WithContext(WithSession(r.Context(), session))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *SessionMiddleware) resolve(w http.ResponseWriter, r *http.Request) (*identity.Session, error) {
	creds := Credentials(r)
	if creds.Empty() {
		return nil, nil
	}

	session, err := m.resolver.CurrentSession(r.Context(), creds)
	if err != nil || session == nil {
		return nil, err
	}

	// a refreshed session carries new tokens
	if session.AccessToken != creds.AccessToken {
		SetSessionCookies(w, session, m.secure, m.now())
	}
	return session, nil
}
