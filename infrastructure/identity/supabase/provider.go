// Package supabase adapts Supabase Auth (GoTrue) to the identity port.
package supabase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"mindtrack/domain/identity"
	apperrors "mindtrack/pkg/errors"
	"mindtrack/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// NewAuthClient creates a GoTrue client for the Supabase project at url
func NewAuthClient(url, key string) gotrue.Client {
	return gotrue.New("", key).WithCustomGoTrueURL(strings.TrimRight(url, "/") + "/auth/v1")
}

// Provider implements ports.IdentityProvider on GoTrue
type Provider struct {
	auth    gotrue.Client
	timeout time.Duration
	base    http.RoundTripper
	logger  *zap.Logger
	now     func() time.Time
}

// NewProvider wraps auth; every request is bounded by timeout
func NewProvider(auth gotrue.Client, timeout time.Duration, logger *zap.Logger) *Provider {
	p := &Provider{
		timeout: timeout,
		base:    http.DefaultTransport,
		logger:  logger,
		now:     time.Now,
	}
	p.auth = auth.WithClient(http.Client{Timeout: timeout, Transport: p.base})
	return p
}

// SendMagicLink asks GoTrue to email a sign-in link that returns to
// redirectTo
func (p *Provider) SendMagicLink(ctx context.Context, email, redirectTo string) error {
	ctx, span := otel.Tracer("mindtrack/identity").Start(ctx, "gotrue.otp")
	defer span.End()

	client := p.auth
	if redirectTo != "" {
		client = p.auth.WithClient(http.Client{
			Timeout:   p.timeout,
			Transport: &redirectTransport{redirectTo: redirectTo, next: p.base},
		})
	}

	_, err := utils.RunWithContext(ctx, func() (struct{}, error) {
		return struct{}{}, client.OTP(types.OTPRequest{Email: email, CreateUser: true})
	})
	if err != nil {
		span.RecordError(err)
		return p.translate("send magic link", err)
	}
	return nil
}

// SessionFromTokens verifies accessToken with GoTrue and builds a session
func (p *Provider) SessionFromTokens(ctx context.Context, accessToken, refreshToken string) (*identity.Session, error) {
	ctx, span := otel.Tracer("mindtrack/identity").Start(ctx, "gotrue.user")
	defer span.End()

	user, err := utils.RunWithContext(ctx, func() (*types.UserResponse, error) {
		return p.auth.WithToken(accessToken).GetUser()
	})
	if err != nil {
		span.RecordError(err)
		return nil, p.translate("get user", err)
	}

	return &identity.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    tokenExpiry(accessToken),
		User:         identity.User{ID: user.ID.String(), Email: user.Email},
	}, nil
}

// Refresh exchanges refreshToken for a new session
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*identity.Session, error) {
	ctx, span := otel.Tracer("mindtrack/identity").Start(ctx, "gotrue.refresh")
	defer span.End()

	resp, err := utils.RunWithContext(ctx, func() (*types.TokenResponse, error) {
		return p.auth.RefreshToken(refreshToken)
	})
	if err != nil {
		span.RecordError(err)
		return nil, p.translate("refresh session", err)
	}
	return p.toSession(resp.Session), nil
}

// SignOut revokes the refresh tokens behind accessToken
func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	_, err := utils.RunWithContext(ctx, func() (struct{}, error) {
		return struct{}{}, p.auth.WithToken(accessToken).Logout()
	})
	if err != nil {
		return p.translate("sign out", err)
	}
	return nil
}

func (p *Provider) toSession(s types.Session) *identity.Session {
	var expires time.Time
	switch {
	case s.ExpiresAt > 0:
		expires = time.Unix(s.ExpiresAt, 0)
	case s.ExpiresIn > 0:
		expires = p.now().Add(time.Duration(s.ExpiresIn) * time.Second)
	default:
		expires = tokenExpiry(s.AccessToken)
	}
	return &identity.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    expires,
		User:         identity.User{ID: s.User.ID.String(), Email: s.User.Email},
	}
}

// translate maps a GoTrue failure to an AuthError, tagging rate limiting
// with CodeRateLimited
func (p *Provider) translate(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.NewTimeoutError(operation).WithCause(err)
	}

	pe, ok := parseProviderError(err)
	if !ok {
		return apperrors.NewAuthError(err.Error()).WithCause(err)
	}

	authErr := apperrors.NewAuthError(pe.Message).WithCause(err).WithDetails(map[string]interface{}{
		"provider_status": pe.Status,
		"error_code":      pe.ErrorCode,
	})

	switch classifyRateLimit(pe) {
	case rateLimitedByStatus, rateLimitedByCode:
		return authErr.WithCode(apperrors.CodeRateLimited)
	case rateLimitedByLegacyText:
		p.logger.Warn("Rate limit recognised by legacy message text",
			zap.String("operation", operation),
			zap.Int("status", pe.Status),
		)
		return authErr.WithCode(apperrors.CodeRateLimited)
	}

	p.logger.Debug("GoTrue request failed",
		zap.String("operation", operation),
		zap.Int("status", pe.Status),
		zap.String("errorCode", pe.ErrorCode),
	)
	return authErr
}

// tokenExpiry reads exp from a JWT without verifying it; GoTrue has
// already vouched for the token.
func tokenExpiry(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// redirectTransport adds redirect_to to OTP requests; gotrue-go's
// OTPRequest has no field for it.
type redirectTransport struct {
	redirectTo string
	next       http.RoundTripper
}

func (t *redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !strings.HasSuffix(req.URL.Path, "/otp") {
		return t.next.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	q := clone.URL.Query()
	q.Set("redirect_to", t.redirectTo)
	clone.URL.RawQuery = q.Encode()
	return t.next.RoundTrip(clone)
}
