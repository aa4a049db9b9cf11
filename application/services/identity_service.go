package services

import (
	"context"
	"errors"
	"strings"

	"mindtrack/application/ports"
	"mindtrack/domain/identity"
	"mindtrack/pkg/auth"
	apperrors "mindtrack/pkg/errors"
)

// User-facing identity messages
const (
	MsgEmailRequired         = "Email is required"
	MsgRateLimited           = "Please wait a minute before requesting another magic link."
	MsgSessionExchangeFailed = "Session exchange failed"
	MsgAuthenticationFailed  = "Authentication failed"
)

// IdentityService runs the passwordless sign-in flow
type IdentityService struct {
	provider   ports.IdentityProvider
	validator  *auth.TokenValidator
	redirectTo string
	logger     ports.Logger
}

// NewIdentityService creates the service. validator may be nil, in which
// case every access token is checked with the provider.
func NewIdentityService(
	provider ports.IdentityProvider,
	validator *auth.TokenValidator,
	redirectTo string,
	logger ports.Logger,
) *IdentityService {
	return &IdentityService{
		provider:   provider,
		validator:  validator,
		redirectTo: redirectTo,
		logger:     logger,
	}
}

// RequestMagicLink sends a sign-in link to email
func (s *IdentityService) RequestMagicLink(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.NewValidationError(MsgEmailRequired)
	}

	err := s.provider.SendMagicLink(ctx, email, s.redirectTo)
	if err == nil {
		s.logger.Infow("Magic link sent", "redirectTo", s.redirectTo)
		return nil
	}

	if apperrors.HasCode(err, apperrors.CodeRateLimited) {
		s.logger.Warnw("Magic link rate limited", "error", err)
		return apperrors.NewAuthError(MsgRateLimited).
			WithCode(apperrors.CodeRateLimited).
			WithCause(err)
	}

	s.logger.Errorw("Magic link request failed", "error", err)
	if apperrors.GetAppError(err) != nil {
		return err
	}
	return apperrors.NewAuthError(err.Error()).WithCause(err)
}

// ExchangeCallback completes the magic-link redirect. A session built from
// the redirect tokens is the current session; without tokens the caller's
// existing session is resolved instead.
func (s *IdentityService) ExchangeCallback(ctx context.Context, tokens identity.CallbackTokens, current identity.Credentials) (*identity.Session, error) {
	if tokens.Present() {
		session, err := s.provider.SessionFromTokens(ctx, tokens.AccessToken, tokens.RefreshToken)
		if err != nil {
			s.logger.Warnw("Session exchange failed", "error", err)
			return nil, apperrors.NewAuthError(MsgSessionExchangeFailed).
				WithCode(apperrors.CodeSessionFailed).
				WithCause(err)
		}
		s.logger.Infow("Session established from callback tokens", "userID", session.User.ID)
		return session, nil
	}

	session, err := s.CurrentSession(ctx, current)
	if err != nil || session == nil {
		if err != nil {
			s.logger.Warnw("No valid session after callback", "error", err)
		}
		authErr := apperrors.NewAuthError(MsgAuthenticationFailed).WithCode(apperrors.CodeAuthFailed)
		if err != nil {
			authErr = authErr.WithCause(err)
		}
		return nil, authErr
	}

	s.logger.Infow("Session established", "userID", session.User.ID)
	return session, nil
}

// CurrentSession resolves creds to a session. It returns nil without error
// when the credentials are absent or no longer accepted. An expired access
// token is refreshed when a refresh token is available; the returned
// session then carries the new tokens.
func (s *IdentityService) CurrentSession(ctx context.Context, creds identity.Credentials) (*identity.Session, error) {
	if creds.Empty() {
		return nil, nil
	}

	if creds.AccessToken != "" {
		session, err := s.verify(ctx, creds)
		if err == nil {
			return session, nil
		}
		if !isRejection(err) {
			return nil, err
		}
		s.logger.Debugw("Access token not accepted", "error", err)
	}

	if creds.RefreshToken == "" {
		return nil, nil
	}

	session, err := s.provider.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		if isRejection(err) {
			s.logger.Debugw("Refresh token not accepted", "error", err)
			return nil, nil
		}
		return nil, err
	}
	s.logger.Debugw("Session refreshed", "userID", session.User.ID)
	return session, nil
}

func (s *IdentityService) verify(ctx context.Context, creds identity.Credentials) (*identity.Session, error) {
	if s.validator == nil {
		return s.provider.SessionFromTokens(ctx, creds.AccessToken, creds.RefreshToken)
	}

	claims, err := s.validator.ValidateToken(creds.AccessToken)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError(err.Error()).WithCause(err)
	}

	session := &identity.Session{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		User:         identity.User{ID: claims.UserID(), Email: claims.Email},
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// SignOut revokes session with the provider
func (s *IdentityService) SignOut(ctx context.Context, session *identity.Session) error {
	if session == nil || session.AccessToken == "" {
		return nil
	}
	if err := s.provider.SignOut(ctx, session.AccessToken); err != nil {
		s.logger.Warnw("Sign out failed", "userID", session.User.ID, "error", err)
		return err
	}
	s.logger.Infow("Signed out", "userID", session.User.ID)
	return nil
}

// isRejection reports whether err means the provider or validator refused
// the credentials, as opposed to being unreachable
func isRejection(err error) bool {
	if apperrors.IsAuth(err) || apperrors.IsType(err, apperrors.ErrorTypeUnauthorized) {
		return true
	}
	return errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken)
}
