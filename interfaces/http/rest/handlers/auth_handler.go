package handlers

import (
	"net/http"
	"net/url"
	"time"

	"mindtrack/application/services"
	"mindtrack/domain/identity"
	"mindtrack/interfaces/http/rest/middleware"
	"mindtrack/pkg/common"
	apperrors "mindtrack/pkg/errors"

	"go.uber.org/zap"
)

// MsgMagicLinkSent confirms a login request
const MsgMagicLinkSent = "Magic link sent. Check your email."

const (
	dashboardPath = "/dashboard"
	loginPath     = "/login"
	bridgedParam  = "bridged"
)

// SessionResponse describes the signed-in user
type SessionResponse struct {
	Success   bool          `json:"success"`
	User      identity.User `json:"user"`
	ExpiresAt string        `json:"expiresAt,omitempty"`
}

// AuthHandler handles the magic-link sign-in flow
type AuthHandler struct {
	identity      *services.IdentityService
	errorHandler  *apperrors.ErrorHandler
	logger        *zap.Logger
	secureCookies bool
	now           func() time.Time
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	identitySvc *services.IdentityService,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
	secureCookies bool,
) *AuthHandler {
	return &AuthHandler{
		identity:      identitySvc,
		errorHandler:  errorHandler,
		logger:        logger,
		secureCookies: secureCookies,
		now:           time.Now,
	}
}

// Login handles POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	fields, err := common.ParseStringFields(w, r, 0)
	if err != nil {
		h.logger.Debug("Unreadable login body", zap.Error(err))
	}

	if err := h.identity.RequestMagicLink(r.Context(), fields["email"]); err != nil {
		if apperrors.IsValidation(err) {
			common.RespondMessage(w, http.StatusBadRequest, false, apperrors.PublicMessage(err))
			return
		}
		h.errorHandler.HandleWithStatus(w, r, http.StatusInternalServerError, err)
		return
	}

	common.RespondMessage(w, http.StatusOK, true, MsgMagicLinkSent)
}

// Callback handles GET /auth/callback. The provider delivers tokens in
// the URL fragment, which never reaches the server, so a request without
// query tokens gets a page that resubmits the fragment as a query.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tokens := identity.CallbackTokens{
		AccessToken:  q.Get("access_token"),
		RefreshToken: q.Get("refresh_token"),
	}

	if !tokens.Present() && q.Get(bridgedParam) == "" {
		serveCallbackBridge(w)
		return
	}

	if desc := q.Get("error_description"); desc != "" {
		h.logger.Warn("Provider reported a callback error",
			zap.String("error", q.Get("error")),
			zap.String("description", desc),
		)
	}

	session, err := h.identity.ExchangeCallback(r.Context(), tokens, middleware.Credentials(r))
	if err != nil {
		message := services.MsgAuthenticationFailed
		if apperrors.HasCode(err, apperrors.CodeSessionFailed) {
			message = services.MsgSessionExchangeFailed
		}
		h.logger.Warn("Callback failed", zap.String("reason", message), zap.Error(err))
		http.Redirect(w, r, loginPath+"?"+url.Values{"error": {message}}.Encode(), http.StatusFound)
		return
	}

	middleware.SetSessionCookies(w, session, h.secureCookies, h.now())
	h.logger.Info("User signed in", zap.String("userID", session.User.ID))
	http.Redirect(w, r, dashboardPath, http.StatusFound)
}

// Session handles GET /api/session; the route requires a session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		h.errorHandler.Handle(w, r, apperrors.NewUnauthorizedError("Authentication required"))
		return
	}

	resp := SessionResponse{Success: true, User: session.User}
	if !session.ExpiresAt.IsZero() {
		resp.ExpiresAt = session.ExpiresAt.UTC().Format(time.RFC3339)
	}
	common.RespondJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/logout. Cookies are cleared even when the
// provider cannot be reached.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := middleware.SessionFromContext(r.Context()); session != nil {
		if err := h.identity.SignOut(r.Context(), session); err != nil {
			h.logger.Warn("Provider sign out failed", zap.Error(err))
		}
	}

	middleware.ClearSessionCookies(w, h.secureCookies)
	common.RespondMessage(w, http.StatusOK, true, "Signed out")
}
