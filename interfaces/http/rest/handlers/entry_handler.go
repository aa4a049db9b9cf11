package handlers

import (
	"net/http"
	"strconv"

	"mindtrack/application/queries"
	"mindtrack/pkg/auth"
	apperrors "mindtrack/pkg/errors"

	"go.uber.org/zap"
)

// EntryHandler serves the read-side views of a user's journal
type EntryHandler struct {
	queries      *queries.EntryQueryService
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewEntryHandler creates a new entry handler
func NewEntryHandler(
	queryService *queries.EntryQueryService,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *EntryHandler {
	return &EntryHandler{
		queries:      queryService,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// Dashboard handles GET /api/dashboard
func (h *EntryHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	result, err := h.queries.Dashboard(r.Context(), queries.DashboardQuery{
		UserID: user.UserID,
		Email:  user.Email,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondData(w, result)
}

// ListEntries handles GET /api/entries?limit=
func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.errorHandler.Handle(w, r, apperrors.NewValidationError("limit must be a number"))
			return
		}
		limit = n
	}

	result, err := h.queries.RecentEntries(r.Context(), queries.RecentEntriesQuery{
		UserID: user.UserID,
		Limit:  limit,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondData(w, result)
}

// Insights handles GET /api/insights
func (h *EntryHandler) Insights(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	result, err := h.queries.Insights(r.Context(), queries.InsightsQuery{UserID: user.UserID})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondData(w, result)
}

func (h *EntryHandler) user(w http.ResponseWriter, r *http.Request) (*auth.UserContext, bool) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewUnauthorizedError("Authentication required"))
		return nil, false
	}
	return user, true
}
