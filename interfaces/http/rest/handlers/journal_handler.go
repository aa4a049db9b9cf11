package handlers

import (
	"net/http"

	"mindtrack/application/commands"
	cmdhandlers "mindtrack/application/commands/handlers"
	"mindtrack/domain/journal"
	"mindtrack/pkg/auth"
	"mindtrack/pkg/common"
	apperrors "mindtrack/pkg/errors"

	"go.uber.org/zap"
)

// JournalResponse is the body of a successful submission
type JournalResponse struct {
	Success  bool            `json:"success"`
	Insights string          `json:"insights"`
	SaveData []journal.Entry `json:"saveData"`
}

// JournalHandler handles journal submissions
type JournalHandler struct {
	orchestrator *cmdhandlers.SubmitEntryOrchestrator
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewJournalHandler creates a new journal handler
func NewJournalHandler(
	orchestrator *cmdhandlers.SubmitEntryOrchestrator,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *JournalHandler {
	return &JournalHandler{
		orchestrator: orchestrator,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// Submit handles POST /api/journal
func (h *JournalHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	fields, err := common.ParseStringFields(w, r, 0)
	if err != nil {
		h.logger.Debug("Unreadable journal body", zap.Error(err))
	}
	cmd := commands.SubmitEntryCommand{
		UserID:  fields["userId"],
		Title:   fields["title"],
		Content: fields["entry"],
	}

	if cmd.UserID == "" {
		if user, err := auth.GetUserFromContext(r.Context()); err == nil {
			cmd.UserID = user.UserID
		}
	}

	result, err := h.orchestrator.Handle(r.Context(), cmd)
	if err != nil {
		if apperrors.IsValidation(err) {
			common.RespondMessage(w, http.StatusBadRequest, false, apperrors.PublicMessage(err))
			return
		}
		h.errorHandler.HandleWithStatus(w, r, http.StatusInternalServerError, err)
		return
	}

	saveData := result.SaveData
	if saveData == nil {
		saveData = []journal.Entry{}
	}
	common.RespondJSON(w, http.StatusOK, JournalResponse{
		Success:  true,
		Insights: result.Insights,
		SaveData: saveData,
	})
}
