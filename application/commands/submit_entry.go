// Package commands holds the write-side commands of the application.
package commands

import (
	"mindtrack/domain/journal"
	apperrors "mindtrack/pkg/errors"
	"mindtrack/pkg/utils"
)

// SubmitEntryCommand is a journal submission. Title and user id are
// optional; defaults are applied when the entry is built.
type SubmitEntryCommand struct {
	UserID  string `json:"userId"`
	Title   string `json:"title"`
	Content string `json:"entry" validate:"required"`
}

// Validate reports a submission without content. The only rule is that
// the entry is present, so every failure maps to the same message.
func (c SubmitEntryCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return apperrors.NewValidationError(journal.ErrEntryRequired).WithCause(err)
	}
	return nil
}

// SubmitEntryResult is what a successful submission returns
type SubmitEntryResult struct {
	Insights string          `json:"insights"`
	SaveData []journal.Entry `json:"saveData"`
}
