package builder

import (
	"fmt"

	"github.com/Omni-crm/talpan-bot-sub000/models"
)

// DeleteLine removes the cart line at index and keeps any open edit session
// consistent with it. The invariant, chosen once and tested explicitly:
// deleting the edited line aborts the edit (the line is gone, there is
// nothing to apply to); deleting an earlier line renumbers the edit's index
// down by one; deleting a later line leaves the edit untouched.
func DeleteLine(draft *models.DraftOrder, index int) error {
	if index < 0 || index >= len(draft.Lines) {
		return fmt.Errorf("cart line %d out of range: %w", index, ErrStateIntegrity)
	}

	draft.Lines = append(draft.Lines[:index], draft.Lines[index+1:]...)

	if draft.Edit == nil {
		return nil
	}

	switch {
	case draft.Edit.LineIndex == index:
		draft.Edit = nil
		if isEditState(draft.Cursor) {
			draft.Cursor = models.StateCartMenu
		}
	case draft.Edit.LineIndex > index:
		draft.Edit.LineIndex--
	}

	return nil
}

// OpenEdit starts an edit session scoped to the line at index. The session
// works on a copy; the committed line stays untouched until apply.
func OpenEdit(draft *models.DraftOrder, index int) error {
	if index < 0 || index >= len(draft.Lines) {
		return fmt.Errorf("cart line %d out of range: %w", index, ErrStateIntegrity)
	}

	draft.Edit = &models.EditSession{
		LineIndex: index,
		Original:  draft.Lines[index],
		Working:   draft.Lines[index],
	}
	return nil
}

// ApplyEdit overwrites the edited cart line with the working copy in a single
// assignment and closes the session.
func ApplyEdit(draft *models.DraftOrder) error {
	edit := draft.Edit
	if edit == nil {
		return fmt.Errorf("apply with no open edit session: %w", ErrStateIntegrity)
	}
	if edit.LineIndex < 0 || edit.LineIndex >= len(draft.Lines) {
		return fmt.Errorf("edit index %d out of range: %w", edit.LineIndex, ErrStateIntegrity)
	}

	draft.Lines[edit.LineIndex] = edit.Working
	draft.Edit = nil
	return nil
}

// DiscardEdit closes the session leaving the committed line as it was.
func DiscardEdit(draft *models.DraftOrder) {
	draft.Edit = nil
}

func isEditState(state models.BuilderState) bool {
	switch state {
	case models.StateEditField, models.StateEditQuantity, models.StateEditPrice:
		return true
	}
	return false
}
