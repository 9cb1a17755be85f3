package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Omni-crm/talpan-bot-sub000/models"
)

func cartDraft() *models.DraftOrder {
	return &models.DraftOrder{
		Cursor: models.StateCartMenu,
		Lines: []models.CartLine{
			{ProductID: "p-a", Name: "Bread", Quantity: 2, UnitPrice: 8.5, LineTotal: 17.0, StockSnapshot: 50},
			{ProductID: "p-b", Name: "Milk", Quantity: 1, UnitPrice: 6.0, LineTotal: 6.0, StockSnapshot: 30},
			{ProductID: "p-c", Name: "Eggs", Quantity: 3, UnitPrice: 4.0, LineTotal: 12.0, StockSnapshot: 10},
		},
	}
}

func TestDeleteLine_RemovesLine(t *testing.T) {
	draft := cartDraft()

	require.NoError(t, DeleteLine(draft, 1))
	require.Len(t, draft.Lines, 2)
	assert.Equal(t, "Bread", draft.Lines[0].Name)
	assert.Equal(t, "Eggs", draft.Lines[1].Name)
}

func TestDeleteLine_OutOfRange(t *testing.T) {
	draft := cartDraft()

	assert.Error(t, DeleteLine(draft, -1))
	assert.Error(t, DeleteLine(draft, 3))
	assert.Len(t, draft.Lines, 3)
}

func TestDeleteLine_EditedLineAbortsEdit(t *testing.T) {
	draft := cartDraft()
	require.NoError(t, OpenEdit(draft, 1))
	draft.Cursor = models.StateEditQuantity

	require.NoError(t, DeleteLine(draft, 1))
	assert.Nil(t, draft.Edit, "the edited line is gone, so is the edit")
	assert.Equal(t, models.StateCartMenu, draft.Cursor, "cursor falls back out of the edit flow")
}

func TestDeleteLine_EarlierLineRenumbersEdit(t *testing.T) {
	draft := cartDraft()
	require.NoError(t, OpenEdit(draft, 2))

	require.NoError(t, DeleteLine(draft, 0))
	require.NotNil(t, draft.Edit)
	assert.Equal(t, 1, draft.Edit.LineIndex, "edit follows its line down")
	assert.Equal(t, "Eggs", draft.Lines[draft.Edit.LineIndex].Name)
}

func TestDeleteLine_LaterLineLeavesEditUntouched(t *testing.T) {
	draft := cartDraft()
	require.NoError(t, OpenEdit(draft, 0))

	require.NoError(t, DeleteLine(draft, 2))
	require.NotNil(t, draft.Edit)
	assert.Equal(t, 0, draft.Edit.LineIndex)
	assert.Equal(t, "Bread", draft.Lines[draft.Edit.LineIndex].Name)
}

func TestOpenEdit_WorksOnACopy(t *testing.T) {
	draft := cartDraft()
	require.NoError(t, OpenEdit(draft, 0))

	draft.Edit.Working.SetQuantity(9)
	assert.Equal(t, 2, draft.Lines[0].Quantity, "committed line untouched until apply")
	assert.Equal(t, 2, draft.Edit.Original.Quantity)
}

func TestApplyEdit_CommitsInOneAssignment(t *testing.T) {
	draft := cartDraft()
	require.NoError(t, OpenEdit(draft, 0))
	draft.Edit.Working.SetQuantity(9)

	require.NoError(t, ApplyEdit(draft))
	assert.Nil(t, draft.Edit)
	assert.Equal(t, 9, draft.Lines[0].Quantity)
	assert.InDelta(t, 76.5, draft.Lines[0].LineTotal, 1e-9)
}

func TestApplyEdit_WithoutSession(t *testing.T) {
	draft := cartDraft()

	err := ApplyEdit(draft)
	assert.ErrorIs(t, err, ErrStateIntegrity)
}

func TestDiscardEdit_LeavesNoTrace(t *testing.T) {
	draft := cartDraft()
	require.NoError(t, OpenEdit(draft, 0))
	draft.Edit.Working.SetQuantity(9)
	draft.Edit.Working.SetUnitPrice(1.0)

	DiscardEdit(draft)
	assert.Nil(t, draft.Edit)
	assert.Equal(t, 2, draft.Lines[0].Quantity)
	assert.InDelta(t, 8.5, draft.Lines[0].UnitPrice, 1e-9)
}
