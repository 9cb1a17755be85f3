package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand_BareVerbs(t *testing.T) {
	verbs := []CommandKind{
		CmdNewOrder, CmdBack, CmdCancel, CmdConfirm, CmdAddAnother,
		CmdEditQty, CmdEditPrice, CmdApplyEdit, CmdDiscardEdit,
	}

	for _, verb := range verbs {
		cmd, err := ParseCommand(string(verb))
		require.NoError(t, err, "verb %s", verb)
		assert.Equal(t, verb, cmd.Kind)
	}
}

func TestParseCommand_BareVerbRejectsArgument(t *testing.T) {
	_, err := ParseCommand("back:1")
	assert.Error(t, err)

	_, err = ParseCommand("confirm:now")
	assert.Error(t, err)
}

func TestParseCommand_Product(t *testing.T) {
	cmd, err := ParseCommand("product:prod-42")
	require.NoError(t, err)
	assert.Equal(t, CmdProduct, cmd.Kind)
	assert.Equal(t, "prod-42", cmd.ProductID)

	_, err = ParseCommand("product:")
	assert.Error(t, err, "empty product id")

	_, err = ParseCommand("product")
	assert.Error(t, err, "missing argument entirely")
}

func TestParseCommand_LineIndexes(t *testing.T) {
	tests := []struct {
		payload   string
		wantKind  CommandKind
		wantIndex int
		wantErr   bool
	}{
		{payload: "edit:0", wantKind: CmdEditLine, wantIndex: 0},
		{payload: "edit:3", wantKind: CmdEditLine, wantIndex: 3},
		{payload: "delete:1", wantKind: CmdDeleteLine, wantIndex: 1},
		{payload: "edit:-1", wantErr: true},
		{payload: "edit:abc", wantErr: true},
		{payload: "delete:", wantErr: true},
	}

	for _, tt := range tests {
		cmd, err := ParseCommand(tt.payload)
		if tt.wantErr {
			assert.Error(t, err, "payload %q", tt.payload)
			continue
		}
		require.NoError(t, err, "payload %q", tt.payload)
		assert.Equal(t, tt.wantKind, cmd.Kind)
		assert.Equal(t, tt.wantIndex, cmd.LineIndex)
	}
}

func TestParseCommand_CourierVerbs(t *testing.T) {
	cmd, err := ParseCommand("accept:ord-7")
	require.NoError(t, err)
	assert.Equal(t, CmdAccept, cmd.Kind)
	assert.Equal(t, "ord-7", cmd.OrderID)

	cmd, err = ParseCommand("delay:ord-7")
	require.NoError(t, err)
	assert.Equal(t, CmdDelay, cmd.Kind)

	cmd, err = ParseCommand("complete:ord-7")
	require.NoError(t, err)
	assert.Equal(t, CmdComplete, cmd.Kind)

	_, err = ParseCommand("accept:")
	assert.Error(t, err, "missing order id")
}

func TestParseCommand_Unknown(t *testing.T) {
	_, err := ParseCommand("launch-missiles")
	assert.Error(t, err)

	_, err = ParseCommand("")
	assert.Error(t, err)
}
