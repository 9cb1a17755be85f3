package chat

import (
	"fmt"
	"strconv"
	"strings"
)

// CommandKind discriminates parsed button payloads.
type CommandKind string

const (
	CmdNewOrder    CommandKind = "new-order"
	CmdBack        CommandKind = "back"
	CmdCancel      CommandKind = "cancel"
	CmdConfirm     CommandKind = "confirm"
	CmdAddAnother  CommandKind = "add-another"
	CmdProduct     CommandKind = "product"
	CmdEditLine    CommandKind = "edit"
	CmdDeleteLine  CommandKind = "delete"
	CmdEditQty     CommandKind = "edit-quantity"
	CmdEditPrice   CommandKind = "edit-price"
	CmdApplyEdit   CommandKind = "apply-edit"
	CmdDiscardEdit CommandKind = "discard-edit"

	// Courier payloads address a persisted order, not a live session.
	CmdAccept   CommandKind = "accept"
	CmdDelay    CommandKind = "delay"
	CmdComplete CommandKind = "complete"
)

// Command is a parsed button payload.
type Command struct {
	Kind      CommandKind
	ProductID string
	LineIndex int
	OrderID   string
}

// ParseCommand interprets an opaque button payload as a discriminated
// command. The payload grammar is: a bare verb (back, cancel, confirm,
// add-another, edit-quantity, edit-price, apply-edit, discard-edit,
// new-order), or verb:argument (product:<id>, edit:<index>, delete:<index>,
// accept:<order>, delay:<order>, complete:<order>).
func ParseCommand(payload string) (Command, error) {
	verb, arg, hasArg := strings.Cut(payload, ":")

	switch CommandKind(verb) {
	case CmdNewOrder, CmdBack, CmdCancel, CmdConfirm, CmdAddAnother,
		CmdEditQty, CmdEditPrice, CmdApplyEdit, CmdDiscardEdit:
		if hasArg {
			return Command{}, fmt.Errorf("payload %q: verb takes no argument", payload)
		}
		return Command{Kind: CommandKind(verb)}, nil

	case CmdProduct:
		if arg == "" {
			return Command{}, fmt.Errorf("payload %q: missing product id", payload)
		}
		return Command{Kind: CmdProduct, ProductID: arg}, nil

	case CmdEditLine, CmdDeleteLine:
		index, err := strconv.Atoi(arg)
		if err != nil || index < 0 {
			return Command{}, fmt.Errorf("payload %q: invalid line index", payload)
		}
		return Command{Kind: CommandKind(verb), LineIndex: index}, nil

	case CmdAccept, CmdDelay, CmdComplete:
		if arg == "" {
			return Command{}, fmt.Errorf("payload %q: missing order id", payload)
		}
		return Command{Kind: CommandKind(verb), OrderID: arg}, nil
	}

	return Command{}, fmt.Errorf("unknown payload %q", payload)
}
