package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/Omni-crm/talpan-bot-sub000/internal/chat"
	"github.com/Omni-crm/talpan-bot-sub000/internal/repositories"
	"github.com/Omni-crm/talpan-bot-sub000/internal/session"
	"github.com/Omni-crm/talpan-bot-sub000/models"
	"github.com/Omni-crm/talpan-bot-sub000/pkg/logger"
)

// Outcome is what one builder step asks the dispatcher to do. A validation
// failure re-renders the current state with Notice set and no state change.
type Outcome struct {
	Prompt    chat.Prompt
	Notice    string
	Done      bool
	Cancelled bool
}

// Machine drives the customer-info and cart-editing steps of the order
// builder. It consumes one messaging-surface event at a time, mutates the
// session's draft, and delegates back/forward to the navigation stack.
type Machine struct {
	products repositories.ProductRepositoryInterface
	logger   *logger.Logger
}

func NewMachine(products repositories.ProductRepositoryInterface, log *logger.Logger) *Machine {
	return &Machine{
		products: products,
		logger:   log.WithComponent("order_builder"),
	}
}

// Start renders the entry prompt for a fresh session.
func (m *Machine) Start(ctx context.Context, sess *session.Session) (Outcome, error) {
	prompt, err := m.prompt(ctx, &sess.Draft)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Prompt: prompt}, nil
}

// Handle maps one user input event to exactly one transition. On success the
// draft mutates and a navigation frame is pushed; on validation failure the
// same state re-renders with a notice and no frame is pushed.
func (m *Machine) Handle(ctx context.Context, sess *session.Session, event chat.Event) (Outcome, error) {
	draft := &sess.Draft

	var notice string
	if event.IsButton() {
		cmd, err := chat.ParseCommand(event.Payload)
		if err != nil {
			m.logger.Warn("Unparseable payload", "chat_id", sess.Key.ChatID, "payload", event.Payload)
			notice = "That button is no longer valid."
		} else {
			switch cmd.Kind {
			case chat.CmdCancel:
				// Explicit cancel discards the entire draft and exits,
				// regardless of nesting depth.
				m.logger.Info("Builder cancelled", "chat_id", sess.Key.ChatID, "user_id", sess.Key.UserID)
				return Outcome{Cancelled: true}, nil
			case chat.CmdBack:
				return m.goBack(ctx, sess)
			case chat.CmdProduct:
				notice = m.selectProduct(ctx, sess, cmd.ProductID)
			default:
				notice, err = m.applyButton(sess, cmd)
				if err != nil {
					return Outcome{}, err
				}
			}
		}
	} else {
		var err error
		notice, err = m.applyText(sess, event.Text)
		if err != nil {
			return Outcome{}, err
		}
	}

	prompt, err := m.prompt(ctx, draft)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Prompt: prompt,
		Notice: notice,
		Done:   draft.Cursor == models.StateDone,
	}, nil
}

// goBack pops the most recent navigation frame and restores its draft
// snapshot, replaying the renderer for the state it names. Past the bounded
// horizon the flow exits entirely, never errors.
func (m *Machine) goBack(ctx context.Context, sess *session.Session) (Outcome, error) {
	frame, ok := sess.Nav.Pop()
	if !ok {
		m.logger.Info("Back past navigation horizon, exiting flow",
			"chat_id", sess.Key.ChatID, "user_id", sess.Key.UserID)
		return Outcome{Cancelled: true}, nil
	}

	sess.Draft = frame.Snapshot

	prompt, err := m.prompt(ctx, &sess.Draft)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Prompt: prompt}, nil
}

// applyText handles free-text input for the states that expect it.
func (m *Machine) applyText(sess *session.Session, input string) (string, error) {
	draft := &sess.Draft

	switch draft.Cursor {
	case models.StateCustomerName:
		value, ok := parseText(input)
		if !ok {
			return "Please send a non-empty name.", nil
		}
		pushFrame(sess)
		draft.Customer.Name = value
		draft.Cursor = models.StateCustomerHandle

	case models.StateCustomerHandle:
		value, ok := parseText(input)
		if !ok {
			return "Please send a non-empty contact handle.", nil
		}
		pushFrame(sess)
		draft.Customer.Handle = value
		draft.Cursor = models.StateCustomerPhone

	case models.StateCustomerPhone:
		value, ok := parsePhone(input)
		if !ok {
			return "That doesn't look like a phone number. Digits, spaces, dashes, parentheses and a leading + are allowed.", nil
		}
		pushFrame(sess)
		draft.Customer.Phone = value
		draft.Cursor = models.StateCustomerAddress

	case models.StateCustomerAddress:
		value, ok := parseText(input)
		if !ok {
			return "Please send a non-empty address.", nil
		}
		pushFrame(sess)
		draft.Customer.Address = value
		draft.Cursor = models.StateSelectProduct

	case models.StateEnterQuantity:
		if draft.Pending == nil {
			return "", fmt.Errorf("quantity entry with no pending line: %w", ErrStateIntegrity)
		}
		quantity, ok := parseQuantity(input)
		if !ok {
			return "Please send a whole number greater than zero.", nil
		}
		// Bounded by the stock snapshot captured at selection time; staleness
		// is resolved later by the fulfillment saga.
		if quantity > draft.Pending.StockSnapshot {
			return fmt.Sprintf("Only %d in stock, please send a smaller quantity.", draft.Pending.StockSnapshot), nil
		}
		pushFrame(sess)
		draft.Pending.SetQuantity(quantity)
		draft.Cursor = models.StateEnterPrice

	case models.StateEnterPrice:
		if draft.Pending == nil {
			return "", fmt.Errorf("price entry with no pending line: %w", ErrStateIntegrity)
		}
		price, ok := parsePrice(input)
		if !ok {
			return "Please send a non-negative price.", nil
		}
		pushFrame(sess)
		draft.Pending.SetUnitPrice(price)
		draft.Lines = append(draft.Lines, *draft.Pending)
		draft.Pending = nil
		draft.Cursor = models.StateCartMenu

	case models.StateEditQuantity:
		if draft.Edit == nil {
			return "", fmt.Errorf("quantity edit with no open edit session: %w", ErrStateIntegrity)
		}
		quantity, ok := parseQuantity(input)
		if !ok {
			return "Please send a whole number greater than zero.", nil
		}
		if quantity > draft.Edit.Working.StockSnapshot {
			return fmt.Sprintf("Only %d in stock, please send a smaller quantity.", draft.Edit.Working.StockSnapshot), nil
		}
		pushFrame(sess)
		draft.Edit.Working.SetQuantity(quantity)
		draft.Cursor = models.StateEditField

	case models.StateEditPrice:
		if draft.Edit == nil {
			return "", fmt.Errorf("price edit with no open edit session: %w", ErrStateIntegrity)
		}
		price, ok := parsePrice(input)
		if !ok {
			return "Please send a non-negative price.", nil
		}
		pushFrame(sess)
		draft.Edit.Working.SetUnitPrice(price)
		draft.Cursor = models.StateEditField

	default:
		return "Please use the buttons.", nil
	}

	return "", nil
}

// applyButton handles state-specific button commands. Product selection is
// done separately because it needs a catalog read.
func (m *Machine) applyButton(sess *session.Session, cmd chat.Command) (string, error) {
	draft := &sess.Draft

	switch draft.Cursor {
	case models.StateCartMenu:
		switch cmd.Kind {
		case chat.CmdAddAnother:
			pushFrame(sess)
			draft.Cursor = models.StateSelectProduct
			return "", nil
		case chat.CmdConfirm:
			if len(draft.Lines) == 0 {
				return "The cart is empty, add a product first.", nil
			}
			pushFrame(sess)
			draft.Cursor = models.StateConfirming
			return "", nil
		case chat.CmdEditLine:
			if cmd.LineIndex >= len(draft.Lines) {
				return "That line no longer exists.", nil
			}
			pushFrame(sess)
			if err := OpenEdit(draft, cmd.LineIndex); err != nil {
				return "", err
			}
			draft.Cursor = models.StateEditField
			return "", nil
		case chat.CmdDeleteLine:
			if cmd.LineIndex >= len(draft.Lines) {
				return "That line no longer exists.", nil
			}
			pushFrame(sess)
			if err := DeleteLine(draft, cmd.LineIndex); err != nil {
				return "", err
			}
			return "", nil
		}

	case models.StateEditField:
		switch cmd.Kind {
		case chat.CmdEditQty:
			pushFrame(sess)
			draft.Cursor = models.StateEditQuantity
			return "", nil
		case chat.CmdEditPrice:
			pushFrame(sess)
			draft.Cursor = models.StateEditPrice
			return "", nil
		case chat.CmdApplyEdit:
			pushFrame(sess)
			if err := ApplyEdit(draft); err != nil {
				return "", err
			}
			draft.Cursor = models.StateCartMenu
			return "", nil
		case chat.CmdDiscardEdit:
			pushFrame(sess)
			DiscardEdit(draft)
			draft.Cursor = models.StateCartMenu
			return "", nil
		}

	case models.StateConfirming:
		if cmd.Kind == chat.CmdConfirm {
			if len(draft.Lines) == 0 {
				return "The cart is empty, add a product first.", nil
			}
			draft.Cursor = models.StateDone
			return "", nil
		}
	}

	return "Please use the buttons.", nil
}

// selectProduct resolves the chosen product, captures its stock snapshot and
// opens the quantity step. A missing product or a backend hiccup both render
// as "unavailable" to the user.
func (m *Machine) selectProduct(ctx context.Context, sess *session.Session, productID string) string {
	draft := &sess.Draft
	if draft.Cursor != models.StateSelectProduct {
		return "Please use the buttons."
	}

	product, err := m.products.GetByID(ctx, productID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			m.logger.Error("Failed to fetch product for selection", "product_id", productID, "error", err)
		}
		return "That product is unavailable."
	}
	if product.Stock <= 0 {
		return fmt.Sprintf("%s is out of stock.", product.Name)
	}

	pushFrame(sess)
	draft.Pending = &models.CartLine{
		ProductID:     product.ID,
		Name:          product.Name,
		UnitPrice:     product.UnitPrice,
		StockSnapshot: product.Stock,
	}
	draft.Cursor = models.StateEnterQuantity
	return ""
}

// prompt renders the current state, fetching the product catalog when the
// selection keyboard needs it. A catalog read failure renders an empty list;
// read paths do not distinguish "no rows" from a backend hiccup.
func (m *Machine) prompt(ctx context.Context, draft *models.DraftOrder) (chat.Prompt, error) {
	var catalog []*models.Product
	if draft.Cursor == models.StateSelectProduct {
		var err error
		catalog, err = m.products.GetAll(ctx)
		if err != nil {
			m.logger.Warn("Failed to fetch product catalog", "error", err)
			catalog = nil
		}
	}
	return Render(draft.Cursor, draft, catalog), nil
}

// pushFrame snapshots the draft before a forward transition.
func pushFrame(sess *session.Session) {
	draft := &sess.Draft
	index := -1
	if draft.Edit != nil {
		index = draft.Edit.LineIndex
	}
	sess.Nav.Push(session.Frame{
		Kind:      frameKind(draft.Cursor),
		State:     draft.Cursor,
		LineIndex: index,
		Snapshot:  draft.Clone(),
	})
}

func frameKind(state models.BuilderState) session.FrameKind {
	switch state {
	case models.StateSelectProduct, models.StateEnterQuantity, models.StateEnterPrice, models.StateCartMenu:
		return session.FrameCartLine
	case models.StateEditField, models.StateEditQuantity, models.StateEditPrice:
		return session.FrameEdit
	}
	return session.FrameOrder
}
