package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Omni-crm/talpan-bot-sub000/internal/builder"
	"github.com/Omni-crm/talpan-bot-sub000/internal/chat"
	"github.com/Omni-crm/talpan-bot-sub000/internal/saga"
	"github.com/Omni-crm/talpan-bot-sub000/internal/service"
	"github.com/Omni-crm/talpan-bot-sub000/internal/session"
	"github.com/Omni-crm/talpan-bot-sub000/models"
	"github.com/Omni-crm/talpan-bot-sub000/pkg/logger"
)

const startCommand = "/neworder"

// Dispatcher routes inbound chat events: builder sessions for staff placing
// orders, courier commands for accept/delay/complete. Each event is one
// short-lived unit of work; a given (chat, user) session's events arrive
// serially, so only the session store itself needs locking.
type Dispatcher struct {
	sessions    *session.Store
	machine     *builder.Machine
	orders      service.OrderServiceInterface
	couriers    service.CourierServiceInterface
	messenger   chat.Messenger
	callTimeout time.Duration
	logger      *logger.Logger
}

func NewDispatcher(
	sessions *session.Store,
	machine *builder.Machine,
	orders service.OrderServiceInterface,
	couriers service.CourierServiceInterface,
	messenger chat.Messenger,
	callTimeout time.Duration,
	log *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		sessions:    sessions,
		machine:     machine,
		orders:      orders,
		couriers:    couriers,
		messenger:   messenger,
		callTimeout: callTimeout,
		logger:      log.WithComponent("dispatcher"),
	}
}

// HandleEvent processes one messaging-surface event to completion. Builder
// errors never propagate past the current session; the dispatcher itself
// never returns an error to the gateway beyond logging.
func (d *Dispatcher) HandleEvent(ctx context.Context, event chat.Event) {
	log := d.logger.WithSession(event.ChatID, event.UserID)

	if event.IsButton() {
		if cmd, err := chat.ParseCommand(event.Payload); err == nil {
			switch cmd.Kind {
			case chat.CmdAccept, chat.CmdDelay, chat.CmdComplete:
				d.handleCourier(ctx, event, cmd)
				return
			case chat.CmdNewOrder:
				d.startSession(ctx, event)
				return
			}
		}
	}

	if !event.IsButton() && strings.TrimSpace(event.Text) == startCommand {
		d.startSession(ctx, event)
		return
	}

	key := session.Key{ChatID: event.ChatID, UserID: event.UserID}
	sess, expired := d.sessions.Get(key)
	if expired {
		// The draft is gone either way; delete the stale prompt now rather
		// than leaving it for a sweeper that no longer sees the session.
		d.teardown(ctx, sess)
		sess = nil
	}
	if sess == nil {
		d.send(ctx, event.ChatID, chat.Prompt{
			Text:     "No order in progress. Start one?",
			Keyboard: chat.Keyboard{{{Label: "New order", Payload: "new-order"}}},
		})
		return
	}

	sess.Touch()

	outcome, err := d.machine.Handle(ctx, sess, event)
	if err != nil {
		// State-integrity failure: the session is unrecoverable. Abandon the
		// draft and return to the top-level menu; never crash the dispatcher.
		log.Error("Builder state integrity failure, abandoning session", "error", err)
		d.teardown(ctx, sess)
		d.send(ctx, event.ChatID, chat.Prompt{
			Text:     "Something went wrong with this order, it was discarded. Start again?",
			Keyboard: chat.Keyboard{{{Label: "New order", Payload: "new-order"}}},
		})
		return
	}

	switch {
	case outcome.Cancelled:
		d.teardown(ctx, sess)
		d.send(ctx, event.ChatID, chat.Prompt{Text: "Order cancelled."})

	case outcome.Done:
		d.placeOrder(ctx, sess)

	default:
		d.showPrompt(ctx, sess, outcome)
	}
}

// startSession begins a fresh builder flow, replacing any existing session
// (and its prompt) for the same (chat, user) pair.
func (d *Dispatcher) startSession(ctx context.Context, event chat.Event) {
	key := session.Key{ChatID: event.ChatID, UserID: event.UserID}

	if old, _ := d.sessions.Get(key); old != nil {
		d.teardown(ctx, old)
	}

	sess := d.sessions.Create(key, event.UserName)
	outcome, err := d.machine.Start(ctx, sess)
	if err != nil {
		d.logger.Error("Failed to start builder session", "error", err)
		d.sessions.Delete(key)
		return
	}

	d.showPrompt(ctx, sess, outcome)
}

// placeOrder persists the confirmed draft and ends the session. On a failed
// insert the draft returns to the confirmation step so the user can retry.
func (d *Dispatcher) placeOrder(ctx context.Context, sess *session.Session) {
	log := d.logger.WithSession(sess.Key.ChatID, sess.Key.UserID)

	order, err := d.orders.PlaceOrder(ctx, &sess.Draft)
	if err != nil {
		log.Error("Failed to place order", "error", err)
		sess.Draft.Cursor = models.StateConfirming
		d.showPrompt(ctx, sess, builder.Outcome{
			Prompt: builder.Render(models.StateConfirming, &sess.Draft, nil),
			Notice: "Could not save the order, please try again.",
		})
		return
	}

	receipt := chat.Prompt{
		Text: fmt.Sprintf("Order placed.\nOrder %s for %s, total %.2f.",
			order.ID, order.CustomerName, order.TotalAmount),
	}
	d.updatePrompt(ctx, sess, receipt)
	d.sessions.Delete(sess.Key)

	log.Info("Builder session finished", "order_id", order.ID)
}

// handleCourier runs an accept/delay/complete command against a persisted
// order, independent of any live session.
func (d *Dispatcher) handleCourier(ctx context.Context, event chat.Event, cmd chat.Command) {
	log := d.logger.WithSession(event.ChatID, event.UserID).WithContext("order_id", cmd.OrderID)
	courierID := fmt.Sprintf("%d", event.UserID)

	var (
		order *models.Order
		err   error
	)
	switch cmd.Kind {
	case chat.CmdAccept:
		order, err = d.couriers.Accept(ctx, cmd.OrderID, courierID, event.UserName)
	case chat.CmdDelay:
		order, err = d.couriers.Delay(ctx, cmd.OrderID, courierID, event.UserName)
	case chat.CmdComplete:
		order, err = d.couriers.Complete(ctx, cmd.OrderID, courierID, event.UserName)
	}

	if err != nil {
		log.Warn("Courier command failed", "kind", cmd.Kind, "error", err)
		d.send(ctx, event.ChatID, chat.Prompt{Text: courierFailureText(cmd.OrderID, err)})
		return
	}

	log.Info("Courier command applied", "kind", cmd.Kind, "status", order.Status)
	d.send(ctx, event.ChatID, chat.Prompt{Text: courierSuccessText(order)})
}

// courierFailureText maps saga and transition errors to the specific
// user-facing reason each deserves; anything unexpected stays generic.
func courierFailureText(orderID string, err error) string {
	var rollbackErr *saga.RollbackError

	switch {
	case errors.Is(err, service.ErrAlreadyCompleted):
		return fmt.Sprintf("Order %s is already completed.", orderID)
	case errors.Is(err, service.ErrInsufficientStock):
		return fmt.Sprintf("Order %s cannot be completed: %v", orderID, err)
	case errors.Is(err, service.ErrConcurrentModification):
		return fmt.Sprintf("Order %s was not completed: stock changed mid-flight, nothing was applied.", orderID)
	case errors.Is(err, service.ErrInvalidTransition):
		return fmt.Sprintf("Order %s cannot change status right now.", orderID)
	case errors.As(err, &rollbackErr):
		return fmt.Sprintf("Order %s failed to complete and needs attention from an administrator.", orderID)
	default:
		return fmt.Sprintf("Order %s could not be updated, please try again.", orderID)
	}
}

func courierSuccessText(order *models.Order) string {
	switch order.Status {
	case models.StatusCompleted:
		return fmt.Sprintf("Order %s completed. Stock updated.", order.ID)
	case models.StatusDelay:
		return fmt.Sprintf("Order %s marked delayed.", order.ID)
	default:
		return fmt.Sprintf("Order %s accepted.", order.ID)
	}
}

// showPrompt renders the outcome into the session's prompt message, editing
// the previous prompt in place when there is one.
func (d *Dispatcher) showPrompt(ctx context.Context, sess *session.Session, outcome builder.Outcome) {
	prompt := outcome.Prompt
	if outcome.Notice != "" {
		prompt.Text = outcome.Notice + "\n\n" + prompt.Text
	}
	d.updatePrompt(ctx, sess, prompt)
}

func (d *Dispatcher) updatePrompt(ctx context.Context, sess *session.Session, prompt chat.Prompt) {
	cctx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	if sess.PromptID != 0 {
		if err := d.messenger.Edit(cctx, sess.Key.ChatID, sess.PromptID, prompt); err == nil {
			return
		}
		// Editing can fail when the surface dropped the message; fall through
		// to sending a fresh one.
	}

	id, err := d.messenger.Send(cctx, sess.Key.ChatID, prompt)
	if err != nil {
		d.logger.Error("Failed to send prompt", "chat_id", sess.Key.ChatID, "error", err)
		return
	}
	sess.PromptID = id
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, prompt chat.Prompt) {
	cctx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	if _, err := d.messenger.Send(cctx, chatID, prompt); err != nil {
		d.logger.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

// teardown destroys a session and deletes its stray prompt.
func (d *Dispatcher) teardown(ctx context.Context, sess *session.Session) {
	if sess.PromptID != 0 {
		cctx, cancel := context.WithTimeout(ctx, d.callTimeout)
		if err := d.messenger.Delete(cctx, sess.Key.ChatID, sess.PromptID); err != nil {
			d.logger.Warn("Failed to delete prompt", "chat_id", sess.Key.ChatID, "error", err)
		}
		cancel()
	}
	d.sessions.Delete(sess.Key)
}

// RunSweeper tears down idle sessions until ctx is cancelled, discarding
// drafts and cleaning up stray prompts.
func (d *Dispatcher) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sess := range d.sessions.CollectExpired() {
				d.logger.Info("Tearing down idle session",
					"chat_id", sess.Key.ChatID, "user_id", sess.Key.UserID)
				if sess.PromptID != 0 {
					cctx, cancel := context.WithTimeout(ctx, d.callTimeout)
					if err := d.messenger.Delete(cctx, sess.Key.ChatID, sess.PromptID); err != nil {
						d.logger.Warn("Failed to delete stray prompt", "chat_id", sess.Key.ChatID, "error", err)
					}
					cancel()
				}
			}
		}
	}
}
