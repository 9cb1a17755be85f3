package builder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Omni-crm/talpan-bot-sub000/internal/chat"
	"github.com/Omni-crm/talpan-bot-sub000/models"
)

// Render produces the prompt and keyboard for a builder state. It is a pure
// function of state, draft and (for the selection state) the product catalog,
// so "back" can replay it and recreate exactly what forward entry would have
// shown.
func Render(state models.BuilderState, draft *models.DraftOrder, catalog []*models.Product) chat.Prompt {
	switch state {
	case models.StateCustomerName:
		return chat.Prompt{
			Text:     "New order. Send the customer's name.",
			Keyboard: chat.Keyboard{navRow(false)},
		}

	case models.StateCustomerHandle:
		return chat.Prompt{
			Text:     fmt.Sprintf("Customer: %s\nSend the customer's contact handle.", draft.Customer.Name),
			Keyboard: chat.Keyboard{navRow(true)},
		}

	case models.StateCustomerPhone:
		return chat.Prompt{
			Text:     "Send the customer's phone number.",
			Keyboard: chat.Keyboard{navRow(true)},
		}

	case models.StateCustomerAddress:
		return chat.Prompt{
			Text:     "Send the delivery address.",
			Keyboard: chat.Keyboard{navRow(true)},
		}

	case models.StateSelectProduct:
		keyboard := make(chat.Keyboard, 0, len(catalog)+1)
		for _, product := range catalog {
			label := fmt.Sprintf("%s — %s (%d in stock)", product.Name, money(product.UnitPrice), product.Stock)
			keyboard = append(keyboard, []chat.Button{{Label: label, Payload: "product:" + product.ID}})
		}
		keyboard = append(keyboard, navRow(true))
		return chat.Prompt{
			Text:     "Choose a product:",
			Keyboard: keyboard,
		}

	case models.StateEnterQuantity:
		line := draft.Pending
		return chat.Prompt{
			Text:     fmt.Sprintf("Product: %s\nSend the quantity (1-%d).", line.Name, line.StockSnapshot),
			Keyboard: chat.Keyboard{navRow(true)},
		}

	case models.StateEnterPrice:
		line := draft.Pending
		return chat.Prompt{
			Text: fmt.Sprintf("Quantity: %d\nSend the unit price (default %s).",
				line.Quantity, money(line.UnitPrice)),
			Keyboard: chat.Keyboard{navRow(true)},
		}

	case models.StateCartMenu:
		var b strings.Builder
		b.WriteString("Cart:\n")
		b.WriteString(cartListing(draft))
		b.WriteString(fmt.Sprintf("Total: %s", money(draft.Total())))

		keyboard := chat.Keyboard{
			{{Label: "Add another product", Payload: "add-another"}},
		}
		for i := range draft.Lines {
			keyboard = append(keyboard, []chat.Button{
				{Label: fmt.Sprintf("Edit %d", i+1), Payload: fmt.Sprintf("edit:%d", i)},
				{Label: fmt.Sprintf("Remove %d", i+1), Payload: fmt.Sprintf("delete:%d", i)},
			})
		}
		keyboard = append(keyboard,
			[]chat.Button{{Label: "To confirmation", Payload: "confirm"}},
			navRow(true),
		)
		return chat.Prompt{Text: b.String(), Keyboard: keyboard}

	case models.StateEditField:
		line := draft.Edit.Working
		return chat.Prompt{
			Text: fmt.Sprintf("Editing line %d: %s ×%d at %s — %s\nWhat do you want to change?",
				draft.Edit.LineIndex+1, line.Name, line.Quantity, money(line.UnitPrice), money(line.LineTotal)),
			Keyboard: chat.Keyboard{
				{
					{Label: "Quantity", Payload: "edit-quantity"},
					{Label: "Price", Payload: "edit-price"},
				},
				{
					{Label: "Apply", Payload: "apply-edit"},
					{Label: "Discard", Payload: "discard-edit"},
				},
				navRow(true),
			},
		}

	case models.StateEditQuantity:
		return chat.Prompt{
			Text:     fmt.Sprintf("Send the new quantity (1-%d).", draft.Edit.Working.StockSnapshot),
			Keyboard: chat.Keyboard{navRow(true)},
		}

	case models.StateEditPrice:
		return chat.Prompt{
			Text:     "Send the new unit price.",
			Keyboard: chat.Keyboard{navRow(true)},
		}

	case models.StateConfirming:
		var b strings.Builder
		b.WriteString("Order summary\n")
		b.WriteString(fmt.Sprintf("Customer: %s (%s)\n", draft.Customer.Name, draft.Customer.Handle))
		b.WriteString(fmt.Sprintf("Phone: %s\n", draft.Customer.Phone))
		b.WriteString(fmt.Sprintf("Address: %s\n", draft.Customer.Address))
		b.WriteString(cartListing(draft))
		b.WriteString(fmt.Sprintf("Total: %s\n", money(draft.Total())))
		b.WriteString("Confirm this order?")
		return chat.Prompt{
			Text: b.String(),
			Keyboard: chat.Keyboard{
				{{Label: "Confirm", Payload: "confirm"}},
				navRow(true),
			},
		}

	case models.StateDone:
		return chat.Prompt{Text: "Order placed."}
	}

	return chat.Prompt{Text: "Something went wrong. Send /neworder to start again."}
}

func cartListing(draft *models.DraftOrder) string {
	var b strings.Builder
	for i, line := range draft.Lines {
		b.WriteString(fmt.Sprintf("%d. %s ×%d at %s — %s\n",
			i+1, line.Name, line.Quantity, money(line.UnitPrice), money(line.LineTotal)))
	}
	return b.String()
}

func navRow(withBack bool) []chat.Button {
	if withBack {
		return []chat.Button{
			{Label: "Back", Payload: "back"},
			{Label: "Cancel", Payload: "cancel"},
		}
	}
	return []chat.Button{{Label: "Cancel", Payload: "cancel"}}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
