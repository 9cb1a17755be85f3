package builder

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/Omni-crm/talpan-bot-sub000/internal/chat"
	"github.com/Omni-crm/talpan-bot-sub000/models"
)

// promptText flattens a prompt into a stable textual form for golden
// comparison: the message text, a separator, then one keyboard row per line.
func promptText(p chat.Prompt) []byte {
	var b strings.Builder
	b.WriteString(p.Text)
	b.WriteString("\n--\n")
	for _, row := range p.Keyboard {
		for i, btn := range row {
			if i > 0 {
				b.WriteString(" | ")
			}
			fmt.Fprintf(&b, "[%s](%s)", btn.Label, btn.Payload)
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func goldenDraft() *models.DraftOrder {
	return &models.DraftOrder{
		Customer: models.Customer{
			Name:    "Dana",
			Handle:  "@dana",
			Phone:   "+7 900 123-45-67",
			Address: "12 Main St",
		},
		Lines: []models.CartLine{
			{ProductID: "p-bread", Name: "Bread", Quantity: 2, UnitPrice: 8.5, LineTotal: 17.0, StockSnapshot: 50},
			{ProductID: "p-milk", Name: "Milk", Quantity: 3, UnitPrice: 6.0, LineTotal: 18.0, StockSnapshot: 30},
		},
	}
}

func TestRender_Golden(t *testing.T) {
	catalog := []*models.Product{
		{ID: "p-bread", Name: "Bread", Stock: 50, UnitPrice: 8.5},
		{ID: "p-milk", Name: "Milk", Stock: 30, UnitPrice: 6.0},
	}

	tests := []struct {
		name    string
		state   models.BuilderState
		draft   *models.DraftOrder
		catalog []*models.Product
	}{
		{
			name:  "customer_name",
			state: models.StateCustomerName,
			draft: &models.DraftOrder{Cursor: models.StateCustomerName},
		},
		{
			name:    "select_product",
			state:   models.StateSelectProduct,
			draft:   goldenDraft(),
			catalog: catalog,
		},
		{
			name:  "cart_menu",
			state: models.StateCartMenu,
			draft: goldenDraft(),
		},
		{
			name:  "confirming",
			state: models.StateConfirming,
			draft: goldenDraft(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt := Render(tt.state, tt.draft, tt.catalog)

			g := goldie.New(t,
				goldie.WithFixtureDir("testdata/golden"),
				goldie.WithNameSuffix(".golden"),
			)
			g.Assert(t, tt.name, promptText(prompt))
		})
	}
}

func TestRender_EditField(t *testing.T) {
	draft := goldenDraft()
	draft.Edit = &models.EditSession{
		LineIndex: 0,
		Original:  draft.Lines[0],
		Working:   draft.Lines[0],
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "edit_field", promptText(Render(models.StateEditField, draft, nil)))
}

func TestRender_ReplayIsDeterministic(t *testing.T) {
	draft := goldenDraft()

	first := Render(models.StateConfirming, draft, nil)
	second := Render(models.StateConfirming, draft, nil)
	if string(promptText(first)) != string(promptText(second)) {
		t.Fatal("rendering the same state twice must produce identical prompts")
	}
}
