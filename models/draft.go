package models

// BuilderState is the cursor of an in-progress order draft. The builder's
// transition table is keyed on it; the renderer is a pure function of
// (state, draft).
type BuilderState string

const (
	StateCustomerName    BuilderState = "customer_name"
	StateCustomerHandle  BuilderState = "customer_handle"
	StateCustomerPhone   BuilderState = "customer_phone"
	StateCustomerAddress BuilderState = "customer_address"
	StateSelectProduct   BuilderState = "select_product"
	StateEnterQuantity   BuilderState = "enter_quantity"
	StateEnterPrice      BuilderState = "enter_price"
	StateCartMenu        BuilderState = "cart_menu"
	StateEditField       BuilderState = "edit_field"
	StateEditQuantity    BuilderState = "edit_quantity"
	StateEditPrice       BuilderState = "edit_price"
	StateConfirming      BuilderState = "confirming"
	StateDone            BuilderState = "done"
)

type Customer struct {
	Name    string `json:"name"`
	Handle  string `json:"contact_handle"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// CartLine is one line of the draft cart. LineTotal is always the product of
// Quantity and UnitPrice at the time of the last edit, never set independently.
// StockSnapshot is the product's stock captured at selection time; quantity
// entry is bounded by it. Staleness is resolved later by the fulfillment saga.
type CartLine struct {
	ProductID     string  `json:"product_id"`
	Name          string  `json:"name"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	LineTotal     float64 `json:"line_total"`
	StockSnapshot int     `json:"stock_snapshot"`
}

// SetQuantity updates the quantity and recomputes the line total.
func (l *CartLine) SetQuantity(q int) {
	l.Quantity = q
	l.LineTotal = float64(l.Quantity) * l.UnitPrice
}

// SetUnitPrice updates the unit price and recomputes the line total.
func (l *CartLine) SetUnitPrice(p float64) {
	l.UnitPrice = p
	l.LineTotal = float64(l.Quantity) * l.UnitPrice
}

// WireItem converts the cart line to the persisted line-item encoding.
func (l CartLine) WireItem() LineItem {
	return LineItem{
		Name:       l.Name,
		Quantity:   l.Quantity,
		UnitPrice:  l.UnitPrice,
		TotalPrice: l.LineTotal,
	}
}

// EditSession scopes an in-place edit of one cart line. Only Working mutates;
// the committed line is replaced by a single assignment on apply, or left as
// Original on discard, so the cart is never visible half-edited.
type EditSession struct {
	LineIndex int      `json:"line_index"`
	Original  CartLine `json:"original"`
	Working   CartLine `json:"working"`
}

// DraftOrder is the ephemeral, session-scoped order being assembled. It is
// owned exclusively by one (chat, user) session and destroyed on cancel,
// timeout, or successful commit.
type DraftOrder struct {
	Customer Customer     `json:"customer"`
	Lines    []CartLine   `json:"lines"`
	Cursor   BuilderState `json:"cursor"`

	// Pending is the cart line being assembled between product selection and
	// price entry; it joins Lines only once quantity and price are both set.
	Pending *CartLine `json:"pending,omitempty"`

	// Edit is non-nil only while a specific line is being edited.
	Edit *EditSession `json:"edit,omitempty"`
}

// Clone deep-copies the draft so navigation frames can snapshot it; "back"
// restores the snapshot wholesale, which is what makes back an exact undo of
// the corresponding forward transition.
func (d *DraftOrder) Clone() DraftOrder {
	out := *d
	out.Lines = make([]CartLine, len(d.Lines))
	copy(out.Lines, d.Lines)
	if d.Pending != nil {
		pending := *d.Pending
		out.Pending = &pending
	}
	if d.Edit != nil {
		edit := *d.Edit
		out.Edit = &edit
	}
	return out
}

// Total sums the line totals of the committed cart.
func (d *DraftOrder) Total() float64 {
	var total float64
	for _, line := range d.Lines {
		total += line.LineTotal
	}
	return total
}

// WireItems converts the committed cart to the persisted line-item encoding.
func (d *DraftOrder) WireItems() []LineItem {
	items := make([]LineItem, len(d.Lines))
	for i, line := range d.Lines {
		items[i] = line.WireItem()
	}
	return items
}
