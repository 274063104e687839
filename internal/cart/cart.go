// Package cart holds the shopping cart state for one browsing session.
//
// A Cart is plain in-memory state with no I/O. Callers that share a Cart
// between goroutines serialize access themselves; the service layer does this
// with a per-session lock.
package cart

import (
	"slices"

	"github.com/dukerupert/tramhuong/internal/domain"
)

// SessionID identifies the browsing session that owns a cart. It is always
// passed explicitly.
type SessionID string

// Key is the identity of a line: one line per product and size.
type Key struct {
	ProductID string
	Size      string
}

// Item is one cart line. LineTotal is kept equal to UnitPrice * Quantity by
// the Cart; Items handed out by the Cart are copies.
type Item struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	ProductImage  string `json:"product_image"`
	Size          string `json:"size"`
	UnitPrice     int64  `json:"size_price"`
	OriginalPrice *int64 `json:"original_price,omitempty"`
	Quantity      int    `json:"quantity"`
	LineTotal     int64  `json:"total_price"`
}

// Key returns the identity of the line.
func (i Item) Key() Key {
	return Key{ProductID: i.ProductID, Size: i.Size}
}

func (i Item) clone() Item {
	if i.OriginalPrice != nil {
		p := *i.OriginalPrice
		i.OriginalPrice = &p
	}
	return i
}

// ItemOption sets presentation details carried to the order.
type ItemOption func(*Item)

// WithProduct sets the product name and image shown in the cart and order.
func WithProduct(name, image string) ItemOption {
	return func(i *Item) {
		i.ProductName = name
		i.ProductImage = image
	}
}

// Cart is the ordered list of lines for a session.
type Cart struct {
	session SessionID
	items   []Item
}

// New returns an empty cart for session.
func New(session SessionID) *Cart {
	return &Cart{session: session}
}

// Restore rebuilds a cart from persisted lines. Lines sharing a key are
// merged; a line with a non-positive quantity is rejected.
func Restore(session SessionID, items []Item) (*Cart, error) {
	c := New(session)
	for _, it := range items {
		if err := c.Add(it.ProductID, it.Size, it.Quantity, it.UnitPrice, it.OriginalPrice, WithProduct(it.ProductName, it.ProductImage)); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Session returns the owning session.
func (c *Cart) Session() SessionID {
	return c.session
}

func (c *Cart) index(productID, size string) int {
	return slices.IndexFunc(c.items, func(it Item) bool {
		return it.ProductID == productID && it.Size == size
	})
}

// Add puts quantity units of (productID, size) in the cart. An existing line
// grows by quantity and keeps its position; otherwise a line is appended.
func (c *Cart) Add(productID, size string, quantity int, unitPrice int64, originalPrice *int64, opts ...ItemOption) error {
	if quantity <= 0 {
		return domain.NewValidationError("cart.add", "quantity", domain.ErrInvalidQuantity.Message)
	}

	if i := c.index(productID, size); i >= 0 {
		c.items[i].Quantity += quantity
		c.items[i].LineTotal = c.items[i].UnitPrice * int64(c.items[i].Quantity)
		return nil
	}

	it := Item{
		ProductID: productID,
		Size:      size,
		UnitPrice: unitPrice,
		Quantity:  quantity,
		LineTotal: unitPrice * int64(quantity),
	}
	if originalPrice != nil {
		p := *originalPrice
		it.OriginalPrice = &p
	}
	for _, opt := range opts {
		opt(&it)
	}
	c.items = append(c.items, it)
	return nil
}

// SetQuantity replaces the quantity of an existing line. A quantity of zero or
// less removes the line.
func (c *Cart) SetQuantity(productID, size string, quantity int) error {
	i := c.index(productID, size)
	if i < 0 {
		return &domain.Error{
			Code:    domain.ENOTFOUND,
			Op:      "cart.set_quantity",
			Message: domain.ErrCartItemNotFound.Message,
		}
	}
	if quantity <= 0 {
		c.items = slices.Delete(c.items, i, i+1)
		return nil
	}
	c.items[i].Quantity = quantity
	c.items[i].LineTotal = c.items[i].UnitPrice * int64(quantity)
	return nil
}

// Remove deletes the line for (productID, size). Removing a missing line is a
// no-op.
func (c *Cart) Remove(productID, size string) {
	if i := c.index(productID, size); i >= 0 {
		c.items = slices.Delete(c.items, i, i+1)
	}
}

// Contains reports whether the cart has a line for (productID, size).
func (c *Cart) Contains(productID, size string) bool {
	return c.index(productID, size) >= 0
}

// Quantity returns the quantity held for (productID, size), or 0.
func (c *Cart) Quantity(productID, size string) int {
	if i := c.index(productID, size); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}

// Items returns a copy of the lines in display order.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	for i, it := range c.items {
		out[i] = it.clone()
	}
	return out
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.items)
}

// TotalItems is the sum of line quantities.
func (c *Cart) TotalItems() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// TotalAmount is the sum of line totals in VND.
func (c *Cart) TotalAmount() int64 {
	var total int64
	for _, it := range c.items {
		total += it.LineTotal
	}
	return total
}

// Snapshot is a point-in-time copy of a cart. It shares no memory with the
// cart it was taken from.
type Snapshot struct {
	SessionID   SessionID `json:"session_id"`
	Items       []Item    `json:"items"`
	TotalItems  int       `json:"total_items"`
	TotalAmount int64     `json:"total_amount"`
}

// Snapshot copies the current state of the cart.
func (c *Cart) Snapshot() Snapshot {
	return Snapshot{
		SessionID:   c.session,
		Items:       c.Items(),
		TotalItems:  c.TotalItems(),
		TotalAmount: c.TotalAmount(),
	}
}

// Empty reports whether the snapshot has no lines.
func (s Snapshot) Empty() bool {
	return len(s.Items) == 0
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	items := make([]Item, len(s.Items))
	for i, it := range s.Items {
		items[i] = it.clone()
	}
	s.Items = items
	return s
}

// EmptySnapshot is the snapshot of a session with nothing in its cart.
func EmptySnapshot(session SessionID) Snapshot {
	return Snapshot{SessionID: session, Items: []Item{}}
}
