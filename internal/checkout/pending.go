package checkout

import (
	"github.com/nikolayk812/licensing-storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type Origin string

const (
	OriginDirect     Origin = "direct"
	OriginGuestCart  Origin = "guest_cart"
	OriginServerCart Origin = "server_cart"
)

type Line struct {
	PlanID      int64
	ProductName string
	PlanName    string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// PendingOrder is the one shape checkout works on, whatever the shopper picked.
type PendingOrder struct {
	Origin Origin
	Lines  []Line
}

// FromDirect is "Buy Now": one unit of plan at its list price.
func FromDirect(product domain.Product, plan domain.Plan) PendingOrder {
	return PendingOrder{
		Origin: OriginDirect,
		Lines: []Line{{
			PlanID:      plan.ID,
			ProductName: product.Name,
			PlanName:    plan.PlanName,
			Quantity:    1,
			UnitPrice:   plan.Price,
			Subtotal:    plan.Price,
		}},
	}
}

func FromGuestCart(items []domain.CartItem) PendingOrder {
	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.LineFromCartItem(item))
	}
	return fromLines(OriginGuestCart, lines)
}

func FromServerCart(items []domain.RemoteCartItem) PendingOrder {
	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.LineFromRemoteCartItem(item))
	}
	return fromLines(OriginServerCart, lines)
}

// FromCartLines adapts the selected lines of a cart store.
func FromCartLines(origin domain.CartOrigin, lines []domain.CartLine) PendingOrder {
	if origin == domain.OriginServer {
		return fromLines(OriginServerCart, lines)
	}
	return fromLines(OriginGuestCart, lines)
}

func fromLines(origin Origin, lines []domain.CartLine) PendingOrder {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, Line{
			PlanID:      l.PlanID,
			ProductName: l.ProductName,
			PlanName:    l.PlanName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal,
		})
	}
	return PendingOrder{Origin: origin, Lines: out}
}

func (p PendingOrder) Empty() bool {
	return len(p.Lines) == 0
}

// Total is for display only; the backend prices the order itself.
func (p PendingOrder) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range p.Lines {
		sum = sum.Add(l.Subtotal)
	}
	return sum
}

func (p PendingOrder) Items() []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(p.Lines))
	for _, l := range p.Lines {
		items = append(items, domain.OrderItem{
			SoftwarePlanID: l.PlanID,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
		})
	}
	return items
}
