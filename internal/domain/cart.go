package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one guest cart entry as persisted in local storage.
type CartItem struct {
	Product  Product   `json:"product"`
	Plan     Plan      `json:"plan"`
	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"addedAt"`
}

func (i CartItem) Matches(productID, planID int64) bool {
	return i.Product.ID == productID && i.Plan.ID == planID
}

// RemoteCartItem is a row of the server side cart.
type RemoteCartItem struct {
	ID             int64           `json:"id"`
	CartID         int64           `json:"cart_id"`
	SoftwarePlanID int64           `json:"software_plan_id"`
	PlanName       string          `json:"plan_name"`
	DurationType   DurationType    `json:"duration_type"`
	ProductName    string          `json:"product_name"`
	BrandName      string          `json:"brand_name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       int             `json:"quantity"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	PriceChanged   bool            `json:"price_changed"`
}

type CartOrigin string

const (
	OriginGuest  CartOrigin = "guest"
	OriginServer CartOrigin = "server"
)

// CartLine is the shape-independent view of a cart entry.
type CartLine struct {
	ItemID       int64 // server cart item id, zero for guest lines
	ProductID    int64
	PlanID       int64
	ProductName  string
	BrandName    string
	PlanName     string
	DurationType DurationType
	UnitPrice    decimal.Decimal
	Quantity     int
	Subtotal     decimal.Decimal
	Savings      decimal.Decimal
	PriceChanged bool
	AddedAt      time.Time
}

func LineFromCartItem(item CartItem) CartLine {
	qty := decimal.NewFromInt(int64(item.Quantity))

	return CartLine{
		ProductID:    item.Product.ID,
		PlanID:       item.Plan.ID,
		ProductName:  item.Product.Name,
		BrandName:    item.Product.BrandName,
		PlanName:     item.Plan.PlanName,
		DurationType: item.Plan.DurationType,
		UnitPrice:    item.Plan.Price,
		Quantity:     item.Quantity,
		Subtotal:     item.Plan.Price.Mul(qty),
		Savings:      item.Plan.Savings().Mul(qty),
		AddedAt:      item.AddedAt,
	}
}

func LineFromRemoteCartItem(item RemoteCartItem) CartLine {
	return CartLine{
		ItemID:       item.ID,
		PlanID:       item.SoftwarePlanID,
		ProductName:  item.ProductName,
		BrandName:    item.BrandName,
		PlanName:     item.PlanName,
		DurationType: item.DurationType,
		UnitPrice:    item.UnitPrice,
		Quantity:     item.Quantity,
		Subtotal:     item.Subtotal,
		Savings:      decimal.Zero,
		PriceChanged: item.PriceChanged,
	}
}

// CartridgeCartItem is one entry of the guest cartridge cart. Cartridges
// are sold per unit, so there is no plan.
type CartridgeCartItem struct {
	Product  CartridgeProduct `json:"product"`
	Quantity int              `json:"quantity"`
	AddedAt  time.Time        `json:"addedAt"`
}

func LineFromCartridgeItem(item CartridgeCartItem) CartLine {
	return CartLine{
		ProductID:   item.Product.ID,
		ProductName: item.Product.Name,
		BrandName:   item.Product.BrandName,
		PlanName:    item.Product.ModelNumber,
		UnitPrice:   item.Product.Price,
		Quantity:    item.Quantity,
		Subtotal:    item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		Savings:     decimal.Zero,
		AddedAt:     item.AddedAt,
	}
}

type Cart struct {
	Origin CartOrigin
	Lines  []CartLine
}
