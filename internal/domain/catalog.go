package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type DurationType string

const (
	DurationMonthly DurationType = "monthly"
	DurationYearly  DurationType = "yearly"
)

type Plan struct {
	ID            int64               `json:"id"`
	PlanName      string              `json:"plan_name"`
	DurationType  DurationType        `json:"duration_type"`
	Price         decimal.Decimal     `json:"price"`
	SpecialPrice  decimal.NullDecimal `json:"special_price"`
	OriginalPrice decimal.NullDecimal `json:"original_price"`
	Features      Features            `json:"features"`
	HasDiscount   bool                `json:"has_discount"`
}

// DisplayPrice is the price shown to the shopper. Distributors see the
// server computed special price when one exists.
func (p Plan) DisplayPrice(distributor bool) decimal.Decimal {
	if distributor && p.SpecialPrice.Valid {
		return p.SpecialPrice.Decimal
	}
	return p.Price
}

// Savings per unit against the original price, zero when there is none.
func (p Plan) Savings() decimal.Decimal {
	if !p.OriginalPrice.Valid || !p.OriginalPrice.Decimal.GreaterThan(p.Price) {
		return decimal.Zero
	}
	return p.OriginalPrice.Decimal.Sub(p.Price)
}

// Features is decoded from either a JSON array or a newline/comma separated string.
type Features []string

func (f *Features) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = nil
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = list
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("features: %w", err)
	}

	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == '\n' || r == ',' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*f = out
	return nil
}

type Product struct {
	ID            int64  `json:"id"`
	BrandID       int64  `json:"brand_id"`
	CategoryID    int64  `json:"category_id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	BrandName     string `json:"brand_name"`
	BrandImageURL string `json:"brand_image_url"`
	CategoryName  string `json:"category_name"`
	Plans         []Plan `json:"plans"`
}

func (p Product) Plan(planID int64) (Plan, bool) {
	for _, plan := range p.Plans {
		if plan.ID == planID {
			return plan, true
		}
	}
	return Plan{}, false
}

type Brand struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CartridgeProduct struct {
	ID           int64           `json:"id"`
	BrandID      int64           `json:"brand_id"`
	CategoryID   int64           `json:"category_id"`
	Name         string          `json:"name"`
	ModelNumber  string          `json:"model_number"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	BrandName    string          `json:"brand_name"`
	CategoryName string          `json:"category_name"`
	ImageURL     string          `json:"image_url"`
}

// QRCode links a printed code to a single cartridge unit.
type QRCode struct {
	ID         int64            `json:"id"`
	Code       string           `json:"code"`
	ProductID  int64            `json:"product_id"`
	Status     string           `json:"status"`
	QRImageURL string           `json:"qr_image_url"`
	BarcodeURL string           `json:"barcode_url"`
	Product    CartridgeProduct `json:"product"`
}
