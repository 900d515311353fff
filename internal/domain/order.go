package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type BillingInfo struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

func (b BillingInfo) Validate() error {
	var errs []error
	for _, f := range []struct{ name, value string }{
		{"full_name", b.FullName},
		{"email", b.Email},
		{"phone", b.Phone},
		{"address", b.Address},
	} {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", f.name))
		}
	}
	return errors.Join(errs...)
}

type PaymentMethod string

const (
	PaymentEsewa  PaymentMethod = "esewa"
	PaymentKhalti PaymentMethod = "khalti"
	PaymentIPS    PaymentMethod = "ips"
	PaymentCash   PaymentMethod = "cash"
)

var PaymentMethods = []PaymentMethod{PaymentEsewa, PaymentKhalti, PaymentIPS, PaymentCash}

// WireCode is the payment_method value the order endpoints accept.
func (m PaymentMethod) WireCode() string {
	if m == PaymentCash {
		return "cod"
	}
	return string(m)
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "cod" {
		return PaymentCash, nil
	}
	for _, m := range PaymentMethods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

type OrderItem struct {
	SoftwarePlanID int64           `json:"software_plan_id"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
}

type OrderRequest struct {
	BillingInfo   BillingInfo `json:"billing_info"`
	PaymentMethod string      `json:"payment_method"`
	Items         []OrderItem `json:"items,omitempty"`
}

type Order struct {
	ID            int64           `json:"id"`
	OrderNumber   string          `json:"order_number"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []OrderLine     `json:"items"`
}

type OrderLine struct {
	SoftwarePlanID int64           `json:"software_plan_id"`
	ProductName    string          `json:"product_name"`
	PlanName       string          `json:"plan_name"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}
