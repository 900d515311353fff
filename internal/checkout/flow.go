package checkout

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/nikolayk812/licensing-storefront/internal/domain"
)

var (
	ErrEmptyOrder  = errors.New("nothing to check out")
	ErrWrongStep   = errors.New("action not allowed in the current checkout step")
	ErrOrderPlaced = errors.New("order already placed")
)

// Step is either BillingStep or PaymentStep.
type Step interface {
	step()
}

// BillingStep collects billing details. Draft keeps whatever was entered
// before the shopper went back.
type BillingStep struct {
	Draft domain.BillingInfo
}

// PaymentStep can only be reached with validated billing details.
type PaymentStep struct {
	Billing domain.BillingInfo
	Method  domain.PaymentMethod
}

func (BillingStep) step() {}
func (PaymentStep) step() {}

type Flow struct {
	order            PendingOrder
	current          Step
	rememberedMethod domain.PaymentMethod
	idempotencyKey   string
	placed           atomic.Bool
}

func NewFlow(order PendingOrder) (*Flow, error) {
	if order.Empty() {
		return nil, ErrEmptyOrder
	}

	return &Flow{
		order:          order,
		current:        BillingStep{},
		idempotencyKey: uuid.NewString(),
	}, nil
}

func (f *Flow) Order() PendingOrder {
	return f.order
}

func (f *Flow) Step() Step {
	return f.current
}

// IdempotencyKey identifies this checkout; manual retries reuse it.
func (f *Flow) IdempotencyKey() string {
	return f.idempotencyKey
}

func (f *Flow) Placed() bool {
	return f.placed.Load()
}

// EditBilling updates the draft while on the billing step.
func (f *Flow) EditBilling(info domain.BillingInfo) error {
	if _, ok := f.current.(BillingStep); !ok {
		return ErrWrongStep
	}
	f.current = BillingStep{Draft: info}
	return nil
}

// SubmitBilling validates info and moves to the payment step. A method
// chosen before going back is kept.
func (f *Flow) SubmitBilling(info domain.BillingInfo) error {
	if f.placed.Load() {
		return ErrOrderPlaced
	}
	if _, ok := f.current.(BillingStep); !ok {
		return ErrWrongStep
	}
	if err := info.Validate(); err != nil {
		f.current = BillingStep{Draft: info}
		return fmt.Errorf("billing: %w", err)
	}

	f.current = PaymentStep{Billing: info, Method: f.rememberedMethod}
	return nil
}

// Back returns to the billing step with the entered details.
func (f *Flow) Back() error {
	p, ok := f.current.(PaymentStep)
	if !ok {
		return ErrWrongStep
	}

	f.rememberedMethod = p.Method
	f.current = BillingStep{Draft: p.Billing}
	return nil
}

func (f *Flow) SelectPayment(m domain.PaymentMethod) error {
	p, ok := f.current.(PaymentStep)
	if !ok {
		return ErrWrongStep
	}
	method, err := domain.ParsePaymentMethod(string(m))
	if err != nil {
		return err
	}

	p.Method = method
	f.current = p
	return nil
}
