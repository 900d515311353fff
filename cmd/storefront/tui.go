package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nikolayk812/licensing-storefront/internal/checkout"
	"github.com/nikolayk812/licensing-storefront/internal/domain"
	"github.com/nikolayk812/licensing-storefront/internal/notify"
	"github.com/shopspring/decimal"
)

var billingLabels = [...]string{"Full name", "Email", "Phone", "Address"}

type submitResult struct {
	res checkout.Result
	err error
}

type redirectMsg struct{}

type checkoutModel struct {
	ctx    context.Context
	flow   *checkout.Flow
	ctrl   *checkout.Controller
	toasts *notify.Channel
	money  func(decimal.Decimal) string

	inputs [len(billingLabels)]string
	focus  int
	cursor int

	busy   bool
	errMsg string
	toast  string
	result *checkout.Result
}

func newCheckoutModel(ctx context.Context, flow *checkout.Flow, ctrl *checkout.Controller, toasts *notify.Channel, money func(decimal.Decimal) string) checkoutModel {
	return checkoutModel{
		ctx:    ctx,
		flow:   flow,
		ctrl:   ctrl,
		toasts: toasts,
		money:  money,
		cursor: -1,
	}
}

func (m checkoutModel) Init() tea.Cmd {
	return nil
}

func (m checkoutModel) billing() domain.BillingInfo {
	return domain.BillingInfo{
		FullName: m.inputs[0],
		Email:    m.inputs[1],
		Phone:    m.inputs[2],
		Address:  m.inputs[3],
	}
}

func (m checkoutModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.result != nil {
			if msg.Type == tea.KeyEnter || msg.String() == "q" {
				return m, tea.Quit
			}
			return m, nil
		}
		if m.busy {
			return m, nil
		}

		switch m.flow.Step().(type) {
		case checkout.BillingStep:
			return m.updateBilling(msg)
		case checkout.PaymentStep:
			return m.updatePayment(msg)
		}

	case submitResult:
		m.busy = false
		m.toast = m.drainToasts()
		if msg.err != nil {
			m.errMsg = ""
			return m, nil
		}
		m.result = &msg.res
		return m, tea.Tick(msg.res.RedirectAfter, func(time.Time) tea.Msg { return redirectMsg{} })

	case redirectMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m checkoutModel) updateBilling(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyTab, tea.KeyDown:
		m.focus = (m.focus + 1) % len(m.inputs)
	case tea.KeyShiftTab, tea.KeyUp:
		m.focus = (m.focus + len(m.inputs) - 1) % len(m.inputs)
	case tea.KeyBackspace:
		if r := []rune(m.inputs[m.focus]); len(r) > 0 {
			m.inputs[m.focus] = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.inputs[m.focus] += string(msg.Runes)
	case tea.KeyEnter:
		if m.focus < len(m.inputs)-1 {
			m.focus++
			return m, nil
		}
		if err := m.flow.SubmitBilling(m.billing()); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.cursor = methodIndex(m.flow.Step().(checkout.PaymentStep).Method)
		return m, nil
	}

	if err := m.flow.EditBilling(m.billing()); err != nil {
		m.errMsg = err.Error()
	}
	return m, nil
}

func (m checkoutModel) updatePayment(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if err := m.flow.Back(); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		draft := m.flow.Step().(checkout.BillingStep).Draft
		m.inputs = [len(billingLabels)]string{draft.FullName, draft.Email, draft.Phone, draft.Address}
		m.focus = len(m.inputs) - 1
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		} else {
			m.cursor = 0
		}
		m.selectMethod()
	case tea.KeyDown:
		if m.cursor < len(domain.PaymentMethods)-1 {
			m.cursor++
		}
		m.selectMethod()
	case tea.KeyEnter:
		m.busy = true
		m.toast = ""
		return m, submitCmd(m.ctx, m.ctrl, m.flow)
	}
	return m, nil
}

func (m *checkoutModel) selectMethod() {
	if err := m.flow.SelectPayment(domain.PaymentMethods[m.cursor]); err != nil {
		m.errMsg = err.Error()
	}
}

func submitCmd(ctx context.Context, ctrl *checkout.Controller, flow *checkout.Flow) tea.Cmd {
	return func() tea.Msg {
		res, err := ctrl.Submit(ctx, flow)
		return submitResult{res: res, err: err}
	}
}

func (m checkoutModel) drainToasts() string {
	var msgs []string
	for {
		select {
		case t := <-m.toasts.C:
			msgs = append(msgs, t.Message)
		default:
			return strings.Join(msgs, " ")
		}
	}
}

func methodIndex(method domain.PaymentMethod) int {
	for i, pm := range domain.PaymentMethods {
		if pm == method {
			return i
		}
	}
	return -1
}

var methodLabels = map[domain.PaymentMethod]string{
	domain.PaymentEsewa:  "eSewa",
	domain.PaymentKhalti: "Khalti",
	domain.PaymentIPS:    "ConnectIPS",
	domain.PaymentCash:   "Cash on delivery",
}

func (m checkoutModel) View() string {
	b := &strings.Builder{}
	fmt.Fprintln(b, "Checkout")
	fmt.Fprintln(b, "")

	order := m.flow.Order()
	for _, l := range order.Lines {
		fmt.Fprintf(b, "  %s %s  x%d  %s\n", l.ProductName, l.PlanName, l.Quantity, m.money(l.Subtotal))
	}
	fmt.Fprintf(b, "  Total: %s\n\n", m.money(order.Total()))

	if m.result != nil {
		fmt.Fprintf(b, "%s\n", m.toast)
		fmt.Fprintf(b, "Order %s. Opening %s in %s...\n", m.result.Order.OrderNumber, m.result.RedirectTo, m.result.RedirectAfter)
		return b.String()
	}

	switch m.flow.Step().(type) {
	case checkout.BillingStep:
		fmt.Fprintln(b, "Step 1 of 2: billing details")
		for i, label := range billingLabels {
			marker := " "
			if i == m.focus {
				marker = ">"
			}
			fmt.Fprintf(b, " %s %-10s %s\n", marker, label+":", m.inputs[i])
		}
		fmt.Fprintln(b, "\nControls: tab/up/down move, enter next/continue, esc cancel")
	case checkout.PaymentStep:
		fmt.Fprintln(b, "Step 2 of 2: payment method")
		for i, pm := range domain.PaymentMethods {
			marker := " "
			if i == m.cursor {
				marker = "*"
			}
			fmt.Fprintf(b, " %s %s\n", marker, methodLabels[pm])
		}
		fmt.Fprintln(b, "\nControls: up/down choose, enter place order, esc back")
	}

	if m.busy {
		fmt.Fprintln(b, "\nPlacing order...")
	}
	if m.errMsg != "" {
		fmt.Fprintf(b, "\n%s\n", m.errMsg)
	}
	if m.toast != "" {
		fmt.Fprintf(b, "\n%s\n", m.toast)
	}
	return b.String()
}
