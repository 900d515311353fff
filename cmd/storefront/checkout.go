package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nikolayk812/licensing-storefront/internal/cart"
	"github.com/nikolayk812/licensing-storefront/internal/checkout"
	"github.com/nikolayk812/licensing-storefront/internal/domain"
	"github.com/nikolayk812/licensing-storefront/internal/notify"
	"github.com/nikolayk812/licensing-storefront/internal/port"
)

const (
	msgWholeServerCart  = "Orders from a signed-in cart include every line in it."
	msgGuestCartEmptied = "Placing this order empties your guest cart, unselected lines included."
)

// partialSelectionNotice returns the info shown when only some cart lines are
// selected, or "" when every line is.
func partialSelectionNotice(store *cart.Store) string {
	if len(store.Selected()) >= store.Count() {
		return ""
	}
	if store.Origin() == domain.OriginServer {
		return msgWholeServerCart
	}
	return msgGuestCartEmptied
}

func (a *app) checkout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	buy := fs.String("buy", "", "buy one unit now, as product:plan")
	lines := fs.String("lines", "", "comma separated cart lines to check out (default all)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	store, err := a.cartStore(ctx)
	if err != nil {
		return err
	}

	var order checkout.PendingOrder
	if *buy != "" {
		productArg, planArg, ok := strings.Cut(*buy, ":")
		if !ok {
			return errors.New("-buy must be product:plan")
		}
		product, plan, err := a.resolvePlan(ctx, productArg, planArg)
		if err != nil {
			return err
		}
		order = checkout.FromDirect(product, plan)
	} else {
		if err := selectLines(store, *lines); err != nil {
			return err
		}
		if msg := partialSelectionNotice(store); msg != "" {
			a.notifier.Notify(ctx, port.Toast{Level: port.LevelInfo, Message: msg})
		}
		order = checkout.FromCartLines(store.Origin(), store.SelectedLines())
	}

	flow, err := checkout.NewFlow(order)
	if err != nil {
		return err
	}

	toasts := notify.NewChannel(8)
	ctrl := checkout.NewController(a.session, a.client, cart.NewLocal(a.storage, port.KeyCart),
		checkout.WithRefresher(store),
		checkout.WithNotifier(notify.Fanout{toasts, notify.NewLogger(a.logger)}),
		checkout.WithLogger(a.logger),
		checkout.WithRedirect(checkout.DefaultRedirectPath, a.cfg.RedirectDelay),
	)

	final, err := tea.NewProgram(newCheckoutModel(ctx, flow, ctrl, toasts, a.money)).Run()
	if err != nil {
		return fmt.Errorf("checkout ui: %w", err)
	}

	m, ok := final.(checkoutModel)
	if !ok || m.result == nil {
		fmt.Fprintln(a.out, "Checkout cancelled")
		return nil
	}

	fmt.Fprintf(a.out, "Order %s placed\n", m.result.Order.OrderNumber)
	if m.result.RedirectTo == checkout.DefaultRedirectPath && a.session.IsAuthenticated(ctx) {
		return a.orders(ctx)
	}
	return nil
}

// selectLines narrows the store selection to the comma separated 1-based lines in list.
func selectLines(store *cart.Store, list string) error {
	if list == "" {
		return nil
	}
	want, err := parseLines(list)
	if err != nil {
		return err
	}

	for _, i := range store.Selected() {
		if err := store.Toggle(i); err != nil {
			return err
		}
	}
	for _, i := range want {
		if store.IsSelected(i) {
			continue
		}
		if err := store.Toggle(i); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	return nil
}
