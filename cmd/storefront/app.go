package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/nikolayk812/licensing-storefront/internal/api"
	"github.com/nikolayk812/licensing-storefront/internal/cart"
	"github.com/nikolayk812/licensing-storefront/internal/config"
	"github.com/nikolayk812/licensing-storefront/internal/domain"
	"github.com/nikolayk812/licensing-storefront/internal/port"
	"github.com/nikolayk812/licensing-storefront/internal/session"
	"github.com/shopspring/decimal"
)

type app struct {
	cfg      config.Config
	logger   *slog.Logger
	out      io.Writer
	storage  port.Storage
	session  *session.Session
	client   *api.Client
	notifier port.Notifier
}

func (a *app) money(d decimal.Decimal) string {
	return domain.NewMoney(d, a.cfg.Currency).String()
}

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
}

func (a *app) products(ctx context.Context) error {
	products, err := a.client.Products(ctx)
	if err != nil {
		return fmt.Errorf("client.Products: %w", err)
	}

	distributor := a.session.IsDistributor(ctx)
	w := a.table()
	for _, p := range products {
		fmt.Fprintf(w, "#%d\t%s\t%s\t%s\n", p.ID, p.Name, p.BrandName, p.CategoryName)
		for _, plan := range p.Plans {
			a.writePlan(w, plan, distributor)
		}
	}
	return w.Flush()
}

func (a *app) writePlan(w io.Writer, plan domain.Plan, distributor bool) {
	line := fmt.Sprintf("\t  plan %d\t%s (%s)\t%s", plan.ID, plan.PlanName, plan.DurationType, a.money(plan.DisplayPrice(distributor)))
	if s := plan.Savings(); !s.IsZero() {
		line += "\tsave " + a.money(s)
	}
	fmt.Fprintln(w, line)
}

func (a *app) product(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: product <id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("product id: %w", err)
	}

	p, err := a.client.Product(ctx, id)
	if err != nil {
		return fmt.Errorf("client.Product: %w", err)
	}
	plans, err := a.client.ProductPlans(ctx, id)
	if err != nil {
		return fmt.Errorf("client.ProductPlans: %w", err)
	}

	fmt.Fprintf(a.out, "%s by %s\n", p.Name, p.BrandName)
	if p.Description != "" {
		fmt.Fprintf(a.out, "%s\n", p.Description)
	}

	distributor := a.session.IsDistributor(ctx)
	w := a.table()
	for _, plan := range plans {
		a.writePlan(w, plan, distributor)
		for _, f := range plan.Features {
			fmt.Fprintf(w, "\t    - %s\n", f)
		}
	}
	return w.Flush()
}

func (a *app) cartridges(ctx context.Context) error {
	products, err := a.client.CartridgeProducts(ctx)
	if err != nil {
		return fmt.Errorf("client.CartridgeProducts: %w", err)
	}

	w := a.table()
	for _, p := range products {
		fmt.Fprintf(w, "#%d\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.ModelNumber, p.BrandName, a.money(p.Price))
	}
	return w.Flush()
}

func (a *app) qr(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: qr <code>")
	}

	code, err := a.client.LookupQRCode(ctx, args[0])
	if err != nil {
		return fmt.Errorf("client.LookupQRCode: %w", err)
	}

	fmt.Fprintf(a.out, "%s\t%s\n", code.Code, code.Status)
	fmt.Fprintf(a.out, "%s (%s) %s\n", code.Product.Name, code.Product.ModelNumber, a.money(code.Product.Price))
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	distributor := fs.Bool("distributor", false, "sign in as a distributor")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	creds := domain.Credentials{Email: *email, Password: *password}
	login := a.client.Login
	if *distributor {
		login = a.client.DistributorLogin
	}

	res, err := login(ctx, creds)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := a.session.SignIn(ctx, res.Token, res.User); err != nil {
		return fmt.Errorf("session.SignIn: %w", err)
	}
	fmt.Fprintf(a.out, "Signed in as %s (%s)\n", res.User.Name, res.User.Role)

	merged, err := cart.MergeGuest(ctx, cart.NewLocal(a.storage, port.KeyCart), a.client)
	if err != nil {
		a.logger.WarnContext(ctx, "guest cart merge incomplete", "merged", merged, "error", err)
		a.notifier.Notify(ctx, port.Toast{Level: port.LevelError, Message: fmt.Sprintf("Moved %d guest cart item(s); the rest stay in your guest cart.", merged)})
		return nil
	}
	if merged > 0 {
		a.notifier.Notify(ctx, port.Toast{Level: port.LevelInfo, Message: fmt.Sprintf("Moved %d guest cart item(s) to your cart.", merged)})
	}
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	var reg domain.DistributorRegistration
	fs.StringVar(&reg.CompanyName, "company", "", "company name")
	fs.StringVar(&reg.ContactPerson, "contact", "", "contact person")
	fs.StringVar(&reg.Email, "email", "", "email")
	fs.StringVar(&reg.Phone, "phone", "", "phone")
	fs.StringVar(&reg.Address, "address", "", "address")
	fs.StringVar(&reg.PANNumber, "pan", "", "PAN number")
	fs.StringVar(&reg.Password, "password", "", "password")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if err := a.client.RegisterDistributor(ctx, reg); err != nil {
		return fmt.Errorf("client.RegisterDistributor: %w", err)
	}
	a.notifier.Notify(ctx, port.Toast{Level: port.LevelSuccess, Message: "Registration submitted."})
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.session.SignOut(ctx); err != nil {
		return fmt.Errorf("session.SignOut: %w", err)
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

// cartStore opens the cart of the current shopper and loads it.
func (a *app) cartStore(ctx context.Context) (*cart.Store, error) {
	repo := cart.OpenRepository(ctx, a.session, a.storage, a.client, port.KeyCart)
	store := cart.NewStore(repo,
		cart.WithNotifier(a.notifier),
		cart.WithLogger(a.logger),
		cart.WithCurrency(a.cfg.Currency),
	)
	store.Updates().Subscribe(func(u cart.Updated) {
		a.logger.DebugContext(ctx, "cart updated", "origin", u.Origin, "count", u.Count)
	})

	if err := store.Reload(ctx); err != nil {
		return nil, fmt.Errorf("store.Reload: %w", err)
	}
	return store, nil
}

func (a *app) cart(ctx context.Context, args []string) error {
	store, err := a.cartStore(ctx)
	if err != nil {
		return err
	}

	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "list":
	case "add":
		if len(args) != 2 {
			return errors.New("usage: cart add <product> <plan>")
		}
		product, plan, err := a.resolvePlan(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		if err := store.AddToCart(ctx, product, plan); err != nil {
			return err
		}
	case "qty":
		if len(args) != 2 {
			return errors.New("usage: cart qty <line> <quantity>")
		}
		line, err := lineIndex(args[0])
		if err != nil {
			return err
		}
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("quantity: %w", err)
		}
		if err := store.UpdateQuantity(ctx, line, qty); err != nil {
			return err
		}
	case "rm":
		if len(args) != 1 {
			return errors.New("usage: cart rm <line>")
		}
		line, err := lineIndex(args[0])
		if err != nil {
			return err
		}
		if err := store.RemoveItem(ctx, line); err != nil {
			return err
		}
	case "clear":
		if err := store.ClearCart(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown cart command %q", sub)
	}

	return a.printCart(store)
}

func (a *app) printCart(store *cart.Store) error {
	lines := store.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(a.out, "Your cart is empty")
		return nil
	}

	w := a.table()
	for i, l := range lines {
		mark := " "
		if store.IsSelected(i) {
			mark = "x"
		}
		row := fmt.Sprintf("[%s] %d\t%s\t%s\t%d x %s\t%s", mark, i+1, l.ProductName, l.PlanName, l.Quantity, a.money(l.UnitPrice), a.money(l.Subtotal))
		if l.PriceChanged {
			row += "\tprice changed"
		}
		fmt.Fprintln(w, row)
	}
	fmt.Fprintf(w, "\t\t\tSubtotal\t%s\n", store.Subtotal())
	if !store.Savings().IsZero() {
		fmt.Fprintf(w, "\t\t\tYou save\t%s\n", store.Savings())
	}
	fmt.Fprintf(w, "\t\t\tTotal\t%s\n", store.Total())
	return w.Flush()
}

// resolvePlan finds plan planArg of product productArg, fetching the plans
// separately when the product payload does not embed them.
func (a *app) resolvePlan(ctx context.Context, productArg, planArg string) (domain.Product, domain.Plan, error) {
	productID, err := strconv.ParseInt(productArg, 10, 64)
	if err != nil {
		return domain.Product{}, domain.Plan{}, fmt.Errorf("product id: %w", err)
	}
	planID, err := strconv.ParseInt(planArg, 10, 64)
	if err != nil {
		return domain.Product{}, domain.Plan{}, fmt.Errorf("plan id: %w", err)
	}

	product, err := a.client.Product(ctx, productID)
	if err != nil {
		return domain.Product{}, domain.Plan{}, fmt.Errorf("client.Product: %w", err)
	}
	if plan, ok := product.Plan(planID); ok {
		return product, plan, nil
	}

	plans, err := a.client.ProductPlans(ctx, productID)
	if err != nil {
		return domain.Product{}, domain.Plan{}, fmt.Errorf("client.ProductPlans: %w", err)
	}
	product.Plans = plans
	if plan, ok := product.Plan(planID); ok {
		return product, plan, nil
	}
	return domain.Product{}, domain.Plan{}, fmt.Errorf("product %d has no plan %d", productID, planID)
}

// lineIndex converts a 1-based line number from the command line.
func lineIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("line number: %w", err)
	}
	return n - 1, nil
}

func parseLines(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		i, err := lineIndex(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}

func (a *app) orders(ctx context.Context) error {
	orders, err := a.client.MyOrders(ctx)
	if err != nil {
		return fmt.Errorf("client.MyOrders: %w", err)
	}
	if len(orders) == 0 {
		fmt.Fprintln(a.out, "No orders yet")
		return nil
	}

	w := a.table()
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", o.OrderNumber, o.Status, o.PaymentMethod, a.money(o.TotalAmount), o.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func (a *app) cartridgeCart(ctx context.Context, args []string) error {
	repo := cart.NewCartridges(a.storage)

	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "list":
	case "add":
		if len(args) < 1 || len(args) > 2 {
			return errors.New("usage: cartridge-cart add <cartridge> [quantity]")
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("cartridge id: %w", err)
		}
		qty := 1
		if len(args) == 2 {
			if qty, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("quantity: %w", err)
			}
		}
		product, err := a.client.CartridgeProduct(ctx, id)
		if err != nil {
			return fmt.Errorf("client.CartridgeProduct: %w", err)
		}
		if err := repo.Add(ctx, product, qty); err != nil {
			return fmt.Errorf("repo.Add: %w", err)
		}
		a.notifier.Notify(ctx, port.Toast{Level: port.LevelSuccess, Message: cart.MsgAdded, Duration: cart.AddedToastDuration})
	case "qty":
		if len(args) != 2 {
			return errors.New("usage: cartridge-cart qty <line> <quantity>")
		}
		line, err := lineIndex(args[0])
		if err != nil {
			return err
		}
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("quantity: %w", err)
		}
		if err := repo.UpdateQuantity(ctx, line, qty); err != nil {
			return fmt.Errorf("repo.UpdateQuantity: %w", err)
		}
	case "rm":
		if len(args) != 1 {
			return errors.New("usage: cartridge-cart rm <line>")
		}
		line, err := lineIndex(args[0])
		if err != nil {
			return err
		}
		if err := repo.Remove(ctx, line); err != nil {
			return fmt.Errorf("repo.Remove: %w", err)
		}
	case "clear":
		if err := repo.Clear(ctx); err != nil {
			return fmt.Errorf("repo.Clear: %w", err)
		}
	default:
		return fmt.Errorf("unknown cartridge-cart command %q", sub)
	}

	lines, err := repo.Lines(ctx)
	if err != nil {
		return fmt.Errorf("repo.Lines: %w", err)
	}
	return a.printLines(lines)
}

func (a *app) printLines(lines []domain.CartLine) error {
	if len(lines) == 0 {
		fmt.Fprintln(a.out, "Your cartridge cart is empty")
		return nil
	}

	total := decimal.Zero
	w := a.table()
	for i, l := range lines {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d x %s\t%s\n", i+1, l.ProductName, l.PlanName, l.Quantity, a.money(l.UnitPrice), a.money(l.Subtotal))
		total = total.Add(l.Subtotal)
	}
	fmt.Fprintf(w, "\t\t\tTotal\t%s\n", a.money(total))
	return w.Flush()
}
