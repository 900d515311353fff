package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/licensing-storefront/internal/api"
	"github.com/nikolayk812/licensing-storefront/internal/config"
	"github.com/nikolayk812/licensing-storefront/internal/metrics"
	"github.com/nikolayk812/licensing-storefront/internal/notify"
	"github.com/nikolayk812/licensing-storefront/internal/port"
	"github.com/nikolayk812/licensing-storefront/internal/repository"
	"github.com/nikolayk812/licensing-storefront/internal/session"
	"github.com/nikolayk812/licensing-storefront/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

const usage = `usage: storefront <command> [args]

commands:
  products                     list software products
  product <id>                 show a product and its plans
  cartridges                   list cartridge products
  qr <code>                    look up a cartridge QR code
  login [-distributor] -email E -password P
  register -company C -contact N -email E -phone P -address A -pan X -password P
  logout
  cart [list|add <product> <plan>|qty <n> <q>|rm <n>|clear]
  cartridge-cart [list|add <cartridge> [qty]|qty <n> <q>|rm <n>|clear]
  checkout [-buy product:plan] [-lines 1,3]
  orders                       list your orders
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("command is required")
	}
	cmd, rest := args[0], args[1:]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	// The checkout TUI owns the terminal, so its logs are held back until it exits.
	logOut := io.Writer(os.Stderr)
	if cmd == "checkout" {
		var held bytes.Buffer
		logOut = &held
		defer func() { _, _ = os.Stderr.Write(held.Bytes()) }()
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStorage(); err != nil {
			logger.Error("storage close failed", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	clientMetrics, err := metrics.NewClientMetrics(reg)
	if err != nil {
		return fmt.Errorf("metrics.NewClientMetrics: %w", err)
	}
	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer shutdown()
	}

	sess := session.New(store)
	client, err := api.NewClient(cfg.APIBaseURL, sess,
		api.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		api.WithMetrics(clientMetrics),
		api.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("api.NewClient: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		out:      os.Stdout,
		storage:  store,
		session:  sess,
		client:   client,
		notifier: notify.Fanout{notify.NewPrinter(os.Stdout), notify.NewLogger(logger)},
	}

	switch cmd {
	case "products":
		return a.products(ctx)
	case "product":
		return a.product(ctx, rest)
	case "cartridges":
		return a.cartridges(ctx)
	case "qr":
		return a.qr(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "register":
		return a.register(ctx, rest)
	case "logout":
		return a.logout(ctx)
	case "cart":
		return a.cart(ctx, rest)
	case "cartridge-cart":
		return a.cartridgeCart(ctx, rest)
	case "checkout":
		return a.checkout(ctx, rest)
	case "orders":
		return a.orders(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func openStorage(ctx context.Context, cfg config.Config) (port.Storage, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return storage.NewMemory(), noop, nil
	case config.DriverRedis:
		s, closeFn, err := storage.NewRedis(ctx, cfg.Storage.RedisURL, cfg.Profile)
		if err != nil {
			return nil, nil, fmt.Errorf("storage.NewRedis: %w", err)
		}
		return s, closeFn, nil
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("pgxpool.New: %w", err)
		}
		s, err := repository.NewStorage(pool, cfg.Profile)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("repository.NewStorage: %w", err)
		}
		return s, func() error { pool.Close(); return nil }, nil
	default:
		s, err := storage.NewFile(cfg.Storage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("storage.NewFile: %w", err)
		}
		return s, noop, nil
	}
}

func serveMetrics(addr string, g prometheus.Gatherer, logger *slog.Logger) (shutdown func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(os.Stderr)
	return fs.Parse(args)
}
