// Package cart holds the shopper's pending selections for checkout,
// either in local storage (guest) or on the server (signed in).
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/nikolayk812/licensing-storefront/internal/api"
	"github.com/nikolayk812/licensing-storefront/internal/domain"
	"github.com/nikolayk812/licensing-storefront/internal/events"
	"github.com/nikolayk812/licensing-storefront/internal/port"
	"github.com/nikolayk812/licensing-storefront/internal/session"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const (
	MsgAdded          = "Added to cart!"
	MsgAddFailed      = "Failed to add item to cart. Please try again."
	MsgUpdateFailed   = "Failed to update quantity. Please try again."
	MsgRemoved        = "Item removed from cart."
	MsgRemoveFailed   = "Failed to remove item. Please try again."
	MsgCleared        = "Cart cleared."
	MsgClearFailed    = "Failed to clear cart. Please try again."
	MsgSessionExpired = "Your session has expired. Please log in again."

	AddedToastDuration = 3 * time.Second
)

var DefaultCurrency = currency.MustParseISO("NPR")

// Updated is published after every successful cart mutation.
type Updated struct {
	Origin domain.CartOrigin
	Count  int
}

type Store struct {
	repo     port.CartRepository
	notifier port.Notifier
	updates  *events.Broker[Updated]
	logger   *slog.Logger
	currency currency.Unit

	// op serializes mutations; mu guards the fields below.
	op       sync.Mutex
	mu       sync.RWMutex
	lines    []domain.CartLine
	selected []int
}

type Option func(*Store)

func WithNotifier(n port.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

func WithUpdates(b *events.Broker[Updated]) Option {
	return func(s *Store) { s.updates = b }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithCurrency(u currency.Unit) Option {
	return func(s *Store) { s.currency = u }
}

func NewStore(repo port.CartRepository, opts ...Option) *Store {
	s := &Store{
		repo:     repo,
		notifier: discard{},
		updates:  events.NewBroker[Updated](),
		logger:   slog.Default(),
		currency: DefaultCurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Origin() domain.CartOrigin {
	return s.repo.Origin()
}

func (s *Store) Updates() *events.Broker[Updated] {
	return s.updates
}

// Reload refetches the lines. The selection is kept when the number of
// lines did not change and reset to everything otherwise.
func (s *Store) Reload(ctx context.Context) error {
	lines, err := s.repo.Lines(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "cart reload failed", "origin", s.repo.Origin(), "error", err)
		return fmt.Errorf("repo.Lines: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(lines) != len(s.lines) || s.selected == nil {
		s.selected = allIndexes(len(lines))
	}
	s.lines = lines
	return nil
}

// Refresh reloads the lines and tells subscribers, without a toast.
func (s *Store) Refresh(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}
	s.updates.Publish(Updated{Origin: s.repo.Origin(), Count: s.Count()})
	return nil
}

func (s *Store) AddToCart(ctx context.Context, product domain.Product, plan domain.Plan) error {
	s.op.Lock()
	defer s.op.Unlock()

	if err := s.repo.Add(ctx, product, plan, 1); err != nil {
		s.fail(ctx, "add to cart", MsgAddFailed, err)
		return fmt.Errorf("repo.Add: %w", err)
	}

	s.afterMutation(ctx, MsgAdded, AddedToastDuration)
	return nil
}

// UpdateQuantity sets the quantity of line index. Quantities below 1 are ignored.
func (s *Store) UpdateQuantity(ctx context.Context, index int, quantity int) error {
	if quantity < 1 {
		return nil
	}

	s.op.Lock()
	defer s.op.Unlock()

	if err := s.repo.UpdateQuantity(ctx, index, quantity); err != nil {
		s.fail(ctx, "update quantity", MsgUpdateFailed, err)
		return fmt.Errorf("repo.UpdateQuantity: %w", err)
	}

	s.afterMutation(ctx, "", 0)
	return nil
}

func (s *Store) RemoveItem(ctx context.Context, index int) error {
	s.op.Lock()
	defer s.op.Unlock()

	if err := s.repo.Remove(ctx, index); err != nil {
		s.fail(ctx, "remove item", MsgRemoveFailed, err)
		return fmt.Errorf("repo.Remove: %w", err)
	}

	s.afterMutation(ctx, MsgRemoved, AddedToastDuration)
	return nil
}

func (s *Store) ClearCart(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	if err := s.repo.Clear(ctx); err != nil {
		s.fail(ctx, "clear cart", MsgClearFailed, err)
		return fmt.Errorf("repo.Clear: %w", err)
	}

	s.afterMutation(ctx, MsgCleared, AddedToastDuration)
	return nil
}

func (s *Store) Lines() []domain.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lines)
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines)
}

// Selected returns the selected line indexes in ascending order.
func (s *Store) Selected() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.selected)
}

func (s *Store) SelectedLines() []domain.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CartLine, 0, len(s.selected))
	for _, i := range s.selected {
		out = append(out, s.lines[i])
	}
	return out
}

func (s *Store) IsSelected(index int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, found := slices.BinarySearch(s.selected, index)
	return found
}

// Toggle flips the selection of one line. Selection never touches storage.
func (s *Store) Toggle(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.lines) {
		return ErrIndexOutOfRange
	}

	if i, found := slices.BinarySearch(s.selected, index); found {
		s.selected = slices.Delete(s.selected, i, i+1)
	} else {
		s.selected = slices.Insert(s.selected, i, index)
	}
	return nil
}

// ToggleAll selects every line unless all are selected, in which case it clears the selection.
func (s *Store) ToggleAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.selected) == len(s.lines) {
		s.selected = []int{}
		return
	}
	s.selected = allIndexes(len(s.lines))
}

// Subtotal sums the subtotals of the selected lines only.
func (s *Store) Subtotal() domain.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := decimal.Zero
	for _, i := range s.selected {
		sum = sum.Add(s.lines[i].Subtotal)
	}
	return domain.NewMoney(sum, s.currency)
}

// Total is what checkout shows for the selection. No fees are added client side.
func (s *Store) Total() domain.Money {
	return s.Subtotal()
}

// Savings is informational: the discount already included in guest line prices.
func (s *Store) Savings() domain.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := decimal.Zero
	for _, i := range s.selected {
		sum = sum.Add(s.lines[i].Savings)
	}
	return domain.NewMoney(sum, s.currency)
}

func (s *Store) afterMutation(ctx context.Context, msg string, d time.Duration) {
	if err := s.Reload(ctx); err != nil {
		s.notifier.Notify(ctx, port.Toast{Level: port.LevelError, Message: api.GenericErrorMessage})
	}

	s.updates.Publish(Updated{Origin: s.repo.Origin(), Count: s.Count()})

	if msg != "" {
		s.notifier.Notify(ctx, port.Toast{Level: port.LevelSuccess, Message: msg, Duration: d})
	}
}

func (s *Store) fail(ctx context.Context, action, msg string, err error) {
	s.logger.ErrorContext(ctx, "cart "+action+" failed", "origin", s.repo.Origin(), "error", err)

	if sessionExpired(err) {
		msg = MsgSessionExpired
	}
	s.notifier.Notify(ctx, port.Toast{Level: port.LevelError, Message: msg})
}

func sessionExpired(err error) bool {
	if errors.Is(err, session.ErrNotAuthenticated) {
		return true
	}
	var apiErr *api.Error
	return errors.As(err, &apiErr) && apiErr.SessionExpired()
}

func allIndexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

type discard struct{}

func (discard) Notify(context.Context, port.Toast) {}
