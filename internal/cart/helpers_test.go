package cart_test

import (
	"context"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/nikolayk812/licensing-storefront/internal/api"
	"github.com/nikolayk812/licensing-storefront/internal/api/apitest"
	"github.com/nikolayk812/licensing-storefront/internal/domain"
	"github.com/nikolayk812/licensing-storefront/internal/port"
	"github.com/nikolayk812/licensing-storefront/internal/session"
	"github.com/nikolayk812/licensing-storefront/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	toasts []port.Toast
}

func (r *recorder) Notify(_ context.Context, t port.Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

func (r *recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, t := range r.toasts {
		out = append(out, t.Message)
	}
	return out
}

func (r *recorder) Last() port.Toast {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.toasts) == 0 {
		return port.Toast{}
	}
	return r.toasts[len(r.toasts)-1]
}

func plan(id int64, price int64) domain.Plan {
	return domain.Plan{
		ID:           id,
		PlanName:     gofakeit.RandomString([]string{"Monthly", "Yearly"}),
		DurationType: domain.DurationMonthly,
		Price:        decimal.NewFromInt(price),
	}
}

func product(id int64, plans ...domain.Plan) domain.Product {
	return domain.Product{
		ID:        id,
		Name:      gofakeit.AppName(),
		BrandName: gofakeit.Company(),
		Plans:     plans,
	}
}

type remoteFixture struct {
	backend *apitest.Backend
	storage port.Storage
	session *session.Session
	client  *api.Client
	user    domain.User
}

// newRemoteFixture starts a backend selling products and signs a customer in.
func newRemoteFixture(t *testing.T, products ...domain.Product) remoteFixture {
	t.Helper()

	backend := apitest.New(t)
	for _, p := range products {
		backend.AddProduct(p)
	}

	store := storage.NewMemory()
	sess := session.New(store)

	client, err := api.NewClient(backend.URL(), sess)
	require.NoError(t, err)

	user := domain.User{ID: int64(gofakeit.Number(1, 1_000_000)), Name: gofakeit.Name(), Role: domain.RoleCustomer}
	token := backend.AddUser(gofakeit.Email(), "pw", user)
	require.NoError(t, sess.SignIn(t.Context(), token, user))

	return remoteFixture{backend: backend, storage: store, session: sess, client: client, user: user}
}
