package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/backoffice-api/internal/config"
	"github.com/iliyamo/backoffice-api/internal/model"
	"github.com/iliyamo/backoffice-api/internal/queue"
	"github.com/iliyamo/backoffice-api/internal/utils"
)

// fakePublisher records the published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, _ string, ev queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type testEnv struct {
	t     *testing.T
	ctx   context.Context
	now   time.Time
	store *memStore
	pub   *fakePublisher

	tokens *utils.TokenService
	auth   *AuthService
	users  *UserService
	cat    *CatalogService
	orders *OrderService
	rets   *ReturnService
	dels   *DeliveryService
	inv    *InventoryService
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		t:     t,
		ctx:   context.Background(),
		now:   time.Date(2024, 6, 12, 9, 30, 0, 0, time.UTC), // a Wednesday
		store: newMemStore(),
		pub:   &fakePublisher{},
	}
	d := Deps{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Publisher: e.pub,
		Now:       func() time.Time { return e.now },
	}
	hasher := utils.NewPasswordHasher("pepper", bcrypt.MinCost)
	e.tokens = utils.NewTokenService("test-secret").WithClock(d.Now)
	cfg := config.AuthConfig{AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour, SessionCap: 2}
	ledger := NewLedger(d)

	e.auth = NewAuthService(e.store, e.tokens, hasher, cfg, d)
	e.users = NewUserService(e.store, hasher, d)
	e.cat = NewCatalogService(e.store, ledger, d)
	e.orders = NewOrderService(e.store, ledger, d)
	e.rets = NewReturnService(e.store, ledger, d)
	e.dels = NewDeliveryService(e.store, d)
	e.dels.suffix = func() string { return "ABCD" }
	e.inv = NewInventoryService(e.store)
	return e
}

// tick advances the clock by d.
func (e *testEnv) tick(d time.Duration) { e.now = e.now.Add(d) }

func (e *testEnv) register(name, email string) *Session {
	e.t.Helper()
	sess, err := e.auth.Register(e.ctx, name, email, "password123")
	require.NoError(e.t, err)
	return sess
}

func (e *testEnv) category(name string) *model.Category {
	e.t.Helper()
	c, err := e.cat.CreateCategory(e.ctx, name)
	require.NoError(e.t, err)
	return c
}

func (e *testEnv) product(actor, categoryID uint64, name, price string, qty int) *model.Product {
	e.t.Helper()
	p, err := e.cat.CreateProduct(e.ctx, actor, model.NewProduct{
		Name:            name,
		Price:           decimal.RequireFromString(price),
		QuantityInStock: &qty,
		CategoryID:      categoryID,
	})
	require.NoError(e.t, err)
	return p
}

func (e *testEnv) stock(productID uint64) int {
	e.t.Helper()
	p, err := e.cat.GetProduct(e.ctx, productID)
	require.NoError(e.t, err)
	return p.QuantityInStock
}

// completedOrder places an order and moves it to completed.
func (e *testEnv) completedOrder(userID uint64, lines ...model.OrderLine) *model.Order {
	e.t.Helper()
	o, err := e.orders.Create(e.ctx, userID, lines)
	require.NoError(e.t, err)
	_, err = e.orders.UpdateStatus(e.ctx, o.ID, model.OrderProcessing, userID)
	require.NoError(e.t, err)
	o, err = e.orders.UpdateStatus(e.ctx, o.ID, model.OrderCompleted, userID)
	require.NoError(e.t, err)
	return o
}

func decodePayload[T any](t *testing.T, ev queue.Event) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(ev.Payload, &v))
	return v
}
