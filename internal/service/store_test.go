package service

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/backoffice-api/internal/model"
	"github.com/iliyamo/backoffice-api/internal/repository"
)

// memStore is an in-memory repository.Store.  Transactions are serialised
// by a mutex and rolled back by restoring a snapshot of every table.
type memStore struct {
	mu  sync.Mutex
	ids map[string]uint64

	users      map[uint64]model.User
	tokens     map[uint64]model.RefreshToken
	categories map[uint64]model.Category
	products   map[uint64]model.Product
	logs       []model.InventoryLog
	orders     map[uint64]model.Order
	deliveries map[uint64]model.Delivery
	returns    map[uint64]model.Return

	// failSetStock makes Products().SetStock fail once stock would reach it.
	failSetStock func(id uint64, qty int) error
	// skewStock is added to the stock read back by Products().GetByID.
	skewStock int
}

func newMemStore() *memStore {
	return &memStore{
		ids:        map[string]uint64{},
		users:      map[uint64]model.User{},
		tokens:     map[uint64]model.RefreshToken{},
		categories: map[uint64]model.Category{},
		products:   map[uint64]model.Product{},
		orders:     map[uint64]model.Order{},
		deliveries: map[uint64]model.Delivery{},
		returns:    map[uint64]model.Return{},
	}
}

func (m *memStore) next(table string) uint64 {
	m.ids[table]++
	return m.ids[table]
}

type memSnapshot struct {
	ids        map[string]uint64
	users      map[uint64]model.User
	tokens     map[uint64]model.RefreshToken
	categories map[uint64]model.Category
	products   map[uint64]model.Product
	logs       []model.InventoryLog
	orders     map[uint64]model.Order
	deliveries map[uint64]model.Delivery
	returns    map[uint64]model.Return
}

func (m *memStore) snapshot() memSnapshot {
	return memSnapshot{
		ids:        maps.Clone(m.ids),
		users:      maps.Clone(m.users),
		tokens:     maps.Clone(m.tokens),
		categories: maps.Clone(m.categories),
		products:   maps.Clone(m.products),
		logs:       slices.Clone(m.logs),
		orders:     maps.Clone(m.orders),
		deliveries: maps.Clone(m.deliveries),
		returns:    maps.Clone(m.returns),
	}
}

func (m *memStore) restore(s memSnapshot) {
	m.ids, m.users, m.tokens, m.categories = s.ids, s.users, s.tokens, s.categories
	m.products, m.logs, m.orders = s.products, s.logs, s.orders
	m.deliveries, m.returns = s.deliveries, s.returns
}

func (m *memStore) WithinTx(_ context.Context, fn func(tx repository.Repos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) Users() repository.UserRepository                 { return memUsers{m} }
func (m *memStore) Tokens() repository.TokenRepository               { return memTokens{m} }
func (m *memStore) Categories() repository.CategoryRepository        { return memCategories{m} }
func (m *memStore) Products() repository.ProductRepository           { return memProducts{m} }
func (m *memStore) InventoryLogs() repository.InventoryLogRepository { return memLogs{m} }
func (m *memStore) Orders() repository.OrderRepository               { return memOrders{m} }
func (m *memStore) Deliveries() repository.DeliveryRepository        { return memDeliveries{m} }
func (m *memStore) Returns() repository.ReturnRepository             { return memReturns{m} }

func limitOf(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && !t.Before(to.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// ---- users ----

type memUsers struct{ m *memStore }

func (r memUsers) Create(_ context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, x := range r.m.users {
		if x.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	u.ID = r.m.next("users")
	u.UpdatedAt = u.CreatedAt
	r.m.users[u.ID] = *u
	return nil
}

func (r memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	u, ok := r.m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memUsers) GetForUpdate(ctx context.Context, id uint64) (*model.User, error) {
	return r.GetByID(ctx, id)
}

func (r memUsers) List(_ context.Context, limit int) ([]model.User, error) {
	out := slices.Collect(maps.Values(r.m.users))
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limitOf(limit) {
		out = out[:limitOf(limit)]
	}
	return out, nil
}

func (r memUsers) Update(_ context.Context, id uint64, upd model.UserUpdate) error {
	u, ok := r.m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if upd.Email != nil {
		for _, x := range r.m.users {
			if x.ID != id && x.Email == *upd.Email {
				return repository.ErrDuplicate
			}
		}
		u.Email = *upd.Email
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	r.m.users[id] = u
	return nil
}

func (r memUsers) UpdatePassword(_ context.Context, id uint64, hash string) error {
	u, ok := r.m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	r.m.users[id] = u
	return nil
}

func (r memUsers) Promote(_ context.Context, id uint64) (bool, error) {
	u, ok := r.m.users[id]
	if !ok || u.Role != model.RoleManager {
		return false, nil
	}
	u.Role = model.RoleAdmin
	r.m.users[id] = u
	return true, nil
}

func (r memUsers) Delete(_ context.Context, id uint64) error {
	if _, ok := r.m.users[id]; !ok {
		return repository.ErrNotFound
	}
	for _, o := range r.m.orders {
		if o.UserID == id {
			return repository.ErrReferenced
		}
	}
	delete(r.m.users, id)
	for tid, t := range r.m.tokens {
		if t.UserID == id {
			delete(r.m.tokens, tid)
		}
	}
	for rid, ret := range r.m.returns {
		if ret.ProcessedBy != nil && *ret.ProcessedBy == id {
			ret.ProcessedBy = nil
			r.m.returns[rid] = ret
		}
	}
	return nil
}

func (r memUsers) CountAdmins(_ context.Context) (int, error) {
	n := 0
	for _, u := range r.m.users {
		if u.Role == model.RoleAdmin {
			n++
		}
	}
	return n, nil
}

// ---- refresh tokens ----

type memTokens struct{ m *memStore }

func (r memTokens) Store(_ context.Context, t *model.RefreshToken) error {
	for _, x := range r.m.tokens {
		if x.TokenHash == t.TokenHash {
			return repository.ErrDuplicate
		}
	}
	t.ID = r.m.next("tokens")
	r.m.tokens[t.ID] = *t
	return nil
}

func (r memTokens) GetByHash(_ context.Context, hash string) (*model.RefreshToken, error) {
	for _, t := range r.m.tokens {
		if t.TokenHash == hash {
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memTokens) active(userID uint64, now time.Time) []model.RefreshToken {
	var out []model.RefreshToken
	for _, t := range r.m.tokens {
		if t.UserID == userID && t.Active(now) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r memTokens) CountActive(_ context.Context, userID uint64, now time.Time) (int, error) {
	return len(r.active(userID, now)), nil
}

func (r memTokens) RevokeOldestActive(_ context.Context, userID uint64, n int, now time.Time) (int64, error) {
	var revoked int64
	for _, t := range r.active(userID, now) {
		if int(revoked) == n {
			break
		}
		t.Revoked = true
		r.m.tokens[t.ID] = t
		revoked++
	}
	return revoked, nil
}

func (r memTokens) RevokeForUser(_ context.Context, hash string, userID uint64) (int64, error) {
	for id, t := range r.m.tokens {
		if t.TokenHash == hash && t.UserID == userID && !t.Revoked {
			t.Revoked = true
			r.m.tokens[id] = t
			return 1, nil
		}
	}
	return 0, nil
}

func (r memTokens) RevokeAllForUser(_ context.Context, userID uint64) (int64, error) {
	var n int64
	for id, t := range r.m.tokens {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			r.m.tokens[id] = t
			n++
		}
	}
	return n, nil
}

// ---- categories ----

type memCategories struct{ m *memStore }

func (r memCategories) Create(_ context.Context, c *model.Category) error {
	for _, x := range r.m.categories {
		if strings.EqualFold(x.Name, c.Name) {
			return repository.ErrDuplicate
		}
	}
	c.ID = r.m.next("categories")
	r.m.categories[c.ID] = *c
	return nil
}

func (r memCategories) GetByID(_ context.Context, id uint64) (*model.Category, error) {
	c, ok := r.m.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r memCategories) List(_ context.Context, limit int) ([]model.Category, error) {
	out := slices.Collect(maps.Values(r.m.categories))
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if len(out) > limitOf(limit) {
		out = out[:limitOf(limit)]
	}
	return out, nil
}

func (r memCategories) Rename(_ context.Context, id uint64, name string) error {
	c, ok := r.m.categories[id]
	if !ok {
		return repository.ErrNotFound
	}
	for _, x := range r.m.categories {
		if x.ID != id && strings.EqualFold(x.Name, name) {
			return repository.ErrDuplicate
		}
	}
	c.Name = name
	r.m.categories[id] = c
	return nil
}

func (r memCategories) Delete(_ context.Context, id uint64) error {
	if _, ok := r.m.categories[id]; !ok {
		return repository.ErrNotFound
	}
	for _, p := range r.m.products {
		if p.CategoryID == id {
			return repository.ErrReferenced
		}
	}
	delete(r.m.categories, id)
	return nil
}

// ---- products ----

type memProducts struct{ m *memStore }

func (r memProducts) Create(_ context.Context, p *model.Product) error {
	if _, ok := r.m.categories[p.CategoryID]; !ok {
		return repository.ErrReferenced
	}
	for _, x := range r.m.products {
		if x.SKU == p.SKU {
			return repository.ErrDuplicate
		}
	}
	p.ID = r.m.next("products")
	p.UpdatedAt = p.CreatedAt
	r.m.products[p.ID] = *p
	return nil
}

func (r memProducts) GetByID(_ context.Context, id uint64) (*model.Product, error) {
	p, ok := r.m.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.QuantityInStock += r.m.skewStock
	return &p, nil
}

func (r memProducts) GetForUpdate(_ context.Context, id uint64) (*model.Product, error) {
	p, ok := r.m.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r memProducts) List(_ context.Context, f model.ProductFilter) ([]model.Product, error) {
	var out []model.Product
	for _, p := range r.m.products {
		if f.CategoryID != nil && p.CategoryID != *f.CategoryID {
			continue
		}
		if f.PriceMin != nil && p.Price.LessThan(*f.PriceMin) {
			continue
		}
		if f.PriceMax != nil && p.Price.GreaterThan(*f.PriceMax) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limitOf(f.Limit) {
		out = out[:limitOf(f.Limit)]
	}
	return out, nil
}

func (r memProducts) NameTaken(_ context.Context, categoryID uint64, name string, excludeID uint64) (bool, error) {
	for _, p := range r.m.products {
		if p.CategoryID == categoryID && p.ID != excludeID && strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return true, nil
		}
	}
	return false, nil
}

func (r memProducts) Update(_ context.Context, p *model.Product) error {
	cur, ok := r.m.products[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Name, cur.Description, cur.Price, cur.UpdatedAt = p.Name, p.Description, p.Price, p.UpdatedAt
	r.m.products[p.ID] = cur
	return nil
}

func (r memProducts) SetStock(_ context.Context, id uint64, qty int) error {
	if r.m.failSetStock != nil {
		if err := r.m.failSetStock(id, qty); err != nil {
			return err
		}
	}
	p, ok := r.m.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.QuantityInStock = qty
	r.m.products[id] = p
	return nil
}

func (r memProducts) Delete(_ context.Context, id uint64) error {
	if _, ok := r.m.products[id]; !ok {
		return repository.ErrNotFound
	}
	for _, o := range r.m.orders {
		for _, it := range o.Items {
			if it.ProductID == id {
				return repository.ErrReferenced
			}
		}
	}
	delete(r.m.products, id)
	return nil
}

// ---- inventory logs ----

type memLogs struct{ m *memStore }

func (r memLogs) Append(_ context.Context, l *model.InventoryLog) error {
	l.ID = r.m.next("logs")
	r.m.logs = append(r.m.logs, *l)
	return nil
}

func (r memLogs) join(l model.InventoryLog) model.InventoryLogRow {
	row := model.InventoryLogRow{InventoryLog: l}
	if l.UserID != nil {
		if u, ok := r.m.users[*l.UserID]; ok {
			row.Username = ptr(u.Username)
		}
	}
	if p, ok := r.m.products[l.ProductID]; ok {
		row.ProductName = ptr(p.Name)
		row.ProductSKU = ptr(p.SKU)
	}
	return row
}

// newestFirst returns the logs ordered by created_at then id, descending.
func (r memLogs) newestFirst() []model.InventoryLog {
	out := slices.Clone(r.m.logs)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r memLogs) GetByID(_ context.Context, id uint64) (*model.InventoryLogRow, error) {
	for _, l := range r.m.logs {
		if l.ID == id {
			row := r.join(l)
			return &row, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memLogs) List(_ context.Context, f model.InventoryLogFilter) ([]model.InventoryLogRow, error) {
	var out []model.InventoryLogRow
	for _, l := range r.newestFirst() {
		if f.ProductID != nil && l.ProductID != *f.ProductID {
			continue
		}
		if f.UserID != nil && (l.UserID == nil || *l.UserID != *f.UserID) {
			continue
		}
		if f.ChangeType != nil && l.ChangeType != *f.ChangeType {
			continue
		}
		if !inRange(l.CreatedAt, f.DateFrom, f.DateTo) {
			continue
		}
		out = append(out, r.join(l))
		if len(out) == limitOf(f.Limit) {
			break
		}
	}
	return out, nil
}

func (r memLogs) LastForProduct(_ context.Context, productID uint64) (*model.InventoryLogRow, error) {
	for _, l := range r.newestFirst() {
		if l.ProductID == productID {
			row := r.join(l)
			return &row, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ---- orders ----

type memOrders struct{ m *memStore }

func (r memOrders) Create(_ context.Context, o *model.Order) error {
	if _, ok := r.m.users[o.UserID]; !ok {
		return repository.ErrReferenced
	}
	o.ID = r.m.next("orders")
	o.UpdatedAt = o.CreatedAt
	items := make([]model.OrderItem, len(o.Items))
	for i, it := range o.Items {
		if _, ok := r.m.products[it.ProductID]; !ok {
			return repository.ErrReferenced
		}
		it.ID = r.m.next("order_items")
		it.OrderID = o.ID
		items[i] = it
	}
	o.Items = items
	r.m.orders[o.ID] = *o
	return nil
}

func (r memOrders) view(o model.Order) model.Order {
	if u, ok := r.m.users[o.UserID]; ok {
		o.Username = u.Username
	}
	items := make([]model.OrderItem, len(o.Items))
	for i, it := range o.Items {
		if p, ok := r.m.products[it.ProductID]; ok {
			it.ProductName, it.ProductSKU = p.Name, p.SKU
		}
		items[i] = it
	}
	o.Items = items
	return o
}

func (r memOrders) GetByID(_ context.Context, id uint64) (*model.Order, error) {
	o, ok := r.m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	v := r.view(o)
	return &v, nil
}

func (r memOrders) GetForUpdate(ctx context.Context, id uint64) (*model.Order, error) {
	return r.GetByID(ctx, id)
}

func (r memOrders) match(o model.Order, f model.OrderFilter) bool {
	if f.Status != nil && o.Status != *f.Status {
		return false
	}
	if f.UserID != nil && o.UserID != *f.UserID {
		return false
	}
	return inRange(o.CreatedAt, f.DateFrom, f.DateTo)
}

func (r memOrders) List(_ context.Context, f model.OrderFilter) ([]model.Order, error) {
	var out []model.Order
	for _, o := range r.m.orders {
		if r.match(o, f) {
			out = append(out, r.view(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limitOf(f.Limit) {
		out = out[:limitOf(f.Limit)]
	}
	return out, nil
}

func (r memOrders) UpdateStatus(_ context.Context, id uint64, status model.OrderStatus) error {
	o, ok := r.m.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = status
	r.m.orders[id] = o
	return nil
}

func (r memOrders) Statistics(_ context.Context, f model.OrderFilter) (*model.OrderStatistics, error) {
	var st model.OrderStatistics
	var counted int64
	for _, o := range r.m.orders {
		if !r.match(o, f) {
			continue
		}
		st.TotalOrders++
		switch o.Status {
		case model.OrderCompleted:
			st.CompletedOrders++
		case model.OrderCancelled:
			st.CancelledOrders++
			continue
		}
		st.TotalRevenue = st.TotalRevenue.Add(o.TotalAmount)
		counted++
	}
	if counted > 0 {
		st.AverageOrderValue = st.TotalRevenue.Div(decimal.NewFromInt(counted)).Round(2)
	}
	return &st, nil
}

func (r memOrders) GetItemForUpdate(_ context.Context, itemID uint64) (*model.OrderItem, error) {
	for _, o := range r.m.orders {
		for _, it := range o.Items {
			if it.ID == itemID {
				return &it, nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (r memOrders) CountByUser(_ context.Context, userID uint64) (int, error) {
	n := 0
	for _, o := range r.m.orders {
		if o.UserID == userID {
			n++
		}
	}
	return n, nil
}

// ---- deliveries ----

type memDeliveries struct{ m *memStore }

func (r memDeliveries) Create(_ context.Context, d *model.Delivery) error {
	for _, x := range r.m.deliveries {
		if x.OrderID == d.OrderID || x.TrackingNumber == d.TrackingNumber {
			return repository.ErrDuplicate
		}
	}
	d.ID = r.m.next("deliveries")
	d.UpdatedAt = d.CreatedAt
	r.m.deliveries[d.ID] = *d
	return nil
}

func (r memDeliveries) GetByID(_ context.Context, id uint64) (*model.Delivery, error) {
	d, ok := r.m.deliveries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r memDeliveries) GetForUpdate(ctx context.Context, id uint64) (*model.Delivery, error) {
	return r.GetByID(ctx, id)
}

func (r memDeliveries) GetByOrderID(_ context.Context, orderID uint64) (*model.Delivery, error) {
	for _, d := range r.m.deliveries {
		if d.OrderID == orderID {
			return &d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memDeliveries) List(_ context.Context, f model.DeliveryFilter) ([]model.Delivery, error) {
	var out []model.Delivery
	for _, d := range r.m.deliveries {
		if f.Status != nil && d.Status != *f.Status {
			continue
		}
		if f.OrderID != nil && d.OrderID != *f.OrderID {
			continue
		}
		if !inRange(d.CreatedAt, f.DateFrom, f.DateTo) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limitOf(f.Limit) {
		out = out[:limitOf(f.Limit)]
	}
	return out, nil
}

func (r memDeliveries) UpdateStatus(_ context.Context, id uint64, status model.DeliveryStatus, delivered *time.Time) error {
	d, ok := r.m.deliveries[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.Status = status
	d.ActualDeliveryDate = delivered
	r.m.deliveries[id] = d
	return nil
}

// ---- returns ----

type memReturns struct{ m *memStore }

func (r memReturns) item(id uint64) (model.OrderItem, bool) {
	for _, o := range r.m.orders {
		for _, it := range o.Items {
			if it.ID == id {
				return it, true
			}
		}
	}
	return model.OrderItem{}, false
}

func (r memReturns) Create(_ context.Context, ret *model.Return) error {
	if _, ok := r.item(ret.OrderItemID); !ok {
		return repository.ErrReferenced
	}
	ret.ID = r.m.next("returns")
	ret.UpdatedAt = ret.CreatedAt
	r.m.returns[ret.ID] = *ret
	return nil
}

func (r memReturns) view(ret model.Return) model.Return {
	if it, ok := r.item(ret.OrderItemID); ok {
		ret.OrderID, ret.ProductID, ret.OrderedQuantity = it.OrderID, it.ProductID, it.Quantity
		if p, ok := r.m.products[it.ProductID]; ok {
			ret.ProductName, ret.ProductSKU = p.Name, p.SKU
		}
	}
	ret.ProcessedByUsername = nil
	if ret.ProcessedBy != nil {
		if u, ok := r.m.users[*ret.ProcessedBy]; ok {
			ret.ProcessedByUsername = ptr(u.Username)
		}
	}
	return ret
}

func (r memReturns) GetByID(_ context.Context, id uint64) (*model.Return, error) {
	ret, ok := r.m.returns[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	v := r.view(ret)
	return &v, nil
}

func (r memReturns) GetForUpdate(ctx context.Context, id uint64) (*model.Return, error) {
	return r.GetByID(ctx, id)
}

func (r memReturns) filtered(f model.ReturnFilter) []model.Return {
	var out []model.Return
	for _, ret := range r.m.returns {
		v := r.view(ret)
		if f.Status != nil && v.Status != *f.Status {
			continue
		}
		if f.ProductID != nil && v.ProductID != *f.ProductID {
			continue
		}
		if !inRange(v.CreatedAt, f.DateFrom, f.DateTo) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r memReturns) List(_ context.Context, f model.ReturnFilter) ([]model.Return, error) {
	out := r.filtered(f)
	if len(out) > limitOf(f.Limit) {
		out = out[:limitOf(f.Limit)]
	}
	return out, nil
}

func (r memReturns) UpdateStatus(_ context.Context, id uint64, status model.ReturnStatus, processedBy *uint64) error {
	ret, ok := r.m.returns[id]
	if !ok {
		return repository.ErrNotFound
	}
	ret.Status = status
	if processedBy != nil {
		ret.ProcessedBy = processedBy
	}
	r.m.returns[id] = ret
	return nil
}

func (r memReturns) OpenQuantity(_ context.Context, orderItemID uint64) (int, error) {
	n := 0
	for _, ret := range r.m.returns {
		if ret.OrderItemID == orderItemID && ret.Status != model.ReturnRejected {
			n += ret.QuantityReturned
		}
	}
	return n, nil
}

func (r memReturns) Statistics(_ context.Context, f model.ReturnFilter) (*model.ReturnStatistics, error) {
	var st model.ReturnStatistics
	for _, ret := range r.filtered(f) {
		st.TotalReturns++
		st.TotalItemsReturned += int64(ret.QuantityReturned)
		switch ret.Status {
		case model.ReturnApproved:
			st.ApprovedReturns++
		case model.ReturnRejected:
			st.RejectedReturns++
		case model.ReturnRequested:
			st.PendingReturns++
		}
	}
	if st.TotalReturns > 0 {
		st.AvgReturnQuantity = decimal.NewFromInt(st.TotalItemsReturned).Div(decimal.NewFromInt(st.TotalReturns)).Round(2)
	}
	return &st, nil
}
