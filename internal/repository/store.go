package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/backoffice-api/internal/model"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so every repository
// works the same inside and outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// GetForUpdate reads the user and locks the row until the transaction ends.
	GetForUpdate(ctx context.Context, id uint64) (*model.User, error)
	List(ctx context.Context, limit int) ([]model.User, error)
	Update(ctx context.Context, id uint64, upd model.UserUpdate) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	// Promote sets role admin on a manager and reports whether a row changed.
	Promote(ctx context.Context, id uint64) (bool, error)
	Delete(ctx context.Context, id uint64) error
	CountAdmins(ctx context.Context) (int, error)
}

type TokenRepository interface {
	Store(ctx context.Context, t *model.RefreshToken) error
	GetByHash(ctx context.Context, hash string) (*model.RefreshToken, error)
	CountActive(ctx context.Context, userID uint64, now time.Time) (int, error)
	// RevokeOldestActive revokes the n oldest active tokens of the user,
	// ordered by creation time then id.
	RevokeOldestActive(ctx context.Context, userID uint64, n int, now time.Time) (int64, error)
	RevokeForUser(ctx context.Context, hash string, userID uint64) (int64, error)
	RevokeAllForUser(ctx context.Context, userID uint64) (int64, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, c *model.Category) error
	GetByID(ctx context.Context, id uint64) (*model.Category, error)
	List(ctx context.Context, limit int) ([]model.Category, error)
	Rename(ctx context.Context, id uint64, name string) error
	Delete(ctx context.Context, id uint64) error
}

type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, id uint64) (*model.Product, error)
	GetForUpdate(ctx context.Context, id uint64) (*model.Product, error)
	List(ctx context.Context, f model.ProductFilter) ([]model.Product, error)
	// NameTaken reports whether another product of the category already uses
	// name, compared case-insensitively.  excludeID is ignored when zero.
	NameTaken(ctx context.Context, categoryID uint64, name string, excludeID uint64) (bool, error)
	Update(ctx context.Context, p *model.Product) error
	SetStock(ctx context.Context, id uint64, qty int) error
	Delete(ctx context.Context, id uint64) error
}

type InventoryLogRepository interface {
	Append(ctx context.Context, l *model.InventoryLog) error
	GetByID(ctx context.Context, id uint64) (*model.InventoryLogRow, error)
	List(ctx context.Context, f model.InventoryLogFilter) ([]model.InventoryLogRow, error)
	LastForProduct(ctx context.Context, productID uint64) (*model.InventoryLogRow, error)
}

type OrderRepository interface {
	// Create inserts the order and its items, filling generated ids.
	Create(ctx context.Context, o *model.Order) error
	GetByID(ctx context.Context, id uint64) (*model.Order, error)
	GetForUpdate(ctx context.Context, id uint64) (*model.Order, error)
	List(ctx context.Context, f model.OrderFilter) ([]model.Order, error)
	UpdateStatus(ctx context.Context, id uint64, status model.OrderStatus) error
	Statistics(ctx context.Context, f model.OrderFilter) (*model.OrderStatistics, error)
	GetItemForUpdate(ctx context.Context, itemID uint64) (*model.OrderItem, error)
	CountByUser(ctx context.Context, userID uint64) (int, error)
}

type DeliveryRepository interface {
	Create(ctx context.Context, d *model.Delivery) error
	GetByID(ctx context.Context, id uint64) (*model.Delivery, error)
	GetForUpdate(ctx context.Context, id uint64) (*model.Delivery, error)
	GetByOrderID(ctx context.Context, orderID uint64) (*model.Delivery, error)
	List(ctx context.Context, f model.DeliveryFilter) ([]model.Delivery, error)
	UpdateStatus(ctx context.Context, id uint64, status model.DeliveryStatus, delivered *time.Time) error
}

type ReturnRepository interface {
	Create(ctx context.Context, r *model.Return) error
	GetByID(ctx context.Context, id uint64) (*model.Return, error)
	GetForUpdate(ctx context.Context, id uint64) (*model.Return, error)
	List(ctx context.Context, f model.ReturnFilter) ([]model.Return, error)
	UpdateStatus(ctx context.Context, id uint64, status model.ReturnStatus, processedBy *uint64) error
	// OpenQuantity sums quantity_returned over the non-rejected returns of
	// an order item.
	OpenQuantity(ctx context.Context, orderItemID uint64) (int, error)
	Statistics(ctx context.Context, f model.ReturnFilter) (*model.ReturnStatistics, error)
}

// Repos gives access to every repository bound to the same Querier.
type Repos interface {
	Users() UserRepository
	Tokens() TokenRepository
	Categories() CategoryRepository
	Products() ProductRepository
	InventoryLogs() InventoryLogRepository
	Orders() OrderRepository
	Deliveries() DeliveryRepository
	Returns() ReturnRepository
}

// Store is the entry point of the persistence layer.  Calls made through
// the embedded Repos run in autocommit mode; WithinTx runs fn with
// repositories bound to one transaction, committed when fn returns nil.
type Store interface {
	Repos
	WithinTx(ctx context.Context, fn func(tx Repos) error) error
}

type repos struct{ q Querier }

func (r repos) Users() UserRepository { return &UserRepo{q: r.q} }
func (r repos) Tokens() TokenRepository { return &TokenRepo{q: r.q} }
func (r repos) Categories() CategoryRepository { return &CategoryRepo{q: r.q} }
func (r repos) Products() ProductRepository { return &ProductRepo{q: r.q} }
func (r repos) InventoryLogs() InventoryLogRepository { return &InventoryLogRepo{q: r.q} }
func (r repos) Orders() OrderRepository { return &OrderRepo{q: r.q} }
func (r repos) Deliveries() DeliveryRepository { return &DeliveryRepo{q: r.q} }
func (r repos) Returns() ReturnRepository { return &ReturnRepo{q: r.q} }

// SQLStore implements Store on a MySQL connection pool.
type SQLStore struct {
	repos
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{repos: repos{q: db}, db: db} }

// WithinTx begins a transaction, hands fn repositories bound to it, and
// commits only if fn succeeds.  Any error rolls everything back.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(tx Repos) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(repos{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// requireRow reports ErrNotFound for an UPDATE that touched no row.  MySQL
// counts only changed rows, so exists is asked to tell a missing row from
// an update that wrote identical values.
func requireRow(res sql.Result, exists func() error) error {
	n, err := res.RowsAffected()
	if err != nil || n > 0 {
		return err
	}
	return exists()
}
