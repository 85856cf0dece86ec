package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const itemColumns = `id, name, unit, quantity, created_at, updated_at`

// Repository persists items and ledger entries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxStore exposes the store operations available inside a unit of work.
// Every quantity read that precedes a write goes through the ForUpdate
// variants so concurrent batches serialize on the item rows they touch.
type TxStore interface {
	GetItemForUpdate(ctx context.Context, id int64) (Item, error)
	FindItemByNameForUpdate(ctx context.Context, name string) (Item, bool, error)
	InsertItem(ctx context.Context, name, unit string, quantity decimal.Decimal) (Item, error)
	SetItemQuantity(ctx context.Context, id int64, quantity decimal.Decimal) (Item, error)
	UpdateItem(ctx context.Context, id int64, name, unit string, quantity decimal.Decimal) (Item, error)
	InsertTransaction(ctx context.Context, tx Transaction) (Transaction, error)
	DeleteTransactionsForItem(ctx context.Context, itemID int64) (int64, error)
	DeleteItem(ctx context.Context, id int64) error
}

type txStore struct {
	tx pgx.Tx
}

// WithTx executes fn inside a repeatable-read transaction. The transaction
// commits only when fn returns nil; any error rolls back every store
// mutation performed through the TxStore.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txStore{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// GetItem fetches an item by id.
func (r *Repository) GetItem(ctx context.Context, id int64) (Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	return scanItem(row, strconv.FormatInt(id, 10))
}

// FindItemByName fetches an item by exact name match.
func (r *Repository) FindItemByName(ctx context.Context, name string) (Item, bool, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE name = $1`, name)
	item, err := scanItem(row, name)
	if err != nil {
		var notFound *ItemNotFoundError
		if errors.As(err, &notFound) {
			return Item{}, false, nil
		}
		return Item{}, false, err
	}
	return item, true, nil
}

// ListItems enumerates items applying the filter contract: sanitized
// substring search, exact unit match, derived status ranges, and an
// allow-listed sort column.
func (r *Repository) ListItems(ctx context.Context, filter ListFilter) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	args := []any{}

	if search := filter.SanitizedSearch(); search != "" {
		args = append(args, "%"+search+"%")
		query += ` AND name ILIKE $` + strconv.Itoa(len(args))
	}
	if filter.Unit != "" {
		args = append(args, filter.Unit)
		query += ` AND unit = $` + strconv.Itoa(len(args))
	}
	if status, ok := ParseStockStatus(filter.Status); ok {
		switch status {
		case StockStatusOut:
			query += ` AND quantity <= 0`
		case StockStatusLow:
			args = append(args, lowStockThreshold)
			query += ` AND quantity > 0 AND quantity < $` + strconv.Itoa(len(args))
		case StockStatusIn:
			args = append(args, lowStockThreshold)
			query += ` AND quantity >= $` + strconv.Itoa(len(args))
		}
	}
	query += fmt.Sprintf(` ORDER BY %s %s`, filter.SortColumn(), filter.SortDirection())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Unit, &item.Quantity, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *txStore) GetItemForUpdate(ctx context.Context, id int64) (Item, error) {
	row := s.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, id)
	return scanItem(row, strconv.FormatInt(id, 10))
}

func (s *txStore) FindItemByNameForUpdate(ctx context.Context, name string) (Item, bool, error) {
	row := s.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE name = $1 FOR UPDATE`, name)
	item, err := scanItem(row, name)
	if err != nil {
		var notFound *ItemNotFoundError
		if errors.As(err, &notFound) {
			return Item{}, false, nil
		}
		return Item{}, false, err
	}
	return item, true, nil
}

func (s *txStore) InsertItem(ctx context.Context, name, unit string, quantity decimal.Decimal) (Item, error) {
	row := s.tx.QueryRow(ctx, `INSERT INTO items (name, unit, quantity, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
RETURNING `+itemColumns, name, unit, quantity)
	item, err := scanItem(row, name)
	if err != nil {
		return Item{}, mapUniqueViolation(err)
	}
	return item, nil
}

func (s *txStore) SetItemQuantity(ctx context.Context, id int64, quantity decimal.Decimal) (Item, error) {
	row := s.tx.QueryRow(ctx, `UPDATE items SET quantity = $2, updated_at = NOW() WHERE id = $1
RETURNING `+itemColumns, id, quantity)
	return scanItem(row, strconv.FormatInt(id, 10))
}

func (s *txStore) UpdateItem(ctx context.Context, id int64, name, unit string, quantity decimal.Decimal) (Item, error) {
	row := s.tx.QueryRow(ctx, `UPDATE items SET name = $2, unit = $3, quantity = $4, updated_at = NOW() WHERE id = $1
RETURNING `+itemColumns, id, name, unit, quantity)
	item, err := scanItem(row, strconv.FormatInt(id, 10))
	if err != nil {
		return Item{}, mapUniqueViolation(err)
	}
	return item, nil
}

func (s *txStore) InsertTransaction(ctx context.Context, tx Transaction) (Transaction, error) {
	if tx.Quantity.Sign() <= 0 {
		return Transaction{}, ErrInvalidQuantity
	}
	err := s.tx.QueryRow(ctx, `INSERT INTO inventory_transactions (item_id, batch_id, type, quantity, note, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())
RETURNING id, created_at`, tx.ItemID, tx.BatchID, string(tx.Type), tx.Quantity, tx.Note).
		Scan(&tx.ID, &tx.CreatedAt)
	return tx, err
}

func (s *txStore) DeleteTransactionsForItem(ctx context.Context, itemID int64) (int64, error) {
	tag, err := s.tx.Exec(ctx, `DELETE FROM inventory_transactions WHERE item_id = $1`, itemID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *txStore) DeleteItem(ctx context.Context, id int64) error {
	tag, err := s.tx.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundID(id)
	}
	return nil
}

func scanItem(row pgx.Row, identifier string) (Item, error) {
	var item Item
	err := row.Scan(&item.ID, &item.Name, &item.Unit, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, &ItemNotFoundError{Identifier: identifier}
		}
		return Item{}, err
	}
	return item, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateName
	}
	return err
}
