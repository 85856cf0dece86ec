package reporting

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockledger/stockledger/internal/inventory"
)

// Repository reads inventory aggregates from PostgreSQL. It never writes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const transactionDetailColumns = `t.id, t.item_id, i.name, i.unit, t.batch_id, t.type, t.quantity, t.note, t.created_at`

// Counts carries the dashboard aggregates minus the recent entries.
type Counts struct {
	TotalItems      int64
	TotalQuantity   string
	LowStockCount   int64
	OutOfStockCount int64
}

// DashboardCounts computes item count, quantity sum and the per-status
// counts in a single round trip. Status ranges mirror the classifier.
func (r *Repository) DashboardCounts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.pool.QueryRow(ctx, `SELECT
	COUNT(*),
	COALESCE(SUM(quantity), 0)::text,
	COUNT(*) FILTER (WHERE quantity > 0 AND quantity < $1),
	COUNT(*) FILTER (WHERE quantity <= 0)
FROM items`, inventory.LowStockThreshold()).
		Scan(&c.TotalItems, &c.TotalQuantity, &c.LowStockCount, &c.OutOfStockCount)
	return c, err
}

// RecentTransactions lists the latest ledger entries across all items,
// newest first.
func (r *Repository) RecentTransactions(ctx context.Context, limit int) ([]TransactionDetail, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.pool.Query(ctx, `SELECT `+transactionDetailColumns+`
FROM inventory_transactions t
JOIN items i ON i.id = t.item_id
ORDER BY t.created_at DESC, t.id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactionDetails(rows)
}

// HistoryFor lists every ledger entry of one item, newest first.
func (r *Repository) HistoryFor(ctx context.Context, itemID int64) ([]TransactionDetail, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+transactionDetailColumns+`
FROM inventory_transactions t
JOIN items i ON i.id = t.item_id
WHERE t.item_id = $1
ORDER BY t.created_at DESC, t.id DESC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactionDetails(rows)
}

// GetItem fetches one item, translating a missing row into the ledger's
// not-found error.
func (r *Repository) GetItem(ctx context.Context, id int64) (inventory.Item, error) {
	var item inventory.Item
	err := r.pool.QueryRow(ctx, `SELECT id, name, unit, quantity, created_at, updated_at FROM items WHERE id = $1`, id).
		Scan(&item.ID, &item.Name, &item.Unit, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inventory.Item{}, inventory.NotFoundID(id)
		}
		return inventory.Item{}, err
	}
	return item, nil
}

// UniqueUnits lists the distinct units currently in use, sorted.
func (r *Repository) UniqueUnits(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT unit FROM items ORDER BY unit`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	units := []string{}
	for rows.Next() {
		var unit string
		if err := rows.Scan(&unit); err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

// ItemsByStatus enumerates the items in one status tier, ordered by name.
func (r *Repository) ItemsByStatus(ctx context.Context, status inventory.StockStatus) ([]inventory.Item, error) {
	query := `SELECT id, name, unit, quantity, created_at, updated_at FROM items WHERE `
	args := []any{}
	switch status {
	case inventory.StockStatusOut:
		query += `quantity <= 0`
	case inventory.StockStatusLow:
		args = append(args, inventory.LowStockThreshold())
		query += `quantity > 0 AND quantity < $` + strconv.Itoa(len(args))
	case inventory.StockStatusIn:
		args = append(args, inventory.LowStockThreshold())
		query += `quantity >= $` + strconv.Itoa(len(args))
	default:
		return nil, errors.New("reporting: unknown stock status")
	}
	query += ` ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []inventory.Item{}
	for rows.Next() {
		var item inventory.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Unit, &item.Quantity, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanTransactionDetails(rows pgx.Rows) ([]TransactionDetail, error) {
	details := []TransactionDetail{}
	for rows.Next() {
		var d TransactionDetail
		if err := rows.Scan(&d.ID, &d.ItemID, &d.ItemName, &d.ItemUnit, &d.BatchID, &d.Type, &d.Quantity, &d.Note, &d.CreatedAt); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}
