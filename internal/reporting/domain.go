package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockledger/stockledger/internal/inventory"
)

// TransactionDetail is a ledger entry with its item reference resolved.
type TransactionDetail struct {
	ID        int64                     `json:"id"`
	ItemID    int64                     `json:"item_id"`
	ItemName  string                    `json:"item_name"`
	ItemUnit  string                    `json:"item_unit"`
	BatchID   string                    `json:"batch_id"`
	Type      inventory.TransactionType `json:"type"`
	Quantity  decimal.Decimal           `json:"quantity"`
	Note      string                    `json:"note,omitempty"`
	CreatedAt time.Time                 `json:"created_at"`
}

// SignedQuantity returns the quantity with the sign implied by the type.
func (t TransactionDetail) SignedQuantity() decimal.Decimal {
	if t.Type == inventory.TransactionTypeDeduct {
		return t.Quantity.Neg()
	}
	return t.Quantity
}

// DashboardStats aggregates the current state of the whole inventory.
type DashboardStats struct {
	TotalItems         int64               `json:"total_items"`
	TotalQuantity      decimal.Decimal     `json:"total_quantity"`
	LowStockCount      int64               `json:"low_stock_count"`
	OutOfStockCount    int64               `json:"out_of_stock_count"`
	RecentTransactions []TransactionDetail `json:"recent_transactions"`
}
