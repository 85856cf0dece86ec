package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType enumerates ledger entry kinds.
type TransactionType string

const (
	// TransactionTypeAdd represents a stock increase.
	TransactionTypeAdd TransactionType = "add"
	// TransactionTypeDeduct represents a stock decrease.
	TransactionTypeDeduct TransactionType = "deduct"
)

// StockStatus is the derived three-tier classification of an item quantity.
type StockStatus string

const (
	StockStatusIn  StockStatus = "in_stock"
	StockStatusLow StockStatus = "low"
	StockStatusOut StockStatus = "out_of_stock"
)

// lowStockThreshold is the quantity below which an item counts as low stock.
var lowStockThreshold = decimal.NewFromInt(10)

// LowStockThreshold returns the fixed low-stock boundary.
func LowStockThreshold() decimal.Decimal {
	return lowStockThreshold
}

// Classify maps a quantity to its stock status.
func Classify(quantity decimal.Decimal) StockStatus {
	switch {
	case quantity.Sign() <= 0:
		return StockStatusOut
	case quantity.LessThan(lowStockThreshold):
		return StockStatusLow
	default:
		return StockStatusIn
	}
}

// ParseStockStatus returns the status matching tag, or false for unknown input.
func ParseStockStatus(tag string) (StockStatus, bool) {
	switch StockStatus(tag) {
	case StockStatusIn, StockStatusLow, StockStatusOut:
		return StockStatus(tag), true
	default:
		return "", false
	}
}

// Units of measure accepted for items.
const (
	UnitKg  = "kg"
	UnitM   = "m"
	UnitCm  = "cm"
	UnitPcs = "pcs"
	UnitLtr = "ltr"
	UnitBox = "box"
)

// Units lists every valid unit of measure.
var Units = []string{UnitKg, UnitM, UnitCm, UnitPcs, UnitLtr, UnitBox}

// ValidUnit reports whether unit belongs to the fixed unit set.
func ValidUnit(unit string) bool {
	for _, u := range Units {
		if u == unit {
			return true
		}
	}
	return false
}

// MaxNoteLength caps free-text notes on ledger entries.
const MaxNoteLength = 500

// Item is a named stock-keeping unit with its current quantity.
type Item struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Quantity  decimal.Decimal `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Status derives the stock status from the current quantity.
func (i Item) Status() StockStatus {
	return Classify(i.Quantity)
}

// CanDeduct reports whether quantity can be removed without going negative.
func (i Item) CanDeduct(quantity decimal.Decimal) bool {
	return i.Quantity.GreaterThanOrEqual(quantity)
}

// Transaction is an immutable ledger entry recording one quantity change.
type Transaction struct {
	ID        int64           `json:"id"`
	ItemID    int64           `json:"item_id"`
	BatchID   string          `json:"batch_id"`
	Type      TransactionType `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// SignedQuantity returns the quantity with the sign implied by the type.
func (t Transaction) SignedQuantity() decimal.Decimal {
	if t.Type == TransactionTypeDeduct {
		return t.Quantity.Neg()
	}
	return t.Quantity
}

// AddEntry is one line of an add batch.
type AddEntry struct {
	Name     string
	Unit     string
	Quantity decimal.Decimal
	Note     string
}

// DeductEntry is one line of a deduct batch.
type DeductEntry struct {
	ItemID   int64
	Quantity decimal.Decimal
	Note     string
}

// UpdateItemInput carries the intended new state for a direct item edit.
type UpdateItemInput struct {
	Name     string
	Unit     string
	Quantity decimal.Decimal
	Note     string
}

// Sortable fields for item listings; anything else falls back to name.
const (
	SortByName      = "name"
	SortByQuantity  = "quantity"
	SortByCreatedAt = "created_at"
	SortByUpdatedAt = "updated_at"
)

// ListFilter narrows and orders item enumeration.
type ListFilter struct {
	Search    string
	Unit      string
	Status    string
	SortBy    string
	Direction string
}

var searchSanitizer = strings.NewReplacer("%", "", "_", "")

// SanitizedSearch strips SQL LIKE wildcards from the search term.
func (f ListFilter) SanitizedSearch() string {
	return searchSanitizer.Replace(strings.TrimSpace(f.Search))
}

// SortColumn returns the validated sort field, defaulting to name.
func (f ListFilter) SortColumn() string {
	switch f.SortBy {
	case SortByName, SortByQuantity, SortByCreatedAt, SortByUpdatedAt:
		return f.SortBy
	default:
		return SortByName
	}
}

// SortDirection returns "asc" or "desc", defaulting to ascending.
func (f ListFilter) SortDirection() string {
	if strings.EqualFold(f.Direction, "desc") {
		return "desc"
	}
	return "asc"
}

// ErrInvalidQuantity indicates a non-positive ledger quantity.
var ErrInvalidQuantity = errors.New("inventory: quantity must be greater than zero")

// ErrInvalidUnit indicates a unit outside the fixed unit set.
var ErrInvalidUnit = errors.New("inventory: unknown unit of measure")

// ErrDuplicateName indicates an item name uniqueness violation.
var ErrDuplicateName = errors.New("inventory: item name already exists")

// ErrNoteTooLong indicates a note exceeding MaxNoteLength.
var ErrNoteTooLong = errors.New("inventory: note exceeds 500 characters")

// ErrEmptyBatch indicates a batch call without entries.
var ErrEmptyBatch = errors.New("inventory: batch requires at least one entry")

// InsufficientStockError is returned when a deduction would drive an item
// quantity below zero. The whole batch aborts.
type InsufficientStockError struct {
	ItemName  string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for %q: available %s, requested %s",
		e.ItemName, e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

// ItemNotFoundError is returned when a required item lookup fails.
type ItemNotFoundError struct {
	Identifier string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("inventory: item %q not found", e.Identifier)
}

// NotFoundID builds an ItemNotFoundError from a numeric id.
func NotFoundID(id int64) *ItemNotFoundError {
	return &ItemNotFoundError{Identifier: fmt.Sprintf("%d", id)}
}
