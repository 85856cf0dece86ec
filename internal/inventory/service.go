package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockledger/stockledger/internal/shared"
)

// RepositoryPort abstracts repository usage for the engine.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	GetItem(ctx context.Context, id int64) (Item, error)
	FindItemByName(ctx context.Context, name string) (Item, bool, error)
	ListItems(ctx context.Context, filter ListFilter) ([]Item, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// StatsInvalidator drops cached dashboard aggregates after a mutation.
type StatsInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service is the ledger engine. It owns the only write path to item
// quantities: every mutation runs inside one unit of work and appends
// exactly one ledger entry per changed quantity.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	audit  AuditPort
	stats  StatsInvalidator
}

// NewService builds Service.
func NewService(logger *slog.Logger, repo RepositoryPort, audit AuditPort, stats StatsInvalidator) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, repo: repo, audit: audit, stats: stats}
}

// AddBatch applies the entries in input order as one atomic unit. An entry
// naming an existing item increments its quantity; otherwise a new item is
// created. Each entry appends one `add` ledger entry. Any failure rolls the
// whole batch back.
func (s *Service) AddBatch(ctx context.Context, entries []AddEntry) ([]Item, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyBatch
	}
	for _, entry := range entries {
		if strings.TrimSpace(entry.Name) == "" {
			return nil, fmt.Errorf("inventory: item name is required")
		}
		if !ValidUnit(entry.Unit) {
			return nil, ErrInvalidUnit
		}
		if entry.Quantity.Sign() <= 0 {
			return nil, ErrInvalidQuantity
		}
		if utf8.RuneCountInString(entry.Note) > MaxNoteLength {
			return nil, ErrNoteTooLong
		}
	}

	batchID := uuid.NewString()
	results := make([]Item, 0, len(entries))
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		for _, entry := range entries {
			name := strings.TrimSpace(entry.Name)
			item, found, err := tx.FindItemByNameForUpdate(ctx, name)
			if err != nil {
				return err
			}
			if found {
				item, err = tx.SetItemQuantity(ctx, item.ID, item.Quantity.Add(entry.Quantity))
			} else {
				item, err = tx.InsertItem(ctx, name, entry.Unit, entry.Quantity)
			}
			if err != nil {
				return err
			}
			if _, err := tx.InsertTransaction(ctx, Transaction{
				ItemID:   item.ID,
				BatchID:  batchID,
				Type:     TransactionTypeAdd,
				Quantity: entry.Quantity,
				Note:     entry.Note,
			}); err != nil {
				return err
			}
			results = append(results, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, item := range results {
		s.logMutation(ctx, "inventory added", item, entries[i].Quantity)
	}
	s.afterMutation(ctx, "inventory:add", batchID, len(results))
	return results, nil
}

// DeductBatch removes stock for the entries in input order as one atomic
// unit. A missing item or an entry exceeding available stock aborts the
// whole batch with no partial effect.
func (s *Service) DeductBatch(ctx context.Context, entries []DeductEntry) ([]Item, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyBatch
	}
	for _, entry := range entries {
		if entry.Quantity.Sign() <= 0 {
			return nil, ErrInvalidQuantity
		}
		if utf8.RuneCountInString(entry.Note) > MaxNoteLength {
			return nil, ErrNoteTooLong
		}
	}

	batchID := uuid.NewString()
	results := make([]Item, 0, len(entries))
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		for _, entry := range entries {
			item, err := tx.GetItemForUpdate(ctx, entry.ItemID)
			if err != nil {
				return err
			}
			if !item.CanDeduct(entry.Quantity) {
				return &InsufficientStockError{
					ItemName:  item.Name,
					Available: item.Quantity,
					Requested: entry.Quantity,
				}
			}
			item, err = tx.SetItemQuantity(ctx, item.ID, item.Quantity.Sub(entry.Quantity))
			if err != nil {
				return err
			}
			if _, err := tx.InsertTransaction(ctx, Transaction{
				ItemID:   item.ID,
				BatchID:  batchID,
				Type:     TransactionTypeDeduct,
				Quantity: entry.Quantity,
				Note:     entry.Note,
			}); err != nil {
				return err
			}
			results = append(results, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, item := range results {
		s.logMutation(ctx, "inventory deducted", item, entries[i].Quantity.Neg())
	}
	s.afterMutation(ctx, "inventory:deduct", batchID, len(results))
	return results, nil
}

// LogAdjustment appends the ledger entry matching a quantity change already
// applied by the caller. A zero difference is a no-op: no zero-magnitude
// entries enter the ledger. The item's quantity field is not touched here.
func (s *Service) LogAdjustment(ctx context.Context, item Item, oldQuantity, newQuantity decimal.Decimal, note string) error {
	if utf8.RuneCountInString(note) > MaxNoteLength {
		return ErrNoteTooLong
	}
	difference := newQuantity.Sub(oldQuantity)
	if difference.IsZero() {
		return nil
	}
	txType := TransactionTypeAdd
	if difference.Sign() < 0 {
		txType = TransactionTypeDeduct
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		_, err := tx.InsertTransaction(ctx, Transaction{
			ItemID:   item.ID,
			BatchID:  uuid.NewString(),
			Type:     txType,
			Quantity: difference.Abs(),
			Note:     note,
		})
		return err
	})
	if err != nil {
		return err
	}
	s.logger.Info("inventory manually adjusted",
		slog.Int64("item_id", item.ID),
		slog.String("name", item.Name),
		slog.String("quantity_delta", difference.StringFixed(2)),
		slog.String("resulting_quantity", newQuantity.StringFixed(2)))
	return nil
}

// UpdateItem replaces an item's attributes with the submitted state and, in
// the same unit of work, appends the adjustment ledger entry for any
// quantity change. Renaming onto an existing name fails with ErrDuplicateName.
func (s *Service) UpdateItem(ctx context.Context, id int64, input UpdateItemInput) (Item, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Item{}, fmt.Errorf("inventory: item name is required")
	}
	if !ValidUnit(input.Unit) {
		return Item{}, ErrInvalidUnit
	}
	if input.Quantity.Sign() < 0 {
		return Item{}, ErrInvalidQuantity
	}
	if utf8.RuneCountInString(input.Note) > MaxNoteLength {
		return Item{}, ErrNoteTooLong
	}

	var updated Item
	var delta decimal.Decimal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		current, err := tx.GetItemForUpdate(ctx, id)
		if err != nil {
			return err
		}
		updated, err = tx.UpdateItem(ctx, id, strings.TrimSpace(input.Name), input.Unit, input.Quantity)
		if err != nil {
			return err
		}
		delta = input.Quantity.Sub(current.Quantity)
		if delta.IsZero() {
			return nil
		}
		txType := TransactionTypeAdd
		if delta.Sign() < 0 {
			txType = TransactionTypeDeduct
		}
		note := input.Note
		if note == "" {
			note = "Manual quantity adjustment"
		}
		_, err = tx.InsertTransaction(ctx, Transaction{
			ItemID:   updated.ID,
			BatchID:  uuid.NewString(),
			Type:     txType,
			Quantity: delta.Abs(),
			Note:     note,
		})
		return err
	})
	if err != nil {
		return Item{}, err
	}

	if !delta.IsZero() {
		s.logMutation(ctx, "inventory manually adjusted", updated, delta)
	}
	s.afterMutation(ctx, "inventory:update", fmt.Sprintf("%d", updated.ID), 1)
	return updated, nil
}

// DeleteItem removes an item and all ledger entries referencing it in one
// unit of work, leaving no orphan rows.
func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	var name string
	var removedTx int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		item, err := tx.GetItemForUpdate(ctx, id)
		if err != nil {
			return err
		}
		name = item.Name
		removedTx, err = tx.DeleteTransactionsForItem(ctx, id)
		if err != nil {
			return err
		}
		return tx.DeleteItem(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("inventory item deleted",
		slog.Int64("item_id", id),
		slog.String("name", name),
		slog.Int64("transactions_removed", removedTx))
	s.afterMutation(ctx, "inventory:delete", fmt.Sprintf("%d", id), 1)
	return nil
}

// GetItem fetches a single item snapshot.
func (s *Service) GetItem(ctx context.Context, id int64) (Item, error) {
	if id <= 0 {
		return Item{}, NotFoundID(id)
	}
	return s.repo.GetItem(ctx, id)
}

// ListItems enumerates items under the filter contract.
func (s *Service) ListItems(ctx context.Context, filter ListFilter) ([]Item, error) {
	return s.repo.ListItems(ctx, filter)
}

func (s *Service) logMutation(ctx context.Context, msg string, item Item, delta decimal.Decimal) {
	s.logger.Info(msg,
		slog.Int64("item_id", item.ID),
		slog.String("name", item.Name),
		slog.String("quantity_delta", delta.StringFixed(2)),
		slog.String("resulting_quantity", item.Quantity.StringFixed(2)))
}

func (s *Service) afterMutation(ctx context.Context, action, entityID string, entries int) {
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   action,
			Entity:   "inventory",
			EntityID: entityID,
			Meta:     map[string]any{"entries": entries},
		})
	}
	if s.stats != nil {
		if err := s.stats.Invalidate(ctx); err != nil {
			s.logger.Warn("invalidate dashboard cache", slog.Any("error", err))
		}
	}
}
