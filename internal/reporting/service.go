package reporting

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/stockledger/stockledger/internal/inventory"
)

// RepositoryPort abstracts the read-only queries used by the service.
type RepositoryPort interface {
	DashboardCounts(ctx context.Context) (Counts, error)
	RecentTransactions(ctx context.Context, limit int) ([]TransactionDetail, error)
	HistoryFor(ctx context.Context, itemID int64) ([]TransactionDetail, error)
	GetItem(ctx context.Context, id int64) (inventory.Item, error)
	UniqueUnits(ctx context.Context) ([]string, error)
	ItemsByStatus(ctx context.Context, status inventory.StockStatus) ([]inventory.Item, error)
}

// Service answers read-only reporting queries over the item store and the
// transaction log.
type Service struct {
	logger      *slog.Logger
	repo        RepositoryPort
	cache       *Cache
	recentLimit int
	group       singleflight.Group
}

// NewService builds Service. recentLimit bounds the recent-transactions
// window on the dashboard.
func NewService(logger *slog.Logger, repo RepositoryPort, cache *Cache, recentLimit int) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if recentLimit <= 0 {
		recentLimit = 5
	}
	return &Service{logger: logger, repo: repo, cache: cache, recentLimit: recentLimit}
}

// DashboardStats returns the aggregate inventory picture. Results are
// cached; concurrent recomputes collapse into a single repository pass.
func (s *Service) DashboardStats(ctx context.Context) (DashboardStats, error) {
	if stats, err := s.cache.GetDashboard(ctx); err == nil {
		return stats, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("dashboard cache read failed", slog.Any("error", err))
	}

	result, err, _ := s.group.Do(dashboardCacheKey, func() (any, error) {
		stats, err := s.computeDashboard(ctx)
		if err != nil {
			return DashboardStats{}, err
		}
		if err := s.cache.SetDashboard(ctx, stats); err != nil {
			s.logger.Warn("dashboard cache write failed", slog.Any("error", err))
		}
		return stats, nil
	})
	if err != nil {
		return DashboardStats{}, err
	}
	return result.(DashboardStats), nil
}

func (s *Service) computeDashboard(ctx context.Context) (DashboardStats, error) {
	counts, err := s.repo.DashboardCounts(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	total, err := decimal.NewFromString(counts.TotalQuantity)
	if err != nil {
		return DashboardStats{}, err
	}
	recent, err := s.repo.RecentTransactions(ctx, s.recentLimit)
	if err != nil {
		return DashboardStats{}, err
	}
	return DashboardStats{
		TotalItems:         counts.TotalItems,
		TotalQuantity:      total,
		LowStockCount:      counts.LowStockCount,
		OutOfStockCount:    counts.OutOfStockCount,
		RecentTransactions: recent,
	}, nil
}

// ItemHistory returns the full ledger of one item, newest first. Unknown
// ids fail with the ledger's not-found error.
func (s *Service) ItemHistory(ctx context.Context, itemID int64) (inventory.Item, []TransactionDetail, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return inventory.Item{}, nil, err
	}
	history, err := s.repo.HistoryFor(ctx, itemID)
	if err != nil {
		return inventory.Item{}, nil, err
	}
	return item, history, nil
}

// RecentTransactions lists the latest ledger entries across all items.
func (s *Service) RecentTransactions(ctx context.Context, limit int) ([]TransactionDetail, error) {
	if limit <= 0 {
		limit = s.recentLimit
	}
	return s.repo.RecentTransactions(ctx, limit)
}

// UniqueUnits lists the distinct units currently in use.
func (s *Service) UniqueUnits(ctx context.Context) ([]string, error) {
	return s.repo.UniqueUnits(ctx)
}

// LowStockItems enumerates items below the low-stock threshold.
func (s *Service) LowStockItems(ctx context.Context) ([]inventory.Item, error) {
	return s.repo.ItemsByStatus(ctx, inventory.StockStatusLow)
}

// OutOfStockItems enumerates items with no remaining stock.
func (s *Service) OutOfStockItems(ctx context.Context) ([]inventory.Item, error) {
	return s.repo.ItemsByStatus(ctx, inventory.StockStatusOut)
}
