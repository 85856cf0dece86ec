package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/stockledger/stockledger/internal/inventory"
)

type fakeRepo struct {
	counts      Counts
	countsCalls int
	recent      []TransactionDetail
	recentLimit int
	history     map[int64][]TransactionDetail
	items       map[int64]inventory.Item
	units       []string
	byStatus    map[inventory.StockStatus][]inventory.Item
}

func (f *fakeRepo) DashboardCounts(ctx context.Context) (Counts, error) {
	f.countsCalls++
	return f.counts, nil
}

func (f *fakeRepo) RecentTransactions(ctx context.Context, limit int) ([]TransactionDetail, error) {
	f.recentLimit = limit
	if limit < len(f.recent) {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func (f *fakeRepo) HistoryFor(ctx context.Context, itemID int64) ([]TransactionDetail, error) {
	return f.history[itemID], nil
}

func (f *fakeRepo) GetItem(ctx context.Context, id int64) (inventory.Item, error) {
	if item, ok := f.items[id]; ok {
		return item, nil
	}
	return inventory.Item{}, inventory.NotFoundID(id)
}

func (f *fakeRepo) UniqueUnits(ctx context.Context) ([]string, error) {
	return f.units, nil
}

func (f *fakeRepo) ItemsByStatus(ctx context.Context, status inventory.StockStatus) ([]inventory.Item, error) {
	return f.byStatus[status], nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newCacheWithMiniredis(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestDashboardStatsComputesAggregates(t *testing.T) {
	repo := &fakeRepo{
		counts: Counts{TotalItems: 3, TotalQuantity: "212.75", LowStockCount: 1, OutOfStockCount: 1},
		recent: []TransactionDetail{
			{ID: 9, ItemID: 1, ItemName: "Steel Rod", Type: inventory.TransactionTypeDeduct, Quantity: dec("5")},
			{ID: 8, ItemID: 2, ItemName: "Cement", Type: inventory.TransactionTypeAdd, Quantity: dec("50")},
		},
	}
	svc := NewService(nil, repo, nil, 5)

	stats, err := svc.DashboardStats(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.TotalItems)
	require.Equal(t, "212.75", stats.TotalQuantity.StringFixed(2))
	require.EqualValues(t, 1, stats.LowStockCount)
	require.EqualValues(t, 1, stats.OutOfStockCount)
	require.Len(t, stats.RecentTransactions, 2)
	require.Equal(t, 5, repo.recentLimit)
}

func TestDashboardStatsServedFromCache(t *testing.T) {
	repo := &fakeRepo{counts: Counts{TotalItems: 2, TotalQuantity: "40"}}
	cache, _ := newCacheWithMiniredis(t)
	svc := NewService(nil, repo, cache, 5)
	ctx := context.Background()

	first, err := svc.DashboardStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, repo.countsCalls)

	// Second read comes from the cache without touching the store.
	second, err := svc.DashboardStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, repo.countsCalls)
	require.Equal(t, first.TotalQuantity.StringFixed(2), second.TotalQuantity.StringFixed(2))
}

func TestDashboardStatsRecomputedAfterInvalidate(t *testing.T) {
	repo := &fakeRepo{counts: Counts{TotalItems: 2, TotalQuantity: "40"}}
	cache, _ := newCacheWithMiniredis(t)
	svc := NewService(nil, repo, cache, 5)
	ctx := context.Background()

	_, err := svc.DashboardStats(ctx)
	require.NoError(t, err)

	repo.counts = Counts{TotalItems: 3, TotalQuantity: "55.50"}
	require.NoError(t, cache.Invalidate(ctx))

	stats, err := svc.DashboardStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, repo.countsCalls)
	require.EqualValues(t, 3, stats.TotalItems)
	require.Equal(t, "55.50", stats.TotalQuantity.StringFixed(2))
}

func TestDashboardStatsWithoutCache(t *testing.T) {
	repo := &fakeRepo{counts: Counts{TotalItems: 1, TotalQuantity: "7"}}
	svc := NewService(nil, repo, nil, 5)
	ctx := context.Background()

	_, err := svc.DashboardStats(ctx)
	require.NoError(t, err)
	_, err = svc.DashboardStats(ctx)
	require.NoError(t, err)
	// A nil cache is a passthrough; every call recomputes.
	require.Equal(t, 2, repo.countsCalls)
}

func TestItemHistory(t *testing.T) {
	repo := &fakeRepo{
		items: map[int64]inventory.Item{
			7: {ID: 7, Name: "Cement", Unit: inventory.UnitKg, Quantity: dec("45")},
		},
		history: map[int64][]TransactionDetail{
			7: {
				{ID: 3, ItemID: 7, Type: inventory.TransactionTypeDeduct, Quantity: dec("5")},
				{ID: 1, ItemID: 7, Type: inventory.TransactionTypeAdd, Quantity: dec("50")},
			},
		},
	}
	svc := NewService(nil, repo, nil, 5)

	item, history, err := svc.ItemHistory(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "Cement", item.Name)
	require.Len(t, history, 2)
	require.Equal(t, "-5.00", history[0].SignedQuantity().StringFixed(2))
	require.Equal(t, "50.00", history[1].SignedQuantity().StringFixed(2))
}

func TestItemHistoryUnknownItem(t *testing.T) {
	svc := NewService(nil, &fakeRepo{items: map[int64]inventory.Item{}}, nil, 5)

	_, _, err := svc.ItemHistory(context.Background(), 404)
	var notFound *inventory.ItemNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "404", notFound.Identifier)
}

func TestRecentTransactionsLimitFallback(t *testing.T) {
	repo := &fakeRepo{recent: make([]TransactionDetail, 10)}
	svc := NewService(nil, repo, nil, 4)

	entries, err := svc.RecentTransactions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	entries, err = svc.RecentTransactions(context.Background(), 8)
	require.NoError(t, err)
	require.Len(t, entries, 8)
}

func TestStatusListings(t *testing.T) {
	repo := &fakeRepo{
		units: []string{"kg", "m"},
		byStatus: map[inventory.StockStatus][]inventory.Item{
			inventory.StockStatusLow: {{ID: 1, Name: "Steel Mesh", Quantity: dec("3")}},
			inventory.StockStatusOut: {{ID: 2, Name: "Paint", Quantity: dec("0")}},
		},
	}
	svc := NewService(nil, repo, nil, 5)
	ctx := context.Background()

	units, err := svc.UniqueUnits(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"kg", "m"}, units)

	low, err := svc.LowStockItems(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, "Steel Mesh", low[0].Name)

	out, err := svc.OutOfStockItems(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, inventory.StockStatusOut, out[0].Status())
}
