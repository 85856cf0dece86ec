package inventory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		quantity string
		want     StockStatus
	}{
		{"-1", StockStatusOut},
		{"0", StockStatusOut},
		{"0.00", StockStatusOut},
		{"0.01", StockStatusLow},
		{"9.99", StockStatusLow},
		{"10", StockStatusIn},
		{"10.00", StockStatusIn},
		{"150", StockStatusIn},
	}
	for _, tc := range cases {
		t.Run(tc.quantity, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(dec(tc.quantity)))
		})
	}
}

func TestLowStockThresholdBoundary(t *testing.T) {
	threshold := LowStockThreshold()
	require.Equal(t, "10.00", threshold.StringFixed(2))
	require.Equal(t, StockStatusIn, Classify(threshold))
	require.Equal(t, StockStatusLow, Classify(threshold.Sub(dec("0.01"))))
}

func TestParseStockStatus(t *testing.T) {
	status, ok := ParseStockStatus("low")
	require.True(t, ok)
	require.Equal(t, StockStatusLow, status)

	_, ok = ParseStockStatus("plenty")
	require.False(t, ok)

	_, ok = ParseStockStatus("")
	require.False(t, ok)
}

func TestValidUnit(t *testing.T) {
	for _, unit := range Units {
		require.True(t, ValidUnit(unit), unit)
	}
	require.False(t, ValidUnit("yard"))
	require.False(t, ValidUnit("KG"))
	require.False(t, ValidUnit(""))
}

func TestSignedQuantity(t *testing.T) {
	add := Transaction{Type: TransactionTypeAdd, Quantity: dec("4.50")}
	require.Equal(t, "4.50", add.SignedQuantity().StringFixed(2))

	deduct := Transaction{Type: TransactionTypeDeduct, Quantity: dec("4.50")}
	require.Equal(t, "-4.50", deduct.SignedQuantity().StringFixed(2))
}

func TestItemCanDeduct(t *testing.T) {
	item := Item{Quantity: dec("5")}
	require.True(t, item.CanDeduct(dec("5")))
	require.True(t, item.CanDeduct(dec("4.99")))
	require.False(t, item.CanDeduct(dec("5.01")))
}

func TestListFilterSanitizedSearch(t *testing.T) {
	cases := map[string]string{
		"steel":       "steel",
		"  steel  ":   "steel",
		"%steel%":     "steel",
		"st_eel":      "steel",
		"%_%_":        "",
		"100% cotton": "100 cotton",
	}
	for input, want := range cases {
		require.Equal(t, want, ListFilter{Search: input}.SanitizedSearch(), input)
	}
}

func TestListFilterSortDefaults(t *testing.T) {
	require.Equal(t, SortByName, ListFilter{}.SortColumn())
	require.Equal(t, SortByName, ListFilter{SortBy: "id; DROP TABLE items"}.SortColumn())
	require.Equal(t, SortByQuantity, ListFilter{SortBy: "quantity"}.SortColumn())
	require.Equal(t, SortByUpdatedAt, ListFilter{SortBy: "updated_at"}.SortColumn())

	require.Equal(t, "asc", ListFilter{}.SortDirection())
	require.Equal(t, "asc", ListFilter{Direction: "sideways"}.SortDirection())
	require.Equal(t, "desc", ListFilter{Direction: "desc"}.SortDirection())
	require.Equal(t, "desc", ListFilter{Direction: "DESC"}.SortDirection())
}

func TestInsufficientStockErrorMessage(t *testing.T) {
	err := &InsufficientStockError{ItemName: "Cement", Available: dec("5"), Requested: dec("10")}
	require.Contains(t, err.Error(), "Cement")
	require.Contains(t, err.Error(), "5.00")
	require.Contains(t, err.Error(), "10.00")
}
