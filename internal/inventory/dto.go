package inventory

import (
	"github.com/shopspring/decimal"
)

type addBatchRequest struct {
	Items []addEntryRequest `json:"items" validate:"required,min=1,dive"`
}

type addEntryRequest struct {
	Name     string          `json:"name" validate:"required,max=255"`
	Unit     string          `json:"unit" validate:"required,oneof=kg m cm pcs ltr box"`
	Quantity decimal.Decimal `json:"quantity"`
	Note     string          `json:"note,omitempty" validate:"max=500"`
}

type deductBatchRequest struct {
	Deductions []deductEntryRequest `json:"deductions" validate:"required,min=1,dive"`
}

type deductEntryRequest struct {
	ItemID   int64           `json:"item_id" validate:"required,gt=0"`
	Quantity decimal.Decimal `json:"quantity"`
	Note     string          `json:"note,omitempty" validate:"max=500"`
}

type updateItemRequest struct {
	Name     string          `json:"name" validate:"required,max=255"`
	Unit     string          `json:"unit" validate:"required,oneof=kg m cm pcs ltr box"`
	Quantity decimal.Decimal `json:"quantity"`
	Note     string          `json:"note,omitempty" validate:"max=500"`
}

// itemResponse decorates an item snapshot with its derived status.
type itemResponse struct {
	Item
	Status StockStatus `json:"status"`
}

func toItemResponse(item Item) itemResponse {
	return itemResponse{Item: item, Status: item.Status()}
}

func toItemResponses(items []Item) []itemResponse {
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	return out
}
