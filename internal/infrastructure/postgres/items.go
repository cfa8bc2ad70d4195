package postgres

import (
	"encoding/json"
	"fmt"

	domorder "github.com/Zhima-Mochi/kiosk-orders/internal/domain/order"
	"github.com/Zhima-Mochi/kiosk-orders/internal/domain/solicitation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// itemRow is the JSONB shape of one cart or order line.
type itemRow struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitValue   decimal.Decimal `json:"unit_value"`
	Quantity    int             `json:"quantity"`
	TotalValue  decimal.Decimal `json:"total_value"`
	Observation string          `json:"observation,omitempty"`
}

func encodeItems[T any](items []T, conv func(T) itemRow) ([]byte, error) {
	rows := make([]itemRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, conv(it))
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	return b, nil
}

func decodeItems[T any](raw []byte, conv func(itemRow) T) ([]T, error) {
	var rows []itemRow
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, conv(r))
	}
	return out, nil
}

func fromOrderItem(it domorder.Item) itemRow { return itemRow(it) }
func toOrderItem(r itemRow) domorder.Item    { return domorder.Item(r) }

func fromSolicitationItem(it solicitation.Item) itemRow { return itemRow(it) }
func toSolicitationItem(r itemRow) solicitation.Item    { return solicitation.Item(r) }

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
