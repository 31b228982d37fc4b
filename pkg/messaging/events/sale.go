package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/medialuna/farmshop/pkg/messaging"
	"github.com/shopspring/decimal"
)

// SaleRecordedEvent is emitted after a sale and its line items have been committed.
type SaleRecordedEvent struct {
	SaleID    uuid.UUID       `json:"sale_id"`
	ClientID  uuid.UUID       `json:"client_id"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

func (s SaleRecordedEvent) Subject() string {
	return messaging.SalesSubject
}

func (s SaleRecordedEvent) Payload() ([]byte, error) {
	return json.Marshal(s)
}

// SaleVoidedEvent is emitted after a sale was deleted and its stock restored.
type SaleVoidedEvent struct {
	SaleID    uuid.UUID `json:"sale_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

func (s SaleVoidedEvent) Subject() string {
	return messaging.SalesSubject
}

func (s SaleVoidedEvent) Payload() ([]byte, error) {
	return json.Marshal(s)
}
