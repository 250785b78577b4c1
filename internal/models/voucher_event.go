package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	VOUCHER_EVENT_CREATED   = "CREATED"
	VOUCHER_EVENT_CLAIMED   = "CLAIMED"
	VOUCHER_EVENT_PROCESSED = "PROCESSED"
)

type VoucherEvent struct {
	bun.BaseModel `bun:"table:voucher_events,alias:ve"`
	ID            string                 `bun:"id,pk" json:"id"`
	VoucherID     string                 `bun:"voucher_id,notnull" json:"voucher_id"`
	EventType     string                 `bun:"event_type,notnull" json:"event_type"`
	Meta          map[string]interface{} `bun:"meta,type:jsonb" json:"meta"`
	CreatedAt     time.Time              `bun:"created_at,notnull" json:"created_at"`
}
