package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Config is a runtime tunable stored in the database and read through the cache.
type Config struct {
	bun.BaseModel `bun:"table:config"`
	Key           string    `bun:"key,pk" json:"key"`
	Value         string    `bun:"value,notnull" json:"value"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}
