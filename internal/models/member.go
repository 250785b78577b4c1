package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Member struct {
	bun.BaseModel `bun:"table:members,alias:m"`
	ID            string    `bun:"id,pk" json:"id"`
	FullName      string    `bun:"full_name,notnull" json:"full_name"`
	Phone         *string   `bun:"phone" json:"phone"`
	Email         *string   `bun:"email" json:"email"`
	Notes         *string   `bun:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}
