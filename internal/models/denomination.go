package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	DENOMINATION_TYPE_CASH  = "cash"
	DENOMINATION_TYPE_DUMMY = "dummy"

	DEFAULT_DUMMY_ICON  = "/icons/android.png"
	DEFAULT_DUMMY_LABEL = "Bonus"
)

type Denomination struct {
	bun.BaseModel     `bun:"table:allowed_denominations,alias:d"`
	ID                string    `bun:"id,pk" json:"id"`
	Amount            int64     `bun:"amount,notnull" json:"amount"`
	IsDummy           bool      `bun:"is_dummy,notnull" json:"is_dummy"`
	Label             *string   `bun:"label" json:"label"`
	IconURL           *string   `bun:"icon_url" json:"icon_url"`
	IsEnabledWheel    bool      `bun:"is_enabled_wheel,notnull" json:"is_enabled_wheel"`
	IsEnabledGenerate bool      `bun:"is_enabled_generate,notnull" json:"is_enabled_generate"`
	Weight            int       `bun:"weight,notnull" json:"weight"`
	Priority          int       `bun:"priority,notnull" json:"priority"`
	CreatedAt         time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt         time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Cash reports whether the row pays out real money.
func (d *Denomination) Cash() bool {
	return !d.IsDummy && d.Amount > 0
}

// Replicas is the number of wheel segments the row contributes, never below 1.
func (d *Denomination) Replicas() int {
	if d.Weight < 1 {
		return 1
	}
	return d.Weight
}

// Segment renders the row as a wheel slice.
func (d *Denomination) Segment() Segment {
	if d.Cash() {
		return CashSegment{Amount: d.Amount}
	}

	icon := IconSegment{Amount: d.Amount, Image: DEFAULT_DUMMY_ICON, Label: DEFAULT_DUMMY_LABEL}
	if d.IconURL != nil && *d.IconURL != "" {
		icon.Image = *d.IconURL
	}
	if d.Label != nil && *d.Label != "" {
		icon.Label = *d.Label
	}
	return icon
}
