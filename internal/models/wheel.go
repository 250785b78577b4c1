package models

import (
	"encoding/json"
)

const ICON_SEGMENT_SIZE = 56

// Segment is one visual slice of the prize wheel, either a CashSegment or an
// IconSegment. Value is the denomination amount the slice stands for.
type Segment interface {
	Value() int64
}

type CashSegment struct {
	Amount int64
}

func (s CashSegment) Value() int64 {
	return s.Amount
}

// MarshalJSON renders a cash slice as a bare number.
func (s CashSegment) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Amount)
}

type IconSegment struct {
	Amount int64
	Image  string
	Label  string
}

func (s IconSegment) Value() int64 {
	return s.Amount
}

func (s IconSegment) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Image string `json:"image"`
		Size  int    `json:"size"`
		Alt   string `json:"alt"`
	}{s.Image, ICON_SEGMENT_SIZE, s.Label})
}

type WheelConfig struct {
	Segments    []Segment `json:"segments"`
	TargetIndex int       `json:"targetIndex"`
	SpinMs      int       `json:"spinMs"`
}
