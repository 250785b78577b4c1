package services

import (
	"math/rand"

	"voucherwheel/internal/models"
)

// Randomizer is satisfied by *rand.Rand.
type Randomizer interface {
	Intn(n int) int
}

type globalRand struct{}

func (globalRand) Intn(n int) int {
	return rand.Intn(n)
}

// PreviewSegments lays out the idle wheel, each row repeated by its weight.
func PreviewSegments(denominations []*models.Denomination) []models.Segment {
	segments := make([]models.Segment, 0, len(denominations))
	for _, d := range denominations {
		segment := d.Segment()
		for i := 0; i < d.Replicas(); i++ {
			segments = append(segments, segment)
		}
	}
	return segments
}

// BuildWheel visualizes a prize that is already decided. The returned
// segments always contain amount at TargetIndex.
func BuildWheel(amount int64, denominations []*models.Denomination, rng Randomizer) *models.WheelConfig {
	if rng == nil {
		rng = globalRand{}
	}

	segments := PreviewSegments(denominations)
	if indexOfAmount(segments, amount) < 0 {
		if amount > 0 {
			segments = append(segments, models.CashSegment{Amount: amount})
		} else {
			segments = append(segments, models.IconSegment{Amount: amount, Image: models.DEFAULT_DUMMY_ICON, Label: models.DEFAULT_DUMMY_LABEL})
		}
	}

	// Fisher-Yates
	for i := len(segments) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		segments[i], segments[j] = segments[j], segments[i]
	}

	return &models.WheelConfig{
		Segments:    segments,
		TargetIndex: indexOfAmount(segments, amount),
		SpinMs:      SPIN_MS_MIN + rng.Intn(SPIN_MS_RANGE),
	}
}

func indexOfAmount(segments []models.Segment, amount int64) int {
	for i, s := range segments {
		if s.Value() == amount {
			return i
		}
	}
	return -1
}
