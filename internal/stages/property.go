package stages

import (
	"context"
	"math"
	"strings"

	"github.com/dharsanguruparan/LoanDesk/internal/model"
)

const otherRegion = "other"

// pricePerSquareMeter is the simulated market data per region.
var pricePerSquareMeter = map[string]float64{
	"paris":     8500,
	"lyon":      6200,
	"marseille": 4800,
	"toulouse":  4500,
	"lille":     4200,
	"nantes":    4700,
	"bordeaux":  5900,
	otherRegion: 3500,
}

var regionOrder = []string{"paris", "lyon", "marseille", "toulouse", "lille", "nantes", "bordeaux"}

var (
	goodCondition = []string{"new", "renovated", "modern", "excellent", "neuf", "rénové"}
	fairCondition = []string{"old", "needs work", "dated", "ancien", "vieux", "travaux"}
	poorCondition = []string{"dilapidated", "poor condition", "worn", "délabré", "mauvais état", "usé"}
)

// Inspection is the virtual inspection of a described property.
type Inspection struct {
	ConditionScore float64 `json:"condition_score"`
	SurfaceM2      int     `json:"estimated_surface_m2"`
}

// LegalCheck is the simulated title and litigation check.
type LegalCheck struct {
	Compliant  bool   `json:"compliant"`
	Litigation bool   `json:"litigation_pending"`
	Details    string `json:"details"`
}

// LocalPropertyEvaluator estimates the property value from its address and
// description. Randomized parts are seeded from the inputs, so the same
// application always gets the same valuation.
type LocalPropertyEvaluator struct{}

func NewLocalPropertyEvaluator() *LocalPropertyEvaluator { return &LocalPropertyEvaluator{} }

func (e *LocalPropertyEvaluator) Evaluate(ctx context.Context, fields model.ExtractedFields) (model.PropertyResult, error) {
	if err := ctx.Err(); err != nil {
		return model.PropertyResult{}, collaboratorError(StageProperty, err)
	}
	rng := seeded(fields.Address, fields.Description)
	region := Region(fields.Address)
	price := pricePerSquareMeter[region]

	desc := strings.ToLower(fields.Description)
	inspection := Inspection{ConditionScore: conditionScore(desc)}
	switch {
	case strings.Contains(desc, "apartment") || strings.Contains(desc, "flat") || strings.Contains(desc, "appartement"):
		inspection.SurfaceM2 = 40 + rng.Intn(81)
	case strings.Contains(desc, "house") || strings.Contains(desc, "maison"):
		inspection.SurfaceM2 = 80 + rng.Intn(171)
	default:
		inspection.SurfaceM2 = 60 + rng.Intn(91)
	}

	legal := LegalCheck{Compliant: true, Details: "No issue detected."}
	if rng.Float64() < 0.05 {
		legal = LegalCheck{Compliant: false, Litigation: true, Details: "Land dispute pending."}
	}
	legalFactor := 1.0
	if !legal.Compliant {
		legalFactor = 0.8
	}
	adjustment := 0.95 + rng.Float64()*0.15

	value := float64(inspection.SurfaceM2) * price * inspection.ConditionScore * legalFactor * adjustment
	return model.PropertyResult{
		PropertyValue: math.Round(value*100) / 100,
		Details: map[string]any{
			"region":             region,
			"price_per_m2":       price,
			"estimated_surface":  inspection.SurfaceM2,
			"condition_factor":   inspection.ConditionScore,
			"compliance_factor":  legalFactor,
			"adjustment_factor":  math.Round(adjustment*100) / 100,
			"legal_compliant":    legal.Compliant,
			"litigation_pending": legal.Litigation,
			"legal_details":      legal.Details,
		},
	}, nil
}

// Region picks the market region named in address.
func Region(address string) string {
	lower := strings.ToLower(address)
	for _, city := range regionOrder {
		if strings.Contains(lower, city) {
			return city
		}
	}
	return otherRegion
}

func conditionScore(desc string) float64 {
	switch {
	case containsAny(desc, goodCondition):
		return 1.2
	case containsAny(desc, fairCondition):
		return 0.9
	case containsAny(desc, poorCondition):
		return 0.7
	}
	return 1.0
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
