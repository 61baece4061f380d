// Package risk derives the financial ratios and the composite risk score the
// policy evaluator works from.
package risk

import (
	"math"

	"github.com/dharsanguruparan/LoanDesk/internal/model"
)

const (
	// paymentRate approximates the monthly repayment as a flat share of the
	// principal instead of an amortization schedule.
	paymentRate = 0.01

	creditWeight     = 0.6
	ltvWeight        = 0.2
	dtiWeight        = 0.15
	employmentWeight = 0.05
)

// Inputs are the raw values the engine consumes.
type Inputs struct {
	CreditScore      float64
	PropertyValue    float64
	LoanAmount       float64
	MonthlyIncome    float64
	MonthlyExpenses  float64
	EmploymentStable bool
}

// FromDecisionInput picks the scoring inputs out of a pipeline payload.
func FromDecisionInput(in model.DecisionInput) Inputs {
	return Inputs{
		CreditScore:      in.CreditScore,
		PropertyValue:    in.PropertyValue,
		LoanAmount:       in.LoanAmount,
		MonthlyIncome:    in.MonthlyIncome,
		MonthlyExpenses:  in.MonthlyExpenses,
		EmploymentStable: in.EmploymentStable,
	}
}

// Analyze computes the risk details for in. It has no side effects.
func Analyze(in Inputs) model.RiskDetails {
	savings := math.Max(0, in.MonthlyIncome-in.MonthlyExpenses)
	payment := in.LoanAmount * paymentRate

	dti := 1.0
	if in.MonthlyIncome > 0 {
		dti = payment / in.MonthlyIncome
	}
	ltv := 1.0
	if in.PropertyValue > 0 {
		ltv = in.LoanAmount / in.PropertyValue
	}

	stable := 0.0
	if in.EmploymentStable {
		stable = 1
	}
	score := creditWeight*(in.CreditScore/100) +
		ltvWeight*(1-ltv) +
		dtiWeight*(1-math.Min(dti, 1)) +
		employmentWeight*stable
	raw := clamp01(score) * 100

	return model.RiskDetails{
		CreditScore:             in.CreditScore,
		LoanAmount:              in.LoanAmount,
		PropertyValue:           in.PropertyValue,
		LoanToValue:             Round2(ltv),
		DebtToIncome:            Round2(dti),
		MonthlySavings:          Round2(savings),
		EstimatedMonthlyPayment: Round2(payment),
		EmploymentStable:        in.EmploymentStable,
		RiskScore:               Round2(raw),
		DefaultProbability:      Round2(100 - raw),
		RawRiskScore:            raw,
	}
}

// Round2 rounds v half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, 0), 1)
}
