package stages

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/dharsanguruparan/LoanDesk/internal/model"
)

var paymentHistories = []string{"excellent", "good", "average", "poor"}

// BureauReport is the simulated credit bureau file for an applicant.
type BureauReport struct {
	PaymentHistory string `json:"payment_history"`
	OpenDebts      int    `json:"open_debts"`
	LatePayments   int    `json:"late_payments"`
	CreditAgeYears int    `json:"credit_age_years"`
	BureauScore    int    `json:"bureau_score"`
}

// LookupBureau returns the bureau report for name. The same name always
// yields the same report.
func LookupBureau(name string) BureauReport {
	rng := seeded(name)
	return BureauReport{
		PaymentHistory: paymentHistories[rng.Intn(len(paymentHistories))],
		OpenDebts:      rng.Intn(6),
		LatePayments:   rng.Intn(4),
		CreditAgeYears: 1 + rng.Intn(20),
		BureauScore:    400 + rng.Intn(451),
	}
}

// LocalCreditChecker scores applicants from their declared finances and a
// simulated bureau report.
type LocalCreditChecker struct {
	Bureau func(name string) BureauReport
}

func NewLocalCreditChecker() *LocalCreditChecker {
	return &LocalCreditChecker{Bureau: LookupBureau}
}

func (c *LocalCreditChecker) Check(ctx context.Context, fields model.ExtractedFields) (model.CreditResult, error) {
	if err := ctx.Err(); err != nil {
		return model.CreditResult{}, collaboratorError(StageCredit, err)
	}
	bureau := c.Bureau(fields.Name)
	score := CreditScore(fields, bureau)
	return model.CreditResult{
		CreditScore: score,
		Details: map[string]any{
			"name":              fields.Name,
			"monthly_income":    fields.MonthlyIncome,
			"monthly_expenses":  fields.MonthlyExpenses,
			"loan_amount":       fields.LoanAmount,
			"employment_stable": fields.EmploymentStable,
			"credit_bureau": map[string]any{
				"payment_history":  bureau.PaymentHistory,
				"open_debts":       bureau.OpenDebts,
				"late_payments":    bureau.LatePayments,
				"credit_age_years": bureau.CreditAgeYears,
				"bureau_score":     bureau.BureauScore,
			},
		},
	}, nil
}

// CreditScore blends the bureau score, the applicant's budget and the loan
// size into a 0-100 solvency score.
func CreditScore(f model.ExtractedFields, b BureauReport) float64 {
	incomeRatio := 1.0
	if f.MonthlyExpenses != 0 {
		incomeRatio = (f.MonthlyIncome - f.MonthlyExpenses) / math.Max(f.MonthlyIncome, 1)
	}
	amountRatio := f.LoanAmount / math.Max(f.MonthlyIncome*12, 1)
	bureauNorm := clampUnit(float64(b.BureauScore-400) / 450)
	history := 0.6*(1-math.Min(float64(b.LatePayments)/3, 1)) + 0.4*(1-math.Min(float64(b.OpenDebts)/5, 1))

	employment := 0.5
	if f.EmploymentStable {
		employment = 1
	}
	// Age is not collected; applicants are scored as working-age.
	const ageScore = 1.0

	score := (0.35*bureauNorm +
		0.25*clampUnit(incomeRatio) +
		0.20*clampUnit(1-amountRatio) +
		0.10*history +
		0.10*((employment+ageScore)/2)) * 100
	score = math.Min(100, math.Max(0, score*1.05))
	return math.Round(score*100) / 100
}

func seeded(parts ...string) *rand.Rand {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return rand.New(rand.NewSource(int64(h.Sum64() >> 1)))
}

func clampUnit(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
