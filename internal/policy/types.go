package policy

// Policy holds the institutional thresholds applied to every application.
type Policy struct {
	PolicyID      string `yaml:"policy_id"`
	PolicyVersion string `yaml:"policy_version"`

	MinCreditScore       float64 `yaml:"min_credit_score"`
	MaxLoanToValue       float64 `yaml:"max_loan_to_value"`
	MaxDebtToIncome      float64 `yaml:"max_debt_to_income"`
	CriticalDebtToIncome float64 `yaml:"critical_debt_to_income"`
	MinRiskScore         float64 `yaml:"min_risk_score"`
	RequireStableJob     bool    `yaml:"require_stable_employment"`

	BaseInterestRate float64 `yaml:"base_interest_rate"`
	// RateDivisor converts risk points into interest points.
	RateDivisor float64 `yaml:"rate_divisor"`
}

// DefaultPolicy returns the built-in balanced policy.
func DefaultPolicy() Policy {
	return Policy{
		PolicyID:             "loandesk-default",
		PolicyVersion:        "2025-11-01",
		MinCreditScore:       40,
		MaxLoanToValue:       0.9,
		MaxDebtToIncome:      0.5,
		CriticalDebtToIncome: 0.6,
		MinRiskScore:         35,
		RequireStableJob:     true,
		BaseInterestRate:     3.0,
		RateDivisor:          25,
	}
}

// Outcome is the result of evaluating a policy against risk details.
type Outcome struct {
	Approved        bool
	Reasons         []string
	Recommendations []string
	InterestRate    float64
}
