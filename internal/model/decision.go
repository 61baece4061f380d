package model

// ExtractedFields is the normalized applicant and property data produced by
// the extraction stage. Numbers are never negative and text fields always
// carry a placeholder instead of an empty value.
type ExtractedFields struct {
	Name             string  `json:"name"`
	Address          string  `json:"address"`
	Email            string  `json:"email"`
	Phone            string  `json:"phone"`
	LoanAmount       float64 `json:"loan_amount"`
	MonthlyIncome    float64 `json:"monthly_income"`
	MonthlyExpenses  float64 `json:"monthly_expenses"`
	Description      string  `json:"description"`
	EmploymentStable bool    `json:"employment_stable"`
	OriginalText     string  `json:"original_text,omitempty"`
}

// Placeholders used when extraction could not find a value.
const (
	DefaultName        = "Unknown"
	DefaultAddress     = "Unspecified"
	DefaultEmail       = "unknown@email.com"
	DefaultPhone       = "N/A"
	DefaultDescription = "No description provided"
)

// CreditResult is the payload returned by the credit stage.
type CreditResult struct {
	CreditScore float64        `json:"credit_score"`
	Details     map[string]any `json:"details,omitempty"`
}

// PropertyResult is the payload returned by the property stage.
type PropertyResult struct {
	PropertyValue float64        `json:"property_value"`
	Details       map[string]any `json:"details,omitempty"`
}

// DecisionInput merges the stage outputs the decision engine consumes. The raw
// stage results ride along for auditing.
type DecisionInput struct {
	CreditScore        float64        `json:"credit_score"`
	PropertyValue      float64        `json:"property_value"`
	LoanAmount         float64        `json:"loan_amount"`
	MonthlyIncome      float64        `json:"monthly_income"`
	MonthlyExpenses    float64        `json:"monthly_expenses"`
	EmploymentStable   bool           `json:"employment_stable"`
	CreditCheck        CreditResult   `json:"credit_check"`
	PropertyEvaluation PropertyResult `json:"property_evaluation"`
}

// RiskDetails holds the derived ratios. Ratios are rounded to two decimals.
type RiskDetails struct {
	CreditScore             float64 `json:"credit_score"`
	LoanAmount              float64 `json:"loan_amount"`
	PropertyValue           float64 `json:"property_value"`
	LoanToValue             float64 `json:"loan_to_value"`
	DebtToIncome            float64 `json:"debt_to_income"`
	MonthlySavings          float64 `json:"monthly_savings"`
	EstimatedMonthlyPayment float64 `json:"estimated_monthly_payment"`
	EmploymentStable        bool    `json:"employment_stable"`
	RiskScore               float64 `json:"risk_score"`
	DefaultProbability      float64 `json:"default_probability"`
	// RawRiskScore is the unrounded score used for pricing.
	RawRiskScore float64 `json:"-"`
}

// Decision messages.
const (
	MessageApproved = "Approved"
	MessageRejected = "Rejected"
)

// Decision is the final outcome written to a RequestRecord.
type Decision struct {
	Approved        bool           `json:"approved"`
	InterestRate    float64        `json:"interest_rate"`
	LoanAmount      float64        `json:"loan_amount"`
	RiskDetails     *RiskDetails   `json:"risk_details,omitempty"`
	Reasons         []string       `json:"reasons,omitempty"`
	Recommendations []string       `json:"recommendations,omitempty"`
	Message         string         `json:"message"`
	Audit           *DecisionInput `json:"audit,omitempty"`
}

// ErrorDecision is the minimal decision persisted when the pipeline fails.
func ErrorDecision(cause string) *Decision {
	return &Decision{
		Approved: false,
		Message:  "Internal error: " + cause,
	}
}

// Clone returns a deep copy of d.
func (d *Decision) Clone() *Decision {
	if d == nil {
		return nil
	}
	out := *d
	if d.RiskDetails != nil {
		rd := *d.RiskDetails
		out.RiskDetails = &rd
	}
	out.Reasons = append([]string(nil), d.Reasons...)
	out.Recommendations = append([]string(nil), d.Recommendations...)
	if d.Audit != nil {
		audit := *d.Audit
		audit.CreditCheck.Details = cloneMap(d.Audit.CreditCheck.Details)
		audit.PropertyEvaluation.Details = cloneMap(d.Audit.PropertyEvaluation.Details)
		out.Audit = &audit
	}
	return &out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}
