package risk

import (
	"math"
	"testing"
)

func baseInputs() Inputs {
	return Inputs{
		CreditScore:      85,
		PropertyValue:    300000,
		LoanAmount:       150000,
		MonthlyIncome:    7200,
		MonthlyExpenses:  1800,
		EmploymentStable: true,
	}
}

func TestAnalyzeApprovalProfile(t *testing.T) {
	got := Analyze(baseInputs())
	if got.LoanToValue != 0.5 {
		t.Fatalf("expected ltv 0.5, got %v", got.LoanToValue)
	}
	if got.DebtToIncome != 0.21 {
		t.Fatalf("expected dti 0.21, got %v", got.DebtToIncome)
	}
	if got.MonthlySavings != 5400 {
		t.Fatalf("expected savings 5400, got %v", got.MonthlySavings)
	}
	if got.EstimatedMonthlyPayment != 1500 {
		t.Fatalf("expected payment 1500, got %v", got.EstimatedMonthlyPayment)
	}
	if got.RiskScore != 77.88 {
		t.Fatalf("expected risk score 77.88, got %v", got.RiskScore)
	}
	if math.Abs(got.RawRiskScore-77.875) > 1e-9 {
		t.Fatalf("expected raw risk score 77.875, got %v", got.RawRiskScore)
	}
	if got.DefaultProbability != 22.13 {
		t.Fatalf("unexpected default probability %v", got.DefaultProbability)
	}
}

func TestAnalyzeZeroDenominatorsUseWorstCase(t *testing.T) {
	got := Analyze(Inputs{CreditScore: 50, LoanAmount: 1000})
	if got.LoanToValue != 1 {
		t.Fatalf("expected ltv 1 without property value, got %v", got.LoanToValue)
	}
	if got.DebtToIncome != 1 {
		t.Fatalf("expected dti 1 without income, got %v", got.DebtToIncome)
	}
	if got.MonthlySavings != 0 {
		t.Fatalf("expected zero savings, got %v", got.MonthlySavings)
	}
}

func TestAnalyzeNegativeSavingsClamped(t *testing.T) {
	in := baseInputs()
	in.MonthlyExpenses = in.MonthlyIncome * 2
	if got := Analyze(in); got.MonthlySavings != 0 {
		t.Fatalf("expected savings clamped to 0, got %v", got.MonthlySavings)
	}
}

func TestAnalyzeRiskScoreBounded(t *testing.T) {
	cases := []Inputs{
		{CreditScore: 0, PropertyValue: 1, LoanAmount: 1e9, MonthlyIncome: 1},
		{CreditScore: 100, PropertyValue: 1e9, LoanAmount: 0, MonthlyIncome: 1e6, EmploymentStable: true},
		{CreditScore: 250, PropertyValue: 1e6, LoanAmount: 1, MonthlyIncome: 1e6, EmploymentStable: true},
		{},
	}
	for _, in := range cases {
		got := Analyze(in)
		if got.RiskScore < 0 || got.RiskScore > 100 {
			t.Fatalf("risk score out of range for %+v: %v", in, got.RiskScore)
		}
		if got.DefaultProbability < 0 || got.DefaultProbability > 100 {
			t.Fatalf("default probability out of range for %+v: %v", in, got.DefaultProbability)
		}
	}
}

func TestAnalyzeMonotonicInCreditScore(t *testing.T) {
	in := baseInputs()
	prev := -1.0
	for score := 0.0; score <= 100; score += 5 {
		in.CreditScore = score
		got := Analyze(in).RawRiskScore
		if got < prev {
			t.Fatalf("risk score decreased at credit %v: %v < %v", score, got, prev)
		}
		prev = got
	}
}

func TestAnalyzeMonotonicInLoanToValue(t *testing.T) {
	in := baseInputs()
	prev := math.Inf(1)
	for value := 600000.0; value >= 50000; value -= 50000 {
		in.PropertyValue = value
		got := Analyze(in).RawRiskScore
		if got > prev {
			t.Fatalf("risk score increased as ltv grew (value %v): %v > %v", value, got, prev)
		}
		prev = got
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	a := Analyze(baseInputs())
	b := Analyze(baseInputs())
	if a != b {
		t.Fatalf("expected identical results, got %+v and %+v", a, b)
	}
}
