// Package policy turns risk details into an approval decision, explanations
// and a risk-based interest rate.
package policy

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dharsanguruparan/LoanDesk/internal/model"
)

const (
	recCreditScore = "Improve your credit score by paying bills on time, reducing outstanding debts, and avoiding new credit requests."
	recLoanToValue = "Increase your down payment or consider a lower loan amount to improve your loan-to-value ratio."
	recDebtRatio   = "Try to increase your income or reduce your monthly expenses to improve your debt ratio."
	recRiskScore   = "Work on improving your financial stability and credit behavior before reapplying."
	recEmployment  = "Consider applying once your employment situation has stabilized or provide additional financial guarantees."

	reasonApproved = "Applicant meets institutional risk and policy requirements."
	recApproved    = "Maintain your strong financial profile and responsible credit behavior."
	reasonUnstable = "Employment instability detected."
)

// Decide evaluates details against DefaultPolicy.
func Decide(details model.RiskDetails) Outcome {
	return Evaluate(DefaultPolicy(), details)
}

// Evaluate applies every rule of p to details. Rules never short-circuit:
// all findings are collected even once the application is rejected.
func Evaluate(p Policy, details model.RiskDetails) Outcome {
	out := Outcome{Approved: true}
	add := func(reject bool, reason, recommendation string) {
		if reject {
			out.Approved = false
		}
		out.Reasons = append(out.Reasons, reason)
		out.Recommendations = append(out.Recommendations, recommendation)
	}

	if details.CreditScore < p.MinCreditScore {
		add(true, fmt.Sprintf("Credit score (%s) is below the minimum threshold (%s).",
			num(details.CreditScore), num(p.MinCreditScore)), recCreditScore)
	}
	if details.LoanToValue > p.MaxLoanToValue {
		add(true, fmt.Sprintf("Loan-to-Value ratio (%.2f) exceeds the acceptable limit (%s).",
			details.LoanToValue, num(p.MaxLoanToValue)), recLoanToValue)
	}
	if details.DebtToIncome > p.MaxDebtToIncome {
		// Between the two thresholds the ratio is only a warning.
		add(details.DebtToIncome > p.CriticalDebtToIncome,
			fmt.Sprintf("Debt-to-Income ratio (%.2f) is higher than the recommended maximum (%s).",
				details.DebtToIncome, num(p.MaxDebtToIncome)), recDebtRatio)
	}
	if details.RiskScore < p.MinRiskScore {
		add(true, fmt.Sprintf("Global risk score (%s) is too low, indicating a high probability of default.",
			num(details.RiskScore)), recRiskScore)
	}
	if p.RequireStableJob && !details.EmploymentStable {
		add(true, reasonUnstable, recEmployment)
	}

	if out.Approved {
		out.Reasons = append(out.Reasons, reasonApproved)
		out.Recommendations = append(out.Recommendations, recApproved)
	}
	out.InterestRate = InterestRate(p, details)
	return out
}

// InterestRate prices details under p. It does not depend on the approval
// outcome; a rejected application still gets the rate it would be offered.
func InterestRate(p Policy, details model.RiskDetails) float64 {
	score := details.RawRiskScore
	if score == 0 {
		score = details.RiskScore
	}
	divisor := p.RateDivisor
	if divisor <= 0 {
		divisor = DefaultPolicy().RateDivisor
	}
	rate := p.BaseInterestRate + (100-score)/divisor
	return math.Round(rate*100) / 100
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
