package stages

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dharsanguruparan/LoanDesk/internal/model"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	emailRe      = regexp.MustCompile(`[\w.+-]+@[\w-]+(?:\.[\w-]+)+`)
	// Longer labels come first so "monthly income" wins over "income".
	labelRe = regexp.MustCompile(`(?i)\b(client name|full name|name|nom du client|nom|` +
		`property address|address|adresse du bien|adresse|` +
		`e-?mail|courriel|` +
		`phone number|telephone|phone|numéro de téléphone|téléphone|tél|` +
		`requested loan amount|loan amount|montant du prêt demandé|montant du prêt|montant|amount|` +
		`monthly income|revenu mensuel|income|revenu|` +
		`monthly expenses|dépenses mensuelles|expenses|dépenses|` +
		`property description|description de la propriété|description|` +
		`employment status|employment|emploi)\s*:`)
	unstableRe = regexp.MustCompile(`(?i)\b(unemployed|unstable|temporary contract|fixed-term|probation|instable|sans emploi|intérim)\b`)
)

var labelFields = map[string]string{
	"client name": "name", "full name": "name", "name": "name", "nom du client": "name", "nom": "name",
	"property address": "address", "address": "address", "adresse du bien": "address", "adresse": "address",
	"email": "email", "e-mail": "email", "courriel": "email",
	"phone number": "phone", "telephone": "phone", "phone": "phone", "numéro de téléphone": "phone", "téléphone": "phone", "tél": "phone",
	"requested loan amount": "loan_amount", "loan amount": "loan_amount", "montant du prêt demandé": "loan_amount",
	"montant du prêt": "loan_amount", "montant": "loan_amount", "amount": "loan_amount",
	"monthly income": "monthly_income", "revenu mensuel": "monthly_income", "income": "monthly_income", "revenu": "monthly_income",
	"monthly expenses": "monthly_expenses", "dépenses mensuelles": "monthly_expenses", "expenses": "monthly_expenses", "dépenses": "monthly_expenses",
	"property description": "description", "description de la propriété": "description", "description": "description",
	"employment status": "employment_stable", "employment": "employment_stable", "emploi": "employment_stable",
}

// LocalExtractor pulls labeled fields ("Loan Amount: 200000") out of the
// application text. It stands in for the language-model extraction service.
type LocalExtractor struct{}

func NewLocalExtractor() *LocalExtractor { return &LocalExtractor{} }

// Extract never fails on content; it only honors context cancellation.
func (e *LocalExtractor) Extract(ctx context.Context, text string) (model.ExtractedFields, error) {
	if err := ctx.Err(); err != nil {
		return model.ExtractedFields{}, collaboratorError(StageExtraction, err)
	}
	clean := Preprocess(text)
	raw := extractLabeled(clean)
	if _, ok := raw["email"]; !ok {
		if m := emailRe.FindString(clean); m != "" {
			raw["email"] = m
		}
	}
	if v, ok := raw["employment_stable"].(string); ok {
		raw["employment_stable"] = !unstableRe.MatchString(v) && flag(v, true)
	} else if unstableRe.MatchString(clean) {
		raw["employment_stable"] = false
	}
	raw["original_text"] = clean
	return NormalizeFields(raw), nil
}

// Preprocess applies NFKC normalization and collapses whitespace.
func Preprocess(text string) string {
	t := norm.NFKC.String(text)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(t, " "))
}

// extractLabeled splits the text at every known label; each value runs up to
// the next label. The first occurrence of a field wins.
func extractLabeled(text string) map[string]any {
	out := make(map[string]any)
	locs := labelRe.FindAllStringSubmatchIndex(text, -1)
	for i, loc := range locs {
		label := strings.ToLower(text[loc[2]:loc[3]])
		field, ok := labelFields[label]
		if !ok {
			continue
		}
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		value := strings.Trim(strings.TrimSpace(text[loc[1]:end]), ",;")
		if value == "" {
			continue
		}
		if _, seen := out[field]; !seen {
			out[field] = value
		}
	}
	return out
}
