package stages

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/dharsanguruparan/LoanDesk/internal/model"
)

const originalTextLimit = 1000

// fieldAliases maps every accepted key to the canonical one. Older extraction
// services answer with French keys.
var fieldAliases = map[string]string{
	"name": "name", "nom": "name",
	"address": "address", "adresse": "address",
	"email": "email",
	"phone": "phone", "telephone": "phone",
	"loan_amount": "loan_amount", "montant_pret": "loan_amount",
	"monthly_income": "monthly_income", "revenu_mensuel": "monthly_income",
	"monthly_expenses": "monthly_expenses", "depenses_mensuelles": "monthly_expenses",
	"description": "description",
	"employment_stable": "employment_stable", "emploi_stable": "employment_stable",
	"original_text": "original_text", "texte_original": "original_text",
}

// NormalizeFields converts a loosely typed extraction payload into
// ExtractedFields. Unknown keys are ignored, missing or malformed values fall
// back to the documented defaults, and numbers are never negative.
func NormalizeFields(raw map[string]any) model.ExtractedFields {
	canon := make(map[string]any, len(raw))
	for k, v := range raw {
		if key, ok := fieldAliases[strings.ToLower(strings.TrimSpace(k))]; ok {
			canon[key] = v
		}
	}
	return model.ExtractedFields{
		Name:             textOr(canon["name"], model.DefaultName),
		Address:          textOr(canon["address"], model.DefaultAddress),
		Email:            textOr(canon["email"], model.DefaultEmail),
		Phone:            textOr(canon["phone"], model.DefaultPhone),
		LoanAmount:       amount(canon["loan_amount"]),
		MonthlyIncome:    amount(canon["monthly_income"]),
		MonthlyExpenses:  amount(canon["monthly_expenses"]),
		Description:      textOr(canon["description"], model.DefaultDescription),
		EmploymentStable: flag(canon["employment_stable"], true),
		OriginalText:     truncateRunes(textOr(canon["original_text"], ""), originalTextLimit),
	}
}

// Normalize re-applies defaults to already typed fields.
func Normalize(f model.ExtractedFields) model.ExtractedFields {
	f.Name = textOr(f.Name, model.DefaultName)
	f.Address = textOr(f.Address, model.DefaultAddress)
	f.Email = textOr(f.Email, model.DefaultEmail)
	f.Phone = textOr(f.Phone, model.DefaultPhone)
	f.Description = textOr(f.Description, model.DefaultDescription)
	f.LoanAmount = nonNegative(f.LoanAmount)
	f.MonthlyIncome = nonNegative(f.MonthlyIncome)
	f.MonthlyExpenses = nonNegative(f.MonthlyExpenses)
	f.OriginalText = truncateRunes(f.OriginalText, originalTextLimit)
	return f
}

func textOr(v any, def string) string {
	var s string
	switch t := v.(type) {
	case nil:
		return def
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	default:
		return def
	}
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

func amount(v any) float64 {
	switch t := v.(type) {
	case float64:
		return nonNegative(t)
	case int:
		return nonNegative(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return nonNegative(f)
	case string:
		return ParseAmount(t)
	default:
		return 0
	}
}

// ParseAmount reads a human-written amount such as "150 000 €", "1,200.50" or
// "1.200,50". Anything unparsable yields 0.
func ParseAmount(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0
	}
	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		// The right-most separator is the decimal one.
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		cleaned = resolveSingleSeparator(cleaned, ",")
	case lastDot >= 0:
		cleaned = resolveSingleSeparator(cleaned, ".")
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return nonNegative(f)
}

// resolveSingleSeparator decides whether sep is a decimal point ("1200,5") or
// a thousands separator ("150,000", "1.200.000").
func resolveSingleSeparator(s, sep string) string {
	parts := strings.Split(s, sep)
	if len(parts) == 2 && len(parts[1]) != 3 {
		return parts[0] + "." + parts[1]
	}
	return strings.Join(parts, "")
}

func flag(v any, def bool) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f != 0
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "oui", "1", "stable":
			return true
		case "false", "no", "n", "non", "0", "unstable", "instable":
			return false
		}
	}
	return def
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
