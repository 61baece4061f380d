package stages

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/dharsanguruparan/LoanDesk/internal/model"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"150 000 €", 150000},
		{"1,200.50", 1200.5},
		{"1.200,50", 1200.5},
		{"150,000", 150000},
		{"1200,5", 1200.5},
		{"1.200.000", 1200000},
		{"12.34", 12.34},
		{"$ 5000", 5000},
		{"-500", 0},
		{"abc", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := ParseAmount(tc.in); got != tc.want {
			t.Errorf("ParseAmount(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeFieldsDefaults(t *testing.T) {
	got := NormalizeFields(map[string]any{})
	want := model.ExtractedFields{
		Name:             model.DefaultName,
		Address:          model.DefaultAddress,
		Email:            model.DefaultEmail,
		Phone:            model.DefaultPhone,
		Description:      model.DefaultDescription,
		EmploymentStable: true,
	}
	if got != want {
		t.Fatalf("defaults mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestNormalizeFieldsAliasesAndCoercion(t *testing.T) {
	raw := map[string]any{
		"nom":                 "Marie Curie",
		"Adresse":             " 3 rue des Lilas, Lyon ",
		"montant_pret":        "200 000",
		"revenu_mensuel":      json.Number("5000"),
		"depenses_mensuelles": float64(-20),
		"emploi_stable":       "non",
		"ignored":             "x",
		"phone":               "   ",
	}
	got := NormalizeFields(raw)
	if got.Name != "Marie Curie" || got.Address != "3 rue des Lilas, Lyon" {
		t.Fatalf("text fields not mapped: %+v", got)
	}
	if got.LoanAmount != 200000 || got.MonthlyIncome != 5000 {
		t.Fatalf("amounts not coerced: %+v", got)
	}
	if got.MonthlyExpenses != 0 {
		t.Fatalf("negative expenses must clamp to 0, got %v", got.MonthlyExpenses)
	}
	if got.EmploymentStable {
		t.Fatalf("expected unstable employment")
	}
	if got.Phone != model.DefaultPhone {
		t.Fatalf("blank phone should fall back, got %q", got.Phone)
	}
}

func TestNormalizeTruncatesOriginalText(t *testing.T) {
	long := strings.Repeat("é", originalTextLimit+50)
	got := Normalize(model.ExtractedFields{OriginalText: long, LoanAmount: -1})
	if n := len([]rune(got.OriginalText)); n != originalTextLimit {
		t.Fatalf("expected %d runes, got %d", originalTextLimit, n)
	}
	if got.LoanAmount != 0 || got.Name != model.DefaultName {
		t.Fatalf("defaults not re-applied: %+v", got)
	}
}
