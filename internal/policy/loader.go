package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadedPolicy carries a parsed policy with the digest of its source bytes.
type LoadedPolicy struct {
	Policy Policy
	Hash   string
}

// LoadPolicy reads a YAML policy. Keys absent from the file keep their
// DefaultPolicy values.
func LoadPolicy(path string) (LoadedPolicy, error) {
	// #nosec G304 -- path comes from operator configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadedPolicy{}, fmt.Errorf("read policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes raw YAML bytes into a validated policy.
func ParsePolicy(data []byte) (LoadedPolicy, error) {
	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return LoadedPolicy{}, fmt.Errorf("decode policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return LoadedPolicy{}, err
	}
	sum := sha256.Sum256(data)
	return LoadedPolicy{Policy: p, Hash: "sha256:" + hex.EncodeToString(sum[:])}, nil
}

// Validate rejects thresholds that would make the rules inconsistent.
func (p Policy) Validate() error {
	if p.RateDivisor <= 0 {
		return fmt.Errorf("rate_divisor must be positive")
	}
	if p.CriticalDebtToIncome < p.MaxDebtToIncome {
		return fmt.Errorf("critical_debt_to_income (%v) must not be below max_debt_to_income (%v)",
			p.CriticalDebtToIncome, p.MaxDebtToIncome)
	}
	if p.BaseInterestRate < 0 {
		return fmt.Errorf("base_interest_rate must not be negative")
	}
	return nil
}
