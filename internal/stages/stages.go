// Package stages defines the collaborator boundary of the pipeline: the
// extraction, credit and property services. Remote implementations speak JSON
// over HTTP; local ones are deterministic simulations of the same services.
package stages

import (
	"context"
	"errors"
	"fmt"

	"github.com/dharsanguruparan/LoanDesk/internal/model"
)

var (
	// ErrCollaborator marks a stage call that failed or returned unusable data.
	ErrCollaborator = errors.New("collaborator failure")
	// ErrValidation marks collaborator output missing a required value that has
	// no documented default.
	ErrValidation = errors.New("invalid collaborator output")
)

// Stage names used in errors and logs.
const (
	StageExtraction = "extraction"
	StageCredit     = "credit"
	StageProperty   = "property"
)

// Extractor turns free-form application text into normalized fields.
type Extractor interface {
	Extract(ctx context.Context, text string) (model.ExtractedFields, error)
}

// CreditChecker scores the applicant.
type CreditChecker interface {
	Check(ctx context.Context, fields model.ExtractedFields) (model.CreditResult, error)
}

// PropertyEvaluator values the property offered as collateral.
type PropertyEvaluator interface {
	Evaluate(ctx context.Context, fields model.ExtractedFields) (model.PropertyResult, error)
}

// Set groups the three collaborators the pipeline calls.
type Set struct {
	Extractor Extractor
	Credit    CreditChecker
	Property  PropertyEvaluator
}

// Validate reports a missing collaborator.
func (s Set) Validate() error {
	switch {
	case s.Extractor == nil:
		return fmt.Errorf("stages: missing extractor")
	case s.Credit == nil:
		return fmt.Errorf("stages: missing credit checker")
	case s.Property == nil:
		return fmt.Errorf("stages: missing property evaluator")
	}
	return nil
}

// Local returns the in-process simulated collaborators.
func Local() Set {
	return Set{
		Extractor: NewLocalExtractor(),
		Credit:    NewLocalCreditChecker(),
		Property:  NewLocalPropertyEvaluator(),
	}
}

func collaboratorError(stage string, err error) error {
	return fmt.Errorf("%s stage: %w: %w", stage, ErrCollaborator, err)
}

func validationError(stage, msg string) error {
	return fmt.Errorf("%s stage: %w: %s", stage, ErrValidation, msg)
}
