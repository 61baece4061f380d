// Package pipeline runs one loan application end to end: extraction, the
// credit and property checks, risk scoring and policy evaluation. Submit is
// synchronous and owns every status transition of the request record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dharsanguruparan/LoanDesk/internal/model"
	"github.com/dharsanguruparan/LoanDesk/internal/notify"
	"github.com/dharsanguruparan/LoanDesk/internal/policy"
	"github.com/dharsanguruparan/LoanDesk/internal/risk"
	"github.com/dharsanguruparan/LoanDesk/internal/stages"
	"github.com/dharsanguruparan/LoanDesk/internal/storage"
)

// Envelope statuses.
const (
	StatusDone  = "done"
	StatusError = "error"
)

const (
	defaultStageTimeout = 10 * time.Second
	// storeTimeout bounds terminal writes, which outlive the caller's context.
	storeTimeout = 5 * time.Second
)

// Envelope is what Submit hands back to callers.
type Envelope struct {
	Status    string          `json:"status"`
	RequestID string          `json:"request_id,omitempty"`
	Decision  *model.Decision `json:"decision,omitempty"`
	Message   string          `json:"message,omitempty"`
	// Err is set when Status is StatusError.
	Err *Error `json:"-"`
}

// Archiver keeps a copy of decided records outside the request store.
type Archiver interface {
	Save(ctx context.Context, record *model.RequestRecord) error
}

// Options tune a Pipeline. Zero values pick sensible defaults.
type Options struct {
	StageTimeout time.Duration
	Policy       *policy.Policy
	Archive      Archiver
	NewID        func() string
}

// Pipeline wires the collaborators around a request store.
type Pipeline struct {
	store    storage.Store
	stages   stages.Set
	notifier notify.Notifier
	policy   policy.Policy
	archive  Archiver
	timeout  time.Duration
	newID    func() string
}

// New validates the collaborators and returns a ready Pipeline. A nil notifier
// discards notifications.
func New(store storage.Store, set stages.Set, notifier notify.Notifier, opts Options) (*Pipeline, error) {
	if store == nil {
		return nil, errors.New("pipeline: missing store")
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	p := &Pipeline{
		store:    store,
		stages:   set,
		notifier: notifier,
		policy:   policy.DefaultPolicy(),
		archive:  opts.Archive,
		timeout:  opts.StageTimeout,
		newID:    opts.NewID,
	}
	if opts.Policy != nil {
		if err := opts.Policy.Validate(); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		p.policy = *opts.Policy
	}
	if p.timeout <= 0 {
		p.timeout = defaultStageTimeout
	}
	if p.newID == nil {
		p.newID = NewRequestID
	}
	return p, nil
}

// NewRequestID returns REQ_<utc yyyymmddhhmmss>_<uuid>.
func NewRequestID() string {
	return fmt.Sprintf("REQ_%s_%s", time.Now().UTC().Format("20060102150405"), uuid.NewString())
}

// Submit evaluates text and persists the outcome. It never returns a Go error:
// every failure ends up in the envelope, and in an error record when an id was
// allocated.
func (p *Pipeline) Submit(ctx context.Context, text string) Envelope {
	id := p.newID()
	if _, err := p.store.Create(ctx, id, text); err != nil {
		perr := classify(StageStore, err)
		log.Printf("[pipeline] create %s failed: %v", id, err)
		return Envelope{Status: StatusError, Message: perr.Error(), Err: perr}
	}
	log.Printf("[pipeline] %s accepted (%d bytes)", id, len(text))

	decision, recipient, err := p.evaluate(ctx, text)
	if err != nil {
		return p.fail(ctx, id, err)
	}
	record, err := p.finish(ctx, id, decision, model.StatusDone)
	if err != nil {
		return p.fail(ctx, id, classify(StageStore, err))
	}
	log.Printf("[pipeline] %s done: %s (rate %.2f%%)", id, decision.Message, decision.InterestRate)

	p.notify(ctx, id, decision.Message, recipient)
	p.save(ctx, record)
	return Envelope{Status: StatusDone, RequestID: id, Decision: decision}
}

// Fetch returns the stored record for id. Unknown ids yield a not_found
// *Error whose message is "No request found for <id>".
func (p *Pipeline) Fetch(ctx context.Context, id string) (*model.RequestRecord, error) {
	record, err := p.store.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, classify(StageStore, err)
	}
	return record, nil
}

// evaluate runs the stages and the decision engine. It returns the decision
// and the applicant's notification address.
func (p *Pipeline) evaluate(ctx context.Context, text string) (*model.Decision, string, error) {
	var fields model.ExtractedFields
	err := p.runStage(ctx, stages.StageExtraction, func(ctx context.Context) error {
		var err error
		fields, err = p.stages.Extractor.Extract(ctx, text)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	fields = stages.Normalize(fields)

	var (
		credit   model.CreditResult
		property model.PropertyResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.runStage(gctx, stages.StageCredit, func(ctx context.Context) error {
			var err error
			credit, err = p.stages.Credit.Check(ctx, fields)
			return err
		})
	})
	g.Go(func() error {
		return p.runStage(gctx, stages.StageProperty, func(ctx context.Context) error {
			var err error
			property, err = p.stages.Property.Evaluate(ctx, fields)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	input := model.DecisionInput{
		CreditScore:        credit.CreditScore,
		PropertyValue:      property.PropertyValue,
		LoanAmount:         fields.LoanAmount,
		MonthlyIncome:      fields.MonthlyIncome,
		MonthlyExpenses:    fields.MonthlyExpenses,
		EmploymentStable:   fields.EmploymentStable,
		CreditCheck:        credit,
		PropertyEvaluation: property,
	}
	return Decide(p.policy, input), fields.Email, nil
}

// Decide runs risk analysis and the policy on input. It is pure.
func Decide(pol policy.Policy, input model.DecisionInput) *model.Decision {
	details := risk.Analyze(risk.FromDecisionInput(input))
	outcome := policy.Evaluate(pol, details)
	message := model.MessageRejected
	if outcome.Approved {
		message = model.MessageApproved
	}
	audit := input
	return &model.Decision{
		Approved:        outcome.Approved,
		InterestRate:    outcome.InterestRate,
		LoanAmount:      input.LoanAmount,
		RiskDetails:     &details,
		Reasons:         outcome.Reasons,
		Recommendations: outcome.Recommendations,
		Message:         message,
		Audit:           &audit,
	}
}

// runStage bounds one collaborator call by the stage timeout and tags its
// failure.
// A panicking collaborator is reported as a collaborator failure.
func (p *Pipeline) runStage(ctx context.Context, stage string, call func(context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[pipeline] %s stage panicked: %v", stage, r)
			err = &Error{Kind: KindCollaborator, Stage: stage, Err: fmt.Errorf("%w: %s stage panicked: %v", stages.ErrCollaborator, stage, r)}
		}
	}()
	err = call(ctx)
	if err != nil && ctx.Err() != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		err = fmt.Errorf("%w: %w", err, ctx.Err())
	}
	if err != nil {
		log.Printf("[pipeline] %s stage failed after %s: %v", stage, time.Since(start).Round(time.Millisecond), err)
		return classify(stage, err)
	}
	return nil
}

// fail records the error decision, notifies on a best-effort basis and builds
// the error envelope.
func (p *Pipeline) fail(ctx context.Context, id string, err error) Envelope {
	perr := classify(StageStore, err)
	cause := perr.Error()
	if _, uerr := p.finish(ctx, id, model.ErrorDecision(cause), model.StatusError); uerr != nil {
		log.Printf("[pipeline] %s: could not record failure: %v", id, uerr)
	}
	p.notify(ctx, id, model.ErrorDecision(cause).Message, notify.UnknownRecipient)
	log.Printf("[pipeline] %s error (%s/%s): %s", id, perr.Kind, perr.Stage, cause)
	return Envelope{Status: StatusError, RequestID: id, Message: cause, Err: perr}
}

// finish writes the terminal state of id. The write is detached from ctx so a
// caller that went away cannot leave the record in processing.
func (p *Pipeline) finish(ctx context.Context, id string, result *model.Decision, status model.RequestStatus) (*model.RequestRecord, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	return p.store.Update(ctx, id, result, status)
}

func (p *Pipeline) notify(ctx context.Context, id, message, recipient string) {
	if strings.TrimSpace(recipient) == "" {
		recipient = notify.UnknownRecipient
	}
	if err := p.notifier.Notify(context.WithoutCancel(ctx), id, message, recipient); err != nil {
		log.Printf("[pipeline] notify %s failed: %v", id, err)
	}
}

func (p *Pipeline) save(ctx context.Context, record *model.RequestRecord) {
	if p.archive == nil {
		return
	}
	if err := p.archive.Save(context.WithoutCancel(ctx), record); err != nil {
		log.Printf("[pipeline] archive %s failed: %v", record.ID, err)
	}
}
