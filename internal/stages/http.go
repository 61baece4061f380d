package stages

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode"

	"github.com/dharsanguruparan/LoanDesk/internal/model"
)

const maxErrorBody = 1024

// remote holds what every HTTP collaborator client needs.
type remote struct {
	url    string
	client *http.Client
}

func newRemote(baseURL, path string, client *http.Client) remote {
	if client == nil {
		client = http.DefaultClient
	}
	return remote{url: strings.TrimRight(baseURL, "/") + path, client: client}
}

// HTTPExtractor calls a remote extraction service.
type HTTPExtractor struct{ remote }

// NewHTTPExtractor targets POST {baseURL}/extract.
func NewHTTPExtractor(baseURL string, client *http.Client) *HTTPExtractor {
	return &HTTPExtractor{newRemote(baseURL, "/extract", client)}
}

func (e *HTTPExtractor) Extract(ctx context.Context, text string) (model.ExtractedFields, error) {
	raw, err := e.post(ctx, StageExtraction, map[string]string{"text": text})
	if err != nil {
		return model.ExtractedFields{}, err
	}
	return NormalizeFields(raw), nil
}

// HTTPCreditChecker calls a remote credit service.
type HTTPCreditChecker struct{ remote }

// NewHTTPCreditChecker targets POST {baseURL}/credit.
func NewHTTPCreditChecker(baseURL string, client *http.Client) *HTTPCreditChecker {
	return &HTTPCreditChecker{newRemote(baseURL, "/credit", client)}
}

func (c *HTTPCreditChecker) Check(ctx context.Context, fields model.ExtractedFields) (model.CreditResult, error) {
	raw, err := c.post(ctx, StageCredit, fields)
	if err != nil {
		return model.CreditResult{}, err
	}
	score, ok := number(raw["credit_score"])
	if !ok {
		return model.CreditResult{}, validationError(StageCredit, "missing or non-numeric credit_score")
	}
	return model.CreditResult{
		CreditScore: clampScore(score),
		Details:     details(raw),
	}, nil
}

// HTTPPropertyEvaluator calls a remote property valuation service.
type HTTPPropertyEvaluator struct{ remote }

// NewHTTPPropertyEvaluator targets POST {baseURL}/property.
func NewHTTPPropertyEvaluator(baseURL string, client *http.Client) *HTTPPropertyEvaluator {
	return &HTTPPropertyEvaluator{newRemote(baseURL, "/property", client)}
}

func (p *HTTPPropertyEvaluator) Evaluate(ctx context.Context, fields model.ExtractedFields) (model.PropertyResult, error) {
	raw, err := p.post(ctx, StageProperty, fields)
	if err != nil {
		return model.PropertyResult{}, err
	}
	value, ok := number(raw["property_value"])
	if !ok {
		return model.PropertyResult{}, validationError(StageProperty, "missing or non-numeric property_value")
	}
	return model.PropertyResult{
		PropertyValue: nonNegative(value),
		Details:       details(raw),
	}, nil
}

// post sends body as JSON and decodes the JSON object answer. Transport
// failures, non-2xx answers, undecodable bodies and {"status":"error"}
// envelopes all become collaborator errors.
func (r remote) post(ctx context.Context, stage string, body any) (map[string]any, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s stage: encode request: %w", stage, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(data))
	if err != nil {
		return nil, collaboratorError(stage, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, collaboratorError(stage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, collaboratorError(stage, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, collaboratorError(stage, fmt.Errorf("decode response: %w", err))
	}
	if out == nil {
		return nil, collaboratorError(stage, errors.New("empty response"))
	}
	if status, _ := out["status"].(string); status == "error" {
		msg, _ := out["message"].(string)
		if msg == "" {
			msg = "unspecified error"
		}
		return nil, collaboratorError(stage, errors.New(msg))
	}
	return out, nil
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case string:
		if strings.IndexFunc(t, unicode.IsDigit) < 0 {
			return 0, false
		}
		return ParseAmount(t), true
	}
	return 0, false
}

func details(raw map[string]any) map[string]any {
	if d, ok := raw["details"].(map[string]any); ok {
		return d
	}
	return nil
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
