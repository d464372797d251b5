// Package verify checks whether the change requested by a reviewer
// annotation was carried into the final document. The judgement is delegated
// to a language model; this package owns the prompt, the response contract,
// and the fallback when the model cannot be reached or answers garbage.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Status is the verifier's verdict for one annotation.
type Status string

const (
	StatusImplemented    Status = "implemented"
	StatusNotImplemented Status = "not_implemented"
	StatusPartial        Status = "partial"
	StatusUnclear        Status = "unclear"
)

// Request carries one annotation plus two context windows of text from the
// final document: a narrow window at the annotation's location and a wider
// one around it.
type Request struct {
	// SourceText is the annotation's own content, the requested change.
	SourceText string
	// LocalContext is final-document text at the annotation's location.
	LocalContext string
	// WideContext is final-document text from a larger window around it.
	WideContext string
	Page        int
}

// Check is the verifier's structured answer.
type Check struct {
	Status     Status  `json:"status"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Evidence   string  `json:"evidence"`
}

// Checker answers whether an annotation was implemented. Implementations
// must not fail the whole comparison on a single bad answer: when in doubt,
// return an unclear Check rather than an error.
type Checker interface {
	CheckAnnotation(ctx context.Context, req Request) (Check, error)
}

// Config holds the model client settings.
type Config struct {
	Model       string  `mapstructure:"model" yaml:"model" json:"model"`
	APIKey      string  `mapstructure:"api_key" yaml:"api_key" json:"-"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens" json:"max_tokens"`
}

// DefaultConfig returns the verifier defaults. The API key is always taken
// from configuration, never defaulted.
func DefaultConfig() Config {
	return Config{
		Model:       "gpt-4o-mini",
		Temperature: 0.3,
		MaxTokens:   500,
	}
}

// LLMChecker verifies annotations against a chat model.
type LLMChecker struct {
	llm   llms.Model
	model string
	cfg   Config
}

// NewLLMChecker builds a Checker backed by an OpenAI-compatible endpoint.
// Without a configured key it falls back to OPENAI_API_KEY.
func NewLLMChecker(cfg Config) (*LLMChecker, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("verify: API key not configured")
	}
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("verify: create model client: %w", err)
	}
	return &LLMChecker{llm: model, model: cfg.Model, cfg: cfg}, nil
}

// newWithModel is the injection point for tests.
func newWithModel(m llms.Model, cfg Config) *LLMChecker {
	return &LLMChecker{llm: m, model: cfg.Model, cfg: cfg}
}

const systemPrompt = `You review document revisions. Given a reviewer annotation from an annotated draft and two windows of text from the final document (one at the annotation's location, one wider around it), decide whether the requested change was implemented.

Answer with a single JSON object and nothing else:
{"status": "implemented" | "not_implemented" | "partial" | "unclear",
 "confidence": <number between 0 and 1>,
 "reasoning": "<one or two sentences>",
 "evidence": "<the final-document text that supports the verdict, or empty>"}

Use "unclear" when the contexts do not contain enough information to judge.`

// CheckAnnotation asks the model for a verdict. Transport errors and
// unparseable answers degrade to an unclear verdict with zero confidence;
// the returned error is nil in that case so one flaky call cannot sink a
// report covering hundreds of annotations.
func (c *LLMChecker) CheckAnnotation(ctx context.Context, req Request) (Check, error) {
	prompt := buildPrompt(req)

	resp, err := c.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	},
		llms.WithTemperature(c.cfg.Temperature),
		llms.WithMaxTokens(c.cfg.MaxTokens),
		llms.WithJSONMode(),
	)
	if err != nil {
		if ctx.Err() != nil {
			return Check{}, ctx.Err()
		}
		slog.Warn("annotation check failed, recording unclear verdict",
			"model", c.model, "page", req.Page, "error", err)
		return unclearCheck(fmt.Sprintf("model call failed: %v", err)), nil
	}
	if len(resp.Choices) == 0 {
		slog.Warn("annotation check returned no choices", "model", c.model, "page", req.Page)
		return unclearCheck("model returned no answer"), nil
	}

	check, err := parseCheck(resp.Choices[0].Content)
	if err != nil {
		slog.Warn("annotation check answer unparseable",
			"model", c.model, "page", req.Page, "error", err)
		return unclearCheck(fmt.Sprintf("unparseable answer: %v", err)), nil
	}
	return check, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Annotation (page %d):\n%s\n\n", req.Page+1, req.SourceText)
	fmt.Fprintf(&b, "Final-document text at the annotation's location:\n%s\n\n", req.LocalContext)
	fmt.Fprintf(&b, "Final-document text in a wider window around it:\n%s\n", req.WideContext)
	return b.String()
}

// parseCheck decodes the model's JSON answer, tolerating markdown fences and
// prose around the object.
func parseCheck(answer string) (Check, error) {
	raw := extractJSON(answer)
	if raw == "" {
		return Check{}, fmt.Errorf("no JSON object in answer")
	}

	var check Check
	if err := json.Unmarshal([]byte(raw), &check); err != nil {
		return Check{}, fmt.Errorf("decode answer: %w", err)
	}

	switch check.Status {
	case StatusImplemented, StatusNotImplemented, StatusPartial, StatusUnclear:
	default:
		return Check{}, fmt.Errorf("unknown status %q", check.Status)
	}
	if check.Confidence < 0 {
		check.Confidence = 0
	}
	if check.Confidence > 1 {
		check.Confidence = 1
	}
	return check, nil
}

// extractJSON returns the first top-level {...} object in s.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func unclearCheck(reason string) Check {
	return Check{
		Status:     StatusUnclear,
		Confidence: 0,
		Reasoning:  reason,
	}
}
