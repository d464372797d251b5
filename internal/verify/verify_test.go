package verify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	answer string
	err    error
	prompt string
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, m := range messages {
		for _, p := range m.Parts {
			if t, ok := p.(llms.TextContent); ok {
				f.prompt += t.Text + "\n"
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.answer}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.answer, f.err
}

func TestParseCheck(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		want    Check
		wantErr bool
	}{
		{
			name:   "plain object",
			answer: `{"status":"implemented","confidence":0.9,"reasoning":"text updated","evidence":"code 61545"}`,
			want:   Check{Status: StatusImplemented, Confidence: 0.9, Reasoning: "text updated", Evidence: "code 61545"},
		},
		{
			name:   "fenced object",
			answer: "```json\n{\"status\":\"partial\",\"confidence\":0.6,\"reasoning\":\"only one of two edits\",\"evidence\":\"\"}\n```",
			want:   Check{Status: StatusPartial, Confidence: 0.6, Reasoning: "only one of two edits"},
		},
		{
			name:   "prose around object",
			answer: `Here is my verdict: {"status":"not_implemented","confidence":0.8,"reasoning":"unchanged","evidence":""} Hope that helps.`,
			want:   Check{Status: StatusNotImplemented, Confidence: 0.8, Reasoning: "unchanged"},
		},
		{
			name:   "confidence clamped",
			answer: `{"status":"unclear","confidence":1.7,"reasoning":"","evidence":""}`,
			want:   Check{Status: StatusUnclear, Confidence: 1},
		},
		{
			name:   "braces inside strings",
			answer: `{"status":"implemented","confidence":0.5,"reasoning":"replaced {old} with {new}","evidence":"{new}"}`,
			want:   Check{Status: StatusImplemented, Confidence: 0.5, Reasoning: "replaced {old} with {new}", Evidence: "{new}"},
		},
		{name: "no JSON", answer: "I cannot tell.", wantErr: true},
		{name: "unknown status", answer: `{"status":"maybe","confidence":0.5}`, wantErr: true},
		{name: "truncated object", answer: `{"status":"implemented",`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCheck(tt.answer)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckAnnotation(t *testing.T) {
	req := Request{
		SourceText:   "change code 32859 to 61545",
		LocalContext: "the product code 61545 applies",
		WideContext:  "chapter two, the product code 61545 applies, see page 9",
		Page:         2,
	}

	t.Run("verdict passed through", func(t *testing.T) {
		fake := &fakeModel{answer: `{"status":"implemented","confidence":0.95,"reasoning":"code replaced","evidence":"61545"}`}
		c := newWithModel(fake, DefaultConfig())

		check, err := c.CheckAnnotation(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, StatusImplemented, check.Status)
		assert.InDelta(t, 0.95, check.Confidence, 1e-9)

		// The prompt must carry the annotation and both context windows.
		assert.Contains(t, fake.prompt, "32859 to 61545")
		assert.Contains(t, fake.prompt, "code 61545 applies")
		assert.Contains(t, fake.prompt, "chapter two")
		assert.Contains(t, fake.prompt, "page 3")
	})

	t.Run("model error degrades to unclear", func(t *testing.T) {
		c := newWithModel(&fakeModel{err: errors.New("connection refused")}, DefaultConfig())

		check, err := c.CheckAnnotation(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, StatusUnclear, check.Status)
		assert.Zero(t, check.Confidence)
		assert.Contains(t, check.Reasoning, "connection refused")
	})

	t.Run("garbage answer degrades to unclear", func(t *testing.T) {
		c := newWithModel(&fakeModel{answer: "forty-two"}, DefaultConfig())

		check, err := c.CheckAnnotation(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, StatusUnclear, check.Status)
		assert.Zero(t, check.Confidence)
	})

	t.Run("cancelled context is an error", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c := newWithModel(&fakeModel{err: context.Canceled}, DefaultConfig())

		_, err := c.CheckAnnotation(ctx, req)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewLLMCheckerRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewLLMChecker(Config{Model: "gpt-4o-mini"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "API key"))
}
