package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/ratiodash/internal/agent/prompts"
	"github.com/seenimoa/ratiodash/internal/llm"
	"github.com/seenimoa/ratiodash/pkg/models"
)

// ErrorPrefix starts the recommendation text when the model call fails.
const ErrorPrefix = "Error generating analysis: "

// Advisor turns a ratio set into a buy/hold/sell narrative. A failed model
// call never surfaces as an error: its message becomes the narrative.
type Advisor struct {
	provider llm.LLMProvider
	opts     *llm.ChatOptions
}

// NewAdvisor creates an advisor backed by provider. opts may be nil.
func NewAdvisor(provider llm.LLMProvider, opts *llm.ChatOptions) *Advisor {
	return &Advisor{provider: provider, opts: opts}
}

// Model returns the model the advisor asks, e.g. "mistral".
func (a *Advisor) Model() string {
	if a.opts != nil && a.opts.Model != "" {
		return a.opts.Model
	}
	return a.provider.Model()
}

// Messages builds the conversation sent for a ratio set.
func (a *Advisor) Messages(set models.RatioSet) []llm.Message {
	return []llm.Message{
		llm.SystemMessage(prompts.AdvisorSystemPrompt),
		llm.UserMessage(prompts.RatioPrompt(set)),
	}
}

// Recommend returns the model's commentary on set, or the error text.
func (a *Advisor) Recommend(ctx context.Context, set models.RatioSet) string {
	log := zerolog.Ctx(ctx)
	start := time.Now()

	resp, err := a.provider.Chat(ctx, a.Messages(set), a.opts)
	if err != nil {
		log.Warn().Err(err).Str("provider", a.provider.Name()).Msg("narrative generation failed")
		return failureText(err)
	}

	log.Debug().
		Str("provider", resp.Provider).
		Str("model", resp.Model).
		Int("tokens", resp.Usage.TotalTokens).
		Dur("duration", time.Since(start)).
		Msg("narrative generated")
	return strings.TrimSpace(resp.Content)
}

// Stream is Recommend delivered piecewise. onChunk receives the text as it
// arrives; on failure it receives the error text as the final chunk. The
// returned string is the complete recommendation, i.e. the error text alone
// when the call failed part way.
func (a *Advisor) Stream(ctx context.Context, set models.RatioSet, onChunk func(string)) string {
	log := zerolog.Ctx(ctx)
	fail := func(err error) string {
		log.Warn().Err(err).Str("provider", a.provider.Name()).Msg("narrative stream failed")
		text := failureText(err)
		onChunk(text)
		return text
	}

	ch, err := a.provider.ChatStream(ctx, a.Messages(set), a.opts)
	if err != nil {
		return fail(err)
	}

	var b strings.Builder
	for chunk := range ch {
		if chunk.Err != nil {
			// Drain so the producer can exit.
			for range ch {
			}
			return fail(chunk.Err)
		}
		if chunk.Content != "" {
			b.WriteString(chunk.Content)
			onChunk(chunk.Content)
		}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return fail(llm.ErrEmptyResponse)
	}
	return text
}

func failureText(err error) string {
	return fmt.Sprintf("%s%v", ErrorPrefix, err)
}
