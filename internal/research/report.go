package research

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/webscout/orchestrator/internal/llm"
)

// NoEvidenceReport is returned verbatim when a run has nothing to cite.
const NoEvidenceReport = `# No Relevant Sources Found

I couldn't find enough relevant information to answer this question reliably.

**Suggestions:**
- Rephrase the question with more specific terms
- Break a broad question into narrower ones
- Check the spelling of names, products, or technical terms`

// ComposerConfig tunes Composer.
type ComposerConfig struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Composer turns evidence into the final cited report.
type Composer struct {
	completer llm.Completer
	injector  *CitationInjector
	cfg       ComposerConfig
	logger    *zap.Logger
}

func NewComposer(completer llm.Completer, injector *CitationInjector, cfg ComposerConfig, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if injector == nil {
		injector = NewCitationInjector(logger)
	}
	return &Composer{completer: completer, injector: injector, cfg: cfg, logger: logger}
}

// Compose writes the report. Empty evidence yields NoEvidenceReport without
// a model call. Any narrative failure is a *NarrativeGenerationError; it is
// never replaced by the no-evidence document.
func (c *Composer) Compose(ctx context.Context, question string, ev Evidence) (string, error) {
	if ev.Empty() {
		c.logger.Info("No evidence to compose from", zap.Int("sources", len(ev.Sources)))
		return NoEvidenceReport, nil
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	narrative, err := c.completer.Complete(ctx, llm.Request{
		System:      narrativeSystemPrompt,
		User:        narrativeUserPrompt(question, ev.Context),
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", &NarrativeGenerationError{Err: err}
	}
	if strings.TrimSpace(narrative) == "" {
		return "", &NarrativeGenerationError{Err: llm.ErrEmptyCompletion}
	}

	return c.injector.Inject(narrative, ev.Sources), nil
}
