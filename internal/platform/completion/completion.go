// Package completion forwards free-text questions about the oncology data
// to a hosted text-completion model.
package completion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// InstructionTemplate wraps every question. %s is replaced by the question
// text as typed.
const InstructionTemplate = `You are an Oncology Data Assistant.

STRICT RULES:
- Use only the data found in ONCOLOGY_ENCOUNTERS, PATIENT, PROVIDER, CANCER_CATALOG
- NEVER say you cannot access the tables (you CAN)
- NEVER output SQL queries
- NEVER explain how you got the answer
- ONLY output the final answer to the user concisely

User question: %s
`

// DefaultModel is used when no model is configured.
const DefaultModel = "mistral-large"

func BuildPrompt(question string) string {
	return fmt.Sprintf(InstructionTemplate, question)
}

// Completer is a synchronous request/response channel to a completion
// model.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// Assistant answers dashboard questions through a Completer.
type Assistant struct {
	completer Completer
	model     string
	logger    zerolog.Logger
}

func NewAssistant(completer Completer, model string, logger zerolog.Logger) *Assistant {
	if model == "" {
		model = DefaultModel
	}
	return &Assistant{
		completer: completer,
		model:     model,
		logger:    logger.With().Str("component", "completion").Logger(),
	}
}

// Ask sends one question and returns the model's text unmodified. A blank
// question returns immediately with asked=false and no remote call.
func (a *Assistant) Ask(ctx context.Context, question string) (answer string, asked bool, err error) {
	if strings.TrimSpace(question) == "" {
		return "", false, nil
	}

	start := time.Now()
	answer, err = a.completer.Complete(ctx, a.model, BuildPrompt(question))
	if err != nil {
		return "", true, fmt.Errorf("completion: %w", err)
	}

	a.logger.Debug().
		Str("model", a.model).
		Int("question_len", len(question)).
		Int("answer_len", len(answer)).
		Dur("latency", time.Since(start)).
		Msg("question answered")
	return answer, true, nil
}
