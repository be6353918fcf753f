package quizgen

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// scriptedModel is an llms.Model whose replies are chosen by a function of
// the user prompt and the per-prompt call count.
type scriptedModel struct {
	mu      sync.Mutex
	calls   map[string]int
	prompts []string
	reply   func(prompt string, call int) (string, error)
}

func newScriptedModel(reply func(prompt string, call int) (string, error)) *scriptedModel {
	return &scriptedModel{calls: make(map[string]int), reply: reply}
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prompt := userPrompt(messages)

	m.mu.Lock()
	m.calls[prompt]++
	call := m.calls[prompt]
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	text, err := m.reply(prompt, call)
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func (m *scriptedModel) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func userPrompt(messages []llms.MessageContent) string {
	var b strings.Builder
	for _, msg := range messages {
		if msg.Role != llms.ChatMessageTypeHuman {
			continue
		}
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				b.WriteString(text.Text)
			}
		}
	}
	return b.String()
}

// itemJSON renders one well-formed quiz object for row.
func itemJSON(row int, lang string) string {
	return fmt.Sprintf(`{"row": %d, "question": "Question %d?", "choices": ["yes", "no"], "correct_index": 0, "explanation": "", "language": %q}`, row, row, lang)
}
