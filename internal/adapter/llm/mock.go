package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockChatModel is a deterministic chat model for tests, evaluation and
// running without API keys.
type MockChatModel struct {
	canned []cannedReply
	err    error
}

type cannedReply struct {
	trigger string
	reply   string
}

// MockOption configures a MockChatModel.
type MockOption func(*MockChatModel)

// WithCannedReply answers reply whenever the prompt contains trigger (case-insensitive).
func WithCannedReply(trigger, reply string) MockOption {
	return func(m *MockChatModel) {
		m.canned = append(m.canned, cannedReply{trigger: strings.ToLower(trigger), reply: reply})
	}
}

// WithError makes every call fail with err.
func WithError(err error) MockOption {
	return func(m *MockChatModel) { m.err = err }
}

func NewMockChatModel(opts ...MockOption) *MockChatModel {
	m := &MockChatModel{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ model.BaseChatModel = (*MockChatModel)(nil)

// Generate returns a mock response.
func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.generateMockResponse(input), nil), nil
}

// Stream simulates streaming by sending the content in chunks.
func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	var chunks []*schema.Message
	for _, part := range splitIntoChunks(msg.Content, 10) {
		chunks = append(chunks, schema.AssistantMessage(part, nil))
	}
	return schema.StreamReaderFromArray(chunks), nil
}

var analyticsWords = []string{"count", "number", "average", "total", "budget", "sum", "metric", "how many"}

var questionPattern = regexp.MustCompile(`(?is)question:\s*(.*?)\n`)

// generateMockResponse generates a mock response based on the prompt.
func (m *MockChatModel) generateMockResponse(input []*schema.Message) string {
	var lastUserMessage string
	for i := len(input) - 1; i >= 0; i-- {
		if input[i].Role == schema.User {
			lastUserMessage = input[i].Content
			break
		}
	}
	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the chat model."
	}

	prompt := strings.ToLower(lastUserMessage)
	for _, c := range m.canned {
		if strings.Contains(prompt, c.trigger) {
			return c.reply
		}
	}

	switch {
	case strings.Contains(prompt, "answer (t2sql or rag)") || strings.Contains(prompt, "respond with only"):
		question := prompt
		if parts := strings.SplitN(prompt, "question:", 2); len(parts) == 2 {
			question = parts[1]
		}
		for _, kw := range analyticsWords {
			if strings.Contains(question, kw) {
				return "T2SQL"
			}
		}
		return "RAG"
	case strings.Contains(prompt, "```sql"):
		return mockSQL(lastUserMessage)
	}

	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100))
}

// mockSQL answers text-to-SQL prompts with a lead count.
func mockSQL(prompt string) string {
	question := ""
	if match := questionPattern.FindStringSubmatch(prompt); len(match) == 2 {
		question = strings.ToLower(match[1])
	}
	if strings.Contains(question, "connected") && !strings.Contains(question, "not connected") {
		return "```sql\nSELECT COUNT(*) AS lead_count FROM leads WHERE status = 'connected';\n```\nCounts the number of connected leads in the CRM."
	}
	return "```sql\nSELECT COUNT(*) AS lead_count FROM leads;\n```\nCounts every lead in the CRM."
}

// splitIntoChunks splits a string into chunks of approximately the given size.
func splitIntoChunks(s string, chunkSize int) []string {
	if len(s) == 0 {
		return []string{""}
	}

	var chunks []string
	for i := 0; i < len(s); i += chunkSize {
		end := i + chunkSize
		if end > len(s) {
			end = len(s)
		}
		chunks = append(chunks, s[i:end])
	}
	return chunks
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
