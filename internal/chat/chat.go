// Package chat is the conversational research assistant behind POST /chat.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stock-recommender/internal/interfaces"
	"stock-recommender/internal/llm"
	"stock-recommender/internal/logger"
	"stock-recommender/internal/types"
)

var ErrEmptyConversation = errors.New("chat: conversation has no messages")

const SystemPrompt = `You are StockGPT, an expert financial analyst and stock market research assistant. Your task is to provide clear, accurate, and actionable insights about stocks, companies, sectors, and market trends.

Guidelines:
- Answer questions about financial metrics, company fundamentals, technical analysis, and market news.
- Summarize and contextualize financial news and events.
- Compare companies, sectors, or stocks using relevant data.
- Explain financial concepts in a way that's accessible to both beginners and experienced investors.
- If asked for investment advice, provide balanced, research-driven insights and always include a disclaimer that you do not provide personalized financial advice.
- Use up-to-date, factual information and cite sources if possible.
- If you do not know the answer, say so honestly.
- Format your responses clearly, using bullet points, tables, or sections when helpful.
- Always be professional, concise, and helpful.`

// Turn is one message as sent by the web client.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Service forwards conversations to the configured language model.
type Service struct {
	llm interfaces.LLM
}

func New(client interfaces.LLM) *Service {
	return &Service{llm: client}
}

// Available reports whether a real language model is configured.
func (s *Service) Available() bool {
	return llm.IsAvailable(s.llm)
}

// Reply answers the last turn of conversation. Any role other than "user" is
// treated as the assistant; blank turns are dropped.
func (s *Service) Reply(ctx context.Context, conversation []Turn) (string, error) {
	msgs := Messages(conversation)
	if len(msgs) == 0 {
		return "", ErrEmptyConversation
	}
	if !s.Available() {
		return "", llm.ErrNoProvider
	}

	out, err := s.llm.Complete(ctx, types.CompletionRequest{System: SystemPrompt, Messages: msgs})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", llm.ErrEmptyResponse
	}
	logger.Debug(ctx, "Chat reply generated", "turns", len(msgs), "chars", len(out))
	return out, nil
}

// Messages converts client turns into model messages.
func Messages(conversation []Turn) []types.Message {
	var msgs []types.Message
	for _, t := range conversation {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		role := "assistant"
		if strings.EqualFold(t.Role, "user") {
			role = "user"
		}
		msgs = append(msgs, types.Message{Role: role, Content: text})
	}
	return msgs
}
