package notes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/tritonhub/tritonhub/pkg/config"
	"github.com/tritonhub/tritonhub/pkg/domain"
)

// Parser extracts structured ad-hoc notifications from pasted free text
// (forwarded emails, course announcements) using an LLM
type Parser struct {
	client *openai.Client
	config config.ParserConfig
	now    func() time.Time
}

// NewParser creates an LLM-backed notification parser. A nil clock defaults
// to time.Now; the clock anchors the "today" reference in the prompt.
func NewParser(cfg config.ParserConfig, now func() time.Time) *Parser {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}
	if now == nil {
		now = time.Now
	}
	return &Parser{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		now:    now,
	}
}

// system prompt for notification extraction; the model answers in plain text,
// one notification per line with pipe-separated columns
const systemPromptTemplate = `You are a notification parser for a college student. Today is %s.
Your job is to extract ONLY the most important academic notifications from the provided text.

1. Categorize each notification into one of: 'exam', 'assignment', 'event', 'announcement', 'personal', 'spam'.
2. If the category is 'spam' or 'scam', strictly ignore it.
3. STRICTLY IGNORE promotions, coupons, food delivery, document-sharing and social media notifications, generic newsletters, and administrative emails with no action items.
4. ONLY INCLUDE academic deadlines, important campus events, critical announcements from professors or departments, and personal messages with specific action items.
5. For each included item, extract:
   - source (e.g. 'CSE 110', 'Professor Smith', 'Personal')
   - category ('exam', 'assignment', 'event', 'announcement', 'personal')
   - event_date (YYYY-MM-DD or 'null')
   - event_time (HH:MM AM/PM, or 'null')
   - urgency (high/medium/low)
   - link (any URL present in the text, else 'null')
   - summary (1-2 sentence description)
6. Deduplicate.
7. Return plain text, one notification per line, columns separated by '|', in the order listed above. Do NOT emit markdown formatting or headers.`

// expected pipe-separated columns per response line
const columnCount = 7

// Parse sends the text to the LLM and maps each response line to a
// notification record. Lines that do not follow the column protocol are
// skipped rather than failing the whole parse.
func (p *Parser) Parse(ctx context.Context, text string) ([]domain.Notification, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.config.Model,
		Temperature: float32(p.config.Temperature),
		MaxTokens:   p.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(systemPromptTemplate, p.now().Format("2006-01-02")),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("parse notifications: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("parse notifications: empty response")
	}

	return ParseLines(resp.Choices[0].Message.Content), nil
}

// ParseLines maps the model's pipe-separated plain-text response to
// notification records: nulls become the EMPTY sentinel, spam lines and
// malformed lines are dropped, duplicates collapse by summary
func ParseLines(raw string) []domain.Notification {
	var notifications []domain.Notification
	seen := map[string]struct{}{}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "|")
		if len(parts) < columnCount {
			continue
		}
		// a summary containing '|' spills into extra columns; rejoin it
		if len(parts) > columnCount {
			parts = append(parts[:columnCount-1], strings.Join(parts[columnCount-1:], "|"))
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
			if strings.EqualFold(parts[i], "null") {
				parts[i] = ""
			}
		}

		category := strings.ToLower(parts[1])
		if strings.Contains(category, "spam") || strings.Contains(category, "scam") {
			continue
		}

		summary := parts[6]
		if summary == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(summary)]; dup {
			continue
		}
		seen[strings.ToLower(summary)] = struct{}{}

		notifications = append(notifications, domain.Notification{
			Source:    orDefault(parts[0], "Personal"),
			Category:  validCategory(category),
			EventDate: orSentinel(parts[2]),
			EventTime: orSentinel(parts[3]),
			Urgency:   validUrgency(strings.ToLower(parts[4])),
			Link:      orSentinel(parts[5]),
			Summary:   summary,
		})
	}

	return notifications
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orSentinel(s string) string {
	if s == "" {
		return domain.EmptySentinel
	}
	return s
}

func validCategory(s string) string {
	switch s {
	case "exam", "assignment", "event", "announcement", "personal":
		return s
	default:
		return "personal"
	}
}

func validUrgency(s string) string {
	switch s {
	case "high", "medium", "low":
		return s
	default:
		return "low"
	}
}
