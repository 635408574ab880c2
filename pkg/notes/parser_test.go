package notes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tritonhub/tritonhub/pkg/config"
	"github.com/tritonhub/tritonhub/pkg/domain"
)

func TestParseLines(t *testing.T) {
	t.Run("well-formed lines", func(t *testing.T) {
		raw := `CSE 110|assignment|2026-02-14|11:59 PM|high|https://lms.edu/a/1|Submit HW2 writeup
Professor Smith|announcement|null|null|medium|null|Office hours moved to Tuesday`

		got := ParseLines(raw)
		require.Len(t, got, 2)

		assert.Equal(t, "CSE 110", got[0].Source)
		assert.Equal(t, "assignment", got[0].Category)
		assert.Equal(t, "2026-02-14", got[0].EventDate)
		assert.Equal(t, "11:59 PM", got[0].EventTime)
		assert.Equal(t, "high", got[0].Urgency)
		assert.Equal(t, "https://lms.edu/a/1", got[0].Link)
		assert.Equal(t, "Submit HW2 writeup", got[0].Summary)

		assert.Equal(t, domain.EmptySentinel, got[1].EventDate)
		assert.Equal(t, domain.EmptySentinel, got[1].EventTime)
		assert.Equal(t, domain.EmptySentinel, got[1].Link)
	})

	t.Run("spam dropped", func(t *testing.T) {
		raw := `Pizza Place|spam|null|null|low|null|50% off today
CSE 110|exam|2026-03-01|null|high|null|Midterm in lecture hall`
		got := ParseLines(raw)
		require.Len(t, got, 1)
		assert.Equal(t, "exam", got[0].Category)
	})

	t.Run("malformed lines skipped", func(t *testing.T) {
		raw := `not a notification at all
too|few|columns
CSE 110|event|null|null|low|null|Guest lecture Friday`
		got := ParseLines(raw)
		require.Len(t, got, 1)
		assert.Equal(t, "Guest lecture Friday", got[0].Summary)
	})

	t.Run("summary with pipes rejoined", func(t *testing.T) {
		raw := `CSE 110|event|null|null|low|null|Review session | bring notes | room 101`
		got := ParseLines(raw)
		require.Len(t, got, 1)
		assert.Equal(t, "Review session | bring notes | room 101", got[0].Summary)
	})

	t.Run("duplicates collapse by summary", func(t *testing.T) {
		raw := `CSE 110|event|null|null|low|null|Guest lecture Friday
CSE 110|event|null|null|low|null|guest lecture friday`
		got := ParseLines(raw)
		assert.Len(t, got, 1)
	})

	t.Run("defaults for invalid fields", func(t *testing.T) {
		raw := `null|party|null|null|whenever|null|Something happened`
		got := ParseLines(raw)
		require.Len(t, got, 1)
		assert.Equal(t, "Personal", got[0].Source)
		assert.Equal(t, "personal", got[0].Category)
		assert.Equal(t, "low", got[0].Urgency)
	})

	t.Run("empty summary dropped", func(t *testing.T) {
		raw := `CSE 110|event|null|null|low|null|null`
		assert.Empty(t, ParseLines(raw))
	})

	t.Run("comment and blank lines ignored", func(t *testing.T) {
		raw := "# header the model should not emit\n\nCSE 110|event|null|null|low|null|Seminar"
		assert.Len(t, ParseLines(raw), 1)
	})
}

func TestParser_Parse(t *testing.T) {
	now := func() time.Time { return time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC) }

	t.Run("maps completion to notifications", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)

			var req openai.ChatCompletionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "test-model", req.Model)
			require.Len(t, req.Messages, 2)
			assert.Contains(t, req.Messages[0].Content, "2026-02-10") // the anchored today

			resp := openai.ChatCompletionResponse{
				Choices: []openai.ChatCompletionChoice{{
					Message: openai.ChatCompletionMessage{
						Content: "CSE 110|assignment|2026-02-14|11:59 PM|high|null|Submit HW2",
					},
				}},
			}
			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		}))
		defer ts.Close()

		p := NewParser(config.ParserConfig{
			Endpoint: ts.URL,
			Model:    "test-model",
			Timeout:  5 * time.Second,
		}, now)

		got, err := p.Parse(context.Background(), "forwarded email text")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Submit HW2", got[0].Summary)
	})

	t.Run("blank input short-circuits", func(t *testing.T) {
		p := NewParser(config.ParserConfig{Endpoint: "http://127.0.0.1:1", Timeout: time.Second}, now)
		got, err := p.Parse(context.Background(), "   ")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("upstream failure surfaces", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()

		p := NewParser(config.ParserConfig{Endpoint: ts.URL, Model: "m", Timeout: time.Second}, now)
		_, err := p.Parse(context.Background(), "text")
		require.Error(t, err)
	})
}
