package summary

import (
	"bytes"         // Request bodies
	"context"       // Request deadlines
	"encoding/json" // Wire encoding
	"errors"        // Sentinel errors
	"fmt"           // Error wrapping
	"net/http"      // HTTP client
	"strings"       // Text handling
	"time"          // Client timeout
	"unicode/utf8"  // Rune aware truncation

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// DefaultMaxChars bounds generated summaries
const DefaultMaxChars = 280

// ErrEmptyText is returned when there is nothing to summarise
var ErrEmptyText = errors.New("nothing to summarise")

// Summarizer condenses product copy into a short summary
type Summarizer interface {
	Summarize(ctx context.Context, title, text string) (string, error)
}

// Extractive keeps leading sentences of the text up to MaxChars
type Extractive struct {
	MaxChars int
}

// Summarize returns the leading sentences that fit the budget
func (e Extractive) Summarize(_ context.Context, _ string, text string) (string, error) {
	limit := e.MaxChars
	if limit <= 0 {
		limit = DefaultMaxChars
	}
	text = strings.Join(strings.Fields(text), " ") // Collapse whitespace
	if text == "" {
		return "", ErrEmptyText
	}
	var out strings.Builder
	for _, sentence := range splitSentences(text) {
		if out.Len() > 0 && utf8.RuneCountInString(out.String())+1+utf8.RuneCountInString(sentence) > limit {
			break
		}
		if out.Len() > 0 {
			out.WriteByte(' ')
		}
		out.WriteString(sentence)
	}
	return truncate(out.String(), limit), nil
}

// splitSentences splits after '.', '!' or '?' followed by a space
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 == len(text) || text[i+1] == ' ' {
				sentences = append(sentences, strings.TrimSpace(text[start:i+1]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// truncate cuts s to at most limit runes, ending with an ellipsis when cut
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}

// OpenAI asks an OpenAI-compatible chat completions endpoint for a summary
// and falls back to Fallback when the call fails
type OpenAI struct {
	BaseURL  string
	APIKey   string
	Model    string
	MaxChars int
	Client   *http.Client
	Fallback Summarizer
}

// NewOpenAI creates a remote summarizer with an extractive fallback
func NewOpenAI(baseURL, apiKey, model string) *OpenAI {
	return &OpenAI{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIKey:   apiKey,
		Model:    model,
		MaxChars: DefaultMaxChars,
		Client:   &http.Client{Timeout: 30 * time.Second},
		Fallback: Extractive{MaxChars: DefaultMaxChars},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize calls the remote model, using the fallback on any failure
func (o *OpenAI) Summarize(ctx context.Context, title, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	out, err := o.complete(ctx, title, text)
	if err == nil {
		return out, nil
	}
	logrus.WithField("error", err.Error()).Warn("Remote summary failed, using fallback")
	if o.Fallback == nil {
		return "", err
	}
	return o.Fallback.Summarize(ctx, title, text)
}

func (o *OpenAI) complete(ctx context.Context, title, text string) (string, error) {
	limit := o.MaxChars
	if limit <= 0 {
		limit = DefaultMaxChars
	}
	payload, err := json.Marshal(chatRequest{
		Model: o.Model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf("You write product summaries for an apparel store. Reply with plain text of at most %d characters.", limit)},
			{Role: "user", Content: "Product: " + title + "\n\n" + text},
		},
		Temperature: 0.4,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("summary request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summary request: unexpected status %d", resp.StatusCode)
	}
	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("summary response: %w", err)
	}
	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return "", errors.New("summary response: no content")
	}
	return truncate(strings.TrimSpace(decoded.Choices[0].Message.Content), limit), nil
}

// New returns the remote summarizer when an API key is configured and the
// extractive one otherwise
func New(baseURL, apiKey, model string) Summarizer {
	if apiKey == "" {
		return Extractive{MaxChars: DefaultMaxChars}
	}
	return NewOpenAI(baseURL, apiKey, model)
}
