package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shule-quiz-service/internal/domain"
)

// Client calls an OpenAI-compatible LLM endpoint to generate quiz content.
type Client struct {
	url    string // e.g. "https://api.openai.com" or "http://localhost:11434"
	model  string
	client *http.Client // reused across calls
	apiKey string
}

// Small models occasionally emit prose around the JSON; one retry usually fixes it.
const maxAttempts = 2

func NewClient(url, model, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		url:    strings.TrimRight(url, "/"),
		model:  model,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

// GenerateQuestions asks the model for gc.Count MCQs and decodes them into the
// agreed wire shape. The returned batch is NOT validated here; the scoring
// engine performs the all-or-nothing shape validation before anything is stored.
func (c *Client) GenerateQuestions(ctx context.Context, gc domain.GenerationContext) ([]domain.GeneratedQuestion, error) {
	prompt := questionsPrompt(gc)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		raw, err := c.chat(ctx, prompt)
		if err != nil {
			lastErr = err
			continue
		}

		jsonStr := extractJSONArray(raw)
		if jsonStr == "" {
			lastErr = &GenerateError{Reason: "no JSON array found in model response"}
			continue
		}

		var batch []domain.GeneratedQuestion
		if err := json.Unmarshal([]byte(jsonStr), &batch); err != nil {
			lastErr = &GenerateError{Reason: "invalid JSON from model", Wrapped: err}
			continue
		}
		if len(batch) == 0 {
			lastErr = &GenerateError{Reason: "model returned an empty batch"}
			continue
		}
		return batch, nil
	}

	return nil, &GenerateError{
		Reason:  fmt.Sprintf("failed after %d attempts", maxAttempts),
		Wrapped: lastErr,
	}
}

// GenerateTopicNotes returns markdown study notes. The only contract on the
// text is that it is non-empty.
func (c *Client) GenerateTopicNotes(ctx context.Context, gc domain.GenerationContext) (string, error) {
	notes, err := c.chat(ctx, notesPrompt(gc))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(notes) == "" {
		return "", &GenerateError{Reason: "model returned empty notes"}
	}
	return notes, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chat sends a single request and returns the raw text of the first choice.
func (c *Client) chat(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &GenerateError{Reason: "model request failed", Wrapped: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &GenerateError{Reason: fmt.Sprintf("model returned status %d", resp.StatusCode)}
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", &GenerateError{Reason: "failed to decode model response", Wrapped: err}
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", &GenerateError{Reason: "model returned no content"}
	}
	return chatResp.Choices[0].Message.Content, nil
}

func questionsPrompt(gc domain.GenerationContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d multiple-choice questions for %s %s, subject %s.\n", gc.Count, gc.Curriculum, gc.Level, gc.Subject)
	if gc.Topic != "" {
		fmt.Fprintf(&b, "Topic: %s.\n", gc.Topic)
	}
	if gc.Term > 0 {
		fmt.Fprintf(&b, "Term: %d.\n", gc.Term)
	}
	b.WriteString(`Respond with ONLY a JSON array, each element:
{"question": "...", "options": ["...", "...", "...", "..."], "correct_answer": "...", "explanation": "...", "difficulty": "easy|medium|hard"}
correct_answer must match one of the four options exactly.`)
	return b.String()
}

func notesPrompt(gc domain.GenerationContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write concise markdown study notes for %s %s, subject %s", gc.Curriculum, gc.Level, gc.Subject)
	if gc.Topic != "" {
		fmt.Fprintf(&b, ", topic %s", gc.Topic)
	}
	b.WriteString(". Use headings and short bullet points.")
	return b.String()
}

// extractJSONArray finds the outermost JSON array in a string, skipping
// brackets inside quoted strings.
func extractJSONArray(s string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, ch := range s {
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		if ch == '[' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == ']' {
			depth--
			if depth == 0 && start != -1 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
