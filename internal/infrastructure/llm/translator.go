// Package llm implements the translation client backed by an
// OpenAI-compatible chat-completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"RxivScanner/internal/domain"
	"RxivScanner/internal/ports"
)

const (
	temperature    = 0.2
	maxAttempts    = 2
	retryBackoff   = 1 * time.Second
	requestTimeout = 60 * time.Second

	systemPrompt = "You are a professional scientific translator. " +
		"Translate the given English title and abstract into natural, precise Japanese for researchers. " +
		"Return ONLY valid JSON with keys: title_ja, abstract_ja. No extra text."
)

var (
	fenceOpenExpr  = regexp.MustCompile("^```[a-zA-Z0-9]*\\s*")
	fenceCloseExpr = regexp.MustCompile("\\s*```$")
	objectExpr     = regexp.MustCompile(`(?s)\{.*\}`)
)

// Translator posts title/abstract pairs to the completion endpoint and
// falls back to the original text when the service cannot be used.
type Translator struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	backoff    time.Duration
}

var _ ports.Translator = (*Translator)(nil)

// NewTranslator builds a client for the configured endpoint and model.
func NewTranslator(endpoint, model, apiKey string, logger *slog.Logger) *Translator {
	return &Translator{
		endpoint:   endpoint,
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(2), 2),
		logger:     logger,
		backoff:    retryBackoff,
	}
}

type translated struct {
	TitleJa    string `json:"title_ja"`
	AbstractJa string `json:"abstract_ja"`
}

// Translate attempts the translation with bounded retry. Exhausted retries
// or an unusable response degrade to the original text: the caller never
// sees an error from here.
func (t *Translator) Translate(ctx context.Context, title, abstract string) domain.Translation {
	fallback := domain.Translation{Title: title, Abstract: abstract, UsedTranslation: false}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, err := t.attempt(ctx, title, abstract)
		if err == nil {
			return domain.Translation{
				Title:           strings.TrimSpace(out.TitleJa),
				Abstract:        strings.TrimSpace(out.AbstractJa),
				UsedTranslation: true,
			}
		}
		t.warn("translation attempt failed", "attempt", attempt, "max", maxAttempts, "error", err)
		if attempt < maxAttempts {
			select {
			case <-time.After(t.backoff):
			case <-ctx.Done():
				return fallback
			}
		}
	}

	t.warn("translation exhausted retries, falling back to original text")
	return fallback
}

func (t *Translator) attempt(ctx context.Context, title, abstract string) (translated, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return translated{}, fmt.Errorf("rate limit wait: %w", err)
	}

	user, err := json.Marshal(map[string]string{"title": title, "abstract": abstract})
	if err != nil {
		return translated{}, fmt.Errorf("marshal input: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"model": t.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": "Translate to Japanese (ja). Output strictly JSON.\n" + string(user)},
		},
		"temperature": temperature,
	})
	if err != nil {
		return translated{}, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return translated{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return translated{}, fmt.Errorf("post completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return translated{}, fmt.Errorf("completion error %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return translated{}, fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return translated{}, fmt.Errorf("completion has no choices")
	}

	out, ok := parseTranslationJSON(completion.Choices[0].Message.Content)
	if !ok {
		return translated{}, fmt.Errorf("content is not the expected JSON object")
	}
	return out, nil
}

// parseTranslationJSON strips an optional code fence, tries a direct parse,
// then falls back to the first {...} substring. Both required fields must
// be present.
func parseTranslationJSON(content string) (translated, bool) {
	content = stripCodeFence(content)

	if out, ok := decodeTranslated(content); ok {
		return out, true
	}
	if m := objectExpr.FindString(content); m != "" {
		return decodeTranslated(m)
	}
	return translated{}, false
}

func decodeTranslated(s string) (translated, bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return translated{}, false
	}
	if _, ok := raw["title_ja"]; !ok {
		return translated{}, false
	}
	if _, ok := raw["abstract_ja"]; !ok {
		return translated{}, false
	}
	var out translated
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return translated{}, false
	}
	return out, true
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = fenceOpenExpr.ReplaceAllString(s, "")
		s = fenceCloseExpr.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

func (t *Translator) warn(msg string, args ...any) {
	if t.logger != nil {
		t.logger.Warn(msg, args...)
	}
}
