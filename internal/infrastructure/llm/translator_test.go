package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func completionBody(content string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"content":%q}}]}`, content)
}

func TestTranslateSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionBody(`{"title_ja":"翻訳された題名","abstract_ja":"翻訳された抄録"}`)))
	}))
	defer server.Close()

	tr := NewTranslator(server.URL, "test-model", "", nil)
	out := tr.Translate(context.Background(), "Original title", "Original abstract")

	if !out.UsedTranslation {
		t.Fatalf("expected UsedTranslation=true")
	}
	if out.Title != "翻訳された題名" || out.Abstract != "翻訳された抄録" {
		t.Fatalf("unexpected translation: %+v", out)
	}
}

func TestTranslateStripsCodeFence(t *testing.T) {
	t.Parallel()

	content := "```json\n{\"title_ja\":\"題名\",\"abstract_ja\":\"抄録\"}\n```"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionBody(content)))
	}))
	defer server.Close()

	tr := NewTranslator(server.URL, "test-model", "", nil)
	out := tr.Translate(context.Background(), "t", "a")
	if !out.UsedTranslation || out.Title != "題名" {
		t.Fatalf("expected fenced JSON to be accepted, got %+v", out)
	}
}

func TestTranslateExtractsEmbeddedObject(t *testing.T) {
	t.Parallel()

	content := `Sure, here is the translation: {"title_ja":"題名","abstract_ja":"抄録"} hope that helps`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionBody(content)))
	}))
	defer server.Close()

	tr := NewTranslator(server.URL, "test-model", "", nil)
	out := tr.Translate(context.Background(), "t", "a")
	if !out.UsedTranslation || out.Abstract != "抄録" {
		t.Fatalf("expected embedded object extraction, got %+v", out)
	}
}

func TestTranslateFallbackAfterRetries(t *testing.T) {
	t.Parallel()

	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tr := NewTranslator(server.URL, "test-model", "", nil)
	tr.backoff = 0

	out := tr.Translate(context.Background(), "My title", "My abstract")
	if out.UsedTranslation {
		t.Fatalf("expected UsedTranslation=false")
	}
	if out.Title != "My title" || out.Abstract != "My abstract" {
		t.Fatalf("fallback must return the inputs unchanged, got %+v", out)
	}
	if attempts != maxAttempts {
		t.Fatalf("expected %d attempts, got %d", maxAttempts, attempts)
	}
}

func TestTranslateMissingFieldFallsBack(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionBody(`{"title_ja":"題名のみ"}`)))
	}))
	defer server.Close()

	tr := NewTranslator(server.URL, "test-model", "", nil)
	tr.backoff = 0

	out := tr.Translate(context.Background(), "t", "a")
	if out.UsedTranslation {
		t.Fatalf("object missing abstract_ja must not count as a translation")
	}
	if out.Title != "t" || out.Abstract != "a" {
		t.Fatalf("fallback must return inputs, got %+v", out)
	}
}

func TestParseTranslationJSON(t *testing.T) {
	t.Parallel()

	if _, ok := parseTranslationJSON("not json at all"); ok {
		t.Fatalf("plain text must not parse")
	}
	out, ok := parseTranslationJSON("```\n{\"title_ja\":\"x\",\"abstract_ja\":\"y\"}\n```")
	if !ok || out.TitleJa != "x" || out.AbstractJa != "y" {
		t.Fatalf("fenced object should parse, got %+v ok=%v", out, ok)
	}
}
