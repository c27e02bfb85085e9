package language

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/avast/retry-go/v4"

	"github.com/brunobiangulo/docsense/llm"
)

// DefaultMaxChunkChars keeps each translation request well under the input
// limit of small translation models.
const DefaultMaxChunkChars = 400

// Translator translates text from source to target (ISO-639-1 codes).
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Chunk splits text into pieces of at most limit runes, breaking at the last
// whitespace inside the window when there is one.
func Chunk(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxChunkChars
	}
	runes := []rune(text)
	var chunks []string
	for len(runes) > 0 {
		if len(runes) <= limit {
			chunks = append(chunks, string(runes))
			break
		}
		cut := limit
		for i := limit; i > limit/2; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	return chunks
}

// TranslateChunked translates text chunk by chunk and joins the results with
// a single space. The first failing chunk aborts with ErrTranslation.
func TranslateChunked(ctx context.Context, t Translator, text, source, target string, limit int) (string, error) {
	chunks := Chunk(text, limit)
	out := make([]string, 0, len(chunks))
	for i, c := range chunks {
		if strings.TrimSpace(c) == "" {
			continue
		}
		translated, err := t.Translate(ctx, c, source, target)
		if err != nil {
			return "", fmt.Errorf("%w: chunk %d/%d: %v", ErrTranslation, i+1, len(chunks), err)
		}
		out = append(out, strings.TrimSpace(translated))
	}
	return strings.TrimSpace(strings.Join(out, " ")), nil
}

// LLMTranslator translates with a chat model.
type LLMTranslator struct {
	Chat llm.Provider
}

func (t *LLMTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if t.Chat == nil {
		return "", fmt.Errorf("%w: no chat provider configured", ErrTranslation)
	}
	prompt := fmt.Sprintf("Translate the following %s text to %s. Return ONLY the translation, preserving line breaks.\n\n%s",
		DisplayName(source), DisplayName(target), text)

	resp, err := t.Chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: "You are a professional translator. Output only the translated text. No explanation, no quotes."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
		MaxTokens:   2048,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslation, err)
	}
	out := llm.StripThinking(resp.Content)
	if out == "" {
		return "", fmt.Errorf("%w: empty translation", ErrTranslation)
	}
	return out, nil
}

// LibreTranslator talks to a LibreTranslate compatible HTTP service.
type LibreTranslator struct {
	BaseURL  string
	APIKey   string
	Attempts uint
	client   *http.Client
}

func NewLibreTranslator(baseURL, apiKey string) *LibreTranslator {
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}
	return &LibreTranslator{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIKey:   apiKey,
		Attempts: 3,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

func (t *LibreTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	data, err := json.Marshal(libreRequest{Q: text, Source: source, Target: target, Format: "text", APIKey: t.APIKey})
	if err != nil {
		return "", err
	}

	var out string
	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/translate", bytes.NewReader(data))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := t.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}

			var parsed libreResponse
			if jerr := json.Unmarshal(body, &parsed); jerr != nil && resp.StatusCode == http.StatusOK {
				return retry.Unrecoverable(fmt.Errorf("decoding translate response: %w", jerr))
			}
			if resp.StatusCode != http.StatusOK {
				err := fmt.Errorf("translate error %d: %s", resp.StatusCode, strings.TrimSpace(parsed.Error+" "+string(body)))
				if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
					return err
				}
				return retry.Unrecoverable(err)
			}
			out = parsed.TranslatedText
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(max(1, t.Attempts)),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslation, err)
	}
	return out, nil
}
