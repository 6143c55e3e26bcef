package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mimercado/marketplace/internal/logging"
)

const (
	DefaultChatModel      = "gemini-flash-latest"
	DefaultEmbeddingModel = "text-embedding-004"
	DefaultMaxTokens      = 2048
	DefaultTemperature    = 0.7

	maxRetryAttempts = 3
	requestTimeout   = 15 * time.Second
)

// FallbackMessage is what chat users see when the service stays down
// after retries. The adapter never surfaces a transport error upward.
const FallbackMessage = "Lo siento, el servicio de IA no está disponible en este momento. Por favor intenta más tarde."

var ErrUnavailable = errors.New("aiclient: service unavailable")

// Client is a REST adapter for the text generation and embedding
// endpoints. One instance is built at startup and handed to consumers;
// there is no package-level singleton.
type Client struct {
	baseURL        string
	apiKey         string
	chatModel      string
	embeddingModel string
	httpClient     *http.Client
}

func New(baseURL, apiKey, chatModel, embeddingModel string) *Client {
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (c *Client) EmbeddingModel() string {
	return c.embeddingModel
}

type generateRequest struct {
	Contents          []content       `json:"contents"`
	SystemInstruction *content        `json:"systemInstruction,omitempty"`
	GenerationConfig  *generateConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type embedRequest struct {
	Model    string  `json:"model"`
	Content  content `json:"content"`
	TaskType string  `json:"taskType,omitempty"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, raw)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// GenerateText asks the model for a completion, retrying transient
// failures. On exhaustion it returns the user-facing fallback text and
// ErrUnavailable so callers can degrade instead of failing the page.
func (c *Client) GenerateText(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generateConfig{
			MaxOutputTokens: maxTokens,
			Temperature:     temperature,
		},
	}

	l := logging.FromContext(ctx)
	var lastErr error
	for attempt := 1; attempt <= maxRetryAttempts; attempt++ {
		var resp generateResponse
		err := c.post(ctx, "/models/"+c.chatModel+":generateContent", req, &resp)
		if err == nil {
			text := extractText(resp)
			if text != "" {
				return text, nil
			}
			l.Warn("empty response from ai service", "attempt", attempt)
			return "Lo siento, no pude generar una respuesta. Por favor intenta de nuevo.", nil
		}
		lastErr = err
		l.Warn("ai generate attempt failed", "attempt", attempt, "error", err)
		if ctx.Err() != nil {
			break
		}
	}

	l.Error("ai generate failed after retries", "error", lastErr)
	return FallbackMessage, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// EmbedText returns the embedding vector for text, or ErrUnavailable
// after the retry budget. A nil vector with nil error never happens.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	req := embedRequest{
		Model:    "models/" + c.embeddingModel,
		Content:  content{Parts: []part{{Text: text}}},
		TaskType: "RETRIEVAL_DOCUMENT",
	}

	l := logging.FromContext(ctx)
	var lastErr error
	for attempt := 1; attempt <= maxRetryAttempts; attempt++ {
		var resp embedResponse
		err := c.post(ctx, "/models/"+c.embeddingModel+":embedContent", req, &resp)
		if err == nil {
			if len(resp.Embedding.Values) == 0 {
				return nil, fmt.Errorf("%w: empty embedding", ErrUnavailable)
			}
			return resp.Embedding.Values, nil
		}
		lastErr = err
		l.Warn("ai embed attempt failed", "attempt", attempt, "error", err)
		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func extractText(resp generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}
