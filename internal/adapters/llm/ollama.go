// Package llm provides text-generation adapters implementing ports.Generator.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "mistral"
	DefaultTimeout     = 120 * time.Second

	maxErrorBody = 512
)

// OllamaGenerator calls Ollama's /api/generate without streaming.
type OllamaGenerator struct {
	baseURL string
	model   string
	timeout time.Duration
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// OllamaOption configures an OllamaGenerator.
type OllamaOption func(*OllamaGenerator)

// WithTimeout bounds each Generate call. Zero disables the bound.
func WithTimeout(d time.Duration) OllamaOption {
	return func(g *OllamaGenerator) { g.timeout = d }
}

// WithRateLimit allows rps calls per second with the given burst. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) OllamaOption {
	return func(g *OllamaGenerator) {
		if rps <= 0 {
			g.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(c *http.Client) OllamaOption {
	return func(g *OllamaGenerator) { g.client = c }
}

// WithLogger sets the logger; nil keeps the no-op default.
func WithLogger(l *zap.Logger) OllamaOption {
	return func(g *OllamaGenerator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewOllamaGenerator creates a generator for the given server and model.
func NewOllamaGenerator(baseURL, model string, opts ...OllamaOption) *OllamaGenerator {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	g := &OllamaGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		timeout: DefaultTimeout,
		client:  &http.Client{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// Generate sends the grounded prompt and returns the trimmed answer.
// Every failure is a *entities.GenerationError.
func (g *OllamaGenerator) Generate(ctx context.Context, promptContext, question string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", transportError("waiting for rate limiter", err)
		}
	}

	body, err := json.Marshal(generateRequest{
		Model:  g.model,
		Prompt: BuildPrompt(promptContext, question),
		Stream: false,
	})
	if err != nil {
		return "", &entities.GenerationError{Message: "marshaling request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", &entities.GenerationError{Message: "creating request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return "", transportError("calling ollama", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError("reading response", err)
	}

	g.logger.Debug("ollama responded",
		zap.String("model", g.model),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &entities.GenerationError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(payload),
		}
	}

	answer := gjson.GetBytes(payload, "response")
	if !gjson.ValidBytes(payload) || answer.Type != gjson.String {
		return "", &entities.GenerationError{
			StatusCode: resp.StatusCode,
			Message:    "malformed response: missing response field",
		}
	}
	return strings.TrimSpace(answer.String()), nil
}

// errorMessage prefers Ollama's {"error": "..."} body, falling back to raw text.
func errorMessage(payload []byte) string {
	if msg := gjson.GetBytes(payload, "error"); msg.Type == gjson.String {
		return msg.String()
	}
	text := strings.TrimSpace(string(payload))
	if len(text) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}

func transportError(msg string, err error) *entities.GenerationError {
	return &entities.GenerationError{
		Message: msg,
		Timeout: isTimeout(err),
		Err:     err,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// String identifies the backend in logs.
func (g *OllamaGenerator) String() string {
	return fmt.Sprintf("ollama(%s, %s)", g.baseURL, g.model)
}
