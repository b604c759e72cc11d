package report

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LlamaServerReporter talks to a running llama.cpp server over HTTP and
// streams the report from its OpenAI-compatible /v1/completions endpoint.
type LlamaServerReporter struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float32
	reqTimeout  time.Duration
	httpClient  *http.Client
	log         zerolog.Logger
}

// NewLlamaServerReporter constructs a server-backed reporter.
func NewLlamaServerReporter(baseURL, apiKey, model string, maxTokens int, temperature float32, reqTimeout, connectTimeout time.Duration, log zerolog.Logger) *LlamaServerReporter {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout=0: deadlines come from the request context.
	cli := &http.Client{Transport: tr, Timeout: 0}
	return &LlamaServerReporter{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		reqTimeout:  reqTimeout,
		httpClient:  cli,
		log:         log,
	}
}

// completionRequest represents the payload for /v1/completions.
type completionRequest struct {
	Model       string   `json:"model,omitempty"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float32  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Stream      bool     `json:"stream"`
}

type streamChoice struct {
	Text  string `json:"text"`
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

type streamResponse struct {
	Object  string         `json:"object"`
	Choices []streamChoice `json:"choices"`
}

func (r *LlamaServerReporter) Generate(ctx context.Context, req Request) (string, error) {
	if r.httpClient == nil {
		return "", errors.New("llama server reporter not initialized")
	}
	if r.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.reqTimeout)
		defer cancel()
	}
	var out strings.Builder
	err := r.stream(ctx, Prompt(req), func(tok string) error {
		out.WriteString(tok)
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}

func (r *LlamaServerReporter) stream(ctx context.Context, prompt string, onToken func(string) error) error {
	payload := completionRequest{
		Model:       r.model,
		Prompt:      prompt,
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
		Stop:        []string{"### User:"},
		Stream:      true,
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.New("llama server http error: " + resp.Status + ": " + string(b))
	}
	// Server-Sent Events: lines beginning with "data: ".
	br := bufio.NewReader(resp.Body)
	for {
		line, err := br.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" && strings.HasPrefix(strings.ToLower(line), "data:") {
			data := strings.TrimSpace(line[len("data:"):])
			if data == "[DONE]" {
				return nil
			}
			var msg streamResponse
			if jerr := json.Unmarshal([]byte(data), &msg); jerr == nil && len(msg.Choices) > 0 {
				frag := msg.Choices[0].Text
				if frag == "" {
					frag = msg.Choices[0].Delta.Content
				}
				if frag != "" {
					if cbErr := onToken(frag); cbErr != nil {
						return cbErr
					}
				}
			} else {
				// Native llama.cpp streams {"content": "..."} objects.
				var generic map[string]any
				if jerr := json.Unmarshal([]byte(data), &generic); jerr == nil {
					if tok, ok := generic["content"].(string); ok && tok != "" {
						if cbErr := onToken(tok); cbErr != nil {
							return cbErr
						}
					}
				} else {
					r.log.Debug().Str("line", line).Msg("unknown stream line")
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.Warn().Err(err).Msg("stream read error")
			return err
		}
	}
}
