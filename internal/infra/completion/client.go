package completion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/IA683/AstraGPT/internal/domain"
)

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL     string
	apiKey      string
	temperature float64
	httpClient  *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		temperature: 1.0,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
	}
}

type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature"`
	Stream      bool                 `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Complete relays the message history. With a non-nil onDelta the response
// is streamed and each content delta is forwarded as it arrives; the full
// reply is returned either way.
func (c *Client) Complete(ctx context.Context, model string, messages []domain.ChatMessage, onDelta func(string)) (string, error) {
	if c == nil {
		return "", errors.New("completion client is nil")
	}
	if c.baseURL == "" {
		return "", errors.New("completion base url missing")
	}
	if model == "" {
		return "", errors.New("completion model is required")
	}

	stream := onDelta != nil
	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: c.temperature,
		Stream:      stream,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("completion request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if !stream {
		var decoded chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return "", err
		}
		if len(decoded.Choices) == 0 {
			return "", errors.New("completion response missing choices")
		}
		return decoded.Choices[0].Message.Content, nil
	}
	return c.readStream(resp.Body, onDelta)
}

func (c *Client) readStream(body io.Reader, onDelta func(string)) (string, error) {
	var reply strings.Builder
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		if payload == "[DONE]" {
			break
		}
		var chunk chatChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return "", fmt.Errorf("decode stream chunk: %w", err)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == nil {
			continue
		}
		delta := *chunk.Choices[0].Delta.Content
		reply.WriteString(delta)
		onDelta(delta)
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return reply.String(), nil
}
