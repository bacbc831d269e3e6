// Package openrouter implements the outbound call gateway to the OpenRouter
// chat-completions API. Every failure is classified into an ErrorKind; the
// gateway makes exactly one attempt per invocation and never retries.
package openrouter

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

	"github.com/adimpact/chatbot/domain"
)

// maxResponseChars caps the assistant text kept from one completion,
// counted in runes so truncation never splits a multi-byte character.
const maxResponseChars = 10000

// truncationMarker is appended when a response is cut at maxResponseChars.
const truncationMarker = "...[truncated]"

// placeholderAPIKey is the unconfigured default; calls made with it fail with
// KindAuthFailed instead of being sent upstream.
const placeholderAPIKey = "sk-apikey"

// ErrorKind classifies an outbound call failure.
type ErrorKind string

const (
	KindTimeout       ErrorKind = "timeout"
	KindUnreachable   ErrorKind = "unreachable"
	KindAuthFailed    ErrorKind = "auth_failed"
	KindRateLimited   ErrorKind = "rate_limited"
	KindProviderError ErrorKind = "provider_error"
	KindEmptyResponse ErrorKind = "empty_response"
)

// CallError is a classified outbound call failure.
type CallError struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	Err        error
}

func (e *CallError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("openrouter call failed (%s) [%d]: %s", e.Kind, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("openrouter call failed (%s): %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("openrouter call failed (%s)", e.Kind)
	}
}

func (e *CallError) Unwrap() error { return e.Err }

// KindOf returns the classified kind of an outbound call error, or an empty
// kind when the error did not originate from the gateway.
func KindOf(err error) ErrorKind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// Client is the OpenRouter API client.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// NewClient creates a new OpenRouter client. The timeout bounds each
// outbound request end to end.
func NewClient(baseURL, apiKey, model string, maxTokens int, temperature float64, timeout time.Duration) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []choice `json:"choices"`
}

type choice struct {
	Index        int          `json:"index"`
	Message      *chatMessage `json:"message,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

// ChatCompletion sends the system prompt followed by the conversation turns
// and returns the assistant's reply text, trimmed and truncated to
// maxResponseChars. The turns must already include the latest user message.
func (c *Client) ChatCompletion(ctx context.Context, systemPrompt string, turns []domain.Turn) (string, error) {
	// The key may be rotated externally, so an unconfigured key is a
	// call-time failure rather than a startup error.
	if c.apiKey == "" || c.apiKey == placeholderAPIKey {
		return "", &CallError{Kind: KindAuthFailed, Err: errors.New("OpenRouter API key is not configured")}
	}

	messages := make([]chatMessage, 0, len(turns)+1)
	messages = append(messages, chatMessage{Role: string(domain.RoleSystem), Content: systemPrompt})
	for _, t := range turns {
		messages = append(messages, chatMessage{Role: string(t.Role), Content: t.Content})
	}

	body, err := json.Marshal(&chatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyTransportError(err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", &CallError{Kind: KindAuthFailed, StatusCode: resp.StatusCode, Body: string(respBody)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &CallError{Kind: KindRateLimited, StatusCode: resp.StatusCode, Body: string(respBody)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", &CallError{Kind: KindProviderError, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &CallError{Kind: KindEmptyResponse, Err: err}
	}
	if len(result.Choices) == 0 || result.Choices[0].Message == nil {
		return "", &CallError{Kind: KindEmptyResponse, Err: errors.New("no choices in response")}
	}

	text := strings.TrimSpace(result.Choices[0].Message.Content)
	if text == "" {
		return "", &CallError{Kind: KindEmptyResponse, Err: errors.New("empty assistant message")}
	}
	if utf8.RuneCountInString(text) > maxResponseChars {
		text = string([]rune(text)[:maxResponseChars]) + truncationMarker
	}
	return text, nil
}

// classifyTransportError distinguishes timeouts from connection failures.
func classifyTransportError(err error) *CallError {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &CallError{Kind: KindTimeout, Err: err}
	}
	return &CallError{Kind: KindUnreachable, Err: err}
}

// setHeaders sets common request headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", "https://adimpact.local")
	req.Header.Set("X-Title", "AdImpact Chatbot")
}
