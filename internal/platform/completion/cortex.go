package completion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const cortexCompletePath = "/api/v2/cortex/inference:complete"

type cortexMessage struct {
	Content string `json:"content"`
}

type cortexRequest struct {
	Model    string          `json:"model"`
	Messages []cortexMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type cortexResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type cortexError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Cortex calls the warehouse's hosted completion REST endpoint.
type Cortex struct {
	client *resty.Client
}

// NewCortex builds a client for baseURL (the account URL). Failed calls are
// not retried.
func NewCortex(baseURL, token string, timeout time.Duration) *Cortex {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return &Cortex{client: client}
}

func (c *Cortex) Complete(ctx context.Context, model, prompt string) (string, error) {
	var (
		result  cortexResponse
		failure cortexError
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(cortexRequest{
			Model:    model,
			Messages: []cortexMessage{{Content: prompt}},
			Stream:   false,
		}).
		SetResult(&result).
		SetError(&failure).
		Post(cortexCompletePath)
	if err != nil {
		return "", fmt.Errorf("cortex request: %w", err)
	}
	if resp.IsError() {
		if failure.Message != "" {
			return "", fmt.Errorf("cortex: %s (status %d)", failure.Message, resp.StatusCode())
		}
		return "", fmt.Errorf("cortex: unexpected status %d", resp.StatusCode())
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("cortex: response has no choices")
	}
	return result.Choices[0].Message.Content, nil
}
