package aisvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/seekmycourse/backend/core"
)

// openAIService talks to an OpenAI-compatible chat completions API.
// Keys rotate through a pool per request; when the primary provider fails
// after all retries, the configured fallback provider is tried the same way.
type openAIService struct {
	client       *http.Client
	primary      provider
	fallback     *provider
	maxRetries   int
	retryBackoff time.Duration
	logger       core.Logger
}

type provider struct {
	baseURL string
	model   string
	keys    *core.KeyPool
}

var _ core.TextGenerator = (*openAIService)(nil)

func NewOpenAIService(logger core.Logger) *openAIService {
	conf := core.Conf.AI
	svc := &openAIService{
		client: &http.Client{Timeout: conf.Timeout},
		primary: provider{
			baseURL: conf.BaseURL,
			model:   conf.Model,
			keys:    core.NewKeyPool(conf.Keys...),
		},
		maxRetries:   conf.MaxRetries,
		retryBackoff: time.Second,
		logger:       logger,
	}
	if conf.FallbackBaseURL != "" && len(conf.FallbackKeys) > 0 {
		model := conf.FallbackModel
		if model == "" {
			model = conf.Model
		}
		svc.fallback = &provider{
			baseURL: conf.FallbackBaseURL,
			model:   model,
			keys:    core.NewKeyPool(conf.FallbackKeys...),
		}
	}
	return svc
}

func (svc *openAIService) GenerateText(ctx context.Context, prompt string) (string, error) {
	return svc.generate(ctx, prompt, nil)
}

func (svc *openAIService) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return svc.generate(ctx, prompt, map[string]string{"type": "json_object"})
}

func (svc *openAIService) generate(ctx context.Context, prompt string, responseFormat map[string]string) (string, error) {
	content, err := svc.complete(ctx, svc.primary, prompt, responseFormat)
	if err == nil {
		return content, nil
	}
	if svc.fallback == nil {
		return "", err
	}

	svc.logger.Warn(fmt.Sprintf("primary ai provider failed, trying fallback: %v", err))
	content, fbErr := svc.complete(ctx, *svc.fallback, prompt, responseFormat)
	if fbErr != nil {
		return "", errors.Wrapf(err, "fallback also failed (%v)", fbErr)
	}
	return content, nil
}

func (svc *openAIService) complete(ctx context.Context, p provider, prompt string, responseFormat map[string]string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= svc.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(svc.retryBackoff * time.Duration(attempt)):
			}
		}

		content, err := svc.completeOnce(ctx, p, prompt, responseFormat)
		if err == nil {
			return content, nil
		}
		if !retryable(err) {
			return "", err
		}
		lastErr = err
	}
	return "", errors.Wrapf(lastErr, "ai request failed after %d attempts", svc.maxRetries+1)
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
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
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// statusError marks HTTP failures so the retry loop can tell transient
// statuses (429, 5xx) from permanent ones.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ai request: http %d: %s", e.code, e.body)
}

func retryable(err error) bool {
	var serr *statusError
	if errors.As(err, &serr) {
		return serr.code == http.StatusTooManyRequests || serr.code >= http.StatusInternalServerError
	}
	// network level errors are worth a retry
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (svc *openAIService) completeOnce(ctx context.Context, p provider, prompt string, responseFormat map[string]string) (string, error) {
	key := p.keys.Next()
	if key == "" {
		return "", errors.New("ai request: no api keys configured")
	}

	body, err := json.Marshal(chatRequest{
		Model:          p.model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		ResponseFormat: responseFormat,
	})
	if err != nil {
		return "", errors.Wrap(err, "encoding ai request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "building ai request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	res, err := svc.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "sending ai request")
	}
	defer res.Body.Close()

	resBody, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return "", errors.Wrap(err, "reading ai response")
	}
	if res.StatusCode != http.StatusOK {
		return "", &statusError{code: res.StatusCode, body: string(resBody)}
	}

	var parsed chatResponse
	if err = json.Unmarshal(resBody, &parsed); err != nil {
		return "", errors.Wrap(err, "decoding ai response")
	}
	if parsed.Error != nil {
		return "", errors.Errorf("ai request: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", errors.New("ai request: empty completion")
	}
	return parsed.Choices[0].Message.Content, nil
}
