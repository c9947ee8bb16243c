// internal/classifier/classifier.go
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"jobtrack/internal/common/config"
	pipeerrors "jobtrack/internal/common/errors"
	"jobtrack/internal/common/logger"
	"jobtrack/internal/common/metrics"
	"jobtrack/internal/models"
)

var ErrClassificationFailed = errors.New("CLASSIFICATION_FAILED")

const (
	systemPrompt = "You are an AI email classifier."

	relatednessPrompt = "You are analyzing an email to determine if it is about a job application. " +
		"A job-related email includes acceptance, rejection, or an invitation to apply. " +
		"If the email is job-related, respond with the company name. " +
		"If the email is not job-related, respond with 'not job related'. No other response is allowed."

	statusPrompt = "Classify the following email into either 'acceptance', 'rejection', or 'pending'. " +
		"If the email asks for an interview or more information, classify as 'pending'. " +
		"Answer in one word only."

	notRelatedLiteral = "not job related"

	// A company name never spans lines; anything longer than this is the
	// model talking instead of answering.
	maxCompanyLen = 100
)

// Gateway is a thin typed wrapper over an OpenAI-compatible chat
// completion endpoint. Both calls block until the service responds or
// the configured timeout fires; neither is retried.
type Gateway struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  logger.Logger
}

func New(cfg config.ClassifierConfig, log logger.Logger) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Millisecond,
		},
		logger: log.WithFields(map[string]interface{}{"component": "classifier"}),
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
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
}

// ClassifyRelatedness asks whether the message is about a job
// application. It returns the company name and true, or "" and false
// for the not-related literal.
func (g *Gateway) ClassifyRelatedness(ctx context.Context, sender, content string) (string, bool, error) {
	start := time.Now()
	out, err := g.complete(ctx, relatednessPrompt, fmt.Sprintf("Sender: %s\nContent: %s", sender, content))
	metrics.ClassifierDuration.WithLabelValues("relatedness").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ClassifierCalls.WithLabelValues("relatedness", "error").Inc()
		return "", false, err
	}

	if strings.EqualFold(out, notRelatedLiteral) {
		metrics.ClassifierCalls.WithLabelValues("relatedness", "not_related").Inc()
		return "", false, nil
	}
	if out == "" || strings.ContainsAny(out, "\n\r") || len(out) > maxCompanyLen {
		metrics.ClassifierCalls.WithLabelValues("relatedness", "protocol_violation").Inc()
		return "", false, pipeerrors.NewClassificationError(
			fmt.Sprintf("relatedness output is neither a company name nor %q: %q", notRelatedLiteral, out))
	}
	metrics.ClassifierCalls.WithLabelValues("relatedness", "company").Inc()
	return out, true, nil
}

// ClassifyStatus asks for the application status. Exactly one of the
// three recognized words is valid output.
func (g *Gateway) ClassifyStatus(ctx context.Context, content string) (models.Status, error) {
	start := time.Now()
	out, err := g.complete(ctx, statusPrompt, content)
	metrics.ClassifierDuration.WithLabelValues("status").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ClassifierCalls.WithLabelValues("status", "error").Inc()
		return "", err
	}

	status, ok := models.ParseStatus(strings.ToLower(strings.TrimSuffix(out, ".")))
	if !ok {
		metrics.ClassifierCalls.WithLabelValues("status", "protocol_violation").Inc()
		return "", pipeerrors.NewClassificationError(fmt.Sprintf("status output not a recognized label: %q", out))
	}
	metrics.ClassifierCalls.WithLabelValues("status", string(status)).Inc()
	return status, nil
}

func (g *Gateway) complete(ctx context.Context, instruction, content string) (string, error) {
	reqBody := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: instruction},
			{Role: "user", Content: content},
		},
	}
	body, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrClassificationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrClassificationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrClassificationFailed, resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrClassificationFailed, err)
	}
	if len(chat.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrClassificationFailed)
	}
	return strings.TrimSpace(chat.Choices[0].Message.Content), nil
}
