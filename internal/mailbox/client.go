// internal/mailbox/client.go
package mailbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"jobtrack/internal/common/config"
	"jobtrack/internal/common/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Client wraps the Gmail API surface the pipeline needs: full-message
// fetch, incremental history resolution, latest-message lookup, and
// watch registration.
type Client struct {
	svc    *gmail.Service
	user   string
	label  string
	logger logger.Logger
}

// NewClient builds a Gmail client from OAuth credential files on disk.
func NewClient(ctx context.Context, cfg config.GmailConfig, log logger.Logger) (*Client, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope, gmail.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	httpClient, err := oauthClient(ctx, oauthConfig, cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return NewClientWithService(svc, cfg.User, cfg.Label, log), nil
}

// NewClientWithService wraps an already constructed service. Used by
// tests that point the service at a local endpoint.
func NewClientWithService(svc *gmail.Service, user, label string, log logger.Logger) *Client {
	return &Client{
		svc:    svc,
		user:   user,
		label:  label,
		logger: log.WithFields(map[string]interface{}{"component": "mailbox"}),
	}
}

func oauthClient(ctx context.Context, oauthConfig *oauth2.Config, tokenFile string) (*http.Client, error) {
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		tok, err = tokenFromWeb(ctx, oauthConfig)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenFile, tok); err != nil {
			return nil, err
		}
	}
	return oauthConfig.Client(ctx, tok), nil
}

func tokenFromWeb(ctx context.Context, oauthConfig *oauth2.Config) (*oauth2.Token, error) {
	authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the authorization code:\n%v\n", authURL)
	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}
	tok, err := oauthConfig.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to save oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// Watch registers the mailbox with the Pub/Sub topic so label changes
// produce notifications. Safe to call on every startup; Gmail renews
// the existing watch.
func (c *Client) Watch(ctx context.Context, topicName string) error {
	req := &gmail.WatchRequest{
		LabelIds:  []string{c.label},
		TopicName: topicName,
	}
	resp, err := c.svc.Users.Watch(c.user, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail watch request failed: %w", err)
	}
	c.logger.Info("gmail watch registered", map[string]interface{}{
		"historyId":  resp.HistoryId,
		"expiration": resp.Expiration,
	})
	return nil
}
