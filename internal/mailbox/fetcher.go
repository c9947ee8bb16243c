// internal/mailbox/fetcher.go
package mailbox

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	pipeerrors "jobtrack/internal/common/errors"
	"jobtrack/internal/models"

	"google.golang.org/api/gmail/v1"
)

var ErrFetchFailed = errors.New("FETCH_FAILED")

// dateFormat is the one expected Date header layout. Headers that do not
// match are retained verbatim rather than failing the fetch.
const dateFormat = time.RFC1123Z

// Fetch retrieves a message in full format and normalizes it. The dedup
// gate must run before this call so duplicates never cost a round trip.
func (c *Client) Fetch(ctx context.Context, id string) (models.RawMessage, error) {
	msg, err := c.svc.Users.Messages.Get(c.user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return models.RawMessage{}, pipeerrors.NewFetchError(id, fmt.Errorf("%w: %v", ErrFetchFailed, err))
	}
	if msg.Payload == nil {
		return models.RawMessage{}, pipeerrors.NewFetchError(id, fmt.Errorf("%w: message has no payload", ErrFetchFailed))
	}

	raw := models.RawMessage{
		ID:         msg.Id,
		Sender:     models.UnknownSender,
		Subject:    models.NoSubject,
		Body:       extractPlainText(msg.Payload),
		ReceivedAt: models.UnknownDate,
	}
	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "Subject":
			raw.Subject = header.Value
		case "From":
			raw.Sender = header.Value
		case "Date":
			raw.ReceivedAt = normalizeDate(header.Value)
		}
	}
	return raw, nil
}

// normalizeDate parses the Date header against the fixed expected
// format and keeps the raw header text on failure.
func normalizeDate(value string) string {
	if parsed, err := time.Parse(dateFormat, value); err == nil {
		return parsed.Format(dateFormat)
	}
	return value
}

// extractPlainText returns the first text/plain part's decoded body, or
// the unavailable sentinel when no part qualifies.
func extractPlainText(payload *gmail.MessagePart) string {
	if body := findPlainTextPart(payload); body != "" {
		return body
	}
	return models.NoBody
}

func findPlainTextPart(part *gmail.MessagePart) string {
	if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
			return string(data)
		}
		// Gmail occasionally omits padding.
		if data, err := base64.RawURLEncoding.DecodeString(part.Body.Data); err == nil {
			return string(data)
		}
		return ""
	}
	for _, sub := range part.Parts {
		if body := findPlainTextPart(sub); body != "" {
			return body
		}
	}
	return ""
}

// History resolves a position marker to the message IDs added to the
// mailbox after it. An empty result is not an error; callers fall back
// to the latest-message path.
func (c *Client) History(ctx context.Context, startHistoryID uint64) ([]string, error) {
	resp, err := c.svc.Users.History.List(c.user).StartHistoryId(startHistoryID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("history query from %d failed: %w", startHistoryID, err)
	}

	var ids []string
	for _, record := range resp.History {
		for _, added := range record.MessagesAdded {
			if added.Message != nil {
				ids = append(ids, added.Message.Id)
			}
		}
		if len(record.MessagesAdded) == 0 {
			for _, msg := range record.Messages {
				ids = append(ids, msg.Id)
			}
		}
	}
	return ids, nil
}

// Latest returns the ID of the single most recent message in the watched
// label, or empty when the mailbox is empty.
func (c *Client) Latest(ctx context.Context) (string, error) {
	resp, err := c.svc.Users.Messages.List(c.user).LabelIds(c.label).MaxResults(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("latest message lookup failed: %w", err)
	}
	if len(resp.Messages) == 0 {
		return "", nil
	}
	return resp.Messages[0].Id, nil
}
