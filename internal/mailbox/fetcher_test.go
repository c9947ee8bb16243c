// internal/mailbox/fetcher_test.go
package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jobtrack/internal/common/logger"
	"jobtrack/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// newTestClient points a real gmail.Service at a local HTTP handler.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	svc, err := gmail.NewService(context.Background(),
		option.WithEndpoint(ts.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)

	return NewClientWithService(svc, "me", "INBOX", logger.NewTestLogger(t))
}

func encodeBody(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestFetch_ParsesHeadersAndBody(t *testing.T) {
	body := "Thank you for applying to Acme."
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/messages/msg-1")
		fmt.Fprintf(w, `{
			"id": "msg-1",
			"payload": {
				"headers": [
					{"name": "Subject", "value": "Your application"},
					{"name": "From", "value": "careers@acme.example"},
					{"name": "Date", "value": "Mon, 02 Jan 2006 15:04:05 -0700"}
				],
				"parts": [
					{"mimeType": "text/html", "body": {"data": "%s"}},
					{"mimeType": "text/plain", "body": {"data": "%s"}}
				]
			}
		}`, encodeBody("<p>html</p>"), encodeBody(body))
	})

	c := newTestClient(t, handler)
	raw, err := c.Fetch(context.Background(), "msg-1")
	require.NoError(t, err)

	assert.Equal(t, "msg-1", raw.ID)
	assert.Equal(t, "Your application", raw.Subject)
	assert.Equal(t, "careers@acme.example", raw.Sender)
	assert.Equal(t, body, raw.Body)
	assert.Equal(t, "Mon, 02 Jan 2006 15:04:05 -0700", raw.ReceivedAt)
}

func TestFetch_MissingHeadersAndBodyUseSentinels(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"id": "msg-2",
			"payload": {
				"headers": [],
				"parts": [{"mimeType": "text/html", "body": {"data": ""}}]
			}
		}`)
	})

	c := newTestClient(t, handler)
	raw, err := c.Fetch(context.Background(), "msg-2")
	require.NoError(t, err)

	assert.Equal(t, models.NoSubject, raw.Subject)
	assert.Equal(t, models.UnknownSender, raw.Sender)
	assert.Equal(t, models.NoBody, raw.Body)
	assert.Equal(t, models.UnknownDate, raw.ReceivedAt)
}

func TestFetch_UnparseableDateKeptVerbatim(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"id": "msg-3",
			"payload": {
				"headers": [{"name": "Date", "value": "sometime last tuesday"}],
				"parts": [{"mimeType": "text/plain", "body": {"data": "%s"}}]
			}
		}`, encodeBody("hello"))
	})

	c := newTestClient(t, handler)
	raw, err := c.Fetch(context.Background(), "msg-3")
	require.NoError(t, err)
	assert.Equal(t, "sometime last tuesday", raw.ReceivedAt)
}

func TestFetch_ServiceErrorReturnsFetchError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 500}}`, http.StatusInternalServerError)
	})

	c := newTestClient(t, handler)
	_, err := c.Fetch(context.Background(), "msg-4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FETCH_FAILED")
}

func TestHistory_ResolvesAddedMessageIDs(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/history")
		assert.Equal(t, "42", r.URL.Query().Get("startHistoryId"))
		fmt.Fprint(w, `{
			"history": [
				{"messagesAdded": [{"message": {"id": "m-10"}}, {"message": {"id": "m-11"}}]},
				{"messagesAdded": [{"message": {"id": "m-12"}}]}
			]
		}`)
	})

	c := newTestClient(t, handler)
	ids, err := c.History(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"m-10", "m-11", "m-12"}, ids)
}

func TestHistory_EmptyIsNotAnError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"history": []}`)
	})

	c := newTestClient(t, handler)
	ids, err := c.History(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLatest_ReturnsSingleMostRecentID(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/messages") {
			assert.Equal(t, "1", r.URL.Query().Get("maxResults"))
			fmt.Fprint(w, `{"messages": [{"id": "m-latest"}]}`)
			return
		}
		http.NotFound(w, r)
	})

	c := newTestClient(t, handler)
	id, err := c.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "m-latest", id)
}

func TestLatest_EmptyInbox(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"messages": []}`)
	})

	c := newTestClient(t, handler)
	id, err := c.Latest(context.Background())
	require.NoError(t, err)
	assert.Empty(t, id)
}
