// internal/models/message.go
package models

// Sentinel values used when a fetched message is missing a header or a
// plain-text part. Classification can still proceed on whatever survived.
const (
	NoSubject     = "No Subject"
	UnknownSender = "Unknown Sender"
	NoBody        = "No Body Available"
	UnknownDate   = "Unknown Date"
)

// RawMessage is a mailbox message normalized for classification.
// ReceivedAt holds an RFC1123Z-formatted timestamp, the raw header text
// verbatim when the Date header did not parse, or the sentinel when the
// header was absent.
type RawMessage struct {
	ID         string `json:"id"`
	Sender     string `json:"sender"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	ReceivedAt string `json:"receivedAt"`
}

// Content returns the text handed to the classifier: the body when one
// was found, otherwise the subject line alone.
func (m RawMessage) Content() string {
	if m.Body == "" || m.Body == NoBody {
		return m.Subject
	}
	return m.Body
}
