// internal/models/classification.go
package models

// Status is one of the three application states the classifier may emit.
type Status string

const (
	StatusAcceptance Status = "acceptance"
	StatusRejection  Status = "rejection"
	StatusPending    Status = "pending"
)

// ParseStatus maps a classifier literal onto a Status. The remote
// contract allows exactly these three words; anything else is a
// protocol violation the caller must reject.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusAcceptance, StatusRejection, StatusPending:
		return Status(s), true
	}
	return "", false
}

// ClassificationResult is the combined outcome of the two classifier
// calls for one message. Company is empty when JobRelated is false.
type ClassificationResult struct {
	JobRelated bool   `json:"isJobRelated"`
	Company    string `json:"company,omitempty"`
	Status     Status `json:"status,omitempty"`
}
