// internal/reconciler/reconciler.go
package reconciler

import "jobtrack/internal/models"

// indexOf finds the record holding this company, or -1. Matching is
// exact case-sensitive string equality on whatever the classifier
// returned; no normalization is applied.
func indexOf(records []models.ApplicationRecord, company string) int {
	for i, r := range records {
		if r.Company == company {
			return i
		}
	}
	return -1
}

// Reconcile merges one classified message into a user's application
// list. An existing record for the same company gets its status
// overwritten in place; otherwise a new record is appended. Callers must
// have confirmed the classification is job-related. The returned slice
// is the updated list; prior records keep their order.
func Reconcile(records []models.ApplicationRecord, result models.ClassificationResult, raw models.RawMessage) []models.ApplicationRecord {
	if i := indexOf(records, result.Company); i != -1 {
		records[i].Status = result.Status
		return records
	}
	return append(records, models.ApplicationRecord{
		Date:         raw.ReceivedAt,
		Company:      result.Company,
		CompanyEmail: raw.Sender,
		Status:       result.Status,
	})
}

// Upsert is the manual-entry variant: the caller supplies every field,
// and an existing record is fully overwritten in place rather than
// status-only.
func Upsert(records []models.ApplicationRecord, record models.ApplicationRecord) []models.ApplicationRecord {
	if i := indexOf(records, record.Company); i != -1 {
		records[i] = record
		return records
	}
	return append(records, record)
}
