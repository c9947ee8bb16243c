// internal/models/application.go
package models

// ApplicationRecord is one tracked job application. A user holds at
// most one record per distinct company value; the company string is the
// merge key, compared case-sensitively.
type ApplicationRecord struct {
	Date         string `json:"date"`
	Company      string `json:"company"`
	CompanyEmail string `json:"company_email"`
	Status       Status `json:"status"`
}

// Database is the whole durable document: a users mapping from user
// identifier to that user's ordered application list. It is loaded and
// written back wholesale on every mutation.
type Database struct {
	Users map[string][]ApplicationRecord `json:"users"`
}

// NewDatabase returns an empty document with the users map allocated.
func NewDatabase() *Database {
	return &Database{Users: make(map[string][]ApplicationRecord)}
}
