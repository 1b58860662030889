package model

import "time"

// ActivityType tags structured activity entries.
type ActivityType string

const ActivityCSVImport ActivityType = "CSV_IMPORT"

// ImportMetadata describes one CSV import.
type ImportMetadata struct {
	InstitutionID    string `json:"institution_id"`
	InstitutionName  string `json:"institution_name"`
	DateFrom         string `json:"date_from"`
	DateTo           string `json:"date_to"`
	TransactionCount int    `json:"transaction_count"`
	FileName         string `json:"file_name"`
}

// Activity is one row of the user's activity feed.
type Activity struct {
	ID       string          `json:"id"`
	UserID   string          `json:"user_id"`
	Datetime time.Time       `json:"datetime"`
	Type     ActivityType    `json:"type,omitempty"`
	Message  string          `json:"message"`
	Metadata *ImportMetadata `json:"metadata,omitempty"`
}
