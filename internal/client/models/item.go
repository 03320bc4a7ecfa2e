package models

import "time"

// Content reader kinds, as reported by the remote service.
const (
	ReaderWeb  = "WEB"
	ReaderPDF  = "PDF"
	ReaderFile = "FILE"
)

// Item processing states.
const (
	StateProcessing = "PROCESSING"
	StateSucceeded  = "SUCCEEDED"
	StateFailed     = "FAILED"
)

// Item is a saved library entry. Exactly one Item exists per normalized
// page URL; ingestion does a lookup-or-create on that key.
type Item struct {
	ID              string
	CreatedID       string // client request id the item was first captured with
	Title           string
	PageURL         string // normalized
	Slug            string
	Description     string
	Author          string
	ContentReader   string
	State           string
	IsArchived      bool
	ReadingProgress float64
	SavedAt         time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	SyncStatus      SyncStatus

	Labels     []Label
	Highlights []Highlight
}

// PageCapture is the input of a local content capture ("page scrape"),
// performed before the server has confirmed the save.
type PageCapture struct {
	RequestID   string
	URL         string
	Title       string
	ContentType string // ReaderWeb / ReaderPDF / ReaderFile
	HTML        string
}
