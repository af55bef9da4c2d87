package model

import (
	"fmt"
	"time"
)

// DeliveryStatus represents where a lead sits in the outreach lifecycle.
type DeliveryStatus string

const (
	StatusPending DeliveryStatus = "pending"
	StatusSent    DeliveryStatus = "sent"
	StatusFailed  DeliveryStatus = "failed"
)

// Valid reports whether s is a known delivery status.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed:
		return true
	}
	return false
}

// Lead is a prospective contact scraped from local search results.
// The orchestrator only ever transitions its status; leads are never deleted.
type Lead struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Phone      string         `json:"phone"` // raw, as scraped
	BaseNumber string         `json:"base_number,omitempty"`
	Address    string         `json:"address,omitempty"`
	Niche      string         `json:"niche,omitempty"`
	MapsURL    string         `json:"maps_url,omitempty"`
	Status     DeliveryStatus `json:"status"`
	SentAt     *time.Time     `json:"sent_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Descriptor returns the human-readable form used in run summaries.
func (l Lead) Descriptor() string {
	return fmt.Sprintf("%s - %s (%s)", l.ID, l.Name, l.Phone)
}

// SentMessage records one delivered message: the candidate number that
// accepted it and the gateway message ID.
type SentMessage struct {
	Number    string `json:"number"`
	MessageID string `json:"message_id"`
}

// DeliveryOutcome is the per-lead result of one delivery attempt. It is
// consumed immediately to update the store and the ledger, then discarded.
type DeliveryOutcome struct {
	Success bool          `json:"success"`
	Sent    []SentMessage `json:"sent,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// RunSummary is the end-of-run report produced by the ledger.
type RunSummary struct {
	Sent       int      `json:"sent"`
	Failed     int      `json:"failed"`
	Duplicates int      `json:"duplicates"`
	Total      int      `json:"total"`
	Contacted  []string `json:"contacted,omitempty"`
}
