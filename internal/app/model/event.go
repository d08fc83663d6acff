package model

import "time"

// MappingEvent is published whenever a mapping changes or a sweep completes.
type MappingEvent struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	MappingID string        `json:"mapping_id,omitempty"`
	URL       string        `json:"url,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Sweep     *SweepSummary `json:"sweep,omitempty"`
}

// SweepSummary is the wire form of a sweep result.
type SweepSummary struct {
	RanAt        time.Time    `json:"ran_at"`
	Expired      []SweepEntry `json:"expired"`
	ExpiringSoon []SweepEntry `json:"expiring_soon"`
}

type SweepEntry struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}

const (
	EventMappingCreated = "mapping.created"
	EventMappingUpdated = "mapping.updated"
	EventMappingDeleted = "mapping.deleted"
	EventSweepCompleted = "mapping.sweep"
)

const (
	MappingStreamName     = "MAPPINGS"
	MappingStreamSubjects = "mappings.>"
	MappingEventSubject   = "mappings.events"
	SweepReportSubject    = "mappings.sweep"
	MappingStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
