// Package queue defines message payloads exchanged over the message broker
// and the background consumer that feeds external admission events into the
// allocation engine.
package queue

import "github.com/iliyamo/admission-seat-allocation/internal/engine"

// Queue names. admission.events is consumed by this service; allocation
// change notifications are published to allocation.changed for downstream
// consumers (notification senders, analytics) without querying the database.
const (
	AdmissionEventsQueue   = "admission.events"
	AllocationChangedQueue = "allocation.changed"
)

// Admission event types accepted on admission.events.
const (
	EventCandidateWithdrawn = "candidate.withdrawn"
	EventCapacityAdded      = "capacity.added"
)

// AdmissionEvent is the envelope for inbound real-time events. Type selects
// which fields are meaningful: candidate.withdrawn uses CandidateID,
// capacity.added uses Branch, SeatType and Delta.
type AdmissionEvent struct {
	Type        string `json:"type"`
	CandidateID string `json:"candidate_id,omitempty"`
	Branch      string `json:"branch,omitempty"`
	SeatType    string `json:"seat_type,omitempty"`
	Delta       int    `json:"delta,omitempty"`
}

// AllocationChangedEvent is published after every state-changing engine
// operation. Moves lists each candidate placement the operation caused, in
// order, including the seat they left when upgrading.
type AllocationChangedEvent struct {
	Trigger     string        `json:"trigger"` // initial_allocation | withdrawal | capacity_added
	CandidateID string        `json:"candidate_id,omitempty"`
	Branch      string        `json:"branch,omitempty"`
	SeatType    string        `json:"seat_type,omitempty"`
	Delta       int           `json:"delta,omitempty"`
	Moves       []engine.Move `json:"moves"`
	OccurredAt  string        `json:"occurred_at"` // RFC 3339 UTC
}
