package model

import (
	"encoding/json"
	"time"
)

// AuditAction names a mutating operation recorded in the audit log.
type AuditAction string

const (
	ActionEventCreated         AuditAction = "EVENT_CREATED"
	ActionEventUpdated         AuditAction = "EVENT_UPDATED"
	ActionEventDeleted         AuditAction = "EVENT_DELETED"
	ActionInscriptionCreated   AuditAction = "INSCRIPTION_CREATED"
	ActionInscriptionCancelled AuditAction = "INSCRIPTION_CANCELLED"
	ActionInscriptionUpdated   AuditAction = "INSCRIPTION_UPDATED"
)

const (
	EntityEvent       = "Event"
	EntityInscription = "Inscription"
)

// AuditRecord is an append-only fact describing a mutating action.
type AuditRecord struct {
	ID         int64           `json:"id"`
	Action     AuditAction     `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   int64           `json:"entityId"`
	Details    json.RawMessage `json:"details"`
	UserIP     string          `json:"userIp"`
	Timestamp  time.Time       `json:"timestamp"`
}

// AuditFilter selects a page of audit records.
type AuditFilter struct {
	Page       int
	Limit      int
	Action     string
	EntityType string
}

// AuditPage is one page of audit records with pagination metadata.
type AuditPage struct {
	Records    []AuditRecord `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// Pagination describes the position of a page within a result set.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ActionCount is one row of the audit statistics.
type ActionCount struct {
	Action AuditAction `json:"action"`
	Count  int         `json:"count"`
}

// AuditStats summarises the audit log.
type AuditStats struct {
	TotalLogs int           `json:"totalLogs"`
	Actions   []ActionCount `json:"actions"`
}
