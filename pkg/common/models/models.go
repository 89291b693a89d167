package models

import (
	"time"
)

// Column names shared by the identity tables and every processed table.
const (
	SubjectID             = "subject_id"
	DateOfBirth           = "date_of_birth"
	Sex                   = "sex"
	FirstAdmittedAtTime   = "first_admitted_at_time"
	DateOfDeath           = "date_of_death"
	PatientArtifact       = "patient"
	AdmissionLinkArtifact = "link_patient_to_admission"
)

// PatientIdentity is the canonical per-patient row. DateOfBirth and
// DateOfDeath are pseudotimes anchored at FirstAdmittedAt, which is the same
// origin for every patient.
type PatientIdentity struct {
	SubjectID       string     `json:"subject_id"`
	DateOfBirth     *time.Time `json:"date_of_birth,omitempty"`
	Sex             string     `json:"sex,omitempty"`
	FirstAdmittedAt time.Time  `json:"first_admitted_at_time"`
	DateOfDeath     *time.Time `json:"date_of_death,omitempty"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // table.processed, run.completed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// TableStatus is the outcome of one table in one run.
type TableStatus string

const (
	TableProcessed TableStatus = "processed"
	TableEmpty     TableStatus = "empty"
	TableSkipped   TableStatus = "skipped"
	TableUnmapped  TableStatus = "unmapped"
	TableUnused    TableStatus = "unused"
	TableFailed    TableStatus = "failed"
)

// TableResult describes what the orchestrator did with one source table.
type TableResult struct {
	RunID     string        `json:"run_id"`
	Table     string        `json:"table"`
	Source    string        `json:"source"`
	Output    string        `json:"output,omitempty"`
	Status    TableStatus   `json:"status"`
	Rows      int           `json:"rows"`
	Duration  time.Duration `json:"duration"`
	Warnings  []string      `json:"warnings,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
}
