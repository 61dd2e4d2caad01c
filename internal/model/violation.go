package model

import (
	"strings"
	"time"
)

// RetrievedFragment is one normative-document clause returned by the
// vector index. Score is the relevance in [0,1], higher is closer.
// Fragments are snapshots: they are never mutated after retrieval.
type RetrievedFragment struct {
	ID             string  `json:"id"`
	DocumentTitle  string  `json:"document_title"`
	DocumentNumber string  `json:"document_number"`
	ClauseNumber   string  `json:"clause_number"`
	Text           string  `json:"text"`
	Keywords       string  `json:"keywords,omitempty"`
	Score          float64 `json:"score"`
}

// Citation returns the "title, number, clause" triple for the fragment.
func (f RetrievedFragment) Citation() string {
	return f.DocumentTitle + ", " + f.DocumentNumber + ", " + f.ClauseNumber
}

// AnalysisResult is the structured reply of the violation analyzer. All
// fields are always set; when Success is false the text fields hold fixed
// placeholder sentences and ErrorMessage carries the cause.
type AnalysisResult struct {
	CorrectedDescription string `json:"corrected_description"`
	DocumentInfo         string `json:"document_info"`
	Suggestions          string `json:"suggestions"`
	Success              bool   `json:"success"`
	ErrorMessage         string `json:"error_message,omitempty"`
}

// ViolationRecord is the per-turn record that gets logged. It is owned by
// the turn that created it and discarded after logging.
type ViolationRecord struct {
	OriginalText         string
	CorrectedDescription string
	DocumentTitle        string
	DocumentNumber       string
	ClauseNumber         string
	Suggestions          string
	Fragments            []RetrievedFragment
	Error                string

	createdAt time.Time
}

// NewViolationRecord creates a record for the given input text. The
// fragments slice is copied so later changes by the caller do not leak in.
func NewViolationRecord(originalText string, fragments []RetrievedFragment) *ViolationRecord {
	snapshot := make([]RetrievedFragment, len(fragments))
	copy(snapshot, fragments)
	return &ViolationRecord{
		OriginalText: originalText,
		Fragments:    snapshot,
		createdAt:    time.Now(),
	}
}

// CreatedAt returns the construction time of the record.
func (r *ViolationRecord) CreatedAt() time.Time {
	return r.createdAt
}

// ApplyResult copies the analyzer output onto the record. Document fields are
// only filled from a successful analysis; a failed one sets Error instead.
func (r *ViolationRecord) ApplyResult(res AnalysisResult) {
	r.CorrectedDescription = res.CorrectedDescription
	r.Suggestions = res.Suggestions
	if !res.Success {
		r.Error = res.ErrorMessage
		return
	}
	if res.DocumentInfo != "" {
		c := ParseCitation(res.DocumentInfo)
		r.DocumentTitle = c.Title
		r.DocumentNumber = c.Number
		r.ClauseNumber = c.Clause
	}
}

// Citation is a parsed "title, number, clause" reference.
type Citation struct {
	Title  string
	Number string
	Clause string
}

// ParseCitation splits s on at most two commas. Missing parts are empty;
// anything after the second comma stays in Clause.
func ParseCitation(s string) Citation {
	parts := strings.SplitN(s, ",", 3)
	var c Citation
	c.Title = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		c.Number = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		c.Clause = strings.TrimSpace(parts[2])
	}
	return c
}

// ConversationState is the per-chat state of the report flow.
type ConversationState string

const (
	StateIdle          ConversationState = "idle"
	StateAwaitingInput ConversationState = "awaiting_input"
)
