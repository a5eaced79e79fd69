// Package delivery runs delivery passes: for every active subscription in a scope it pages the
// document from the stored cursor, mails the page and advances the cursor once the send succeeded.
package delivery

import (
	"time"

	"dailypages/internal/model"
)

// Outcome is the result of one subscription's unit of work within a pass.
type Outcome string

const (
	// OutcomeDelivered means the page was accepted by the mail sender.
	OutcomeDelivered Outcome = "delivered"
	// OutcomeDocumentMissing means the subscription references a document that is not stored.
	OutcomeDocumentMissing Outcome = "document_missing"
	// OutcomeFinished means the cursor is past the end of the text; the subscription was deactivated.
	OutcomeFinished Outcome = "finished"
	// OutcomeSendFailed means every send attempt failed; the cursor was not advanced.
	OutcomeSendFailed Outcome = "send_failed"
	// OutcomeStorageFailed means a ledger or document store read or write failed.
	OutcomeStorageFailed Outcome = "storage_failed"
	// OutcomeSkipped means the pass ended before the subscription was processed.
	OutcomeSkipped Outcome = "skipped"
)

// Outcomes lists every outcome, in reporting order.
var Outcomes = []Outcome{
	OutcomeDelivered,
	OutcomeDocumentMissing,
	OutcomeFinished,
	OutcomeSendFailed,
	OutcomeStorageFailed,
	OutcomeSkipped,
}

// Trigger names what started a pass.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerOnDemand  Trigger = "on_demand"
	TriggerUpload    Trigger = "upload"
)

// Result describes what happened to one subscription.
type Result struct {
	SubscriptionID string  `json:"subscription_id,omitempty"`
	ReaderEmail    string  `json:"reader_email,omitempty"`
	DocumentID     string  `json:"document_id,omitempty"`
	Outcome        Outcome `json:"outcome"`
	PageStart      int     `json:"page_start"`
	PageEnd        int     `json:"page_end"`
	Cursor         int     `json:"cursor"`
	Attempts       int     `json:"attempts"`
	Error          string  `json:"error,omitempty"`
}

// Report summarizes a finished pass.
type Report struct {
	Scope      string          `json:"scope"`
	Trigger    Trigger         `json:"trigger"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Results    []Result        `json:"results"`
	Counts     map[Outcome]int `json:"counts"`
}

func newReport(scope model.Scope, trigger Trigger, startedAt time.Time) *Report {
	return &Report{
		Scope:     scope.String(),
		Trigger:   trigger,
		StartedAt: startedAt,
		Results:   make([]Result, 0),
		Counts:    make(map[Outcome]int, len(Outcomes)),
	}
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	r.Counts[res.Outcome]++
}

// Count returns how many subscriptions ended with the given outcome.
func (r *Report) Count(o Outcome) int {
	return r.Counts[o]
}
