package models

import (
	"time"
)

// ==== Section: chat request & response ====

type ChatRequest struct {
	Question string `json:"question" form:"question"`
}

// Outcome is the terminal state of one submit cycle.
type Outcome string

const (
	OutcomeNone      Outcome = "none" // nothing asked, e.g. upload-only submit
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeRejected  Outcome = "rejected"
)

type ChatResponse struct {
	Outcome  Outcome     `json:"outcome"`
	Turn     *Turn       `json:"turn,omitempty"`
	Error    string      `json:"error,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
	Notices  []string    `json:"notices,omitempty"`
	Quota    QuotaStatus `json:"quota"`
}

// ==== Section: conversation ====

// Cost is the metering result for one completion.
type Cost struct {
	Tokens int     `json:"tokens_used"`
	USD    float64 `json:"usd_cost"`
	TWD    float64 `json:"twd_cost"`
}

// Turn is one question/answer exchange. Immutable once appended to a log.
type Turn struct {
	ID        string    `json:"id" bson:"turn_id"`
	Question  string    `json:"question" bson:"question"`
	Answer    string    `json:"answer" bson:"answer"`
	Tokens    int       `json:"tokens_used" bson:"tokens_used"`
	USD       float64   `json:"usd_cost" bson:"usd_cost"`
	TWD       float64   `json:"twd_cost" bson:"twd_cost"`
	Failed    bool      `json:"failed,omitempty" bson:"failed,omitempty"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// ArchivedTurn is the document stored in the conversations collection.
type ArchivedTurn struct {
	Account string `bson:"account" json:"account"`
	Day     string `bson:"day" json:"day"`
	Turn    `bson:",inline"`
}

// PendingUpload is document text injected into every prompt until cleared.
type PendingUpload struct {
	FileName      string    `json:"file_name"`
	ExtractedText string    `json:"-"`
	Characters    int       `json:"characters"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// UploadedFile is a raw attachment received with a submit.
type UploadedFile struct {
	Name string
	Data []byte
}

// ==== Section: provider ====

type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

type Completion struct {
	Text        string
	TotalTokens int
}

// ==== Section: usage ====

// QuotaStatus describes the spending position of an account for one day.
type QuotaStatus struct {
	Day       string   `json:"day"`
	Used      float64  `json:"used_usd"`
	Cap       *float64 `json:"cap_usd"`
	Remaining *float64 `json:"remaining_usd"`
	Unlimited bool     `json:"unlimited"`
	Exhausted bool     `json:"exhausted"`
}

type DailyUsage struct {
	Day string  `json:"day"`
	USD float64 `json:"usd"`
}
