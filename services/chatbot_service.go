package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chat-meter/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	dayLayout       = "2006-01-02"
	fileInstruction = "The following is the content of the user's file:"
)

// SubmitRequest is one press of the chat form's submit button.
type SubmitRequest struct {
	Question string
	Upload   *models.UploadedFile
}

// SubmitResult is the tagged outcome of a chat cycle. Err carries the error kind for
// failed (ProviderError) and rejected (ErrQuotaExceeded) cycles; a failed cycle still
// records its turn.
type SubmitResult struct {
	Outcome  models.Outcome
	Turn     *models.Turn
	Warnings []string
	Notices  []string
	Err      error
	Stage    QuotaStage // set when Outcome is rejected
	Quota    models.QuotaStatus
}

// ChatOptions are the fixed completion parameters.
type ChatOptions struct {
	SystemPrompt      string
	Temperature       float64
	MaxTokens         int
	RollbackOnOverage bool
}

// ChatService runs the request/response cycle between an account and the provider.
type ChatService struct {
	Ledger    *UsageLedger
	Provider  CompletionProvider
	Pricing   Pricing
	Options   ChatOptions
	Turns     TurnArchive     // optional
	Documents DocumentArchive // optional
	Log       *logrus.Logger
	Now       func() time.Time
}

func (s *ChatService) today() string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().Format(dayLayout)
}

// Quota reports the account's position for today.
func (s *ChatService) Quota(state *AccountState) models.QuotaStatus {
	day := s.today()
	return Status(state.Account(), day, s.Ledger.Spent(day))
}

// UsageHistory lists the daily totals, oldest first.
func (s *ChatService) UsageHistory() []models.DailyUsage {
	return s.Ledger.History()
}

// Submit handles one chat cycle: quota pre-check, optional upload, provider call,
// metering, overage rollback, log append and usage save.
func (s *ChatService) Submit(ctx context.Context, state *AccountState, req SubmitRequest) (res SubmitResult) {
	state.submit.Lock()
	defer state.submit.Unlock()

	account := state.Account()
	day := s.today()
	logger := s.Log.WithFields(logrus.Fields{"account": account.Name, "day": day})

	res.Outcome = models.OutcomeNone
	defer func() { res.Quota = Status(account, day, s.Ledger.Spent(day)) }()

	if err := CheckBefore(account, s.Ledger.Spent(day)); err != nil {
		logger.WithError(err).Info("Request refused before provider call")
		res.Outcome = models.OutcomeRejected
		res.Stage = QuotaPreCheck
		res.Err = err
		return res
	}

	if req.Upload != nil {
		s.acceptUpload(ctx, state, req.Upload, &res, logger)
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		if req.Upload == nil {
			res.Err = ErrEmptyQuestion
		}
		return res
	}

	prompt, stored := question, question
	if up := state.Upload(); up != nil {
		prompt = fmt.Sprintf("%s\n\n%s\n\nQuestion: %s", fileInstruction, up.ExtractedText, question)
		stored = fmt.Sprintf("%s\n(from uploaded file: %s)", question, up.FileName)
	}

	completion, err := s.Provider.Complete(ctx, models.CompletionRequest{
		SystemPrompt: s.Options.SystemPrompt,
		UserPrompt:   prompt,
		Temperature:  s.Options.Temperature,
		MaxTokens:    s.Options.MaxTokens,
	})
	if err != nil {
		turn := s.failedTurn(stored, err)
		state.appendTurn(turn)
		logger.WithError(err).Warn("Provider call failed, recorded as zero-cost turn")
		s.archive(ctx, account.Name, day, turn, logger)
		res.Outcome = models.OutcomeFailed
		res.Turn = &turn
		res.Err = err
		return res
	}

	cost := s.Pricing.Cost(completion.TotalTokens)
	total := s.Ledger.Charge(day, cost.USD)
	state.addSpent(cost.USD)

	if s.Options.RollbackOnOverage && ExceedsAfter(account, total) {
		s.Ledger.Refund(day, cost.USD)
		state.addSpent(-cost.USD)
		// the provider already billed this call; only our ledger is made whole
		logger.WithFields(logrus.Fields{
			"tokens":        cost.Tokens,
			"usd":           cost.USD,
			"unrecoverable": true,
		}).Warn("Charge exceeded daily cap, rolled back and discarded answer")
		res.Outcome = models.OutcomeRejected
		res.Stage = QuotaPostCheck
		res.Err = fmt.Errorf("%w (%s, charge $%.6f would reach $%.6f of $%.4f)",
			ErrQuotaExceeded, QuotaPostCheck, cost.USD, total, *account.DailyCap)
		return res
	}

	turn := models.Turn{
		ID:        uuid.NewString(),
		Question:  stored,
		Answer:    completion.Text,
		Tokens:    cost.Tokens,
		USD:       cost.USD,
		TWD:       cost.TWD,
		Timestamp: s.stamp(),
	}
	state.appendTurn(turn)
	res.Outcome = models.OutcomeCompleted
	res.Turn = &turn

	logger.WithFields(logrus.Fields{
		"tokens":    cost.Tokens,
		"usd":       cost.USD,
		"day_total": total,
	}).Info("Question answered")

	s.archive(ctx, account.Name, day, turn, logger)

	if err := s.Ledger.Flush(ctx); err != nil {
		logger.WithError(err).Error("Failed to persist usage")
		res.Warnings = append(res.Warnings, err.Error())
	}

	return res
}

// archive copies a turn to the archive when one is configured. Failures are logged only.
func (s *ChatService) archive(ctx context.Context, account, day string, turn models.Turn, logger *logrus.Entry) {
	if s.Turns == nil {
		return
	}
	if err := s.Turns.SaveTurn(ctx, account, day, turn); err != nil {
		logger.WithError(err).Error("Failed to archive turn")
	}
}

func (s *ChatService) acceptUpload(ctx context.Context, state *AccountState, up *models.UploadedFile, res *SubmitResult, logger *logrus.Entry) {
	text, err := ExtractText(up.Name, up.Data)
	if err != nil {
		if errors.Is(err, ErrUnsupportedFormat) {
			res.Warnings = append(res.Warnings, ErrUnsupportedFormat.Error())
		} else {
			res.Warnings = append(res.Warnings, fmt.Sprintf("could not read %s: %v", up.Name, err))
		}
		logger.WithError(err).WithField("file", up.Name).Warn("Upload not accepted")
		return
	}
	if strings.TrimSpace(text) == "" {
		res.Warnings = append(res.Warnings, fmt.Sprintf("no text found in %s", up.Name))
		return
	}

	state.setUpload(&models.PendingUpload{
		FileName:      up.Name,
		ExtractedText: text,
		Characters:    len([]rune(text)),
		UploadedAt:    s.stamp(),
	})
	res.Notices = append(res.Notices, fmt.Sprintf("File %s loaded, you can now ask questions about it", up.Name))
	logger.WithField("file", up.Name).Info("Upload accepted")

	if s.Documents != nil {
		url, err := s.Documents.StoreDocument(ctx, state.Account().Name, up.Name, up.Data)
		if err != nil {
			logger.WithError(err).Error("Failed to archive uploaded document")
			return
		}
		logger.WithField("url", url).Debug("Uploaded document archived")
	}
}

func (s *ChatService) failedTurn(question string, err error) models.Turn {
	msg := err.Error()
	var perr *ProviderError
	if errors.As(err, &perr) {
		msg = perr.Message
	}
	return models.Turn{
		ID:        uuid.NewString(),
		Question:  question,
		Answer:    "❌ API error: " + msg,
		Failed:    true,
		Timestamp: s.stamp(),
	}
}

func (s *ChatService) stamp() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
