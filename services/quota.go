package services

import (
	"fmt"

	"chat-meter/models"
)

// QuotaStage says whether a refusal happened before or after the provider call.
type QuotaStage string

const (
	QuotaPreCheck  QuotaStage = "pre-check"
	QuotaPostCheck QuotaStage = "post-check"
)

// Remaining returns round(cap-used, 4). ok is false when the cap is nil (unlimited).
func Remaining(cap *float64, used float64) (remaining float64, ok bool) {
	if cap == nil {
		return 0, false
	}
	return Round(*cap-used, 4), true
}

// CheckBefore refuses a request when the account's remaining budget is used up.
// Admin accounts are never refused.
func CheckBefore(account models.Account, used float64) error {
	if account.IsAdmin() {
		return nil
	}
	if remaining, ok := Remaining(account.DailyCap, used); ok && remaining <= 0 {
		return fmt.Errorf("%w (%s, used $%.4f of $%.4f)", ErrQuotaExceeded, QuotaPreCheck, used, *account.DailyCap)
	}
	return nil
}

// ExceedsAfter reports whether an already-charged total went over the cap.
func ExceedsAfter(account models.Account, used float64) bool {
	if account.IsAdmin() || account.DailyCap == nil {
		return false
	}
	return toMicros(used) > toMicros(*account.DailyCap)
}

// Status builds the quota banner for an account on a day.
func Status(account models.Account, day string, used float64) models.QuotaStatus {
	st := models.QuotaStatus{
		Day:  day,
		Used: Round(used, 4),
	}
	if account.IsAdmin() || account.DailyCap == nil {
		st.Unlimited = true
		return st
	}
	remaining, _ := Remaining(account.DailyCap, used)
	capCopy := *account.DailyCap
	st.Cap = &capCopy
	st.Remaining = &remaining
	st.Exhausted = remaining <= 0
	return st
}
