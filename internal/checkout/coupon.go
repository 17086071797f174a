// Package checkout holds the per-user checkout session: the coupon application state
// machine and the stores that persist it between requests.
package checkout

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CouponState is the coupon application lifecycle state.
type CouponState string

const (
	CouponUnapplied CouponState = "unapplied"
	CouponPending   CouponState = "pending"
	CouponApplied   CouponState = "applied"
	CouponRejected  CouponState = "rejected"
)

var (
	ErrCouponPending        = errors.New("coupon validation already in progress")
	ErrCouponAlreadyApplied = errors.New("a coupon is already applied")
	ErrStaleAttempt         = errors.New("coupon validation result is stale")
	ErrEmptyCouponCode      = errors.New("coupon code is required")
)

// CouponApplication is the coupon part of a checkout session. The zero value is Unapplied.
type CouponApplication struct {
	State         CouponState `json:"state"`
	Code          string      `json:"code,omitempty"`
	DiscountCents int64       `json:"discount"`
	Message       string      `json:"message,omitempty"`
	AttemptID     string      `json:"attempt_id,omitempty"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// NormalizeCode trims and upper-cases a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (a *CouponApplication) current() CouponState {
	if a.State == "" {
		return CouponUnapplied
	}
	return a.State
}

// Begin moves the session into Pending for code and returns the attempt id that the
// validation result must carry back.
func (a *CouponApplication) Begin(code string, now time.Time) (string, error) {
	code = NormalizeCode(code)
	if code == "" {
		return "", ErrEmptyCouponCode
	}

	switch a.current() {
	case CouponPending:
		return "", ErrCouponPending
	case CouponApplied:
		return "", ErrCouponAlreadyApplied
	}

	attempt := uuid.NewString()
	*a = CouponApplication{
		State:     CouponPending,
		Code:      code,
		AttemptID: attempt,
		UpdatedAt: now,
	}
	return attempt, nil
}

// Resolve records the validator's answer for attemptID.
func (a *CouponApplication) Resolve(attemptID string, valid bool, discount int64, message string, now time.Time) error {
	if a.current() != CouponPending || a.AttemptID != attemptID {
		return ErrStaleAttempt
	}

	if valid {
		a.State = CouponApplied
		a.DiscountCents = discount
	} else {
		a.State = CouponRejected
		a.DiscountCents = 0
	}
	a.Message = message
	a.UpdatedAt = now
	return nil
}

// Fail returns a pending attempt to Unapplied after a collaborator failure.
func (a *CouponApplication) Fail(attemptID string, now time.Time) error {
	if a.current() != CouponPending || a.AttemptID != attemptID {
		return ErrStaleAttempt
	}
	*a = CouponApplication{State: CouponUnapplied, UpdatedAt: now}
	return nil
}

// Acknowledge clears a rejection once its feedback has been delivered.
func (a *CouponApplication) Acknowledge(now time.Time) {
	if a.current() == CouponRejected {
		*a = CouponApplication{State: CouponUnapplied, UpdatedAt: now}
	}
}

// Remove drops any coupon, including an in-flight attempt whose result will then be
// discarded as stale.
func (a *CouponApplication) Remove(now time.Time) {
	*a = CouponApplication{State: CouponUnapplied, UpdatedAt: now}
}

// Discount is the amount to feed into the grand total.
func (a *CouponApplication) Discount() int64 {
	if a.current() != CouponApplied {
		return 0
	}
	return a.DiscountCents
}

// AppliedCode returns the code when a coupon is applied.
func (a *CouponApplication) AppliedCode() string {
	if a.current() != CouponApplied {
		return ""
	}
	return a.Code
}

func (a *CouponApplication) IsPending() bool {
	return a.current() == CouponPending
}
