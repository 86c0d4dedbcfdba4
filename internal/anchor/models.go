// Package anchor submits proof hashes to an external ledger asynchronously.
// Submissions move through a per-batch state machine and a retry/dead-letter
// pipeline; a configuration-driven mode gates whether ledger writes happen
// at all.
package anchor

import (
	"fmt"
	"time"

	dErrors "attesto/pkg/domain-errors"
)

// Mode is the process-wide anchor write switch. It is set at startup and
// injected into the service; it is not a per-credential property and not an
// ambient global, so tests can exercise all three modes in one process.
type Mode string

const (
	// ModeActive: ledger writes proceed normally.
	ModeActive Mode = "active"
	// ModeDeferred: submissions are accepted into the pipeline but not
	// flushed to the ledger; callers see deferred=true.
	ModeDeferred Mode = "deferred"
	// ModeWritesDisabled: no ledger writes are attempted at all; every
	// submission is synchronously marked deferred with a distinct code.
	ModeWritesDisabled Mode = "writes-disabled"
)

// ParseMode maps a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeActive, ModeDeferred, ModeWritesDisabled:
		return Mode(s), nil
	case "":
		return ModeActive, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown anchor mode %q", s))
	}
}

// Code is a stable machine-readable anchor status code surfaced to callers.
type Code string

const (
	CodeActive         Code = "BLOCKCHAIN_ACTIVE"
	CodeDeferredMode   Code = "BLOCKCHAIN_DEFERRED_MODE"
	CodeWritesDisabled Code = "BLOCKCHAIN_WRITES_DISABLED"
	// CodeUnavailable means the ledger could not be consulted. It is never
	// conflated with "not anchored".
	CodeUnavailable Code = "ANCHOR_UNAVAILABLE"
)

// Code returns the status code callers see for submissions under this mode.
func (m Mode) Code() Code {
	switch m {
	case ModeDeferred:
		return CodeDeferredMode
	case ModeWritesDisabled:
		return CodeWritesDisabled
	default:
		return CodeActive
	}
}

// BatchStatus is the state of an anchor batch.
type BatchStatus string

const (
	StatusPending      BatchStatus = "Pending"
	StatusSubmitted    BatchStatus = "Submitted"
	StatusConfirmed    BatchStatus = "Confirmed"
	StatusFailed       BatchStatus = "Failed"
	StatusDeadLettered BatchStatus = "DeadLettered"
)

// Batch groups one or more proof hashes for a single ledger submission.
// Terminal states are Confirmed, or DeadLettered after retry exhaustion.
type Batch struct {
	ID          string
	ProofHashes []string
	ChainTxHash string
	Status      BatchStatus
	RetryCount  int
	NextRetryAt time.Time
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RetryAfterSeconds is operator guidance carried by dead-letter records.
func (b *Batch) RetryAfterSeconds(now time.Time) int {
	if b.NextRetryAt.IsZero() || !b.NextRetryAt.After(now) {
		return 0
	}
	return int(b.NextRetryAt.Sub(now).Seconds())
}

// SubmitResult is returned to issuer-side callers. CredentialHash omission
// while Deferred is deliberate: consumers must treat the absence of a
// definite hash as "not yet anchored", not as an error.
type SubmitResult struct {
	BatchID  string
	Deferred bool
	Code     Code
}
