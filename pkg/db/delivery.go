package db

import (
	"context"
	"encoding/json"
	"time"
)

// Attempt is the outcome of a try to deliver something to an external service,
// when it is not done.
type Attempt struct {
	// RetryAt is set when it should be tried again later.
	RetryAt *time.Time

	// Err is the transient error of this try. Tries with Err are counted as attempts.
	Err error

	// Failure is set when it has failed permanently.
	Failure error
}

// RetryAfter is an Attempt to be tried again at the time, without failure (e.g. polling).
func RetryAfter(at time.Time) Attempt {
	return Attempt{RetryAt: &at}
}

// Retry is a failed Attempt to be retried at the time.
func Retry(at time.Time, err error) Attempt {
	return Attempt{RetryAt: &at, Err: err}
}

// Failed is an Attempt which never be retried.
func Failed(err error) Attempt {
	return Attempt{Failure: err}
}

type NotarizationStatus string

const (
	NotarizationPending   NotarizationStatus = "pending"
	NotarizationNotarized NotarizationStatus = "notarized"
	NotarizationFailed    NotarizationStatus = "failed"
)

// Receipt of the consensus service.
type Receipt struct {
	TopicId        string
	SequenceNumber int64
	ConsensusAt    time.Time
}

type Notarization struct {
	TransactionId string
	Hash          string
	Status        NotarizationStatus
	Attempts      int
	NextAttemptAt time.Time

	// set when notarized.
	Receipt *Receipt

	Error string
}

type NotaryInterface interface {
	// Notarizations of transactions. Missing ids are absent in the result.
	Get(ctx context.Context, transactionIds []string) (map[string]Notarization, error)

	// Pop a pending notarization due at now, and try it with f.
	//
	// When f returns a receipt, the notarization becomes notarized.
	// Otherwise, the attempt decides retry or failure.
	//
	// Returns true if a notarization is popped.
	Pop(ctx context.Context, now time.Time, f func(Notarization) (*Receipt, Attempt)) (bool, error)
}

type SubmissionState string

const (
	SubmissionQueued    SubmissionState = "queued"
	SubmissionSubmitted SubmissionState = "submitted"
	SubmissionApproved  SubmissionState = "approved"
	SubmissionRejected  SubmissionState = "rejected"
	SubmissionFailed    SubmissionState = "failed"
)

// Terminal tells the state never changes.
func (s SubmissionState) Terminal() bool {
	switch s {
	case SubmissionApproved, SubmissionRejected, SubmissionFailed:
		return true
	}
	return false
}

// Submission is a request to the policy engine for an attached claim.
type Submission struct {
	Id              string
	AttachedClaimId string
	Policy          string
	Document        json.RawMessage

	// given by the policy engine, after submitted.
	RequestId string

	State         SubmissionState
	Attempts      int
	NextAttemptAt time.Time
	Message       string
}

// SubmissionUpdate is the result of a try on a submission.
type SubmissionUpdate struct {
	// State to be. Empty means "not changed".
	State     SubmissionState
	RequestId string
	Message   string

	// when State is not terminal, the next try.
	Attempt Attempt
}

type GuardianInterface interface {
	Get(ctx context.Context, attachedClaimId string) ([]Submission, error)

	// Pop a submission due at now, and try it with f.
	//
	// When the update is terminal, the attached claim is resolved together:
	// approved -> approved, rejected or failed -> rejected.
	//
	// Returns true if a submission is popped.
	Pop(ctx context.Context, now time.Time, f func(Submission) SubmissionUpdate) (bool, error)
}

// OutboxMessage is a message waiting to be published.
type OutboxMessage struct {
	Id          string
	Topic       string
	Payload     json.RawMessage
	CreatedAt   time.Time
	PublishedAt *time.Time
}

type OutboxInterface interface {
	// Pop up to limit messages not published yet, and publish them with f.
	//
	// f returns ids of messages published. They are marked as published.
	//
	// Returns the number of messages published.
	Pop(ctx context.Context, limit int, f func([]OutboxMessage) ([]string, error)) (int, error)
}
