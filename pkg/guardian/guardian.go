// Package guardian talks to the external policy engine which decides attached claims.
package guardian

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fairtrace/fairtrace/pkg/conn/gateway"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/fairtrace/fairtrace/pkg/utils/retry"
)

// Verdict of the policy engine.
type Verdict string

const (
	Pending  Verdict = "pending"
	Approved Verdict = "approved"
	Rejected Verdict = "rejected"
)

type Client interface {
	// Submit a document to the policy. It returns the request id given by the engine.
	Submit(ctx context.Context, policy string, document json.RawMessage) (string, error)

	// Status of a submitted request.
	Status(ctx context.Context, policy string, requestId string) (Verdict, string, error)
}

type client struct {
	gw *gateway.Client
}

func NewClient(gw *gateway.Client) Client {
	return &client{gw: gw}
}

func (c *client) Submit(ctx context.Context, policy string, document json.RawMessage) (string, error) {
	resp := struct {
		RequestId string `json:"requestId"`
	}{}
	path := fmt.Sprintf("/policies/%s/requests", url.PathEscape(policy))
	if err := c.gw.Do(ctx, http.MethodPost, path, nil, document, &resp); err != nil {
		return "", xe.WrapWithNote("submit to policy "+policy, err)
	}
	if resp.RequestId == "" {
		return "", retry.Permanent(xe.New("policy engine returned no request id"))
	}
	return resp.RequestId, nil
}

func (c *client) Status(ctx context.Context, policy string, requestId string) (Verdict, string, error) {
	resp := struct {
		Status  Verdict `json:"status"`
		Message string  `json:"message"`
	}{}
	path := fmt.Sprintf("/policies/%s/requests/%s", url.PathEscape(policy), url.PathEscape(requestId))
	if err := c.gw.Do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return "", "", xe.WrapWithNote("status of "+requestId, err)
	}
	switch resp.Status {
	case Pending, Approved, Rejected:
		return resp.Status, resp.Message, nil
	default:
		return "", "", retry.Permanent(xe.Errorf("unknown status from policy engine: %q", resp.Status))
	}
}

// Document is what is submitted to the policy engine for an attached claim.
type Document struct {
	AttachedClaimId string              `json:"attachedClaimId"`
	Claim           string              `json:"claim"`
	TargetKind      string              `json:"targetKind"`
	TargetId        string              `json:"targetId"`
	AttachedBy      string              `json:"attachedBy"`
	VerifierId      string              `json:"verifierId,omitempty"`
	Responses       map[string][]string `json:"responses"`
}

// NewDocument makes the document of the attached claim.
//
// Responses are keyed by field title.
func NewDocument(claim fdb.Claim, attached fdb.AttachedClaim) (json.RawMessage, error) {
	fields := claim.Fields()
	responses := map[string][]string{}
	for _, r := range attached.Responses {
		title := r.FieldId
		if f, ok := fields[r.FieldId]; ok {
			title = f.Title
		}
		if len(r.Selected) != 0 {
			responses[title] = append([]string{}, r.Selected...)
		} else {
			responses[title] = []string{r.Value}
		}
	}
	buf, err := json.Marshal(Document{
		AttachedClaimId: attached.Id,
		Claim:           claim.Name,
		TargetKind:      string(attached.Target.Kind),
		TargetId:        attached.Target.Id,
		AttachedBy:      attached.AttachedBy,
		VerifierId:      attached.VerifierId,
		Responses:       responses,
	})
	if err != nil {
		return nil, xe.Wrap(err)
	}
	return buf, nil
}

// Step advances a submission by one call to the policy engine.
//
// Queued submissions are submitted, submitted ones are polled.
// Transient failures are retried with policy; permanent failures or exhausted retries fail the submission.
func Step(ctx context.Context, c Client, policy retry.Policy, now time.Time, s fdb.Submission) fdb.SubmissionUpdate {
	retryLater := func(err error) fdb.SubmissionUpdate {
		attempts := s.Attempts + 1
		if retry.IsPermanent(err) || policy.Exhausted(attempts) {
			return fdb.SubmissionUpdate{
				State: fdb.SubmissionFailed, Message: err.Error(),
				Attempt: fdb.Failed(err),
			}
		}
		return fdb.SubmissionUpdate{
			Message: err.Error(),
			Attempt: fdb.Retry(now.Add(policy.Delay(attempts)), err),
		}
	}

	switch s.State {
	case fdb.SubmissionQueued:
		requestId, err := c.Submit(ctx, s.Policy, s.Document)
		if err != nil {
			return retryLater(err)
		}
		return fdb.SubmissionUpdate{
			State:     fdb.SubmissionSubmitted,
			RequestId: requestId,
			Attempt:   fdb.RetryAfter(now.Add(policy.Base)),
		}
	case fdb.SubmissionSubmitted:
		verdict, message, err := c.Status(ctx, s.Policy, s.RequestId)
		if err != nil {
			return retryLater(err)
		}
		switch verdict {
		case Approved:
			return fdb.SubmissionUpdate{State: fdb.SubmissionApproved, Message: message}
		case Rejected:
			return fdb.SubmissionUpdate{State: fdb.SubmissionRejected, Message: message}
		default:
			// still pending. Polling is not a failure.
			return fdb.SubmissionUpdate{Attempt: fdb.RetryAfter(now.Add(policy.Base))}
		}
	default:
		return fdb.SubmissionUpdate{
			State:   fdb.SubmissionFailed,
			Message: fmt.Sprintf("submission in unexpected state: %s", s.State),
			Attempt: fdb.Failed(xe.Errorf("unexpected state: %s", s.State)),
		}
	}
}
