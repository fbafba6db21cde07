package guardian_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fairtrace/fairtrace/pkg/conn/gateway"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/guardian"
	"github.com/fairtrace/fairtrace/pkg/utils/retry"
)

func TestClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/policies/organic/requests":
			w.Write([]byte(`{"requestId":"req-1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/policies/organic/requests/req-1":
			w.Write([]byte(`{"status":"rejected","message":"certificate expired"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/policies/organic/requests/req-2":
			w.Write([]byte(`{"status":"lost"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	testee := guardian.NewClient(gateway.New("guardian", server.URL, "token"))

	t.Run("Submit returns request id", func(t *testing.T) {
		id, err := testee.Submit(context.Background(), "organic", json.RawMessage(`{}`))
		if err != nil {
			t.Fatal(err)
		}
		if id != "req-1" {
			t.Errorf("request id: %s", id)
		}
	})

	t.Run("Status returns verdict", func(t *testing.T) {
		v, msg, err := testee.Status(context.Background(), "organic", "req-1")
		if err != nil {
			t.Fatal(err)
		}
		if v != guardian.Rejected || msg != "certificate expired" {
			t.Errorf("verdict: %s, %s", v, msg)
		}
	})

	t.Run("when status is unknown, it is permanent error", func(t *testing.T) {
		_, _, err := testee.Status(context.Background(), "organic", "req-2")
		if !retry.IsPermanent(err) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("when policy is unknown, it is permanent error", func(t *testing.T) {
		_, err := testee.Submit(context.Background(), "unknown", json.RawMessage(`{}`))
		if !retry.IsPermanent(err) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestNewDocument(t *testing.T) {
	claim := fdb.Claim{
		Id: "organic", Name: "Organic",
		Criteria: []fdb.Criterion{{
			Id: "cr-1",
			Fields: []fdb.CriterionField{
				{Id: "f-1", Title: "Certificate"},
				{Id: "f-2", Title: "Body"},
			},
		}},
	}
	attached := fdb.AttachedClaim{
		Id: "a-1", ClaimId: "organic",
		Target:     fdb.Target{Kind: fdb.BatchScope, Id: "b-1"},
		AttachedBy: "coop",
		Responses: []fdb.FieldResponse{
			{FieldId: "f-1", Value: "files/cert.pdf"},
			{FieldId: "f-2", Selected: []string{"EU"}},
		},
	}
	buf, err := guardian.NewDocument(claim, attached)
	if err != nil {
		t.Fatal(err)
	}
	doc := guardian.Document{}
	if err := json.Unmarshal(buf, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Claim != "Organic" || doc.TargetId != "b-1" || doc.TargetKind != "batch" {
		t.Errorf("document: %+v", doc)
	}
	if doc.Responses["Certificate"][0] != "files/cert.pdf" || doc.Responses["Body"][0] != "EU" {
		t.Errorf("responses: %+v", doc.Responses)
	}
}

type fakeClient struct {
	requestId string
	verdict   guardian.Verdict
	message   string
	err       error
}

func (f *fakeClient) Submit(context.Context, string, json.RawMessage) (string, error) {
	return f.requestId, f.err
}

func (f *fakeClient) Status(context.Context, string, string) (guardian.Verdict, string, error) {
	return f.verdict, f.message, f.err
}

func TestStep(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	policy := retry.Policy{Base: time.Minute, Max: time.Hour, Attempts: 3}

	type then struct {
		state     fdb.SubmissionState
		requestId string
		retryAt   *time.Time
		failed    bool
	}
	at := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}

	for name, testcase := range map[string]struct {
		client     *fakeClient
		submission fdb.Submission
		then       then
	}{
		"when queued one is submitted, it becomes submitted": {
			client:     &fakeClient{requestId: "req-1"},
			submission: fdb.Submission{State: fdb.SubmissionQueued},
			then:       then{state: fdb.SubmissionSubmitted, requestId: "req-1", retryAt: at(time.Minute)},
		},
		"when submitting fails transiently, it is retried with backoff": {
			client:     &fakeClient{err: errors.New("timeout")},
			submission: fdb.Submission{State: fdb.SubmissionQueued, Attempts: 1},
			then:       then{retryAt: at(2 * time.Minute)},
		},
		"when submitting fails permanently, it fails": {
			client:     &fakeClient{err: retry.Permanent(errors.New("bad document"))},
			submission: fdb.Submission{State: fdb.SubmissionQueued},
			then:       then{state: fdb.SubmissionFailed, failed: true},
		},
		"when retries are exhausted, it fails": {
			client:     &fakeClient{err: errors.New("timeout")},
			submission: fdb.Submission{State: fdb.SubmissionSubmitted, Attempts: 2},
			then:       then{state: fdb.SubmissionFailed, failed: true},
		},
		"when the engine approves, it is approved": {
			client:     &fakeClient{verdict: guardian.Approved},
			submission: fdb.Submission{State: fdb.SubmissionSubmitted, RequestId: "req-1"},
			then:       then{state: fdb.SubmissionApproved},
		},
		"when the engine rejects, it is rejected": {
			client:     &fakeClient{verdict: guardian.Rejected, message: "no"},
			submission: fdb.Submission{State: fdb.SubmissionSubmitted, RequestId: "req-1"},
			then:       then{state: fdb.SubmissionRejected},
		},
		"when the engine is still deciding, it is polled later": {
			client:     &fakeClient{verdict: guardian.Pending},
			submission: fdb.Submission{State: fdb.SubmissionSubmitted, RequestId: "req-1", Attempts: 2},
			then:       then{retryAt: at(time.Minute)},
		},
	} {
		t.Run(name, func(t *testing.T) {
			got := guardian.Step(context.Background(), testcase.client, policy, now, testcase.submission)
			if got.State != testcase.then.state {
				t.Errorf("state: %s, want %s", got.State, testcase.then.state)
			}
			if got.RequestId != testcase.then.requestId {
				t.Errorf("request id: %s", got.RequestId)
			}
			if (got.Attempt.Failure != nil) != testcase.then.failed {
				t.Errorf("failure: %v", got.Attempt.Failure)
			}
			switch {
			case testcase.then.retryAt == nil && got.Attempt.RetryAt != nil:
				t.Errorf("unexpected retry at %s", got.Attempt.RetryAt)
			case testcase.then.retryAt != nil && got.Attempt.RetryAt == nil:
				t.Error("it should be retried")
			case testcase.then.retryAt != nil && !got.Attempt.RetryAt.Equal(*testcase.then.retryAt):
				t.Errorf("retry at %s, want %s", got.Attempt.RetryAt, testcase.then.retryAt)
			}
		})
	}
}
