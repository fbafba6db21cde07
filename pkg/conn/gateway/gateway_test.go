package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fairtrace/fairtrace/pkg/conn/gateway"
	"github.com/fairtrace/fairtrace/pkg/utils/retry"
)

func TestClient_Do(t *testing.T) {
	t.Run("it sends JSON with bearer token, and decodes the response", func(t *testing.T) {
		var gotAuth, gotKey string
		var gotBody map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotKey = r.Header.Get("Idempotency-Key")
			json.NewDecoder(r.Body).Decode(&gotBody)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"req-1"}`))
		}))
		defer server.Close()

		testee := gateway.New("test", server.URL+"/", "secret")
		var out struct {
			Id string `json:"id"`
		}
		header := http.Header{"Idempotency-Key": []string{"k-1"}}
		if err := testee.Do(context.Background(), http.MethodPost, "/things", header, map[string]string{"a": "b"}, &out); err != nil {
			t.Fatal(err)
		}
		if out.Id != "req-1" {
			t.Errorf("unexpected response: %+v", out)
		}
		if gotAuth != "Bearer secret" {
			t.Errorf("authorization: %s", gotAuth)
		}
		if gotKey != "k-1" {
			t.Errorf("idempotency key: %s", gotKey)
		}
		if gotBody["a"] != "b" {
			t.Errorf("body: %+v", gotBody)
		}
	})

	for name, testcase := range map[string]struct {
		status    int
		permanent bool
	}{
		"when the service answers 400, it is permanent": {status: http.StatusBadRequest, permanent: true},
		"when the service answers 404, it is permanent": {status: http.StatusNotFound, permanent: true},
		"when the service answers 429, it is transient": {status: http.StatusTooManyRequests},
		"when the service answers 503, it is transient": {status: http.StatusServiceUnavailable},
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(testcase.status)
				w.Write([]byte("nope"))
			}))
			defer server.Close()

			err := gateway.New("test", server.URL, "").Do(context.Background(), http.MethodGet, "/", nil, nil, nil)
			status := new(gateway.ErrStatus)
			if !errors.As(err, &status) {
				t.Fatalf("unexpected error: %v", err)
			}
			if status.Status != testcase.status || status.Body != "nope" {
				t.Errorf("unexpected status: %+v", status)
			}
			if retry.IsPermanent(err) != testcase.permanent {
				t.Errorf("permanent: got %v", retry.IsPermanent(err))
			}
		})
	}

	t.Run("when the service keeps failing, the breaker opens", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		testee := gateway.New("test", server.URL, "", gateway.WithBreaker(2, time.Hour))
		for range 2 {
			testee.Do(context.Background(), http.MethodGet, "/", nil, nil, nil)
		}
		err := testee.Do(context.Background(), http.MethodGet, "/", nil, nil, nil)
		if !errors.Is(err, gateway.ErrUnavailable) {
			t.Errorf("unexpected error: %v", err)
		}
		if retry.IsPermanent(err) {
			t.Error("open breaker should be transient")
		}
		if calls != 2 {
			t.Errorf("service is called %d times", calls)
		}
		if testee.State() != "open" {
			t.Errorf("state: %s", testee.State())
		}
	})

	t.Run("when the service rejects requests, the breaker stays closed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer server.Close()

		testee := gateway.New("test", server.URL, "", gateway.WithBreaker(2, time.Hour))
		for range 5 {
			testee.Do(context.Background(), http.MethodGet, "/", nil, nil, nil)
		}
		if testee.State() != "closed" {
			t.Errorf("state: %s", testee.State())
		}
	})
}
