package errors_test

import (
	"encoding/json"
	"errors"
	"testing"

	apierr "github.com/fairtrace/fairtrace/pkg/api/types/errors"
)

func TestErrorMessage_JSON(t *testing.T) {
	t.Run("it reads reason, advice and see", func(t *testing.T) {
		got := apierr.ErrorMessage{}
		if err := json.Unmarshal(
			[]byte(`{"reason":"conflict","advice":"reload","see":"/api/batches/b-1/"}`), &got,
		); err != nil {
			t.Fatal(err)
		}
		want := apierr.ErrorMessage{Reason: "conflict", Advice: "reload", See: "/api/batches/b-1/"}
		if got != want {
			t.Errorf("got %+v, want %+v", got, want)
		}
	})

	t.Run("when reason is missing, it is error", func(t *testing.T) {
		got := apierr.ErrorMessage{}
		if err := json.Unmarshal([]byte(`{"advice":"reload"}`), &got); err == nil {
			t.Error("it should fail")
		}
	})

	t.Run("it is marshalled without its cause", func(t *testing.T) {
		msg := apierr.ErrorMessage{Reason: "not found", See: "/api/batches/", Cause: errors.New("no rows")}
		got, err := json.Marshal(msg)
		if err != nil {
			t.Fatal(err)
		}
		if want := `{"reason":"not found","see":"/api/batches/"}`; string(got) != want {
			t.Errorf("got %s, want %s", got, want)
		}
	})
}
