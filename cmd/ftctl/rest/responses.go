package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	cerr "github.com/fairtrace/fairtrace/cmd/ftctl/errors"
	apierr "github.com/fairtrace/fairtrace/pkg/api/types/errors"
)

// MessageFor is the summary of errors by status code range.
type MessageFor map[StatusCodeRange]string

// unmarshalJsonResponse reads the json body of a successful response into v.
//
// For 4xx or 5xx, it returns CUIError with the message for the range and the server's message.
func unmarshalJsonResponse[T any](resp *http.Response, v *T, messageFor MessageFor) error {
	body, err := streamResponse(resp, messageFor)
	if err != nil {
		return err
	}
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return cerr.New(
			fmt.Sprintf("unexpected response: %s (status code = %d)", err, resp.StatusCode),
			cerr.WithCause(err),
		)
	}
	return nil
}

// streamResponse passes the body of a successful response through.
//
// For 4xx or 5xx, the body is consumed and CUIError is returned.
func streamResponse(resp *http.Response, messageFor MessageFor) (io.Reader, error) {
	scr := StatusCodeRangeOf(resp)
	if scr <= Status2xx {
		return resp.Body, nil
	}

	message, ok := messageFor[scr]
	if !ok {
		message = fmt.Sprintf("%s (status code = %d)", scr, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, cerr.New(
			fmt.Sprintf("%s\ncannot read server message: %s", message, err),
			cerr.WithCause(err),
		)
	}
	detail := parseErrorMessage(body)
	return nil, cerr.New(
		message,
		cerr.WithDetail(func(summary string) (string, error) {
			return summary + "\n" + detail, nil
		}),
	)
}

// parseErrorMessage formats error responses of fairtraced.
//
// Bodies in other shapes are returned as they are.
func parseErrorMessage(body []byte) string {
	msg := apierr.ErrorMessage{}
	if err := json.Unmarshal(body, &msg); err == nil {
		return msg.String()
	}

	plain := struct {
		Message *string `json:"message"`
	}{}
	if err := json.Unmarshal(body, &plain); err == nil && plain.Message != nil {
		return *plain.Message
	}
	return string(body)
}
