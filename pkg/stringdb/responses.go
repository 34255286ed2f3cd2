package stringdb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrUnexpectedResponse means the service answered outside its own
// conventions: a non-2xx code, non-json content, or an empty envelope.
var ErrUnexpectedResponse = errors.New("unexpected response")

// excerptLimit caps how much of an error body is quoted in messages.
const excerptLimit = 1 << 10

// unmarshal a json endpoint response.
//
// Every endpoint wraps its payload in a one-element array, for
// successes and service-level errors alike. The element is returned;
// telling those apart is up to the caller.
//
// return:
//
//	error if...
//	- status code is not in 2xx
//	- response body is not a json array of T
//	- the array is empty
func unmarshalEnvelope[T any](resp *http.Response) (T, error) {
	var zero T

	if err := rejectNon2xx(resp); err != nil {
		return zero, err
	}

	envelope := []T{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return zero, fmt.Errorf("%w: %s", ErrUnexpectedResponse, err)
	}
	if len(envelope) == 0 {
		return zero, fmt.Errorf("%w: empty envelope", ErrUnexpectedResponse)
	}
	return envelope[0], nil
}

func rejectNon2xx(resp *http.Response) error {
	if 200 <= resp.StatusCode && resp.StatusCode < 300 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, excerptLimit))
	if err != nil {
		return fmt.Errorf(
			"%w: status code = %d (cannot read server message: %s)",
			ErrUnexpectedResponse, resp.StatusCode, err,
		)
	}
	return fmt.Errorf(
		"%w: status code = %d: %s",
		ErrUnexpectedResponse, resp.StatusCode, bytes.TrimSpace(body),
	)
}
