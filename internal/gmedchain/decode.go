package gmedchain

import (
	"encoding/json"
	"fmt"
	"io"
)

// decodeStates reads an order list response. The node may answer with an
// object keyed by opaque ids or with an array; either way the keys are
// dropped, each state.data payload is kept in arrival order and the result
// is reversed so the last entry comes first.
func decodeStates(r io.Reader) ([]OrderState, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || (delim != '{' && delim != '[') {
		return nil, fmt.Errorf("%w: expected object or array, got %v", ErrMalformedResponse, tok)
	}

	states := make([]OrderState, 0)
	for dec.More() {
		if delim == '{' {
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
			}
		}
		var entry stateAndRef
		if err := dec.Decode(&entry); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		states = append(states, entry.State.Data)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return newestFirst(states), nil
}

func newestFirst(states []OrderState) []OrderState {
	for i, j := 0, len(states)-1; i < j; i, j = i+1, j-1 {
		states[i], states[j] = states[j], states[i]
	}
	return states
}
