package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
)

// ErrUndecodable indicates the raw body is not JSON, even after repair.
var ErrUndecodable = errors.New("normalize: payload is not decodable JSON")

// DecodePayload decodes a raw report body, keeping numbers as json.Number so
// large monetary values survive intact. Syntactically broken documents (trailing
// commas, truncated arrays) are repaired before giving up.
func DecodePayload(data []byte) (any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrUndecodable)
	}
	v, err := decodeJSON(trimmed)
	if err == nil {
		return v, nil
	}
	repaired, repairErr := jsonrepair.RepairJSON(string(trimmed))
	if repairErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	v, err = decodeJSON([]byte(repaired))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return v, nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON document")
	}
	return v, nil
}
