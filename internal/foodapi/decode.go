package foodapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"foodshare/pkg/types"
)

type validated[E any] interface {
	*E
	Validate() error
}

var jsonNull = []byte("null")

// decodeList accepts a JSON array, null, or an object carrying the array
// under key. Null elements are dropped; every other element must validate.
func decodeList[E any, P validated[E]](raw []byte, key string) ([]*E, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return []*E{}, nil
	}

	if raw[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
		}
		inner, ok := envelope[key]
		if !ok {
			return nil, fmt.Errorf("%w: expected a list or %q", ErrUnexpectedResponse, key)
		}
		raw = bytes.TrimSpace(inner)
		if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
			return []*E{}, nil
		}
	}

	var items []*E
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}

	out := make([]*E, 0, len(items))
	for i, item := range items {
		if item == nil {
			continue
		}
		if err := P(item).Validate(); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrUnexpectedResponse, i, err)
		}
		out = append(out, item)
	}

	return out, nil
}

// decodeOne accepts the entity itself or an envelope {key: entity}. When
// optional is set a body without an identifiable entity (an acknowledgement
// such as {"ok": true}) yields nil without error.
func decodeOne[E any, P validated[E]](raw []byte, key string, optional bool) (*E, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		if optional {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: empty body", ErrUnexpectedResponse)
	}

	if raw[0] != '{' {
		return nil, fmt.Errorf("%w: expected an object", ErrUnexpectedResponse)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	if inner, ok := envelope[key]; ok {
		inner = bytes.TrimSpace(inner)
		if len(inner) > 0 && inner[0] == '{' {
			raw = inner
		}
	}

	item := new(E)
	if err := json.Unmarshal(raw, item); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}

	if err := P(item).Validate(); err != nil {
		if optional && errors.Is(err, types.ErrMissingID) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}

	return item, nil
}
