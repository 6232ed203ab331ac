package repository

import (
	jsoniter "github.com/json-iterator/go"

	ierr "github.com/voxbill/voxbill/internal/errors"
)

var jsonb = jsoniter.ConfigCompatibleWithStandardLibrary

// marshalJSONB serializes a value for a jsonb column
func marshalJSONB(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	data, err := jsonb.Marshal(v)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to serialize value for storage").
			Mark(ierr.ErrDatabase)
	}
	return data, nil
}

// unmarshalJSONB deserializes a jsonb column into the given value
func unmarshalJSONB(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := jsonb.Unmarshal(data, v); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to deserialize stored value").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
