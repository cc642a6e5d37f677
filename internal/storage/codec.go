package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"tttevo/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var (
	ErrVersionMismatch = errors.New("record version mismatch")
	ErrMalformedRecord = errors.New("malformed parameter record")
)

// Stamp sets the current schema and codec versions on record.
func Stamp(record model.ParameterRecord) model.ParameterRecord {
	record.SchemaVersion = CurrentSchemaVersion
	record.CodecVersion = CurrentCodecVersion
	return record
}

func EncodeParameters(record model.ParameterRecord) ([]byte, error) {
	if err := validateRecord(record); err != nil {
		return nil, err
	}
	return json.Marshal(record)
}

func DecodeParameters(data []byte) (model.ParameterRecord, error) {
	var record model.ParameterRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.ParameterRecord{}, err
	}
	if err := validateRecord(record); err != nil {
		return model.ParameterRecord{}, err
	}
	return record, nil
}

func validateRecord(record model.ParameterRecord) error {
	if err := checkVersion(record.VersionedRecord); err != nil {
		return err
	}
	return checkArrays(record)
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

func checkArrays(record model.ParameterRecord) error {
	if record.ID == "" {
		return fmt.Errorf("%w: id is required", ErrMalformedRecord)
	}
	for name, m := range record.Arrays {
		if m.Rows < 0 || m.Cols < 0 || len(m.Values) != m.Rows*m.Cols {
			return fmt.Errorf("%w: array %s is %dx%d with %d values", ErrMalformedRecord, name, m.Rows, m.Cols, len(m.Values))
		}
	}
	return nil
}
