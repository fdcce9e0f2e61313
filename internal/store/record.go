package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// NewRecord encodes v as a record with the given id.
func NewRecord(id string, v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Record{}, fmt.Errorf("encode record %s: %w", id, err)
	}
	return Record{ID: id, Data: data}, nil
}

// RecordID extracts the "id" field of an encoded record. Numeric ids are
// returned in base 10.
func RecordID(data json.RawMessage) (string, error) {
	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", ErrMalformed.WithCause(err)
	}
	if len(probe.ID) == 0 || bytes.Equal(probe.ID, []byte("null")) {
		return "", ErrMalformed.WithMessage("record has no id")
	}

	var s string
	if err := json.Unmarshal(probe.ID, &s); err == nil {
		if s == "" {
			return "", ErrMalformed.WithMessage("record has empty id")
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(probe.ID, &n); err != nil {
		return "", ErrMalformed.WithMessage("record id is neither string nor number")
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return n.String(), nil
}

// DecodeDocument parses a whole-collection value written by EncodeDocument
// (or by a browser client storing a plain JSON array).
//
// A value that is not an array is ErrMalformed. Null elements and elements
// without an id are skipped: they cannot be addressed and were never stored
// as records.
func DecodeDocument(value []byte) ([]Record, error) {
	if len(bytes.TrimSpace(value)) == 0 {
		return []Record{}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(value, &items); err != nil {
		return nil, ErrMalformed.WithCause(err)
	}

	records := make([]Record, 0, len(items))
	for _, item := range items {
		if bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
			continue
		}
		id, err := RecordID(item)
		if err != nil {
			continue
		}
		records = append(records, Record{ID: id, Data: item})
	}
	return records, nil
}

// EncodeDocument serializes records as a JSON array.
func EncodeDocument(records []Record) ([]byte, error) {
	items := make([]json.RawMessage, len(records))
	for i, r := range records {
		items[i] = r.Data
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode collection: %w", err)
	}
	return data, nil
}

// UpsertRecord replaces the record with r's id in place, or appends r.
func UpsertRecord(records []Record, r Record) []Record {
	i := slices.IndexFunc(records, func(x Record) bool { return x.ID == r.ID })
	if i >= 0 {
		records[i] = r
		return records
	}
	return append(records, r)
}

// RemoveRecord drops every record with id and reports whether any existed.
func RemoveRecord(records []Record, id string) ([]Record, bool) {
	before := len(records)
	records = slices.DeleteFunc(records, func(x Record) bool { return x.ID == id })
	return records, len(records) != before
}

// ValidateRecords checks ids are present and match the encoded payloads.
// When two records share an id the later one wins, matching the order a
// caller would apply them in.
func ValidateRecords(records []Record) ([]Record, error) {
	out := make([]Record, 0, len(records))
	pos := make(map[string]int, len(records))
	for _, r := range records {
		if r.ID == "" {
			return nil, ErrInvalidInput.WithMessage("record has empty id")
		}
		if !json.Valid(r.Data) {
			return nil, ErrInvalidInput.WithMessage("record " + r.ID + " is not valid JSON")
		}
		if i, ok := pos[r.ID]; ok {
			out[i] = r
			continue
		}
		pos[r.ID] = len(out)
		out = append(out, r)
	}
	return out, nil
}

func cloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = Record{ID: r.ID, Data: bytes.Clone(r.Data)}
	}
	return out
}
