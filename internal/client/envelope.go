package client

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// The stats API has historically shifted between a "resultSet" (singular)
// and a "resultSets" (plural, named) envelope. Both variants are normalized
// into []ResultTable behind one decoder interface, selected by inspecting
// the top-level keys.

// ResultTable is a normalized tabular result set: a named header list plus
// positional rows.
type ResultTable struct {
	Name    string
	Headers []string
	Rows    [][]any

	cols map[string]int
}

type dataSet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	RowSet  [][]any  `json:"rowSet"`
}

type envelopeDecoder interface {
	decode(raw json.RawMessage) ([]ResultTable, error)
}

// singularEnvelope handles {"resultSet": {...}} responses. Some API builds
// emit a bare list under the singular key as well.
type singularEnvelope struct{}

func (singularEnvelope) decode(raw json.RawMessage) ([]ResultTable, error) {
	var ds dataSet
	if err := json.Unmarshal(raw, &ds); err == nil && ds.Name != "" {
		return []ResultTable{newResultTable(ds)}, nil
	}
	return decodeSetList(raw)
}

// pluralEnvelope handles {"resultSets": [{...}, ...]} responses, tolerating
// a single unwrapped object.
type pluralEnvelope struct{}

func (pluralEnvelope) decode(raw json.RawMessage) ([]ResultTable, error) {
	tables, err := decodeSetList(raw)
	if err == nil {
		return tables, nil
	}
	var ds dataSet
	if err2 := json.Unmarshal(raw, &ds); err2 == nil && ds.Name != "" {
		return []ResultTable{newResultTable(ds)}, nil
	}
	return nil, err
}

func decodeSetList(raw json.RawMessage) ([]ResultTable, error) {
	var sets []dataSet
	if err := json.Unmarshal(raw, &sets); err != nil {
		return nil, fmt.Errorf("decode result sets: %w", err)
	}
	tables := make([]ResultTable, 0, len(sets))
	for _, ds := range sets {
		tables = append(tables, newResultTable(ds))
	}
	return tables, nil
}

// DecodeTables normalizes a raw response body into result tables, detecting
// which envelope variant the upstream emitted.
func DecodeTables(body []byte) ([]ResultTable, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("decode response envelope: %w", err)
	}

	var dec envelopeDecoder
	var raw json.RawMessage
	if r, ok := top["resultSet"]; ok {
		dec, raw = singularEnvelope{}, r
	} else if r, ok := top["resultSets"]; ok {
		dec, raw = pluralEnvelope{}, r
	} else {
		keys := make([]string, 0, len(top))
		for k := range top {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, &SchemaError{Keys: keys}
	}

	return dec.decode(raw)
}

func newResultTable(ds dataSet) ResultTable {
	cols := make(map[string]int, len(ds.Headers))
	for i, h := range ds.Headers {
		cols[h] = i
	}
	return ResultTable{Name: ds.Name, Headers: ds.Headers, Rows: ds.RowSet, cols: cols}
}

// HasColumns reports whether every named column is present.
func (t *ResultTable) HasColumns(names ...string) bool {
	for _, n := range names {
		if _, ok := t.cols[n]; !ok {
			return false
		}
	}
	return true
}

// Str returns the cell as a string, or "" when missing or null.
func (t *ResultTable) Str(row int, col string) string {
	v, ok := t.cell(row, col)
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Float returns the cell coerced to float64. Missing, null and non-numeric
// cells report ok=false.
func (t *ResultTable) Float(row int, col string) (float64, bool) {
	v, ok := t.cell(row, col)
	if !ok || v == nil {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Int returns the cell coerced to int.
func (t *ResultTable) Int(row int, col string) (int, bool) {
	f, ok := t.Float(row, col)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func (t *ResultTable) cell(row int, col string) (any, bool) {
	i, ok := t.cols[col]
	if !ok || row < 0 || row >= len(t.Rows) || i >= len(t.Rows[row]) {
		return nil, false
	}
	return t.Rows[row][i], true
}
