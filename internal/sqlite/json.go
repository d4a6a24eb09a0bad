package sqlite

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/mesh-intelligence/timecard/pkg/types"
)

// Backup records are flat JSON objects keyed by column name. Values keep
// their storage class: integers and reals as JSON numbers, text as strings,
// NULL as null.

// rowJSON encodes the listed columns of row as one backup record.
func rowJSON(row types.Row, columns []string) (json.RawMessage, error) {
	obj := make(map[string]any, len(columns))
	for _, col := range columns {
		obj[col] = valueJSON(row.Get(col))
	}
	return json.Marshal(obj)
}

func valueJSON(v types.Value) any {
	switch v.Kind() {
	case types.KindReal:
		return v.Float(0)
	case types.KindInteger:
		return v.Int(0)
	case types.KindText:
		return v.Str("")
	default:
		return nil
	}
}

// recordValues decodes a backup record into values for columns. Columns
// missing from the record bind NULL; unknown fields are ignored. ok is false
// when the record is not a JSON object or holds a value with no storage
// class (objects, arrays).
func recordValues(rec json.RawMessage, columns []string) (vals []types.Value, ok bool) {
	dec := json.NewDecoder(bytes.NewReader(rec))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	vals = make([]types.Value, len(columns))
	for i, col := range columns {
		v, ok := jsonValue(obj[col])
		if !ok {
			return nil, false
		}
		vals[i] = v
	}
	return vals, true
}

func jsonValue(x any) (types.Value, bool) {
	switch v := x.(type) {
	case nil:
		return types.Null(), true
	case string:
		return types.Text(v), true
	case bool:
		if v {
			return types.Integer(1), true
		}
		return types.Integer(0), true
	case json.Number:
		if i, err := strconv.ParseInt(v.String(), 10, 64); err == nil {
			return types.Integer(i), true
		}
		if f, err := v.Float64(); err == nil {
			return types.Real(f), true
		}
		return types.Null(), false
	default:
		return types.Null(), false
	}
}
