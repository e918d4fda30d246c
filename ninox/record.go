package ninox

import (
	"encoding/json"
	"sort"
	"strings"
)

// ValueKind tags the shape a field value arrived in. The table store does not
// enforce a schema, so the same column can hold a string in one record and a
// relation object in the next.
type ValueKind int

const (
	ValueEmpty ValueKind = iota
	ValueScalar
	ValueList
	ValueObject
)

// Value is the tagged union for a single field: Scalar(string), List or
// Object. Numbers are kept as their source text so "48,00" style values
// survive until the amount parser sees them.
type Value struct {
	Kind   ValueKind
	Scalar string
	List   []Value
	Object map[string]Value
}

func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*v = Value{Kind: ValueEmpty}
		return nil
	}

	switch trimmed[0] {
	case '[':
		var list []Value
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*v = Value{Kind: ValueList, List: list}
	case '{':
		var obj map[string]Value
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*v = Value{Kind: ValueObject, Object: obj}
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value{Kind: ValueScalar, Scalar: s}
	default:
		// Numbers and booleans keep their raw text form.
		var num json.Number
		if err := json.Unmarshal(data, &num); err == nil {
			*v = Value{Kind: ValueScalar, Scalar: num.String()}
			return nil
		}
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		if b {
			*v = Value{Kind: ValueScalar, Scalar: "true"}
		} else {
			*v = Value{Kind: ValueScalar, Scalar: "false"}
		}
	}
	return nil
}

// Text renders the value as a best-effort string. Total over all kinds: lists
// join their elements with spaces, objects join their values in key order.
func (v Value) Text() string {
	switch v.Kind {
	case ValueScalar:
		return v.Scalar
	case ValueList:
		parts := make([]string, 0, len(v.List))
		for _, elem := range v.List {
			if t := elem.Text(); t != "" {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, " ")
	case ValueObject:
		keys := make([]string, 0, len(v.Object))
		for k := range v.Object {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if t := v.Object[k].Text(); t != "" {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// RelationId extracts the id of a relation-shaped object value. Relation
// fields come back as {"id": ...} but the key casing drifts across databases.
func (v Value) RelationId() (string, bool) {
	if v.Kind != ValueObject {
		return "", false
	}
	for _, key := range []string{"id", "Id", "ID", "_id"} {
		if inner, ok := v.Object[key]; ok {
			if t := strings.TrimSpace(inner.Text()); t != "" {
				return t, true
			}
		}
	}
	return "", false
}

// Record is one row of an external table: an opaque id plus uncontrolled
// fields. Fetched read-only, never mutated here.
type Record struct {
	Id     string           `json:"id"`
	Fields map[string]Value `json:"fields"`
}

func (r *Record) UnmarshalJSON(data []byte) error {
	// Ids are numeric in some databases and strings in others; decode through
	// the union so both arrive as text.
	var raw struct {
		Id     Value            `json:"id"`
		Fields map[string]Value `json:"fields"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Id = strings.TrimSpace(raw.Id.Text())
	r.Fields = raw.Fields
	return nil
}
