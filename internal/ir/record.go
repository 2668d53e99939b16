package ir

import (
	"fmt"
)

// MarshalRecord encodes a record, id included, as canonical JSON.
func MarshalRecord(rec SpecRecord) ([]byte, error) {
	obj := rec.identity()
	obj["id"] = Str(rec.ID)
	data, err := MarshalCanonical(obj)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return data, nil
}

// UnmarshalRecord decodes the output of MarshalRecord.
func UnmarshalRecord(data []byte) (SpecRecord, error) {
	v, err := UnmarshalValue(data)
	if err != nil {
		return SpecRecord{}, fmt.Errorf("unmarshal record: %w", err)
	}
	obj, ok := v.(Object)
	if !ok {
		return SpecRecord{}, fmt.Errorf("unmarshal record: expected object, got %T", v)
	}

	rec := SpecRecord{
		ID:        strField(obj, "id"),
		Session:   strField(obj, "session"),
		Function:  strField(obj, "function"),
		Seq:       intField(obj, "seq"),
		IRVersion: strField(obj, "ir_version"),
		Args:      []Placeholder{},
	}

	if args, ok := obj["args"].(Array); ok {
		for i, a := range args {
			po, ok := a.(Object)
			if !ok {
				return SpecRecord{}, fmt.Errorf("unmarshal record: args[%d] is %T", i, a)
			}
			rec.Args = append(rec.Args, placeholderFrom(po))
		}
	}
	if ret, ok := obj["return"].(Object); ok {
		p := placeholderFrom(ret)
		rec.Return = &p
	}
	rec.Assumes = clausesFrom(obj["assumes"])
	rec.Asserts = clausesFrom(obj["asserts"])
	return rec, nil
}

func placeholderFrom(obj Object) Placeholder {
	return Placeholder{
		ID:    strField(obj, "id"),
		Slot:  int(intField(obj, "slot")),
		Name:  strField(obj, "name"),
		Type:  strField(obj, "type"),
		Value: obj["value"],
		Seq:   intField(obj, "seq"),
	}
}

func clausesFrom(v Value) []Clause {
	clauses := []Clause{}
	arr, ok := v.(Array)
	if !ok {
		return clauses
	}
	for _, elem := range arr {
		obj, ok := elem.(Object)
		if !ok {
			continue
		}
		c := Clause{
			Text:    strField(obj, "text"),
			Message: strField(obj, "message"),
		}
		if term, ok := obj["term"].(Object); ok {
			c.Term = term
		}
		clauses = append(clauses, c)
	}
	return clauses
}

func strField(obj Object, key string) string {
	if s, ok := obj[key].(Str); ok {
		return string(s)
	}
	return ""
}

func intField(obj Object, key string) int64 {
	if n, ok := obj[key].(Int); ok {
		return int64(n)
	}
	return 0
}
