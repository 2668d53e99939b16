package ir

// Placeholder is a symbolic stand-in bound to one argument slot or to the
// return value of a spec.
type Placeholder struct {
	ID    string `json:"id"`   // content-addressed
	Slot  int    `json:"slot"` // argument position, -1 for the return value
	Name  string `json:"name"`
	Type  string `json:"type"`  // Go type of the bound value
	Value Value  `json:"value"` // snapshot at binding time
	Seq   int64  `json:"seq"`   // logical time of creation
}

// ReturnSlot is the Slot of a return-value placeholder.
const ReturnSlot = -1

// Clause is one assumption or assertion gathered into a spec.
// Term holds the encoded formula; Text is its rendering.
type Clause struct {
	Term    Object `json:"term"`
	Text    string `json:"text"`
	Message string `json:"message,omitempty"`
}

// SpecRecord is the backend-side content of a finished MethodSpec.
type SpecRecord struct {
	ID        string        `json:"id"`
	Session   string        `json:"session"`
	Function  string        `json:"function"`
	Seq       int64         `json:"seq"`
	Args      []Placeholder `json:"args"`
	Assumes   []Clause      `json:"assumes"`
	Return    *Placeholder  `json:"return,omitempty"`
	Asserts   []Clause      `json:"asserts"`
	IRVersion string        `json:"ir_version"`
}

// identity is the hashed projection of a record: everything but the id.
func (r SpecRecord) identity() Object {
	args := make(Array, len(r.Args))
	for i, p := range r.Args {
		args[i] = p.object()
	}
	obj := Object{
		"session":    Str(r.Session),
		"function":   Str(r.Function),
		"seq":        Int(r.Seq),
		"args":       args,
		"assumes":    clausesArray(r.Assumes),
		"asserts":    clausesArray(r.Asserts),
		"ir_version": Str(r.IRVersion),
	}
	if r.Return != nil {
		obj["return"] = r.Return.object()
	}
	return obj
}

func (p Placeholder) object() Object {
	obj := Object{
		"id":   Str(p.ID),
		"slot": Int(p.Slot),
		"name": Str(p.Name),
		"type": Str(p.Type),
		"seq":  Int(p.Seq),
	}
	if p.Value != nil {
		if _, isNull := p.Value.(Null); !isNull {
			obj["value"] = p.Value
		}
	}
	return obj
}

func clausesArray(cs []Clause) Array {
	arr := make(Array, len(cs))
	for i, c := range cs {
		obj := Object{"text": Str(c.Text)}
		if c.Term != nil {
			obj["term"] = c.Term
		}
		if c.Message != "" {
			obj["message"] = Str(c.Message)
		}
		arr[i] = obj
	}
	return arr
}
