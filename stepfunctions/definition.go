package stepfunctions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"stepfunction-cloner/cloneerr"
)

var errNotObject = errors.New("not a JSON object")

// ParseDefinition parses an ASL document. The document must be a JSON object
// with a States object.
func ParseDefinition(data []byte) (*Definition, error) {
	def, err := parseDefinition(data)
	if err != nil {
		return nil, cloneerr.Wrap(cloneerr.MalformedDefinition, err, "parse definition")
	}
	return def, nil
}

// LoadDefinition reads and parses the definition stored at path.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cloneerr.Wrap(cloneerr.ReadFailed, err, "read definition %s", path)
	}
	def, err := parseDefinition(data)
	if err != nil {
		return nil, cloneerr.Wrap(cloneerr.MalformedDefinition, err, "parse definition %s", path)
	}
	return def, nil
}

func parseDefinition(data []byte) (*Definition, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	def := &Definition{fields: fields}
	found := false
	for _, f := range fields {
		if f.key != "States" {
			continue
		}
		found = true
		stateFields, err := decodeObject(f.value)
		if err != nil {
			return nil, fmt.Errorf("States: %w", err)
		}
		def.States = def.States[:0]
		for _, sf := range stateFields {
			state, err := parseState(sf.key, sf.value)
			if err != nil {
				return nil, err
			}
			def.States = append(def.States, state)
		}
	}
	if !found {
		return nil, errors.New("missing States")
	}
	return def, nil
}

func parseState(name string, data json.RawMessage) (*State, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("state %q: %w", name, err)
	}

	state := &State{Name: name, fields: fields}
	for _, f := range fields {
		switch f.key {
		case "Type":
			if err := json.Unmarshal(f.value, &state.Type); err != nil {
				return nil, fmt.Errorf("state %q: Type: %w", name, err)
			}
		case "Resource":
			if isNull(f.value) {
				state.Resource = nil
				continue
			}
			var resource string
			if err := json.Unmarshal(f.value, &resource); err != nil {
				return nil, fmt.Errorf("state %q: Resource: %w", name, err)
			}
			state.Resource = &resource
		}
	}

	switch state.Type {
	case ParallelType:
		for _, f := range fields {
			if f.key != "Branches" {
				continue
			}
			var branches []json.RawMessage
			if err := json.Unmarshal(f.value, &branches); err != nil {
				return nil, fmt.Errorf("state %q: Branches: %w", name, err)
			}
			state.Branches = make([]*Definition, 0, len(branches))
			for i, raw := range branches {
				branch, err := parseDefinition(raw)
				if err != nil {
					return nil, fmt.Errorf("state %q: branch %d: %w", name, i, err)
				}
				state.Branches = append(state.Branches, branch)
			}
		}
	case MapType:
		for _, f := range fields {
			if f.key != "ItemProcessor" && f.key != "Iterator" {
				continue
			}
			processor, err := parseDefinition(f.value)
			if err != nil {
				return nil, fmt.Errorf("state %q: %s: %w", name, f.key, err)
			}
			state.Processor = processor
			state.processorKey = f.key
		}
	}
	return state, nil
}

// Walk calls fn for every state, nested states included, in document order.
// A state's nested states are visited right after the state itself.
func (d *Definition) Walk(fn func(*State) error) error {
	for _, state := range d.States {
		if err := fn(state); err != nil {
			return err
		}
		for _, branch := range state.Branches {
			if err := branch.Walk(fn); err != nil {
				return err
			}
		}
		if state.Processor != nil {
			if err := state.Processor.Walk(fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clone returns a deep copy of d.
func (d *Definition) Clone() (*Definition, error) {
	data, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return ParseDefinition(data)
}

// Bytes returns the compact JSON encoding of d.
func (d *Definition) Bytes() ([]byte, error) {
	return d.MarshalJSON()
}

// String returns d indented with two spaces, the form uploaded to Step
// Functions and written to disk.
func (d *Definition) String() string {
	data, err := d.MarshalJSON()
	if err != nil {
		return ""
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return string(data)
	}
	return out.String()
}

func (d *Definition) MarshalJSON() ([]byte, error) {
	fields := make([]field, 0, len(d.fields)+1)
	wroteStates := false
	for _, f := range d.fields {
		if f.key == "States" {
			if wroteStates {
				continue
			}
			states, err := marshalStates(d.States)
			if err != nil {
				return nil, err
			}
			f = field{key: f.key, value: states}
			wroteStates = true
		}
		fields = append(fields, f)
	}
	if !wroteStates {
		states, err := marshalStates(d.States)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field{key: "States", value: states})
	}
	return encodeObject(fields)
}

func marshalStates(states []*State) (json.RawMessage, error) {
	fields := make([]field, 0, len(states))
	for _, state := range states {
		data, err := state.MarshalJSON()
		if err != nil {
			return nil, err
		}
		fields = append(fields, field{key: state.Name, value: data})
	}
	return encodeObject(fields)
}

func (s *State) MarshalJSON() ([]byte, error) {
	fields := make([]field, 0, len(s.fields)+2)
	wroteType, wroteResource := false, false
	for _, f := range s.fields {
		var err error
		switch {
		case f.key == "Type":
			if wroteType {
				continue
			}
			f.value, err = json.Marshal(s.Type)
			wroteType = true
		case f.key == "Resource":
			if wroteResource || s.Resource == nil {
				continue
			}
			f.value, err = json.Marshal(*s.Resource)
			wroteResource = true
		case f.key == "Branches" && s.Branches != nil:
			f.value, err = json.Marshal(s.Branches)
		case f.key == s.processorKey && s.Processor != nil:
			f.value, err = s.Processor.MarshalJSON()
		}
		if err != nil {
			return nil, fmt.Errorf("state %q: %w", s.Name, err)
		}
		fields = append(fields, f)
	}
	if !wroteType && s.Type != "" {
		value, _ := json.Marshal(s.Type)
		fields = append(fields, field{key: "Type", value: value})
	}
	if !wroteResource && s.Resource != nil {
		value, _ := json.Marshal(*s.Resource)
		fields = append(fields, field{key: "Resource", value: value})
	}
	return encodeObject(fields)
}

// decodeObject splits a JSON object into its members, keeping their order.
func decodeObject(data []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errNotObject
	}

	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		fields = append(fields, field{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON object")
	}
	return fields, nil
}

func encodeObject(fields []field) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := json.Compact(&buf, f.value); err != nil {
			return nil, fmt.Errorf("%s: %w", f.key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func isNull(value json.RawMessage) bool {
	return string(bytes.TrimSpace(value)) == "null"
}
