package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// jsonSchema compiles a schema on first use.
type jsonSchema struct {
	name   string
	source map[string]any

	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

func (s *jsonSchema) compile() (*jsonschema.Schema, error) {
	s.once.Do(func() {
		b, err := json.Marshal(s.source)
		if err != nil {
			s.err = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(s.name, bytes.NewReader(b)); err != nil {
			s.err = fmt.Errorf("add schema: %w", err)
			return
		}
		s.compiled, s.err = compiler.Compile(s.name)
	})
	return s.compiled, s.err
}

// Decode validates data against the schema and unmarshals it into v.
func (s *jsonSchema) Decode(data []byte, v any) error {
	sch, err := s.compile()
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return json.Unmarshal(data, v)
}

func obj(props map[string]any, required ...string) map[string]any {
	out := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func arrayOf(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

var (
	jsonString  = map[string]any{"type": "string"}
	jsonInteger = map[string]any{"type": "integer"}
	jsonPage    = map[string]any{"type": "integer", "minimum": 1}
	jsonIndex   = map[string]any{"type": "integer", "minimum": 0}
	jsonBool    = map[string]any{"type": "boolean"}
	jsonScalar  = map[string]any{"type": []any{"string", "number", "null"}}
)
