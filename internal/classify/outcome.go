package classify

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed response.schema.json
var responseSchemaJSON string

// OutcomeKind tags a parsed generative response.
type OutcomeKind int

const (
	OutcomeMalformed OutcomeKind = iota
	OutcomeOK
)

// Outcome is the parsed generative response. Only OutcomeOK carries fields;
// Category is the raw value and may still be outside the closed set.
type Outcome struct {
	Kind              OutcomeKind
	NormalizedMessage string
	Category          string
	Err               error // why the response was malformed
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ParseOutcome decodes and schema-validates raw. Any decoding or schema
// failure yields OutcomeMalformed.
func ParseOutcome(raw string) Outcome {
	value, err := decodeStrictJSON([]byte(raw))
	if err != nil {
		return Outcome{Kind: OutcomeMalformed, Err: fmt.Errorf("decode response: %w", err)}
	}
	schema, err := loadSchema()
	if err != nil {
		return Outcome{Kind: OutcomeMalformed, Err: err}
	}
	if err := schema.Validate(value); err != nil {
		return Outcome{Kind: OutcomeMalformed, Err: fmt.Errorf("schema validation failed: %w", err)}
	}

	obj := value.(map[string]any)
	msg, _ := obj["normalizedMessage"].(string)
	cat, _ := obj["category"].(string)
	if strings.TrimSpace(msg) == "" {
		return Outcome{Kind: OutcomeMalformed, Err: fmt.Errorf("normalizedMessage is blank")}
	}
	return Outcome{Kind: OutcomeOK, NormalizedMessage: strings.TrimSpace(msg), Category: cat}
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("classification_response.schema.json", strings.NewReader(responseSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, compiledSchemaErr = compiler.Compile("classification_response.schema.json")
	})
	return compiledSchema, compiledSchemaErr
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("response is empty")
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("response contains trailing content")
	}
	return value, nil
}
