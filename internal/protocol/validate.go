package protocol

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	helloSchema   = mustSchema("hello.schema.json")
	requestSchema = mustSchema("request.schema.json")
)

func mustSchema(name string) *jsonschema.Schema {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(err)
	}
	return jsonschema.MustCompileString(name, string(raw))
}

// ValidateHello checks a raw HELLO frame against its schema.
func ValidateHello(raw []byte) error { return validate(helloSchema, raw) }

// ValidateRequest checks a raw builder request against its schema, including
// the per-type required fields.
func ValidateRequest(raw []byte) error { return validate(requestSchema, raw) }

func validate(s *jsonschema.Schema, raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return s.Validate(doc)
}
