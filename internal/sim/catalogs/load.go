package catalogs

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed blocks.schema.json
var blocksSchemaJSON string

var blocksSchema = jsonschema.MustCompileString("blocks.schema.json", blocksSchemaJSON)

type blockFileEntry struct {
	ID string `json:"id"`
	BlockDef
	Properties *Properties `json:"properties,omitempty"`
}

// LoadFile reads a blocks.json catalog. The file is checked against the
// embedded schema before any entry is registered.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Parse(raw []byte) (*Catalog, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("blocks.json: %w", err)
	}
	if err := blocksSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("blocks.json: schema: %w", err)
	}

	var entries []blockFileEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("blocks.json: %w", err)
	}
	c := New()
	for _, e := range entries {
		if _, dup := c.defs[e.ID]; dup {
			return nil, fmt.Errorf("blocks.json: duplicate id %q", e.ID)
		}
		c.Register(e.ID, e.BlockDef)
		if e.Properties != nil {
			c.SetDefaultProperties(e.ID, *e.Properties)
		}
	}
	return c, nil
}
