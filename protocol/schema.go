package protocol

import (
	"embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// compileSchemas compiles the embedded request schema for every type.
func compileSchemas() (map[string]*jsonschema.Schema, error) {
	out := make(map[string]*jsonschema.Schema, len(Types))
	for _, typ := range Types {
		name := typ + ".schema.json"
		data, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		s, err := jsonschema.CompileString(name, string(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		out[typ] = s
	}
	return out, nil
}
