package swaggerkit

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"sync"

	"feedweave/internal/core/version"
)

//go:embed openapi.json
var openapiDoc []byte

// SpecMutator patches the parsed document before it is served
type SpecMutator func(spec map[string]any)

var (
	mu       sync.Mutex
	mutators []SpecMutator
)

// docReader is swapped by tests
var docReader = func() []byte { return openapiDoc }

// Register queues a mutator, modules call it while they are built
func Register(m SpecMutator) {
	if m == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	mutators = append(mutators, m)
}

// Schema adds a component schema unless the document already has one by that name
func Schema(name string, schema map[string]any) SpecMutator {
	return func(spec map[string]any) {
		schemas := child(child(spec, "components"), "schemas")
		if _, ok := schemas[name]; !ok {
			schemas[name] = schema
		}
	}
}

// builtins run before registered mutators
var builtins = []SpecMutator{
	stampVersion,
	defaultServer("/api/v1"),
	Schema("ErrorResponse", errorResponse),
	default500,
}

func serveDocJSON() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		var spec map[string]any
		if err := json.Unmarshal(docReader(), &spec); err != nil {
			http.Error(w, "spec parse error", http.StatusInternalServerError)
			return
		}

		mu.Lock()
		all := append(append([]SpecMutator(nil), builtins...), mutators...)
		mu.Unlock()
		for _, m := range all {
			m(spec)
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(spec)
	}
}

// child returns m[key] as an object, creating it when absent
func child(m map[string]any, key string) map[string]any {
	c, ok := m[key].(map[string]any)
	if !ok {
		c = map[string]any{}
		m[key] = c
	}
	return c
}

func stampVersion(spec map[string]any) {
	if _, ok := spec["openapi"].(string); !ok {
		spec["openapi"] = "3.0.3"
	}
	child(spec, "info")["version"] = version.Info().Version
}

func defaultServer(url string) SpecMutator {
	return func(spec map[string]any) {
		if _, ok := spec["servers"]; !ok {
			spec["servers"] = []any{map[string]any{"url": url}}
		}
	}
}

// errorResponse mirrors the runtime error envelope
var errorResponse = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"status_code": map[string]any{"type": "integer"},
		"status":      map[string]any{"type": "string"},
		"code":        map[string]any{"type": "integer"},
		"error":       map[string]any{"type": "string"},
		"field":       map[string]any{"type": "string"},
		"request_id":  map[string]any{"type": "string"},
	},
	"required": []any{"status_code", "status"},
}

// default500 gives every operation a 500 response unless it declares one
func default500(spec map[string]any) {
	paths, ok := spec["paths"].(map[string]any)
	if !ok {
		return
	}
	resp := map[string]any{
		"description": "Internal Server Error",
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/ErrorResponse"},
			},
		},
	}
	for _, item := range paths {
		ops, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, op := range ops {
			o, ok := op.(map[string]any)
			if !ok {
				continue
			}
			responses := child(o, "responses")
			if _, ok := responses["500"]; !ok {
				responses["500"] = resp
			}
		}
	}
}
