// Package swagger serves the API description and a docs page.
package swagger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
)

// Error constants.
var (
	ErrServe   = errors.New("swagger serve failed")
	ErrConvert = errors.New("openapi conversion failed")
)

// openAPIJSON converts the embedded YAML document once.
var openAPIJSON = sync.OnceValues(func() ([]byte, error) { //nolint:gochecknoglobals // lazily built document
	return ToJSON(OpenAPI)
})

// ToJSON converts an OpenAPI YAML document to JSON.
func ToJSON(doc []byte) ([]byte, error) {
	tree, err := yaml.Parser().Unmarshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConvert, err)
	}
	out, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConvert, err)
	}
	return out, nil
}

// Register attaches the docs page and the OpenAPI document routes to mux.
// Routes:
//
//	GET /docs          -> ReDoc HTML
//	GET /openapi.yaml  -> embedded OpenAPI document
//	GET /openapi.json  -> the same document as JSON
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("GET /docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(indexHTML))
	})

	mux.HandleFunc("GET /openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(OpenAPI)
	})

	mux.HandleFunc("GET /openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		doc, err := openAPIJSON()
		if err != nil {
			http.Error(w, fmt.Errorf("%w: %w", ErrServe, err).Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	})
}

// Minimal HTML that loads ReDoc and points it at /openapi.json.
const indexHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>ROBO-HEIST API Docs</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
    <script>Redoc.init('/openapi.json', { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`
