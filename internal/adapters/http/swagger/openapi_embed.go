package swagger

import _ "embed"

// OpenAPI is the embedded OpenAPI 3 document in YAML.
//
//go:embed openapi.yaml
var OpenAPI []byte
