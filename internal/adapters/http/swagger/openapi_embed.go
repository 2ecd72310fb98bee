package swagger

import _ "embed"

// OpenAPI is the OpenAPI 3 document for the recommendation API, served
// verbatim at /openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPI []byte
