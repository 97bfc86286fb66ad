package server

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// componentSchemaDoc is the bundled OpenAPI 3 description of the
// /registry/components request body. handleRegister validates every
// inbound document against it before a registry.Component is ever
// constructed, so a malformed request never reaches registry state.
const componentSchemaDoc = `
openapi: 3.0.3
info:
  title: Service Registry component registration
  version: "1.0"
paths: {}
components:
  schemas:
    Component:
      type: object
      required: [id, instance_uuid]
      properties:
        id:
          type: string
          minLength: 1
        instance_uuid:
          type: string
          minLength: 1
        type:
          type: string
        namespace:
          type: string
        endpoint:
          type: string
        capabilities:
          type: array
          nullable: true
          items:
            type: object
            required: [name]
            properties:
              name:
                type: string
                minLength: 1
              priority:
                type: integer
        state:
          type: string
        health:
          type: string
        metadata:
          type: object
          additionalProperties:
            type: string
`

// componentSchema compiles componentSchemaDoc once at package init. A
// failure here is a programming error in the bundled document, not
// something a request can trigger, so it panics like the rest of the
// pack's embedded-schema setups do.
var componentSchema = mustLoadComponentSchema()

func mustLoadComponentSchema() *openapi3.Schema {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData([]byte(componentSchemaDoc))
	if err != nil {
		panic(fmt.Sprintf("registry: failed to parse bundled component schema: %v", err))
	}
	if err := doc.Validate(loader.Context); err != nil {
		panic(fmt.Sprintf("registry: bundled component schema is invalid: %v", err))
	}
	return doc.Components.Schemas["Component"].Value
}

// validateComponentDoc checks body (already JSON-decoded into a generic
// map) against the bundled Component schema.
func validateComponentDoc(body map[string]interface{}) error {
	return componentSchema.VisitJSON(body, openapi3.MultiErrors())
}
