// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package protocol

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
)

// Schema ids of the wire messages.
const (
	RequestSchemaID  = "https://holomush.dev/schemas/userauth-request.schema.json"
	ResponseSchemaID = "https://holomush.dev/schemas/userauth-response.schema.json"
)

func reflectSchema(v any, id, title string) ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true}
	schema := r.Reflect(v)
	schema.ID = jsonschema.ID(id)
	schema.Title = title

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("SCHEMA_GENERATE_FAILED").With("schema", title).Wrap(err)
	}
	return data, nil
}

// RequestSchema returns the JSON Schema of a request message.
func RequestSchema() ([]byte, error) {
	return reflectSchema(&WireRequest{}, RequestSchemaID, "userauth request")
}

// ResponseSchema returns the JSON Schema of a response message.
func ResponseSchema() ([]byte, error) {
	return reflectSchema(&Response{}, ResponseSchemaID, "userauth response")
}
