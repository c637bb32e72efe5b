// Package validation checks request bodies against embedded JSON schemas
// before they are decoded.
package validation

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/labstack/echo/v4"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Additional-Code/burgerbar/pkg/errorbank"
)

// Default messages for rejected bodies.
const (
	MessageInvalidBody      = "Invalid request body."
	MessageValidationFailed = "Request body validation failed"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema is a compiled request schema.
type Schema struct {
	name    string
	message string
	schema  *gojsonschema.Schema
}

// FieldError describes one schema violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Load compiles schemas/<name>.json. message is reported when the body
// parses but does not conform.
func Load(name, message string) (*Schema, error) {
	raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", name, err)
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	if message == "" {
		message = MessageValidationFailed
	}
	return &Schema{name: name, message: message, schema: compiled}, nil
}

// MustLoad is Load for package-level schema variables.
func MustLoad(name, message string) *Schema {
	s, err := Load(name, message)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks body against the schema.
func (s *Schema) Validate(body []byte) error {
	if len(body) == 0 {
		return errorbank.BadRequest(MessageInvalidBody)
	}
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		// Not JSON at all.
		return errorbank.BadRequest(MessageInvalidBody, errorbank.WithCause(err))
	}
	if result.Valid() {
		return nil
	}
	fields := make([]FieldError, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		fields = append(fields, FieldError{Field: e.Field(), Message: e.Description()})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return errorbank.BadRequest(s.message, errorbank.WithDetail("errors", fields))
}

// Bind reads the request body, validates it against s and decodes it into dst.
func Bind(c echo.Context, s *Schema, dst any) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return errorbank.BadRequest(MessageInvalidBody, errorbank.WithCause(err))
	}
	if err := s.Validate(body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errorbank.BadRequest(MessageInvalidBody, errorbank.WithCause(err))
	}
	return nil
}
