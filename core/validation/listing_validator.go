// Package validation checks dataset listings before they are published.
package validation

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"medmarket/core/audit"
)

//go:embed schemas/listing_schema_v1.json
var schemaFS embed.FS

const schemaPath = "schemas/listing_schema_v1.json"

// Field error messages.
const (
	MsgNoFiles        = "Please upload at least one file"
	MsgBadFileType    = "Only CSV, JSON, and XLSX files are allowed"
	MsgFileTooLarge   = "Files must be smaller than 50MB"
	MsgNameRequired   = "Dataset name is required"
	MsgDescRequired   = "Description is required"
	MsgCategory       = "Please select a category"
	MsgTagsRequired   = "Please add at least one tag"
	MsgInvalidPrice   = "Please enter a valid price"
	MsgTermsRequired  = "You must agree to the terms"
	MsgMalformedInput = "Listing is malformed"
)

// FieldError is a validation failure tied to one listing field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors collects every field failure of a listing.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(parts, "; ")
}

// Field returns the message for field, or "".
func (e Errors) Field(field string) string {
	for _, fe := range e {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

// Validator checks listings against the embedded JSON schema and the
// marketplace rules.
type Validator struct {
	schema *gojsonschema.Schema
	audit  audit.AuditLogger
}

// NewValidator compiles the listing schema. A nil logger disables auditing.
func NewValidator(a audit.AuditLogger) (*Validator, error) {
	raw, err := schemaFS.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("read listing schema: %w", err)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile listing schema: %w", err)
	}
	if a == nil {
		a = audit.Nop{}
	}
	return &Validator{schema: schema, audit: a}, nil
}

// ValidatePayload decodes a raw JSON listing, checks its structure against the
// schema, normalizes it and applies the field rules.
func (v *Validator) ValidatePayload(payload []byte) (*Listing, error) {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		v.auditFailure("schema_check", err.Error())
		return nil, Errors{{Field: "listing", Message: MsgMalformedInput}}
	}
	if !result.Valid() {
		errs := make(Errors, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			errs = append(errs, FieldError{Field: re.Field(), Message: re.Description()})
		}
		v.auditFailure("schema_check", errs.Error())
		return nil, errs
	}

	var l Listing
	if err := json.Unmarshal(payload, &l); err != nil {
		v.auditFailure("decode", err.Error())
		return nil, Errors{{Field: "listing", Message: MsgMalformedInput}}
	}
	if err := v.Validate(&l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Validate normalizes l in place and applies the field rules. It returns an
// Errors value listing every failed field, or nil.
func (v *Validator) Validate(l *Listing) error {
	l.Normalize()

	var errs Errors
	if len(l.Files) == 0 {
		errs = append(errs, FieldError{"files", MsgNoFiles})
	}
	for _, f := range l.Files {
		if !allowedMimeTypes[f.Type] {
			errs = append(errs, FieldError{"files", MsgBadFileType})
			break
		}
	}
	for _, f := range l.Files {
		if f.Size > MaxFileSize {
			errs = append(errs, FieldError{"files", MsgFileTooLarge})
			break
		}
	}
	if l.Name == "" {
		errs = append(errs, FieldError{"name", MsgNameRequired})
	}
	if l.Description == "" {
		errs = append(errs, FieldError{"description", MsgDescRequired})
	}
	if !IsValidCategory(l.Category) {
		errs = append(errs, FieldError{"category", MsgCategory})
	}
	if len(l.Tags) == 0 {
		errs = append(errs, FieldError{"tags", MsgTagsRequired})
	}
	if !(l.Price > 0) {
		errs = append(errs, FieldError{"price", MsgInvalidPrice})
	}
	if !l.AgreeToTerms {
		errs = append(errs, FieldError{"agreeToTerms", MsgTermsRequired})
	}

	if len(errs) > 0 {
		v.auditFailure("field_check", errs.Error())
		return errs
	}
	return nil
}

// IsValidCategory checks the category against the known list.
func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// auditFailure records a rejected listing without its content.
func (v *Validator) auditFailure(check, msg string) {
	v.audit.LogEvent(audit.New(audit.EventListing, "", audit.ResultFailure, msg, map[string]string{"check": check}))
}
