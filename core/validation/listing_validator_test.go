package validation

import (
	"errors"
	"testing"

	"medmarket/core/audit"
)

func validPayload() []byte {
	return []byte(`{
  "files": [
    {"name": "glucose.csv", "type": "text/csv", "size": 2048},
    {"name": "glucose.csv", "type": "text/csv", "size": 2048},
    {"name": "meds.json", "type": "application/json", "size": 512}
  ],
  "name": "  Glucose logs 2024 ",
  "description": "Daily glucose readings",
  "category": "Medical Records",
  "tags": ["diabetes", "glucose", "diabetes", " "],
  "price": 0.04,
  "anonymizationLevel": "medium",
  "agreeToTerms": true
}`)
}

func newValidator(t *testing.T) (*Validator, *audit.MemoryAuditLogger) {
	t.Helper()
	mem := &audit.MemoryAuditLogger{}
	v, err := NewValidator(mem)
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v, mem
}

func TestValidatePayload_Valid(t *testing.T) {
	v, mem := newValidator(t)
	l, err := v.ValidatePayload(validPayload())
	if err != nil {
		t.Fatalf("Expected valid payload, got error: %v", err)
	}
	if len(l.Files) != 2 {
		t.Errorf("duplicate files should collapse, got %d files", len(l.Files))
	}
	if len(l.Tags) != 2 || l.Tags[0] != "diabetes" || l.Tags[1] != "glucose" {
		t.Errorf("unexpected tags: %v", l.Tags)
	}
	if l.Name != "Glucose logs 2024" {
		t.Errorf("name not trimmed: %q", l.Name)
	}
	if l.ConsentOptions == nil || !l.ConsentOptions.Research || l.ConsentOptions.Commercial {
		t.Errorf("default consent options not applied: %+v", l.ConsentOptions)
	}
	if l.TotalSize() != 2560 {
		t.Errorf("expected total size 2560, got %d", l.TotalSize())
	}
	if len(mem.Events()) != 0 {
		t.Errorf("valid listing should not be audited as a failure")
	}
}

func TestValidatePayload_SchemaViolation(t *testing.T) {
	v, mem := newValidator(t)
	_, err := v.ValidatePayload([]byte(`{"name": "x", "price": "free"}`))
	if err == nil {
		t.Fatal("Expected schema error, got nil")
	}
	var errs Errors
	if !errors.As(err, &errs) || len(errs) == 0 {
		t.Fatalf("expected Errors, got %T", err)
	}
	if ev, ok := mem.Last(audit.EventListing); !ok || ev.Metadata["check"] != "schema_check" {
		t.Errorf("schema failure not audited: %+v", ev)
	}
}

func TestValidatePayload_NotJSON(t *testing.T) {
	v, _ := newValidator(t)
	if _, err := v.ValidatePayload([]byte(`not json`)); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestValidatePayload_UnknownAnonymizationLevel(t *testing.T) {
	v, _ := newValidator(t)
	payload := []byte(`{
  "files": [{"name": "a.csv", "type": "text/csv", "size": 1}],
  "name": "n", "description": "d", "category": "Lab Results",
  "tags": ["t"], "price": 0.01, "anonymizationLevel": "none", "agreeToTerms": true
}`)
	if _, err := v.ValidatePayload(payload); err == nil {
		t.Error("Expected error for unknown anonymization level")
	}
}

func TestValidate_FieldRules(t *testing.T) {
	v, _ := newValidator(t)
	base := func() Listing {
		return Listing{
			Files:        []File{{Name: "a.csv", Type: MimeCSV, Size: 10}},
			Name:         "Sleep study",
			Description:  "Nightly sleep stages",
			Category:     "Wearable Data",
			Tags:         []string{"sleep"},
			Price:        0.02,
			AgreeToTerms: true,
		}
	}

	cases := []struct {
		name  string
		edit  func(*Listing)
		field string
		msg   string
	}{
		{"no files", func(l *Listing) { l.Files = nil }, "files", MsgNoFiles},
		{"pdf", func(l *Listing) { l.Files[0].Type = "application/pdf" }, "files", MsgBadFileType},
		{"too large", func(l *Listing) { l.Files[0].Size = MaxFileSize + 1 }, "files", MsgFileTooLarge},
		{"blank name", func(l *Listing) { l.Name = "   " }, "name", MsgNameRequired},
		{"blank description", func(l *Listing) { l.Description = "" }, "description", MsgDescRequired},
		{"unknown category", func(l *Listing) { l.Category = "Astrology" }, "category", MsgCategory},
		{"no tags", func(l *Listing) { l.Tags = []string{"  "} }, "tags", MsgTagsRequired},
		{"zero price", func(l *Listing) { l.Price = 0 }, "price", MsgInvalidPrice},
		{"negative price", func(l *Listing) { l.Price = -1 }, "price", MsgInvalidPrice},
		{"terms", func(l *Listing) { l.AgreeToTerms = false }, "agreeToTerms", MsgTermsRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := base()
			tc.edit(&l)
			err := v.Validate(&l)
			var errs Errors
			if !errors.As(err, &errs) {
				t.Fatalf("expected Errors, got %v", err)
			}
			if got := errs.Field(tc.field); got != tc.msg {
				t.Errorf("field %s: expected %q, got %q", tc.field, tc.msg, got)
			}
		})
	}

	l := base()
	if err := v.Validate(&l); err != nil {
		t.Errorf("base listing should be valid: %v", err)
	}
}

func TestValidate_FileAtLimitAccepted(t *testing.T) {
	v, _ := newValidator(t)
	l := Listing{
		Files:        []File{{Name: "big.xlsx", Type: MimeXLSX, Size: MaxFileSize}},
		Name:         "n",
		Description:  "d",
		Category:     "Genomic Data",
		Tags:         []string{"genome"},
		Price:        0.5,
		AgreeToTerms: true,
	}
	if err := v.Validate(&l); err != nil {
		t.Errorf("file of exactly 50MB should pass: %v", err)
	}
}
