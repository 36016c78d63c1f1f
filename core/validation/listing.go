package validation

import "strings"

// MaxFileSize is the per-file upload limit (50 MB).
const MaxFileSize int64 = 50 * 1024 * 1024

// Accepted upload MIME types.
const (
	MimeCSV  = "text/csv"
	MimeJSON = "application/json"
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var allowedMimeTypes = map[string]bool{
	MimeCSV:  true,
	MimeJSON: true,
	MimeXLSX: true,
}

// Categories are the dataset categories a listing may be filed under.
var Categories = []string{
	"Medical Records",
	"Wearable Data",
	"Lab Results",
	"Clinical Data",
	"Genomic Data",
	"Dietary Data",
	"Psychological Data",
}

// File describes one uploaded file. Only metadata is kept.
type File struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

type ConsentOptions struct {
	Research   bool `json:"research"`
	Commercial bool `json:"commercial"`
	TimeLimit  bool `json:"timeLimit"`
	Revoke     bool `json:"revoke"`
}

// DefaultConsentOptions matches the upload form defaults.
func DefaultConsentOptions() ConsentOptions {
	return ConsentOptions{Research: true, TimeLimit: true, Revoke: true}
}

// Listing is a patient's request to publish a dataset.
type Listing struct {
	Files              []File          `json:"files"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Category           string          `json:"category"`
	Tags               []string        `json:"tags"`
	Price              float64         `json:"price"`
	AnonymizationLevel string          `json:"anonymizationLevel,omitempty"`
	ConsentOptions     *ConsentOptions `json:"consentOptions,omitempty"`
	AgreeToTerms       bool            `json:"agreeToTerms"`
}

// TotalSize is the combined size of all files in bytes.
func (l *Listing) TotalSize() int64 {
	var n int64
	for _, f := range l.Files {
		n += f.Size
	}
	return n
}

// Normalize trims text fields, fills defaults and collapses duplicate files
// (same name and size) and duplicate tags.
func (l *Listing) Normalize() {
	l.Name = strings.TrimSpace(l.Name)
	l.Description = strings.TrimSpace(l.Description)
	l.Category = strings.TrimSpace(l.Category)
	if l.AnonymizationLevel == "" {
		l.AnonymizationLevel = "high"
	}
	if l.ConsentOptions == nil {
		c := DefaultConsentOptions()
		l.ConsentOptions = &c
	}

	type fileKey struct {
		name string
		size int64
	}
	seenFiles := make(map[fileKey]bool, len(l.Files))
	files := l.Files[:0]
	for _, f := range l.Files {
		k := fileKey{f.Name, f.Size}
		if seenFiles[k] {
			continue
		}
		seenFiles[k] = true
		files = append(files, f)
	}
	l.Files = files

	seenTags := make(map[string]bool, len(l.Tags))
	tags := make([]string, 0, len(l.Tags))
	for _, t := range l.Tags {
		t = strings.TrimSpace(t)
		if t == "" || seenTags[t] {
			continue
		}
		seenTags[t] = true
		tags = append(tags, t)
	}
	l.Tags = tags
}
