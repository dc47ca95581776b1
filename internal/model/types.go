// Package model defines shared data structures.
package model

import (
	"sort"
	"strings"
	"time"
)

// Config defines client settings for a form session.
type Config struct {
	URL              string
	Mode             string
	Timeout          time.Duration
	AllowComments    bool
	KeepStaleOnError bool
	Fields           Selection
	History          bool
}

// File is an optional binary attachment selected by the user.
type File struct {
	Name     string
	MIMEType string
	Content  []byte
}

// Response is the decoded /bfhl response. Nil slices and pointers mean the
// field was absent from the payload.
type Response struct {
	Alphabets        []string
	Numbers          []string
	HighestLowercase []string
	FileValid        *bool
	FileMIMEType     *string
	FileSizeKB       *float64
}

// Field identifies a category of response data the user can display.
type Field int

// Fields in canonical display order.
const (
	FieldAlphabets Field = iota
	FieldNumbers
	FieldHighestLowercase
	FieldFileInfo
)

// AllFields lists every field in canonical display order.
var AllFields = []Field{FieldAlphabets, FieldNumbers, FieldHighestLowercase, FieldFileInfo}

var fieldLabels = map[Field]string{
	FieldAlphabets:        "Alphabets",
	FieldNumbers:          "Numbers",
	FieldHighestLowercase: "Highest lowercase alphabet",
	FieldFileInfo:         "File info",
}

var fieldAliases = map[string]Field{
	"alphabets":                  FieldAlphabets,
	"numbers":                    FieldNumbers,
	"highest lowercase alphabet": FieldHighestLowercase,
	"highest alphabet":           FieldHighestLowercase,
	"file info":                  FieldFileInfo,
	"file details":               FieldFileInfo,
}

// Label returns the display label of the field.
func (f Field) Label() string {
	if label, ok := fieldLabels[f]; ok {
		return label
	}
	return "Unknown"
}

// String implements fmt.Stringer.
func (f Field) String() string {
	return f.Label()
}

// ParseField resolves a label or alias, ignoring case and surrounding space.
func ParseField(token string) (Field, bool) {
	f, ok := fieldAliases[strings.ToLower(strings.TrimSpace(token))]
	return f, ok
}

// FieldAliases returns the accepted tokens for a field, label first.
func FieldAliases(f Field) []string {
	var aliases []string
	for alias, target := range fieldAliases {
		if target != f || strings.EqualFold(alias, f.Label()) {
			continue
		}
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return append([]string{f.Label()}, aliases...)
}

// Selection is a set of fields. Only membership matters.
type Selection uint8

// NewSelection builds a selection from fields.
func NewSelection(fields ...Field) Selection {
	var s Selection
	for _, f := range fields {
		s = s.With(f)
	}
	return s
}

// Has reports whether f is selected.
func (s Selection) Has(f Field) bool {
	return s&(1<<uint(f)) != 0
}

// With returns s with f added.
func (s Selection) With(f Field) Selection {
	return s | 1<<uint(f)
}

// Without returns s with f removed.
func (s Selection) Without(f Field) Selection {
	return s &^ (1 << uint(f))
}

// Toggle flips membership of f.
func (s Selection) Toggle(f Field) Selection {
	return s ^ 1<<uint(f)
}

// Fields returns the selected fields in canonical order.
func (s Selection) Fields() []Field {
	out := make([]Field, 0, len(AllFields))
	for _, f := range AllFields {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Len returns the number of selected fields.
func (s Selection) Len() int {
	return len(s.Fields())
}

// Outcome values recorded for a submission.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Submission records one request/response cycle for the history log.
type Submission struct {
	StartedAt  time.Time
	EndedAt    time.Time
	URL        string
	Mode       string
	ItemCount  int
	FileName   string
	Status     int
	Outcome    string
	Error      string
	Response   string
	DurationMs int64
}

// SubmissionRecord is a stored submission with its id.
type SubmissionRecord struct {
	ID int64
	Submission
}

// HistoryFilter defines filters for listing submissions.
type HistoryFilter struct {
	Since   *time.Time
	Last    int
	Outcome string
}
