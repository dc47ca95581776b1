package response

import (
	"strconv"
	"strings"

	"github.com/verte-zerg/bfhl/internal/model"
)

const (
	noneValue    = "None"
	unknownValue = "Unknown"
	noFileLine   = "No file uploaded or invalid file"
)

// Project formats the selected fields of resp in canonical order. Absent list
// fields produce no line.
func Project(resp model.Response, sel model.Selection) []string {
	lines := make([]string, 0, len(model.AllFields)+2)
	for _, f := range sel.Fields() {
		switch f {
		case model.FieldAlphabets:
			if resp.Alphabets != nil {
				lines = append(lines, listLine(f, resp.Alphabets))
			}
		case model.FieldNumbers:
			if resp.Numbers != nil {
				lines = append(lines, listLine(f, resp.Numbers))
			}
		case model.FieldHighestLowercase:
			if resp.HighestLowercase != nil {
				value := noneValue
				if len(resp.HighestLowercase) > 0 {
					value = resp.HighestLowercase[0]
				}
				lines = append(lines, f.Label()+": "+value)
			}
		case model.FieldFileInfo:
			lines = append(lines, fileLines(resp)...)
		}
	}
	return lines
}

func listLine(f model.Field, values []string) string {
	if len(values) == 0 {
		return f.Label() + ": " + noneValue
	}
	return f.Label() + ": " + strings.Join(values, ", ")
}

func fileLines(resp model.Response) []string {
	if resp.FileValid == nil || !*resp.FileValid {
		return []string{noFileLine}
	}
	mimeType := unknownValue
	if resp.FileMIMEType != nil && *resp.FileMIMEType != "" {
		mimeType = *resp.FileMIMEType
	}
	size := unknownValue
	if resp.FileSizeKB != nil {
		size = FormatSize(*resp.FileSizeKB)
	}
	return []string{
		"File uploaded: True",
		"File MIME type: " + mimeType,
		"File size: " + size + " KB",
	}
}

// FormatSize renders a kilobyte count without trailing zeros.
func FormatSize(kb float64) string {
	return strconv.FormatFloat(kb, 'f', -1, 64)
}
