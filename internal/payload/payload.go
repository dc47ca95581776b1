// Package payload validates form input and encodes request bodies.
package payload

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/verte-zerg/bfhl/internal/model"
)

// Mode selects the request body encoding.
type Mode string

// Supported request encodings.
const (
	ModeJSON      Mode = "json"
	ModeMultipart Mode = "multipart"
)

const defaultFileMIME = "application/octet-stream"

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeJSON:
		return ModeJSON, nil
	case ModeMultipart:
		return ModeMultipart, nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected json or multipart)", s)
	}
}

// ParseOptions tunes input parsing.
type ParseOptions struct {
	AllowComments bool
}

// Input is form text that passed the shape check.
type Input struct {
	Object map[string]any
	Data   []any
}

// ItemCount returns the number of entries in data.
func (in Input) ItemCount() int {
	return len(in.Data)
}

// Request is an encoded body ready for transport.
type Request struct {
	Body        []byte
	ContentType string
	Mode        Mode
}

// Parse decodes the raw form text and checks that it carries a data array.
func Parse(text string, opts ParseOptions) (Input, error) {
	src := []byte(text)
	if opts.AllowComments {
		src = jsonc.ToJSON(src)
	}
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return Input{}, &model.ParseError{Source: model.SourceInput, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Input{}, &model.ParseError{Source: model.SourceInput, Err: errors.New("unexpected data after JSON value")}
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return Input{}, &model.ShapeError{Reason: "expected a JSON object"}
	}
	raw, ok := obj["data"]
	if !ok {
		return Input{}, &model.ShapeError{Reason: `missing "data"`}
	}
	data, ok := raw.([]any)
	if !ok {
		return Input{}, &model.ShapeError{Reason: `"data" must be an array`}
	}
	return Input{Object: obj, Data: data}, nil
}

// DataURI encodes a file as a base64 data URI.
func DataURI(f model.File) string {
	return "data:" + mimeOrDefault(f.MIMEType) + ";base64," + base64.StdEncoding.EncodeToString(f.Content)
}

// EmbedFile returns a copy of in carrying f under file_b64, the way JSON mode
// transmits attachments.
func EmbedFile(in Input, f model.File) Input {
	obj := make(map[string]any, len(in.Object)+1)
	for k, v := range in.Object {
		obj[k] = v
	}
	obj["file_b64"] = DataURI(f)
	return Input{Object: obj, Data: in.Data}
}

// Build encodes in (and file, in multipart mode) as a request body. JSON mode
// sends the object as-is; use EmbedFile beforehand to carry a file.
func Build(in Input, file *model.File, mode Mode) (Request, error) {
	switch mode {
	case ModeJSON:
		return buildJSON(in)
	case ModeMultipart:
		return buildMultipart(in, file)
	default:
		return Request{}, &model.RequestSetupError{Message: fmt.Sprintf("unknown request mode %q", mode)}
	}
}

func buildJSON(in Input) (Request, error) {
	body, err := json.Marshal(in.Object)
	if err != nil {
		return Request{}, &model.RequestSetupError{Message: "failed to encode JSON body", Err: err}
	}
	return Request{Body: body, ContentType: "application/json", Mode: ModeJSON}, nil
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func buildMultipart(in Input, file *model.File) (Request, error) {
	data, err := json.Marshal(in.Data)
	if err != nil {
		return Request{}, &model.RequestSetupError{Message: "failed to encode data field", Err: err}
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("data", string(data)); err != nil {
		return Request{}, &model.RequestSetupError{Message: "failed to write data field", Err: err}
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
		h.Set("Content-Type", mimeOrDefault(file.MIMEType))
		part, err := w.CreatePart(h)
		if err != nil {
			return Request{}, &model.RequestSetupError{Message: "failed to create file field", Err: err}
		}
		if _, err := part.Write(file.Content); err != nil {
			return Request{}, &model.RequestSetupError{Message: "failed to write file field", Err: err}
		}
	}
	if err := w.Close(); err != nil {
		return Request{}, &model.RequestSetupError{Message: "failed to finish multipart body", Err: err}
	}
	return Request{Body: buf.Bytes(), ContentType: w.FormDataContentType(), Mode: ModeMultipart}, nil
}

func mimeOrDefault(mimeType string) string {
	if strings.TrimSpace(mimeType) == "" {
		return defaultFileMIME
	}
	return mimeType
}
