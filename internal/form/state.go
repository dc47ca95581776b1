// Package form holds the submission state machine behind the form view.
//
// State is a value. Every transition returns a new State and never touches
// the receiver, so the view only has to keep the latest value.
package form

import (
	"errors"
	"time"

	"github.com/verte-zerg/bfhl/internal/model"
	"github.com/verte-zerg/bfhl/internal/payload"
	"github.com/verte-zerg/bfhl/internal/response"
)

// DefaultInput is the example payload shown on start.
const DefaultInput = `{"data": ["2", "A", "5", "A"]}`

// ErrBusy is returned by Begin while a submission is in flight.
var ErrBusy = errors.New("submission already in flight")

// Phase is the interaction state.
type Phase int

// Phases of a submission.
const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseSuccess
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSuccess:
		return "success"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options control encoding and error display.
type Options struct {
	Mode             payload.Mode
	AllowComments    bool
	KeepStaleOnError bool
}

// Pending describes a request that passed validation.
type Pending struct {
	Request   payload.Request
	ItemCount int
	FileName  string
}

// State owns every slot of the form.
type State struct {
	Input     string
	File      *model.File
	Response  *model.Response
	Err       string
	Selection model.Selection
	Phase     Phase

	opts Options
}

// New returns an idle form.
func New(opts Options, input string, sel model.Selection) State {
	if opts.Mode == "" {
		opts.Mode = payload.ModeMultipart
	}
	return State{Input: input, Selection: sel, opts: opts}
}

// Options returns the options the form was built with.
func (s State) Options() Options {
	return s.opts
}

// Edit replaces the input text. A finished submission returns to Idle.
func (s State) Edit(text string) State {
	s.Input = text
	return s.settle()
}

// AttachFile sets the optional file.
func (s State) AttachFile(f model.File) State {
	s.File = &f
	return s.settle()
}

// DetachFile clears the optional file.
func (s State) DetachFile() State {
	s.File = nil
	return s.settle()
}

func (s State) settle() State {
	if s.Phase == PhaseSuccess || s.Phase == PhaseFailed {
		s.Phase = PhaseIdle
	}
	return s
}

// Begin validates and encodes the input. While a submission is in flight it
// returns ErrBusy and leaves the state alone; a validation failure moves to
// Failed without producing a request.
func (s State) Begin() (State, Pending, error) {
	if s.Phase == PhaseSubmitting {
		return s, Pending{}, ErrBusy
	}
	pending, err := s.build()
	if err != nil {
		return s.fail(err), Pending{}, err
	}
	s.Err = ""
	s.Phase = PhaseSubmitting
	return s, pending, nil
}

func (s State) build() (Pending, error) {
	in, err := payload.Parse(s.Input, payload.ParseOptions{AllowComments: s.opts.AllowComments})
	if err != nil {
		return Pending{}, err
	}
	pending := Pending{ItemCount: in.ItemCount()}
	if s.File != nil {
		pending.FileName = s.File.Name
		if s.opts.Mode == payload.ModeJSON {
			in = payload.EmbedFile(in, *s.File)
		}
	}
	req, err := payload.Build(in, s.File, s.opts.Mode)
	if err != nil {
		return Pending{}, err
	}
	pending.Request = req
	return pending, nil
}

// Succeed stores a response. It is ignored unless a submission is in flight.
func (s State) Succeed(resp model.Response) State {
	if s.Phase != PhaseSubmitting {
		return s
	}
	s.Response = &resp
	s.Err = ""
	s.Phase = PhaseSuccess
	return s
}

// Fail records a failed submission. It is ignored unless a submission is in
// flight.
func (s State) Fail(err error) State {
	if s.Phase != PhaseSubmitting {
		return s
	}
	return s.fail(err)
}

func (s State) fail(err error) State {
	s.Err = Describe(err)
	s.Phase = PhaseFailed
	if !s.opts.KeepStaleOnError {
		s.Response = nil
	}
	return s
}

// Toggle flips a field in the selection.
func (s State) Toggle(f model.Field) State {
	s.Selection = s.Selection.Toggle(f)
	return s
}

// Select replaces the selection.
func (s State) Select(sel model.Selection) State {
	s.Selection = sel
	return s
}

// Busy reports whether a submission is in flight.
func (s State) Busy() bool {
	return s.Phase == PhaseSubmitting
}

// CanSubmit reports whether the submit control is enabled.
func (s State) CanSubmit() bool {
	return !s.Busy()
}

// SelectorVisible reports whether a response is available to project.
func (s State) SelectorVisible() bool {
	return s.Response != nil
}

// Lines projects the stored response through the current selection.
func (s State) Lines() []string {
	if s.Response == nil {
		return nil
	}
	return response.Project(*s.Response, s.Selection)
}

// Submission builds the history record of a finished request.
func (p Pending) Submission(url string, status int, raw []byte, err error, startedAt, endedAt time.Time) model.Submission {
	sub := model.Submission{
		StartedAt:  startedAt,
		EndedAt:    endedAt,
		URL:        url,
		Mode:       string(p.Request.Mode),
		ItemCount:  p.ItemCount,
		FileName:   p.FileName,
		Status:     status,
		Outcome:    model.OutcomeSuccess,
		Response:   string(raw),
		DurationMs: endedAt.Sub(startedAt).Milliseconds(),
	}
	if err != nil {
		sub.Outcome = model.OutcomeFailure
		sub.Error = Describe(err)
	}
	return sub
}
