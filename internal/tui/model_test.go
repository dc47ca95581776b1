package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/bfhl/internal/form"
	"github.com/verte-zerg/bfhl/internal/model"
	"github.com/verte-zerg/bfhl/internal/payload"
	"github.com/verte-zerg/bfhl/internal/response"
	"github.com/verte-zerg/bfhl/internal/transport"
)

type fakePoster struct {
	mu     sync.Mutex
	calls  int
	body   string
	result transport.Result
	err    error
}

func (f *fakePoster) Post(_ context.Context, _ payload.Request) (transport.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.err
}

func (f *fakePoster) URL() string {
	return "http://bfhl.test/bfhl"
}

type fakeRecorder struct {
	subs []model.Submission
}

func (f *fakeRecorder) InsertSubmission(_ context.Context, sub model.Submission) (int64, error) {
	f.subs = append(f.subs, sub)
	return int64(len(f.subs)), nil
}

func successPoster(t *testing.T, body string) *fakePoster {
	t.Helper()
	resp, err := response.Decode([]byte(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return &fakePoster{result: transport.Result{Response: resp, Status: 200, Duration: 40 * time.Millisecond, Raw: []byte(body)}}
}

// runCmd executes cmd and returns the submitDoneMsg it produced, if any.
func runCmd(t *testing.T, cmd tea.Cmd) (submitDoneMsg, bool) {
	t.Helper()
	if cmd == nil {
		return submitDoneMsg{}, false
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if done, ok := runCmd(t, c); ok {
				return done, true
			}
		}
		return submitDoneMsg{}, false
	}
	done, ok := msg.(submitDoneMsg)
	return done, ok
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSubmitScenarioAndSelection(t *testing.T) {
	poster := successPoster(t, `{"numbers":["2","5"],"alphabets":["A"],"highest_lowercase_alphabet":[],"file_valid":false}`)
	rec := &fakeRecorder{}
	m := NewModel(form.New(form.Options{}, form.DefaultInput, 0), poster, rec)

	_, cmd := m.Update(key(tea.KeyCtrlS))
	if !m.State().Busy() {
		t.Fatalf("expected submitting state")
	}
	if !strings.Contains(m.View(), "Submitting...") {
		t.Fatalf("expected busy indicator in view")
	}
	if _, second := m.Update(key(tea.KeyCtrlS)); second != nil {
		t.Fatalf("expected second submit to be a no-op")
	}

	done, ok := runCmd(t, cmd)
	if !ok {
		t.Fatalf("expected submit command to produce a result")
	}
	m.Update(done)
	if poster.calls != 1 {
		t.Fatalf("expected exactly one request, got %d", poster.calls)
	}
	if !m.State().SelectorVisible() {
		t.Fatalf("expected selector after success")
	}

	// input -> file -> submit -> selector
	for i := 0; i < 3; i++ {
		m.Update(key(tea.KeyTab))
	}
	if m.focus != focusSelector {
		t.Fatalf("expected selector focus, got %v", m.focus)
	}
	m.Update(key(tea.KeySpace)) // Alphabets
	m.Update(runes("j"))
	m.Update(key(tea.KeySpace)) // Numbers

	want := []string{"Alphabets: A", "Numbers: 2, 5"}
	lines := m.State().Lines()
	if len(lines) != 2 || lines[0] != want[0] || lines[1] != want[1] {
		t.Fatalf("unexpected lines: %q", lines)
	}
	view := m.View()
	if !containsAll(view, []string{"[x] Alphabets", "[x] Numbers", "• Alphabets: A", "• Numbers: 2, 5", "HTTP 200", "2/4 fields"}) {
		t.Fatalf("view missing expected segments:\n%s", view)
	}

	if len(rec.subs) != 1 {
		t.Fatalf("expected one recorded submission, got %d", len(rec.subs))
	}
	if sub := rec.subs[0]; sub.Outcome != model.OutcomeSuccess || sub.ItemCount != 4 || sub.URL != "http://bfhl.test/bfhl" {
		t.Fatalf("unexpected record: %+v", sub)
	}
}

func TestInvalidInputShowsErrorWithoutRequest(t *testing.T) {
	poster := &fakePoster{}
	m := NewModel(form.New(form.Options{}, `{"data": "nope"}`, 0), poster, nil)

	_, cmd := m.Update(key(tea.KeyCtrlS))
	if cmd != nil {
		t.Fatalf("expected no command for invalid input")
	}
	if poster.calls != 0 {
		t.Fatalf("expected no request")
	}
	if !strings.Contains(m.View(), "Error: Invalid input format") {
		t.Fatalf("expected error banner, got:\n%s", m.View())
	}
}

func TestFailureRecordsErrorAndHidesSelector(t *testing.T) {
	poster := &fakePoster{err: &model.HTTPError{Status: 500, Body: "boom"}, result: transport.Result{Status: 500}}
	rec := &fakeRecorder{}
	m := NewModel(form.New(form.Options{}, form.DefaultInput, 0), poster, rec)

	_, cmd := m.Update(key(tea.KeyCtrlS))
	done, ok := runCmd(t, cmd)
	if !ok {
		t.Fatalf("expected submit result")
	}
	m.Update(done)

	if m.State().SelectorVisible() {
		t.Fatalf("expected no selector after failure")
	}
	if !strings.Contains(m.View(), "Error: HTTP error! status: 500, message: boom") {
		t.Fatalf("expected error banner, got:\n%s", m.View())
	}
	if len(rec.subs) != 1 || rec.subs[0].Outcome != model.OutcomeFailure || rec.subs[0].Status != 500 {
		t.Fatalf("unexpected record: %+v", rec.subs)
	}
}

func TestTypingUpdatesFormInput(t *testing.T) {
	m := NewModel(form.New(form.Options{}, "", 0), &fakePoster{}, nil)
	m.Update(runes(`{"data": []}`))
	if got := m.State().Input; got != `{"data": []}` {
		t.Fatalf("expected typed input to reach form state, got %q", got)
	}
}

func TestFocusSkipsSelectorWithoutResponse(t *testing.T) {
	m := NewModel(form.New(form.Options{}, form.DefaultInput, 0), &fakePoster{}, nil)
	seen := map[focusArea]bool{}
	for i := 0; i < 6; i++ {
		m.Update(key(tea.KeyTab))
		seen[m.focus] = true
	}
	if seen[focusSelector] {
		t.Fatalf("selector should not take focus before a response exists")
	}
	if !seen[focusFile] || !seen[focusSubmit] || !seen[focusInput] {
		t.Fatalf("expected focus to cycle through form controls: %v", seen)
	}
}

func TestRenderFooterFormats(t *testing.T) {
	m := NewModel(form.New(form.Options{Mode: payload.ModeJSON}, "", model.NewSelection(model.FieldNumbers)), &fakePoster{}, nil)
	m.lastStatus = 201
	m.lastDuration = 1500 * time.Millisecond
	out := m.renderFooter()
	if !containsAll(out, []string{"json", "HTTP 201", "1.50s", "1/4 fields"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func TestLateResultAfterFailureIsIgnored(t *testing.T) {
	rec := &fakeRecorder{}
	m := NewModel(form.New(form.Options{}, form.DefaultInput, 0), &fakePoster{}, rec)
	m.Update(submitDoneMsg{err: errors.New("late"), result: transport.Result{Status: 502, Duration: time.Second}})
	if m.State().Err != "" {
		t.Fatalf("expected result outside a submission to be ignored")
	}
	if m.lastStatus != 0 || m.lastDuration != 0 {
		t.Fatalf("expected footer untouched, got status %d duration %s", m.lastStatus, m.lastDuration)
	}
	if len(rec.subs) != 0 {
		t.Fatalf("expected no history record for a late result, got %+v", rec.subs)
	}
}

func TestFormWidthBeforeWindowSize(t *testing.T) {
	m := NewModel(form.New(form.Options{}, "", 0), &fakePoster{}, nil)
	if got := m.formWidth(); got != maxFormWidth {
		t.Fatalf("expected %d before first resize, got %d", maxFormWidth, got)
	}
	m.Update(tea.WindowSizeMsg{Width: 10, Height: 20})
	if got := m.formWidth(); got != minFormWidth {
		t.Fatalf("expected %d for a narrow window, got %d", minFormWidth, got)
	}
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	if got := m.formWidth(); got != 60-inputHeadroom {
		t.Fatalf("expected %d, got %d", 60-inputHeadroom, got)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
