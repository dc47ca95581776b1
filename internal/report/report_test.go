package report

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/bfhl/internal/model"
	"github.com/verte-zerg/bfhl/internal/store"
)

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"ID", "Mode", "Status"}
	rows := [][]string{
		{"1", "json", "200"},
		{"12", "multipart", "500"},
	}
	lines := formatTable(headers, rows, map[int]bool{0: true, 2: true})
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "ID Mode      Status" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != " 1 json         200" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "12 multipart    500" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestDisplayWidthCountsWideRunes(t *testing.T) {
	if got := displayWidth("日本"); got != 4 {
		t.Fatalf("expected width 4, got %d", got)
	}
	if got := truncate("abcdefgh", 5); displayWidth(got) > 5 || !strings.HasSuffix(got, "…") {
		t.Fatalf("unexpected truncation %q", got)
	}
}

func TestBuildHistory(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "bfhl.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	base := time.Unix(0, 0)
	subs := []model.Submission{
		{StartedAt: base, EndedAt: base.Add(100 * time.Millisecond), Mode: "json", ItemCount: 4, Status: 200,
			Outcome: model.OutcomeSuccess, Response: `{"numbers": ["2", "5"]}`, DurationMs: 100},
		{StartedAt: base.Add(time.Minute), EndedAt: base.Add(time.Minute + 300*time.Millisecond), Mode: "multipart",
			ItemCount: 2, Outcome: model.OutcomeFailure, Error: "Error: Connection refused - check if server is running and port is correct", DurationMs: 300},
	}
	for _, sub := range subs {
		if _, err := st.InsertSubmission(ctx, sub); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	h, err := BuildHistory(ctx, st, model.HistoryFilter{})
	if err != nil {
		t.Fatalf("build history: %v", err)
	}
	if h.Summary.Count != 2 || h.Summary.Successes != 1 || h.Summary.Failures != 1 {
		t.Fatalf("unexpected summary: %+v", h.Summary)
	}
	if h.Summary.MeanDuration != 200*time.Millisecond {
		t.Fatalf("unexpected mean duration: %v", h.Summary.MeanDuration)
	}

	lines := FormatHistory(h, 80)
	if len(lines) != 5 {
		t.Fatalf("expected header, 2 rows, blank, summary; got %d lines", len(lines))
	}
	for _, line := range lines[:3] {
		if displayWidth(line) > 80 {
			t.Fatalf("line exceeds width: %q", line)
		}
	}
	if !strings.Contains(lines[1], `{"numbers"`) {
		t.Fatalf("expected response detail in %q", lines[1])
	}
	if !strings.Contains(lines[2], "failure") || !strings.Contains(lines[2], "Error: Conn") {
		t.Fatalf("expected failure row in %q", lines[2])
	}
	if lines[4] != "2 submissions · 1 ok · 1 failed · mean 200ms" {
		t.Fatalf("unexpected summary line %q", lines[4])
	}
}

func TestFormatHistoryEmpty(t *testing.T) {
	lines := FormatHistory(History{}, 80)
	if len(lines) != 1 || lines[0] != "No submissions recorded yet." {
		t.Fatalf("unexpected output: %q", lines)
	}
}
