package report

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/verte-zerg/bfhl/internal/model"
	"github.com/verte-zerg/bfhl/internal/store"
	"github.com/verte-zerg/bfhl/internal/transport"
)

const (
	terminalWidthBackup = 100
	minDetailWidth      = 12
	timeLayout          = "2006-01-02 15:04:05"
)

// Summary aggregates a set of submissions.
type Summary struct {
	Count        int
	Successes    int
	Failures     int
	MeanDuration time.Duration
}

// History contains precomputed data for the history view.
type History struct {
	Records []model.SubmissionRecord
	Summary Summary
}

// BuildHistory loads submissions matching f and summarizes them.
func BuildHistory(ctx context.Context, st *store.Store, f model.HistoryFilter) (History, error) {
	records, err := st.ListSubmissions(ctx, f)
	if err != nil {
		return History{}, err
	}
	return History{Records: records, Summary: Summarize(records)}, nil
}

// Summarize counts outcomes and averages durations.
func Summarize(records []model.SubmissionRecord) Summary {
	var s Summary
	var totalMs int64
	for _, rec := range records {
		s.Count++
		switch rec.Outcome {
		case model.OutcomeSuccess:
			s.Successes++
		case model.OutcomeFailure:
			s.Failures++
		}
		totalMs += rec.DurationMs
	}
	if s.Count > 0 {
		s.MeanDuration = time.Duration(totalMs/int64(s.Count)) * time.Millisecond
	}
	return s
}

// FormatHistory renders h as an aligned table no wider than width. The last
// column (error or response body) is truncated to fit.
func FormatHistory(h History, width int) []string {
	if len(h.Records) == 0 {
		return []string{"No submissions recorded yet."}
	}
	headers := []string{"ID", "Ended", "Mode", "Items", "File", "Status", "Duration", "Detail"}
	rows := make([][]string, 0, len(h.Records))
	for _, rec := range h.Records {
		rows = append(rows, []string{
			strconv.FormatInt(rec.ID, 10),
			rec.EndedAt.Local().Format(timeLayout),
			rec.Mode,
			strconv.Itoa(rec.ItemCount),
			orDash(rec.FileName),
			statusCell(rec),
			transport.FormatDuration(time.Duration(rec.DurationMs) * time.Millisecond),
			detailCell(rec),
		})
	}

	detailCol := len(headers) - 1
	widths := columnWidths(headers, rows, len(headers))
	fixed := 0
	for i := 0; i < detailCol; i++ {
		fixed += widths[i] + 1
	}
	detailWidth := width - fixed
	if detailWidth < minDetailWidth {
		detailWidth = minDetailWidth
	}
	for _, row := range rows {
		row[detailCol] = truncate(row[detailCol], detailWidth)
	}

	lines := formatTable(headers, rows, map[int]bool{0: true, 3: true, 5: true, 6: true})
	lines = append(lines, "", summaryLine(h.Summary))
	return lines
}

func summaryLine(s Summary) string {
	return fmt.Sprintf("%d submissions · %d ok · %d failed · mean %s",
		s.Count, s.Successes, s.Failures, transport.FormatDuration(s.MeanDuration))
}

func statusCell(rec model.SubmissionRecord) string {
	if rec.Status == 0 {
		return rec.Outcome
	}
	return strconv.Itoa(rec.Status)
}

func detailCell(rec model.SubmissionRecord) string {
	detail := rec.Response
	if rec.Outcome == model.OutcomeFailure && rec.Error != "" {
		detail = rec.Error
	}
	return strings.Join(strings.Fields(detail), " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// TerminalWidth returns the width of f when it is a terminal.
func TerminalWidth(f *os.File) int {
	if !term.IsTerminal(int(f.Fd())) {
		return terminalWidthBackup
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}
