// Package tui provides the Bubble Tea form interface.
package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

type wordRange struct {
	start int
	end   int
}

func findWords(runes []rune) []wordRange {
	words := []wordRange{}
	start := -1
	for i, r := range runes {
		if r == ' ' {
			if start != -1 {
				words = append(words, wordRange{start: start, end: i})
				start = -1
			}
			continue
		}
		if start == -1 {
			start = i
		}
	}
	if start != -1 {
		words = append(words, wordRange{start: start, end: len(runes)})
	}
	return words
}

// wrapText breaks text at spaces so each line fits width cells. Words wider
// than width are split.
func wrapText(text string, width int) []string {
	if width <= 0 || runewidth.StringWidth(text) <= width {
		return []string{text}
	}
	runes := []rune(text)
	var lines []string
	var line strings.Builder
	lineWidth := 0

	flush := func() {
		lines = append(lines, line.String())
		line.Reset()
		lineWidth = 0
	}

	for _, w := range findWords(runes) {
		word := runes[w.start:w.end]
		wordWidth := runesWidth(word)
		if lineWidth > 0 && lineWidth+1+wordWidth > width {
			flush()
		}
		if lineWidth > 0 {
			line.WriteByte(' ')
			lineWidth++
		}
		for _, r := range word {
			rw := runewidth.RuneWidth(r)
			if lineWidth+rw > width && lineWidth > 0 {
				flush()
			}
			line.WriteRune(r)
			lineWidth += rw
		}
	}
	if lineWidth > 0 || len(lines) == 0 {
		flush()
	}
	return lines
}

func runesWidth(runes []rune) int {
	total := 0
	for _, r := range runes {
		total += runewidth.RuneWidth(r)
	}
	return total
}
