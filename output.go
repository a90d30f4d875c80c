package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mitchellh/go-wordwrap"

	"github.com/etnz/drivefiles/catalog"
)

// printEntriesJSON writes entries as a JSON array.
func printEntriesJSON(w io.Writer, entries []catalog.Entry) error {
	if entries == nil {
		entries = []catalog.Entry{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encoding files to JSON: %w", err)
	}

	return nil
}

// printEntriesTable writes entries as aligned columns.
func printEntriesTable(w io.Writer, entries []catalog.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No files found.")
		return
	}

	headers := []string{"PATH", "MODIFIED", "TYPE", "ID"}
	rows := make([][]string, 0, len(entries))

	for _, e := range entries {
		rows = append(rows, []string{e.FullPath, formatTime(e.Modified), e.MimeType, e.ID})
	}

	printTable(w, headers, rows)
}

// printTable writes aligned columns. headers and each row must have the same
// length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

func printRow(w io.Writer, cells []string, widths []int) {
	for i, cell := range cells {
		if i == len(cells)-1 {
			fmt.Fprintln(w, cell)
			continue
		}

		fmt.Fprintf(w, "%-*s  ", widths[i], cell)
	}
}

// formatTime returns a compact timestamp, or "-" for an unknown time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	if t.Year() == time.Now().Year() {
		return t.Local().Format("Jan _2 15:04")
	}

	return t.Local().Format("Jan _2  2006")
}

// Size unit constants for human-readable formatting.
const (
	sizeKB = 1024
	sizeMB = 1024 * 1024
)

// formatSize returns a human-readable size string (e.g. "1.2 MB").
func formatSize(n int) string {
	switch {
	case n >= sizeMB:
		return fmt.Sprintf("%.1f MB", float64(n)/float64(sizeMB))
	case n >= sizeKB:
		return fmt.Sprintf("%.1f KB", float64(n)/float64(sizeKB))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// failureWrapWidth is the width failure notices are wrapped to.
const failureWrapWidth = 80

// printFailure writes err in red, wrapped to failureWrapWidth. The first line
// is prefixed with "Error:", the following ones are indented to match, and a
// hint for the next step follows when one applies.
func printFailure(w io.Writer, err error) {
	const prefix = "Error: "
	indent := strings.Repeat(" ", len(prefix))

	text := err.Error()
	if hint := failureHint(err); hint != "" {
		text += "\n" + hint
	}

	red := color.New(color.FgRed)
	wrapped := wordwrap.WrapString(text, uint(failureWrapWidth-len(prefix)))

	for i, line := range strings.Split(wrapped, "\n") {
		if i == 0 {
			red.Fprintf(w, "%s%s\n", prefix, line)
		} else {
			red.Fprintf(w, "%s%s\n", indent, line)
		}
	}
}

// failureHint suggests what to do after err, or returns "".
func failureHint(err error) string {
	var (
		exErr    *catalog.TokenExchangeError
		mismatch *catalog.RevisionMismatchError
		cycle    *catalog.FolderCycleError
	)

	switch {
	case errors.As(err, &exErr):
		return "Authorization codes are single use. Run 'drivefiles auth-url' to get a new one, or run the command without --code to sign in through the browser."
	case errors.As(err, &mismatch):
		return "The file changed since that revision. Download it again before replacing it."
	case errors.As(err, &cycle), errors.Is(err, catalog.ErrMaxDepthExceeded):
		return "The folder hierarchy above a listed file is malformed."
	case catalog.IsNotFound(err):
		return "The file does not exist or is not shared with this account."
	default:
		return ""
	}
}
