package tui

import (
	"strings"
	"time"
)

// maxHistory is how many scans the panel remembers.
const maxHistory = 8

// scanEntry is one submitted barcode.
type scanEntry struct {
	Code string
	At   time.Time
}

// scanHistory keeps the most recent scans, newest first. It lives only as
// long as the panel.
type scanHistory struct {
	entries []scanEntry
}

func (h *scanHistory) add(code string, at time.Time) {
	h.entries = append([]scanEntry{{Code: code, At: at}}, h.entries...)
	if len(h.entries) > maxHistory {
		h.entries = h.entries[:maxHistory]
	}
}

// get returns the entry at index i (0 is newest).
func (h scanHistory) get(i int) (scanEntry, bool) {
	if i < 0 || i >= len(h.entries) {
		return scanEntry{}, false
	}
	return h.entries[i], true
}

func (h scanHistory) len() int {
	return len(h.entries)
}

var scriptQuoter = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)

// scanScript is the script that feeds code to the page's barcode handler.
func scanScript(code string) string {
	return "scanBarcode('" + scriptQuoter.Replace(code) + "')"
}
