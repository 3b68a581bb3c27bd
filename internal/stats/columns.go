package stats

import (
	"fmt"
	"slices"
	"strings"
)

// ValidColumns lists the stats columns the statistics endpoint accepts.
var ValidColumns = []string{"time", "delta", "installs", "updates", "total_installed", "onpremDownloads"}

var defaultTitles = map[string]string{
	"delta":           "Daily Installs",
	"installs":        "Installs",
	"updates":         "Updates",
	"total_installed": "Total Installs",
	"onpremDownloads": "On-prem Downloads",
}

// ValidateColumn reports whether column can be used as a tab id.
// "time" is always requested alongside the tab and is not a tab itself.
func ValidateColumn(column string) error {
	if column == "time" || !slices.Contains(ValidColumns, column) {
		return fmt.Errorf("invalid stats column %q, valid values are: %s",
			column, strings.Join(ValidColumns[1:], ", "))
	}
	return nil
}

// DefaultTitle returns the display title for a stats column.
func DefaultTitle(column string) string {
	if t, ok := defaultTitles[column]; ok {
		return t
	}
	return column
}
