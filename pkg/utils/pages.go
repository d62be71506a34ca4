// Package utils provides utility functions
package utils

import (
	"fmt"
)

// PageSize is the assumed page granularity for display conversions
const PageSize = 4096

// PagesToBytes converts a page count to bytes
func PagesToBytes(pages int64) int64 {
	return pages * PageSize
}

// BytesToPages converts a byte count to whole pages, rounding up
func BytesToPages(bytes int64) int64 {
	if bytes <= 0 {
		return 0
	}
	return (bytes + PageSize - 1) / PageSize
}

// KBToPages converts a kilobyte count (as /proc reports) to pages
func KBToPages(kb int64) int64 {
	return kb * 1024 / PageSize
}

// FormatPages renders a page count as a human-readable byte size
func FormatPages(pages int64) string {
	return FormatBytes(PagesToBytes(pages))
}

// FormatBytes renders a byte count with a binary unit suffix
func FormatBytes(bytes int64) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
	)

	negative := bytes < 0
	if negative {
		bytes = -bytes
	}

	var formatted string
	switch {
	case bytes >= gib:
		formatted = fmt.Sprintf("%.1f GiB", float64(bytes)/gib)
	case bytes >= mib:
		formatted = fmt.Sprintf("%.1f MiB", float64(bytes)/mib)
	case bytes >= kib:
		formatted = fmt.Sprintf("%.1f KiB", float64(bytes)/kib)
	default:
		formatted = fmt.Sprintf("%d B", bytes)
	}

	if negative {
		return "-" + formatted
	}
	return formatted
}
