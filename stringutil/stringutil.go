package stringutil

import "fmt"

const ShortenLogLength = 16

// ShortenLog keeps both ends of a hash or address for log lines.
func ShortenLog(hash string) string {
	indexCut := ShortenLogLength / 2
	if len(hash) <= ShortenLogLength {
		return hash
	}
	return fmt.Sprintf("%s...%s", hash[:indexCut], hash[len(hash)-indexCut:])
}

// Prefix keeps the first n bytes of s followed by an ellipsis, for table cells.
func Prefix(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
