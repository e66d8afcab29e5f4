package feed

import "fmt"

// ValidateHeaders returns the required columns absent from header. A missing
// column is not fatal on its own; every row then fails the required check
// with its line number.
func ValidateHeaders(header []string, required []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, col := range required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

// checkRequired reports the first required column that is absent or empty.
func checkRequired(row Row, required []string) *LineError {
	for _, col := range required {
		if row.Get(col) == "" {
			return &LineError{
				Message: fmt.Sprintf("Missing required field: %s", col),
				Line:    row.Line,
				Field:   col,
			}
		}
	}
	return nil
}
