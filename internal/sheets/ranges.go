package sheets

import (
	"regexp"
	"strconv"
	"strings"
)

var cellRefPattern = regexp.MustCompile(`([A-Z]+)(\d+)`)

// sheetName pulls the tab name out of an A1-notation range.
func sheetName(rangeName string) string {
	if !strings.Contains(rangeName, "!") {
		return ""
	}
	return strings.SplitN(rangeName, "!", 2)[0]
}

// columnLetter converts a 1-based column count to its sheet letter (1 -> A,
// 27 -> AA).
func columnLetter(index int) string {
	if index <= 0 {
		return "A"
	}
	var letters []byte
	for index > 0 {
		index--
		letters = append(letters, byte('A'+index%26))
		index /= 26
	}
	for i, j := 0, len(letters)-1; i < j; i, j = i+1, j-1 {
		letters[i], letters[j] = letters[j], letters[i]
	}
	return string(letters)
}

// extractRowIndex parses the 1-based row number out of an updatedRange like
// "games!A7:AL7". Zero means no locator.
func extractRowIndex(updatedRange string) int {
	if !strings.Contains(updatedRange, "!") {
		return 0
	}
	cellRange := strings.SplitN(updatedRange, "!", 2)[1]
	match := cellRefPattern.FindStringSubmatch(cellRange)
	if match == nil {
		return 0
	}
	n, err := strconv.Atoi(match[2])
	if err != nil {
		return 0
	}
	return n
}
