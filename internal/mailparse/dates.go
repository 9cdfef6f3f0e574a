package mailparse

import (
	"regexp"
	"time"
)

var datePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// ExtractDates returns every YYYY-MM-DD token in the text, in source order,
// duplicates included. Tokens that look like dates but do not parse (month
// 13, day 32) are skipped without aborting the scan.
func ExtractDates(text string) []time.Time {
	var dates []time.Time
	for _, token := range datePattern.FindAllString(text, -1) {
		d, err := time.Parse("2006-01-02", token)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}
