package scraper

import (
	"fmt"
	"strings"
	"time"
)

// Programs scraped for a broadcast date.
var Programs = []string{"morning-edition", "all-things-considered"}

// ProgramURL returns the rundown page of program for date.
func ProgramURL(program string, date time.Time) string {
	month := strings.ToLower(date.Month().String())
	return fmt.Sprintf("https://www.npr.org/programs/%s/%04d/%02d/%02d/%s-for-%s-%02d-%04d",
		program, date.Year(), int(date.Month()), date.Day(), program, month, date.Day(), date.Year())
}

// ProgramURLs returns the rundown pages for every program aired on date.
func ProgramURLs(date time.Time) []string {
	urls := make([]string, 0, len(Programs))
	for _, p := range Programs {
		urls = append(urls, ProgramURL(p, date))
	}
	return urls
}

// ParseDate parses a YYYY-MM-DD program date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return d, nil
}
