package shared

import (
	"regexp"
	"strconv"
	"time"
)

// eraPattern matches a Japanese era date and carries the era's Gregorian
// epoch year (the year era-year 1 falls in), grounded on the regex
// tables duplicated across enhanced_diet_scraper.py, shugiin_scraper.py,
// hr_voting_scraper.py, and pdf_processor.py in original_source.
type eraPattern struct {
	regex     *regexp.Regexp
	epochYear int
}

var eraPatterns = []eraPattern{
	{regexp.MustCompile(`令和(\d+)年(\d{1,2})月(\d{1,2})日`), 2018}, // Reiwa 1 = 2019
	{regexp.MustCompile(`平成(\d+)年(\d{1,2})月(\d{1,2})日`), 1988}, // Heisei 1 = 1989
	{regexp.MustCompile(`昭和(\d+)年(\d{1,2})月(\d{1,2})日`), 1925}, // Showa 1 = 1926
}

var isoDatePattern = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)

// ParseJapaneseDate extracts the first era-style or ISO date found in s.
// Returns ok=false if no recognized date pattern matches.
func ParseJapaneseDate(s string) (t time.Time, ok bool) {
	for _, ep := range eraPatterns {
		m := ep.regex.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		eraYear, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return time.Date(ep.epochYear+eraYear, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
	}
	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}
