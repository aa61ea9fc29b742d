package mastercal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/AyushChatto/mastercal-sync/internal/utils"
	log "github.com/sirupsen/logrus"
)

var ErrStrictParse = fmt.Errorf("strict mode enabled and parser encountered errors")

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var (
	// 8am, 7pm, 6.30pm, 8:00pm
	timeRe = regexp.MustCompile(`(?i)(\d{1,2})(?:[:.](\d{2}))?\s*(am|pm)\b`)
	// 2pm-6pm, 2pm - 6pm, 2-6pm (either side may omit its am/pm marker,
	// inheriting it from the other; at least one side must carry one)
	timeRangeRe = regexp.MustCompile(`(?i)(\d{1,2}(?:[:.]\d{2})?\s*(?:am|pm)?)\s*-\s*(\d{1,2}(?:[:.]\d{2})?\s*(?:am|pm)?)\b`)
	ampmRe      = regexp.MustCompile(`(?i)(am|pm)`)
	// 12Dec (Fri) ...
	dateRe = regexp.MustCompile(`^\s*(\d{1,2})\s*([A-Za-z]{3})\s*(?:\([^)]*\))?\s*(.*)$`)
	// 28Feb-3Mar (Sat-Tue) ...
	dateRangeRe = regexp.MustCompile(`^\s*(\d{1,2})\s*([A-Za-z]{3})\s*-\s*(\d{1,2})\s*([A-Za-z]{3})\s*(?:\([^)]*\))?\s*(.*)$`)
	yearRe      = regexp.MustCompile(`^\d{4}$`)
	multispace  = regexp.MustCompile(`\s{2,}`)
)

// Parser turns a raw MasterCal text into a ParsedCalendar. The ambient year
// starts at the current year in the configured location and is only moved by
// four-digit year-marker lines within a single Parse call.
type Parser struct {
	strict bool
	header string
	loc    *time.Location
	clock  utils.Clock
}

func NewParser(strict bool, header string, loc *time.Location, clock utils.Clock) *Parser {
	return &Parser{
		strict: strict,
		header: strings.ToLower(header),
		loc:    loc,
		clock:  clock,
	}
}

// Parse processes the text line by line. In lenient mode every failed line is
// returned as a Diagnostic and parsing continues; in strict mode the first
// failed line stops parsing and Parse returns an error alongside the
// diagnostics collected so far.
func (p *Parser) Parse(text string) (ParsedCalendar, []Diagnostic, error) {
	year := p.clock.Now().In(p.loc).Year()
	lines := strings.Split(text, "\n")
	log.Debugf("parse start: lines=%d defaultYear=%d strict=%v", len(lines), year, p.strict)

	var events []ParsedEvent
	var diags []Diagnostic
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if yearRe.MatchString(line) {
			year, _ = strconv.Atoi(line)
			log.Debugf("year context set: %d (line %d)", year, lineNo)
			continue
		}
		if strings.HasPrefix(strings.ToLower(line), p.header) {
			log.Debugf("skip line %d: header", lineNo)
			continue
		}

		log.Debugf("parse line %d: %q", lineNo, line)
		event, diag := parseEventLine(line, lineNo, year)
		if diag != nil {
			log.Warnf("parser: %s", diag)
			diags = append(diags, *diag)
			if p.strict {
				return ParsedCalendar{}, diags, fmt.Errorf("%w: %s", ErrStrictParse, diag)
			}
			continue
		}
		log.Debugf("parsed line %d: %s..%s summary=%q start=%v end=%v location=%q",
			lineNo, event.StartDate, event.EndDate, event.Summary, event.StartTime, event.EndTime, event.Location)
		events = append(events, *event)
	}

	log.Infof("parse done: events=%d diagnostics=%d", len(events), len(diags))
	return ParsedCalendar{Events: events}, diags, nil
}

// parseEventLine tries the recognized line shapes in priority order:
// date range, then single date, then the unrecognized-line diagnostic.
// Year markers and headers are handled by the caller before this point.
func parseEventLine(line string, lineNo, year int) (*ParsedEvent, *Diagnostic) {
	if m := dateRangeRe.FindStringSubmatch(line); m != nil {
		start, err := monthDate(year, m[1], m[2])
		if err != nil {
			return nil, &Diagnostic{lineNo, fmt.Sprintf("date-range parse failed: %v :: %q", err, line)}
		}
		end, err := monthDate(year, m[3], m[4])
		if err != nil {
			return nil, &Diagnostic{lineNo, fmt.Sprintf("date-range parse failed: %v :: %q", err, line)}
		}
		return buildEvent(line, lineNo, start, end, m[5])
	}
	if m := dateRe.FindStringSubmatch(line); m != nil {
		day, err := monthDate(year, m[1], m[2])
		if err != nil {
			return nil, &Diagnostic{lineNo, fmt.Sprintf("date parse failed: %v :: %q", err, line)}
		}
		return buildEvent(line, lineNo, day, day, m[3])
	}
	return nil, &Diagnostic{lineNo, fmt.Sprintf("unrecognized format :: %q", line)}
}

func buildEvent(line string, lineNo int, start, end Date, rest string) (*ParsedEvent, *Diagnostic) {
	base, location := splitLocation(rest)
	summary, startTime, endTime, err := stripTimeTokens(base)
	if err != nil {
		return nil, &Diagnostic{lineNo, fmt.Sprintf("time parse failed: %v :: %q", err, line)}
	}
	if summary == "" {
		return nil, &Diagnostic{lineNo, fmt.Sprintf("empty summary after parsing :: %q", line)}
	}
	return &ParsedEvent{
		Summary:     summary,
		StartDate:   start,
		EndDate:     end,
		StartTime:   startTime,
		EndTime:     endTime,
		Location:    location,
		Description: "source_line=" + line,
	}, nil
}

func monthDate(year int, dayToken, monthToken string) (Date, error) {
	month, ok := months[strings.ToLower(strings.TrimSpace(monthToken))]
	if !ok {
		return Date{}, fmt.Errorf("unknown month %q", monthToken)
	}
	day, err := strconv.Atoi(dayToken)
	if err != nil {
		return Date{}, fmt.Errorf("bad day %q", dayToken)
	}
	// time.Date normalizes out-of-range days, so check the round trip.
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return Date{}, fmt.Errorf("day %d is out of range for %s %d", day, month, year)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// splitLocation splits on the first '@'; everything after it is the location.
func splitLocation(s string) (string, string) {
	base, location, found := strings.Cut(s, "@")
	if !found {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(base), strings.TrimSpace(location)
}

// stripTimeTokens removes a time range or a single time token from the text
// and returns the remaining summary. A lone start time leaves the end time
// nil. No time token at all means an all-day event.
func stripTimeTokens(s string) (string, *ClockTime, *ClockTime, error) {
	if loc := timeRangeRe.FindStringSubmatchIndex(s); loc != nil {
		first := strings.TrimSpace(s[loc[2]:loc[3]])
		second := strings.TrimSpace(s[loc[4]:loc[5]])
		firstMarked := ampmRe.MatchString(first)
		secondMarked := ampmRe.MatchString(second)

		// A bare "3-5" is not a time range. With exactly one marker the
		// unmarked side inherits it; an explicit marker always governs
		// its own side.
		if firstMarked || secondMarked {
			if !secondMarked {
				second += timeRe.FindStringSubmatch(first)[3]
			}
			if !firstMarked {
				first += timeRe.FindStringSubmatch(second)[3]
			}
			startTime, err := normClockTime(first)
			if err != nil {
				return "", nil, nil, err
			}
			endTime, err := normClockTime(second)
			if err != nil {
				return "", nil, nil, err
			}
			return collapse(s[:loc[0]] + " " + s[loc[1]:]), &startTime, &endTime, nil
		}
	}

	if loc := timeRe.FindStringIndex(s); loc != nil {
		startTime, err := normClockTime(s[loc[0]:loc[1]])
		if err != nil {
			return "", nil, nil, err
		}
		return collapse(s[:loc[0]] + " " + s[loc[1]:]), &startTime, nil, nil
	}

	return strings.TrimSpace(s), nil, nil, nil
}

// normClockTime resolves a token like "6.30pm" to 24-hour form. Noon rule:
// hour 12 maps to 0 before the pm offset, so 12am is 00:xx and 12pm is 12:xx.
func normClockTime(token string) (ClockTime, error) {
	m := timeRe.FindStringSubmatch(token)
	if m == nil {
		return ClockTime{}, fmt.Errorf("bad time %q", token)
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if hour == 12 {
		hour = 0
	}
	if strings.EqualFold(m[3], "pm") {
		hour += 12
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("time out of range %q", token)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

func collapse(s string) string {
	return strings.TrimSpace(multispace.ReplaceAllString(s, " "))
}
