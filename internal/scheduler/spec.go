package scheduler

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// TickKind describes the normalized kind of a tick spec string.
type TickKind int

const (
	TickCron TickKind = iota
	TickInterval
)

// TickSpec is a parsed tick schedule.
//
// Supported forms:
//   - Cron (crontab.guru-style): "*/10 * * * *", "@hourly", "@every 10m"
//   - Interval duration: "10m", "1h30m"
//   - Interval HH:MM: "00:10" (10 minutes)
//
// Optional prefixes:
//   - "cron:" forces cron parsing
//   - "interval:" or "every:" forces interval parsing
type TickSpec struct {
	Kind  TickKind
	Cron  string
	Every time.Duration
}

var (
	reHHMM     = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)
	cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
)

// ParseTick parses a tick schedule string into either a validated cron
// expression or an interval duration.
func ParseTick(raw string) (TickSpec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return TickSpec{}, fmt.Errorf("tick schedule required")
	}

	low := strings.ToLower(s)
	if strings.HasPrefix(low, "cron:") {
		expr := strings.TrimSpace(s[len("cron:"):])
		return cronSpec(expr)
	}
	if strings.HasPrefix(low, "interval:") {
		return intervalSpec(s[len("interval:"):])
	}
	if strings.HasPrefix(low, "every:") {
		return intervalSpec(s[len("every:"):])
	}

	// Whitespace or a leading '@' means cron.
	if strings.ContainsAny(s, " \t\n\r") || strings.HasPrefix(s, "@") {
		return cronSpec(s)
	}
	if reHHMM.MatchString(s) {
		return intervalSpec(s)
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return TickSpec{}, fmt.Errorf("tick interval must be > 0")
		}
		return TickSpec{Kind: TickInterval, Every: d}, nil
	}

	return TickSpec{}, fmt.Errorf(
		"invalid tick schedule %q (use cron like '*/10 * * * *', HH:MM like '00:10', or duration like '10m')",
		raw,
	)
}

func cronSpec(expr string) (TickSpec, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return TickSpec{}, fmt.Errorf("cron schedule required after 'cron:'")
	}
	if _, err := cronParser.Parse(expr); err != nil {
		return TickSpec{}, fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	return TickSpec{Kind: TickCron, Cron: expr}, nil
}

func intervalSpec(v string) (TickSpec, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return TickSpec{}, fmt.Errorf("tick interval required")
	}
	if m := reHHMM.FindStringSubmatch(v); m != nil {
		d, err := hhmmDuration(m)
		if err != nil {
			return TickSpec{}, err
		}
		return TickSpec{Kind: TickInterval, Every: d}, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return TickSpec{}, fmt.Errorf("invalid tick interval %q (use HH:MM or Go duration like '10m')", v)
	}
	if d <= 0 {
		return TickSpec{}, fmt.Errorf("tick interval must be > 0")
	}
	return TickSpec{Kind: TickInterval, Every: d}, nil
}

func hhmmDuration(m []string) (time.Duration, error) {
	var hh int
	for i := 0; i < len(m[1]); i++ {
		hh = hh*10 + int(m[1][i]-'0')
	}
	mm := int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	if mm > 59 {
		return 0, fmt.Errorf("invalid minutes in %q", m[0])
	}
	d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	if d <= 0 {
		return 0, fmt.Errorf("tick interval must be > 0")
	}
	return d, nil
}

// ParseTimeOfDay parses a wall-clock "HH:MM" into an offset from midnight.
// Unlike tick specs, hours are bounded to a day.
func ParseTimeOfDay(v string) (time.Duration, error) {
	m := reHHMM.FindStringSubmatch(v)
	if m == nil {
		return 0, fmt.Errorf("invalid time of day %q (use HH:MM like '08:00')", v)
	}
	var hh int
	for i := 0; i < len(m[1]); i++ {
		hh = hh*10 + int(m[1][i]-'0')
	}
	mm := int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	if hh > 23 || mm > 59 {
		return 0, fmt.Errorf("time of day %q out of range", v)
	}
	return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute, nil
}
