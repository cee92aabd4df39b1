// Package report renders printable views of the duty roster.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/duty-roster/internal/scheduler"
)

// Entry is one assignment row enriched with display names.
type Entry struct {
	Date     time.Time
	TaskName string
	UserName string
}

// RosterInput carries everything the renderer needs for one report.
type RosterInput struct {
	From    time.Time
	To      time.Time
	Entries []Entry
}

// RenderRoster produces a plain text roster for the window, one section per
// date in chronological order. Each section lists tasks alphabetically with
// their assignees joined by commas. Dates without assignments print a single
// dash so the printout keeps a uniform shape week to week.
func RenderRoster(input RosterInput) string {
	byDate := make(map[time.Time]map[string][]string)
	for _, entry := range input.Entries {
		date := scheduler.NormalizeDate(entry.Date)
		if byDate[date] == nil {
			byDate[date] = make(map[string][]string)
		}
		byDate[date][entry.TaskName] = append(byDate[date][entry.TaskName], entry.UserName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Grafik %s - %s\n", input.From.Format("2006-01-02"), input.To.Format("2006-01-02"))

	for date := scheduler.NormalizeDate(input.From); !date.After(input.To); date = date.AddDate(0, 0, 1) {
		fmt.Fprintf(&b, "\n%s (%s)\n", date.Format("2006-01-02"), scheduler.WeekdayAbbreviation(date.Weekday()))

		tasks := byDate[date]
		if len(tasks) == 0 {
			b.WriteString("  -\n")
			continue
		}

		names := make([]string, 0, len(tasks))
		for name := range tasks {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			users := tasks[name]
			sort.Strings(users)
			fmt.Fprintf(&b, "  %s: %s\n", name, strings.Join(users, ", "))
		}
	}

	return b.String()
}
