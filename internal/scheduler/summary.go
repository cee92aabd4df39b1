package scheduler

import (
	"sort"
	"strings"
	"time"
)

// SummaryTask carries the task attributes needed to describe a week of
// assignments: the display name and how many weekdays the task recurs on.
type SummaryTask struct {
	ID                string
	Name              string
	WeeklyOccurrences int
}

// SummaryAssignment is one user-task binding on a calendar date.
type SummaryAssignment struct {
	TaskID string
	Date   time.Time
}

// BuildAssignmentSummaries describes a user's assignments within one week as
// compact strings, one per task, ordered by task name. A task assigned on
// every weekday it is configured for is rendered as its bare name; a task
// assigned on fewer weekdays is rendered as "name (Pn, Pt)" with the covered
// weekdays abbreviated in Monday-first order.
func BuildAssignmentSummaries(tasks map[string]SummaryTask, assignments []SummaryAssignment) []string {
	coveredDays := make(map[string]map[time.Weekday]struct{})
	for _, assignment := range assignments {
		if _, ok := tasks[assignment.TaskID]; !ok {
			continue
		}
		days, ok := coveredDays[assignment.TaskID]
		if !ok {
			days = make(map[time.Weekday]struct{})
			coveredDays[assignment.TaskID] = days
		}
		days[assignment.Date.Weekday()] = struct{}{}
	}

	summaries := make([]string, 0, len(coveredDays))
	for taskID, days := range coveredDays {
		task := tasks[taskID]
		if len(days) >= task.WeeklyOccurrences {
			summaries = append(summaries, task.Name)
			continue
		}

		ordered := make([]time.Weekday, 0, len(days))
		for day := range days {
			ordered = append(ordered, day)
		}
		ordered = SortWeekdays(ordered)

		labels := make([]string, 0, len(ordered))
		for _, day := range ordered {
			labels = append(labels, WeekdayAbbreviation(day))
		}
		summaries = append(summaries, task.Name+" ("+strings.Join(labels, ", ")+")")
	}

	sort.Strings(summaries)
	return summaries
}
