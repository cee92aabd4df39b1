package report

import (
	"strings"
	"testing"
	"time"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("invalid date %q: %v", value, err)
	}
	return parsed
}

func TestRenderRosterGroupsByDateAndTask(t *testing.T) {
	t.Parallel()

	input := RosterInput{
		From: day(t, "2024-03-11"),
		To:   day(t, "2024-03-12"),
		Entries: []Entry{
			{Date: day(t, "2024-03-11"), TaskName: "Zmywanie", UserName: "Kowalski Jan"},
			{Date: day(t, "2024-03-11"), TaskName: "Zmywanie", UserName: "Nowak Anna"},
			{Date: day(t, "2024-03-11"), TaskName: "Gotowanie", UserName: "Wiśniewska Ewa"},
			{Date: day(t, "2024-03-12"), TaskName: "Gotowanie", UserName: "Kowalski Jan"},
		},
	}

	out := RenderRoster(input)

	if !strings.HasPrefix(out, "Grafik 2024-03-11 - 2024-03-12\n") {
		t.Fatalf("unexpected header:\n%s", out)
	}
	if !strings.Contains(out, "2024-03-11 (Pn)") {
		t.Fatalf("expected Monday section with Polish abbreviation:\n%s", out)
	}
	if !strings.Contains(out, "  Zmywanie: Kowalski Jan, Nowak Anna\n") {
		t.Fatalf("expected assignees sorted and joined:\n%s", out)
	}

	gotowanie := strings.Index(out, "  Gotowanie:")
	zmywanie := strings.Index(out, "  Zmywanie:")
	if gotowanie == -1 || zmywanie == -1 || gotowanie > zmywanie {
		t.Fatalf("expected tasks listed alphabetically:\n%s", out)
	}
}

func TestRenderRosterPrintsDashForEmptyDates(t *testing.T) {
	t.Parallel()

	out := RenderRoster(RosterInput{
		From: day(t, "2024-03-11"),
		To:   day(t, "2024-03-13"),
		Entries: []Entry{
			{Date: day(t, "2024-03-12"), TaskName: "Zmywanie", UserName: "Kowalski Jan"},
		},
	})

	sections := strings.Count(out, "\n2024-03-")
	if sections != 3 {
		t.Fatalf("expected 3 date sections, got %d:\n%s", sections, out)
	}
	if strings.Count(out, "  -\n") != 2 {
		t.Fatalf("expected two empty dates rendered as dashes:\n%s", out)
	}
}
