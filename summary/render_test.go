package summary

import (
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/perbu/daybrief/event"
)

func eastern(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	return loc
}

func TestRenderEmpty(t *testing.T) {
	loc := eastern(t)
	day := Day{Date: time.Date(2024, 6, 1, 8, 0, 0, 0, loc), Location: loc, Relative: "today"}

	out := Render(nil, day)
	if !strings.Contains(out, "No events scheduled") {
		t.Errorf("missing no-events message: %q", out)
	}
	if !strings.Contains(out, "Saturday, June 01, 2024") {
		t.Errorf("missing date: %q", out)
	}
	if !strings.Contains(out, "for today") {
		t.Errorf("missing relative day: %q", out)
	}

	out = Render(nil, Day{Date: day.Date, Location: loc})
	if strings.Contains(out, "today") {
		t.Errorf("arbitrary dates should not say today: %q", out)
	}
}

func TestRenderTwoCalendars(t *testing.T) {
	loc := eastern(t)
	events := event.Normalize([]event.Raw{
		{Summary: "Conference", Start: event.Descriptor{Date: "2024-06-01"}, End: event.Descriptor{Date: "2024-06-02"}, CalendarName: "A"},
		{Summary: "Standup", Location: "Room 4", Start: event.Descriptor{DateTime: "2024-06-01T09:00:00-04:00"}, End: event.Descriptor{DateTime: "2024-06-01T09:30:00-04:00"}, CalendarName: "B"},
	}, loc)

	out := Render(events, Day{Date: time.Date(2024, 6, 1, 0, 0, 0, 0, loc), Location: loc, Relative: "today"})

	allDayIdx := strings.Index(out, "All-day events:")
	confIdx := strings.Index(out, "• Conference")
	schedIdx := strings.Index(out, "Scheduled events:")
	standupIdx := strings.Index(out, "• 9:00 AM - 9:30 AM: Standup")
	if allDayIdx < 0 || confIdx < 0 || schedIdx < 0 || standupIdx < 0 {
		t.Fatalf("missing section in output:\n%s", out)
	}
	if !(allDayIdx < confIdx && confIdx < schedIdx && schedIdx < standupIdx) {
		t.Errorf("sections out of order:\n%s", out)
	}
	if !strings.Contains(out, "  📍 Room 4") {
		t.Errorf("missing location line:\n%s", out)
	}
	if !strings.HasSuffix(out, "<i>Total: 2 events today</i>") {
		t.Errorf("unexpected trailer:\n%s", out)
	}
	if !strings.HasPrefix(out, "<b>Your schedule for Saturday, June 01, 2024</b>") {
		t.Errorf("unexpected header:\n%s", out)
	}
}

func TestRenderCount(t *testing.T) {
	loc := eastern(t)
	day := Day{Date: time.Date(2024, 6, 1, 0, 0, 0, 0, loc), Location: loc}
	one := []event.Event{{Title: "Solo", Start: time.Date(2024, 6, 1, 10, 0, 0, 0, loc)}}

	if out := Render(one, day); !strings.Contains(out, "Total: 1 event</i>") {
		t.Errorf("singular count wrong:\n%s", out)
	}

	three := append(one, one[0], one[0])
	if out := Render(three, day); !strings.Contains(out, "Total: 3 events</i>") {
		t.Errorf("plural count wrong:\n%s", out)
	}
}

func TestRenderMultiDay(t *testing.T) {
	loc := eastern(t)
	events := event.Normalize([]event.Raw{{
		Summary: "Late show",
		Start:   event.Descriptor{DateTime: "2024-06-01T22:00:00-04:00"},
		End:     event.Descriptor{DateTime: "2024-06-02T01:00:00-04:00"},
	}}, loc)

	out := Render(events, Day{Date: time.Date(2024, 6, 1, 0, 0, 0, 0, loc), Location: loc})
	if !strings.Contains(out, "• 10:00 PM (multi-day): Late show") {
		t.Errorf("expected multi-day line:\n%s", out)
	}
	if strings.Contains(out, "1:00 AM") {
		t.Errorf("end clock time should not be rendered:\n%s", out)
	}
}

func TestTimeRange(t *testing.T) {
	loc := eastern(t)
	utcStart := time.Date(2024, 6, 1, 17, 5, 0, 0, time.UTC)

	tests := []struct {
		name string
		e    event.Event
		want string
	}{
		{name: "no end", e: event.Event{Start: utcStart}, want: "1:05 PM"},
		{name: "same day", e: event.Event{Start: utcStart, End: utcStart.Add(2 * time.Hour)}, want: "1:05 PM - 3:05 PM"},
		{name: "converted end crosses midnight", e: event.Event{Start: utcStart, End: utcStart.Add(11 * time.Hour)}, want: "1:05 PM (multi-day)"},
		{name: "utc late is still same local day", e: event.Event{Start: time.Date(2024, 6, 2, 1, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 2, 3, 0, 0, 0, time.UTC)}, want: "9:00 PM - 11:00 PM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimeRange(tt.e, loc); got != tt.want {
				t.Errorf("TimeRange() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderEscapesMarkup(t *testing.T) {
	loc := eastern(t)
	events := []event.Event{{Title: "R&D <sync>", AllDay: true, Start: time.Date(2024, 6, 1, 0, 0, 0, 0, loc)}}
	out := Render(events, Day{Date: events[0].Start, Location: loc})
	if !strings.Contains(out, "• R&amp;D &lt;sync&gt;") {
		t.Errorf("title not escaped:\n%s", out)
	}
	if !strings.Contains(Plain(out), "• R&D <sync>") {
		t.Errorf("Plain should unescape:\n%s", Plain(out))
	}
}

func TestColorize(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = saved }()

	got := Colorize("<b>Header</b>\n• A &amp; B\n<i>Total: 1 event</i>")
	want := "Header\n• A & B\nTotal: 1 event"
	if got != want {
		t.Errorf("Colorize() = %q, want %q", got, want)
	}
}
