package scheduling

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:00", NewTimeOfDay(9, 0), false},
		{"23:59", NewTimeOfDay(23, 59), false},
		{"09:00:30", NewTimeOfDay(9, 0), false},
		{"9am", 0, true},
		{"25:00", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTimeOfDayString(t *testing.T) {
	if got := NewTimeOfDay(9, 5).String(); got != "09:05" {
		t.Errorf("String() = %q", got)
	}
}

func TestTimeOfDayJSON(t *testing.T) {
	w := TimeWindow{StartTime: NewTimeOfDay(9, 0), EndTime: NewTimeOfDay(17, 30)}
	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"start_time":"09:00","end_time":"17:30"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}

	var got TimeWindow
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != w {
		t.Errorf("round trip changed value: %+v", got)
	}
}

func TestTimeOfDayOfWrapsPastMidnight(t *testing.T) {
	late := time.Date(2026, 9, 7, 23, 30, 0, 0, time.UTC)
	if got := TimeOfDayOf(late.Add(time.Hour)); got != NewTimeOfDay(0, 30) {
		t.Errorf("expected 00:30, got %v", got)
	}
}

func TestDayOfWeek(t *testing.T) {
	tests := []struct {
		date time.Time
		want int
	}{
		{time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), 0},  // Monday
		{time.Date(2026, 9, 11, 0, 0, 0, 0, time.UTC), 4}, // Friday
		{time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC), 5}, // Saturday
		{time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC), 6}, // Sunday
	}
	for _, tt := range tests {
		if got := DayOfWeek(tt.date); got != tt.want {
			t.Errorf("DayOfWeek(%s) = %d, want %d", tt.date.Weekday(), got, tt.want)
		}
	}
}

func TestAppointmentStatusValid(t *testing.T) {
	if !StatusScheduled.Valid() || !StatusCanceled.Valid() {
		t.Error("known statuses should be valid")
	}
	if AppointmentStatus("done").Valid() {
		t.Error("unknown status should be invalid")
	}
}
