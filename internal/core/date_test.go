package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{"valid date", "2026-03-14", NewDate(2026, time.March, 14), false},
		{"leap day", "2028-02-29", NewDate(2028, time.February, 29), false},
		{"non-leap february 29", "2026-02-29", Date{}, true},
		{"out-of-range day", "2026-04-31", Date{}, true},
		{"wrong separator", "2026/03/14", Date{}, true},
		{"missing zero padding", "2026-3-14", Date{}, true},
		{"reversed order", "14-03-2026", Date{}, true},
		{"empty", "", Date{}, true},
		{"garbage", "not-a-date", Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDate) {
					t.Errorf("ParseDate(%q) error = %v, want ErrInvalidDate", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) error = %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestDate_String(t *testing.T) {
	d := NewDate(2026, time.March, 5)
	if got := d.String(); got != "2026-03-05" {
		t.Errorf("String() = %q, want 2026-03-05", got)
	}
}

func TestDate_JSONRoundTrip(t *testing.T) {
	d := NewDate(2026, time.March, 14)

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"2026-03-14"` {
		t.Errorf("Marshal() = %s, want \"2026-03-14\"", data)
	}

	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !back.Equal(d) {
		t.Errorf("round trip = %s, want %s", back, d)
	}
}

func TestDate_UnmarshalRejectsBadValues(t *testing.T) {
	for _, input := range []string{`"2026-13-01"`, `"yesterday"`, `20260314`, `null`} {
		var d Date
		if err := json.Unmarshal([]byte(input), &d); err == nil {
			t.Errorf("Unmarshal(%s) error = nil, want error", input)
		}
	}
}

func TestLastDayOfMonth(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2026, time.January, 31},
		{2026, time.February, 28},
		{2028, time.February, 29},
		{2026, time.April, 30},
		{2026, time.December, 31},
	}

	for _, tt := range tests {
		if got := LastDayOfMonth(tt.year, tt.month); got != tt.want {
			t.Errorf("LastDayOfMonth(%d, %s) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}
