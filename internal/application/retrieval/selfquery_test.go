package retrieval

import (
	"testing"
)

func TestParseSelfQuery(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		query   string
		from    float64
		to      float64
		hasFrom bool
		hasTo   bool
	}{
		{
			name:  "no time phrase",
			in:    "what is the main argument",
			query: "what is the main argument",
		},
		{
			name:  "between clocks",
			in:    "between 1:30 and 4:00 what is discussed",
			query: "what is discussed",
			from:  90, to: 240, hasFrom: true, hasTo: true,
		},
		{
			name:  "between swapped bounds",
			in:    "between 4:00 and 1:30 what is discussed",
			query: "what is discussed",
			from:  90, to: 240, hasFrom: true, hasTo: true,
		},
		{
			name:  "after clock",
			in:    "what happens after 2:15",
			query: "what happens",
			from:  135, hasFrom: true,
		},
		{
			name:  "since minutes",
			in:    "since 10 minutes what changes",
			query: "what changes",
			from:  600, hasFrom: true,
		},
		{
			name:  "before seconds",
			in:    "before 90 seconds the introduction",
			query: "the introduction",
			to:    90, hasTo: true,
		},
		{
			name:  "at clock widens both sides",
			in:    "at 3:45 what chart is shown",
			query: "what chart is shown",
			from:  180, to: 270, hasFrom: true, hasTo: true,
		},
		{
			name:  "around near start clamps to zero",
			in:    "around 0:30 the opening",
			query: "the opening",
			from:  0, to: 75, hasFrom: true, hasTo: true,
		},
		{
			name:  "minute n",
			in:    "in minute 5 what topic comes up",
			query: "what topic comes up",
			from:  300, to: 360, hasFrom: true, hasTo: true,
		},
		{
			name:  "hour clock",
			in:    "after 1:02:03 the conclusion",
			query: "the conclusion",
			from:  3723, hasFrom: true,
		},
		{
			name:  "pure time query keeps original text",
			in:    "between 1:00 and 2:00",
			query: "between 1:00 and 2:00",
			from:  60, to: 120, hasFrom: true, hasTo: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSelfQuery(tt.in)
			if got.Query != tt.query {
				t.Errorf("Query = %q, want %q", got.Query, tt.query)
			}

			if !tt.hasFrom && !tt.hasTo {
				if got.Window != nil {
					t.Fatalf("Window = %+v, want nil", got.Window)
				}
				return
			}
			if got.Window == nil {
				t.Fatal("Window = nil, want bounds")
			}
			if got.Window.HasFrom != tt.hasFrom || got.Window.HasTo != tt.hasTo {
				t.Fatalf("bounds = (%v, %v), want (%v, %v)",
					got.Window.HasFrom, got.Window.HasTo, tt.hasFrom, tt.hasTo)
			}
			if tt.hasFrom && got.Window.FromSec != tt.from {
				t.Errorf("FromSec = %v, want %v", got.Window.FromSec, tt.from)
			}
			if tt.hasTo && got.Window.ToSec != tt.to {
				t.Errorf("ToSec = %v, want %v", got.Window.ToSec, tt.to)
			}
		})
	}
}

func TestParseTimeToken(t *testing.T) {
	tests := []struct {
		in  string
		sec float64
		ok  bool
	}{
		{"1:30", 90, true},
		{"0:05", 5, true},
		{"1:02:03", 3723, true},
		{"10 minutes", 600, true},
		{"2.5 mins", 150, true},
		{"90 seconds", 90, true},
		{"45 secs", 45, true},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		sec, ok := parseTimeToken(tt.in)
		if ok != tt.ok || (ok && sec != tt.sec) {
			t.Errorf("parseTimeToken(%q) = (%v, %v), want (%v, %v)", tt.in, sec, ok, tt.sec, tt.ok)
		}
	}
}
