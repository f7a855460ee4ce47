package core

import (
	"encoding/json"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.346", 1235, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1e3", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseSignedDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"-380", -38000, true},
		{"-380,50", -38050, true},
		{"+12.5", 1250, true},
		{"650", 65000, true},
		{"--1", 0, false},
		{"-", 0, false},
		{"0.00", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseSignedDecimalToCents(tc.in)
		if tc.ok != (err == nil) || got != tc.out {
			t.Fatalf("%q expected %d ok=%v, got %d (err=%v)", tc.in, tc.out, tc.ok, got, err)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(Money{Cents: -38050})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "-380.50" {
		t.Fatalf("unexpected encoding %s", b)
	}

	for _, in := range []string{`12.34`, `"12.34"`, `12.339`} {
		var m Money
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if m.Cents != 1234 {
			t.Fatalf("unmarshal %s: got %d cents", in, m.Cents)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte(`"abc"`), &m); err == nil {
		t.Fatalf("expected error for non-numeric amount")
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(Money{Cents: 500}, Money{}); got != 0 {
		t.Fatalf("zero whole should give 0, got %v", got)
	}
	if got := Percent(Money{Cents: 65000}, Money{Cents: 80000}); got != 81.25 {
		t.Fatalf("expected 81.25, got %v", got)
	}
	if got := Percent(Money{Cents: 38000}, Money{Cents: 30000}); got < 126.66 || got > 126.67 {
		t.Fatalf("expected ~126.67, got %v", got)
	}
}
