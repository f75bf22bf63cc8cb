package chart

import "testing"

func TestValidateOrdering(t *testing.T) {
	cases := []struct {
		name    string
		notes   []Note
		wantErr bool
	}{
		{"empty", nil, false},
		{"ordered distinct lanes same time", []Note{{TimeSec: 1, Lane: 0}, {TimeSec: 1, Lane: 1}}, false},
		{"out of order", []Note{{TimeSec: 2, Lane: 0}, {TimeSec: 1, Lane: 0}}, true},
		{"duplicate t and lane", []Note{{TimeSec: 1, Lane: 0}, {TimeSec: 1, Lane: 0}}, true},
		{"negative lane", []Note{{TimeSec: 1, Lane: -1}}, true},
		{"lane out of range", []Note{{TimeSec: 1, Lane: 3}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &Chart{Notes: tc.notes}
			err := c.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	c := &Chart{
		Name:       "demo",
		File:       "demo.mp3",
		BPM:        128,
		Duration:   123.456,
		Difficulty: Hard,
		Notes: []Note{
			{TimeSec: 1.0, Lane: 0},
			{TimeSec: 2.0, Lane: 1, DurSec: 0.5},
		},
	}
	data, err := c.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var loaded Chart
	if err := loaded.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if loaded.Name != c.Name || loaded.BPM != c.BPM || loaded.Difficulty != c.Difficulty {
		t.Fatalf("metadata mismatch: %+v", loaded)
	}
	if loaded.Duration != 123.46 {
		t.Fatalf("duration not rounded to 2dp: %v", loaded.Duration)
	}
	if len(loaded.Notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(loaded.Notes))
	}
	if loaded.Notes[0].IsHold() {
		t.Fatalf("first note should be a tap")
	}
	if !loaded.Notes[1].IsHold() || loaded.Notes[1].DurSec != 0.5 {
		t.Fatalf("second note should be a hold with dur 0.5: %+v", loaded.Notes[1])
	}
}

func TestParseDifficulty(t *testing.T) {
	for _, ok := range []Difficulty{Easy, Medium, Hard, Expert, Custom} {
		got, err := ParseDifficulty(string(ok))
		if err != nil || got != ok {
			t.Fatalf("ParseDifficulty(%q) = %q, %v", ok, got, err)
		}
	}
	if _, err := ParseDifficulty("impossible"); err == nil {
		t.Fatalf("expected error for unknown difficulty")
	}
}

func TestSort(t *testing.T) {
	c := &Chart{Notes: []Note{
		{TimeSec: 2, Lane: 0},
		{TimeSec: 1, Lane: 1},
		{TimeSec: 1, Lane: 0},
	}}
	c.Sort()
	want := []Note{{TimeSec: 1, Lane: 0}, {TimeSec: 1, Lane: 1}, {TimeSec: 2, Lane: 0}}
	for i, n := range want {
		if c.Notes[i].TimeSec != n.TimeSec || c.Notes[i].Lane != n.Lane {
			t.Fatalf("sort mismatch at %d: got %+v want %+v", i, c.Notes[i], n)
		}
	}
}
