package exporter

import (
	"os"
	"strings"
	"testing"
)

func TestOsuManiaGoldenStructure(t *testing.T) {
	c := sampleChart()
	dir := t.TempDir()

	res, err := Export(c, dir, "golden", FormatOsuMania)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := string(data)

	for _, want := range []string{"osu file format v14", "[HitObjects]", "Mode: 3", "CircleSize:3"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
	if strings.Count(text, "\n") < len(c.Notes) {
		t.Errorf("expected at least one line per note")
	}
}

func TestStepManiaGoldenStructure(t *testing.T) {
	c := sampleChart()
	dir := t.TempDir()

	res, err := Export(c, dir, "golden", FormatStepMania)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := string(data)

	for _, want := range []string{"#NOTES:", "dance-single:", "#BPMS:0.000=128.000;"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
}

func TestBMSGoldenStructure(t *testing.T) {
	c := sampleChart()
	dir := t.TempDir()

	res, err := Export(c, dir, "golden", FormatBMS)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := string(data)

	for _, want := range []string{"#WAV01 note.wav", "#BPM 128", "#PLAYER 1"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
}
