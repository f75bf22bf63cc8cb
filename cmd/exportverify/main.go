package main

import (
	"flag"
	"log"
	"os"

	"rhythmcore/internal/chart"
	"rhythmcore/internal/exporter"
)

// exportverify checks a previously exported chart file against its
// source Chart JSON document.
func main() {
	chartPath := flag.String("chart", "", "path to the source chart JSON")
	exportPath := flag.String("export", "", "path to the exported file to verify")
	format := flag.String("format", "", "export format: osu, sm, or bms")
	flag.Parse()

	if *chartPath == "" || *exportPath == "" || *format == "" {
		log.Fatal("-chart, -export, and -format are required")
	}

	data, err := os.ReadFile(*chartPath)
	if err != nil {
		log.Fatalf("read chart: %v", err)
	}

	var c chart.Chart
	if err := c.UnmarshalJSON(data); err != nil {
		log.Fatalf("parse chart: %v", err)
	}

	if err := exporter.Verify(&c, *exportPath, exporter.Format(*format)); err != nil {
		log.Fatalf("verify failed: %v", err)
	}

	log.Printf("export %s verified against %s", *exportPath, *chartPath)
}
