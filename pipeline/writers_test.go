package pipeline

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NathanPalaiologos/usno-moon-monthly/models"
)

func sampleRow() *models.MonthlySummary {
	return &models.MonthlySummary{
		YearMonth: "2013-01",
		Year:      2013,
		Month:     1,
		Mean:      0.5123456,
		NDays:     31,
		TZHours:   6.0,
		TZSign:    -1,
		State:     "AL",
	}
}

func TestCSVWriterHeaderAndFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moon.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Write([]*models.MonthlySummary{sampleRow()}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if lines[0] != "year_month,year,month,moon_fracillum_mean,n_days,tz_hours,tz_sign,state" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if lines[1] != "2013-01,2013,1,0.512346,31,6.00,-1,AL" {
		t.Fatalf("unexpected row: %q", lines[1])
	}
}

func TestCSVWriterValidateRejectsHeaderOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moon.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	defer writer.Close()

	if err := writer.Validate(); err == nil {
		t.Fatalf("header-only file must fail validation")
	}
}

func TestCSVWriterCreatesOutputDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out", "moon.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
}

func TestJSONWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moon.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := writer.Write([]*models.MonthlySummary{sampleRow()}); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		var decoded models.MonthlySummary
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		if decoded.YearMonth != "2013-01" || decoded.NDays != 31 {
			t.Fatalf("unexpected decoded row: %+v", decoded)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if count != 1 {
		t.Fatalf("json lines = %d, want 1", count)
	}
}

func TestDualWriterWrite(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "moon.csv")
	jsonPath := filepath.Join(dir, "moon.jsonl")

	writer, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	if err := writer.Write([]*models.MonthlySummary{sampleRow()}); err != nil {
		t.Fatalf("write dual: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate dual: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close dual: %v", err)
	}

	if info, err := os.Stat(csvPath); err != nil || info.Size() == 0 {
		t.Fatalf("csv file missing or empty")
	}
	if info, err := os.Stat(jsonPath); err != nil || info.Size() == 0 {
		t.Fatalf("json file missing or empty")
	}
}
