package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"meetblocks/internal/availability"
	"meetblocks/internal/model"
)

var cest = time.FixedZone("CEST", 2*60*60)

func sampleMatrix() availability.Matrix {
	return availability.Matrix{
		Columns: []availability.Column{
			{Name: "Day", Kind: availability.KindDay},
			{Name: "Date", Kind: availability.KindDate},
			{Name: "Begin", Kind: availability.KindTime},
			{Name: "Doe, Jane", Kind: availability.KindFlag, Person: true},
			{Name: "Bob", Kind: availability.KindFlag, Person: true},
			{Name: "CountAvailable", Kind: availability.KindCount},
			{Name: "AtLeast2Users", Kind: availability.KindFlag},
			{Name: "IsPartOfBlock", Kind: availability.KindFlag},
		},
		Rows: [][]string{
			{"Wed", "2025-06-04", "09:00", "1", "1", "2", "1", "1"},
			{"Wed", "2025-06-04", "09:15", "0", "1", "1", "0", "0"},
		},
	}
}

func sampleRanges() []model.Range {
	start := time.Date(2025, 6, 4, 9, 0, 0, 0, cest)
	return []model.Range{
		{Start: start, End: start.Add(90 * time.Minute), People: []string{"Bob", "Doe, Jane"}},
		{Start: start.Add(24 * time.Hour), End: start.Add(25 * time.Hour), People: []string{"Bob"}},
	}
}

func sampleOverview() availability.Overview {
	return availability.Overview{
		Labels: []string{"Wed 09:00-10:30", "Thu 09:00-10:00"},
		Rows:   [][]string{{"Bob", "Bob"}, {"Doe, Jane", ""}},
		Ranges: sampleRanges(),
	}
}

func TestWriteMatrixCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMatrixCSV(&buf, sampleMatrix()); err != nil {
		t.Fatalf("WriteMatrixCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("WriteMatrixCSV() lines = %d, want 3", len(lines))
	}
	want := `Day,Date,Begin,"Doe, Jane",Bob,CountAvailable,AtLeast2Users,IsPartOfBlock`
	if lines[0] != want {
		t.Errorf("header = %q, want %q", lines[0], want)
	}
	if lines[1] != "Wed,2025-06-04,09:00,1,1,2,1,1" {
		t.Errorf("row = %q", lines[1])
	}
}

func TestWriteOverviewCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOverviewCSV(&buf, sampleOverview()); err != nil {
		t.Fatalf("WriteOverviewCSV() error = %v", err)
	}

	want := "Rank,Wed 09:00-10:30,Thu 09:00-10:00\n" +
		"1,Bob,Bob\n" +
		`2,"Doe, Jane",` + "\n"
	if got := buf.String(); got != want {
		t.Errorf("WriteOverviewCSV() = %q, want %q", got, want)
	}
}

func TestWriteOverviewCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOverviewCSV(&buf, availability.Overview{}); err != nil {
		t.Fatalf("WriteOverviewCSV() error = %v", err)
	}
	if got := buf.String(); got != "Rank\n" {
		t.Errorf("WriteOverviewCSV() = %q, want header only", got)
	}
}

func TestWriteMatrixXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMatrixXLSX(&buf, sampleMatrix(), sampleOverview()); err != nil {
		t.Fatalf("WriteMatrixXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(matrixSheet)
	if err != nil {
		t.Fatalf("GetRows(%s) error = %v", matrixSheet, err)
	}
	if len(rows) != 3 || rows[0][3] != "Doe, Jane" || rows[1][5] != "2" {
		t.Errorf("matrix sheet = %v", rows)
	}

	week, err := f.GetRows(overviewSheet)
	if err != nil {
		t.Fatalf("GetRows(%s) error = %v", overviewSheet, err)
	}
	if len(week) != 3 || week[0][0] != "Rank" || week[2][1] != "Doe, Jane" {
		t.Errorf("overview sheet = %v", week)
	}

	formats, err := f.GetConditionalFormats(matrixSheet)
	if err != nil {
		t.Fatalf("GetConditionalFormats() error = %v", err)
	}
	// Two people, count and two flags.
	if len(formats) != 5 {
		t.Errorf("conditional formats = %d ranges, want 5", len(formats))
	}
}

func TestWriteRangesICS(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := WriteRangesICS(&buf, sampleRanges(), now); err != nil {
		t.Fatalf("WriteRangesICS() error = %v", err)
	}

	out := buf.String()
	if n := strings.Count(out, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("VEVENT count = %d, want 2", n)
	}
	for _, want := range []string{
		"SUMMARY:Wed 09:00-10:30",
		"DTSTART:20250604T070000Z",
		"DTEND:20250604T083000Z",
		"METHOD:PUBLISH",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("ics output missing %q", want)
		}
	}
}

func TestRangeUID_Stable(t *testing.T) {
	r := sampleRanges()
	if RangeUID(r[0]) != RangeUID(r[0]) {
		t.Error("RangeUID() not deterministic")
	}
	if RangeUID(r[0]) == RangeUID(r[1]) {
		t.Error("RangeUID() collides for different ranges")
	}
}

func TestFileBase(t *testing.T) {
	now := time.Date(2025, 8, 11, 12, 24, 52, 0, time.UTC)
	tests := []struct {
		names []string
		want  string
	}{
		{[]string{"Team Sync", "Board"}, "Team_Sync_Board_20250811_122452"},
		{[]string{"a/b:c?"}, "a_b_c__20250811_122452"},
		{[]string{"  ", ""}, "meetblocks_20250811_122452"},
		{nil, "meetblocks_20250811_122452"},
	}
	for _, tt := range tests {
		if got := FileBase(tt.names, now); got != tt.want {
			t.Errorf("FileBase(%q) = %q, want %q", tt.names, got, tt.want)
		}
	}
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	res := availability.Result{
		Matrix:   sampleMatrix(),
		Overview: sampleOverview(),
		Ranges:   sampleRanges(),
	}

	paths, err := WriteAll(dir, "ev_20250811_122452", res, []string{FormatCSV, FormatXLSX, FormatICS})
	if err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}

	want := []string{
		"ev_20250811_122452.csv",
		"weekview-ev_20250811_122452.csv",
		"ev_20250811_122452.xlsx",
		"ev_20250811_122452.ics",
	}
	if len(paths) != len(want) {
		t.Fatalf("WriteAll() paths = %v, want %v", paths, want)
	}
	for i, name := range want {
		if filepath.Base(paths[i]) != name {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], name)
		}
		if info, err := os.Stat(paths[i]); err != nil || info.Size() == 0 {
			t.Errorf("%s missing or empty: %v", name, err)
		}
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".meetblocks-export-*"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestWriteAll_UnknownFormat(t *testing.T) {
	_, err := WriteAll(t.TempDir(), "x", availability.Result{}, []string{"pdf"})
	if err == nil {
		t.Error("WriteAll() with unknown format error = nil")
	}
}
