package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Series bounds of the published SPEI rasters.
const (
	SeriesStartYear = 2004
	SeriesEndYear   = 2023
)

// JanuaryAssets lists the SPEI-1 January rasters, one per year from 2004 to 2023.
var JanuaryAssets = []string{
	"SPEI1_001", "SPEI1_013", "SPEI1_025", "SPEI1_037", "SPEI1_049",
	"SPEI1_061", "SPEI1_073", "SPEI1_085", "SPEI1_097", "SPEI1_109",
	"SPEI1_121", "SPEI1_133", "SPEI1_145", "SPEI1_157", "SPEI1_169",
	"SPEI1_181", "SPEI1_193", "SPEI1_205", "SPEI1_217", "SPEI1_229",
}

// ErrLengthMismatch is returned when asset names and years cannot be paired one to one.
var ErrLengthMismatch = errors.New("asset names and years differ in length")

// AssetRecord pairs a raster asset name with the year it covers.
type AssetRecord struct {
	Name string `json:"name"`
	Year int    `json:"year"`
}

// Years returns the inclusive year sequence [start, end]. It is empty when end < start.
func Years(start, end int) []int {
	if end < start {
		return nil
	}
	years := make([]int, 0, end-start+1)
	for y := start; y <= end; y++ {
		years = append(years, y)
	}
	return years
}

// PairAssets zips names and years into records. Names are not validated; a bad
// name only surfaces when the raster store resolves it.
func PairAssets(names []string, years []int) ([]AssetRecord, error) {
	if len(names) != len(years) {
		return nil, fmt.Errorf("%w: %d names, %d years", ErrLengthMismatch, len(names), len(years))
	}
	records := make([]AssetRecord, len(names))
	for i := range names {
		records[i] = AssetRecord{Name: names[i], Year: years[i]}
	}
	return records, nil
}

// Window is the SPEI accumulation period in months.
type Window int

const (
	WindowMonthly  Window = 1
	WindowSeasonal Window = 3
	WindowAnnual   Window = 12
)

// ParseWindow accepts "1", "3", "12" and the "SPEI-3" style spelling.
func ParseWindow(s string) (Window, error) {
	s = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "SPEI-")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse window %q: %w", s, err)
	}
	w := Window(n)
	if !w.Valid() {
		return 0, fmt.Errorf("unsupported window %d (want 1, 3 or 12)", n)
	}
	return w, nil
}

// Valid reports whether rasters are published for this window.
func (w Window) Valid() bool {
	switch w {
	case WindowMonthly, WindowSeasonal, WindowAnnual:
		return true
	}
	return false
}

// HasMonth reports whether the export writes a raster for month m in this window.
func (w Window) HasMonth(m time.Month) bool {
	switch w {
	case WindowMonthly:
		return m >= time.January && m <= time.December
	case WindowSeasonal:
		return m == time.March || m == time.June || m == time.September || m == time.December
	case WindowAnnual:
		return m == time.December
	}
	return false
}

func (w Window) String() string {
	return "SPEI-" + strconv.Itoa(int(w))
}

// AssetName returns the published asset name for a window, year and month.
// seriesStart anchors the running SPEI-1 index.
func AssetName(w Window, seriesStart, year int, month time.Month) (string, error) {
	if !w.HasMonth(month) {
		return "", fmt.Errorf("%s has no raster for %s", w, month)
	}
	switch w {
	case WindowMonthly:
		idx := (year-seriesStart)*12 + int(month)
		if idx < 1 {
			return "", fmt.Errorf("year %d precedes series start %d", year, seriesStart)
		}
		return fmt.Sprintf("SPEI1_%03d", idx), nil
	case WindowSeasonal:
		return fmt.Sprintf("SPEI3_%d_%02d", year, int(month)), nil
	default:
		return fmt.Sprintf("SPEI12_%d", year), nil
	}
}

// BuildAssets generates the records for one month of every year in [start, end].
func BuildAssets(w Window, month time.Month, start, end int) ([]AssetRecord, error) {
	years := Years(start, end)
	names := make([]string, 0, len(years))
	for _, y := range years {
		name, err := AssetName(w, start, y, month)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return PairAssets(names, years)
}

// LayerLabel formats the display label, e.g. "SPEI-1 Jan 2012".
// Months outside January..December are shown by number, e.g. "SPEI-1 M13 2012".
func LayerLabel(w Window, month time.Month, year int) string {
	if month < time.January || month > time.December {
		return fmt.Sprintf("%s M%02d %d", w, int(month), year)
	}
	return fmt.Sprintf("%s %s %d", w, time.Date(2000, month, 1, 0, 0, 0, 0, time.UTC).Format("Jan"), year)
}
