package swpc

import (
	"testing"
	"time"
)

func TestParseFeedTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-05-10T06:36Z", time.Date(2025, 5, 10, 6, 36, 0, 0, time.UTC)},
		{"2025-05-10 06:36:00.000", time.Date(2025, 5, 10, 6, 36, 0, 0, time.UTC)},
		{"2025-05-10 06:36:00", time.Date(2025, 5, 10, 6, 36, 0, 0, time.UTC)},
		{"2025-05-10T06:36:00Z", time.Date(2025, 5, 10, 6, 36, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseFeedTime(tt.in)
		if err != nil {
			t.Errorf("parseFeedTime(%q) error: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseFeedTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := parseFeedTime("not a time"); err == nil {
		t.Error("garbage must not parse")
	}
}

func TestParseKpRows(t *testing.T) {
	rows := [][]string{
		{"time_tag", "Kp", "a_running", "station_count"},
		{"2025-05-10 00:00:00.000", "2.33", "9", "8"},
		{"2025-05-10 03:00:00.000", "3.67", "18", "8"},
		{"2025-05-10 06:00:00.000", "5.33", "56", "8"},
	}
	readings, err := parseKpRows(rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(readings) != 3 {
		t.Fatalf("got %d readings", len(readings))
	}
	if readings[2].Kp != 5.33 {
		t.Errorf("latest kp %v, want 5.33", readings[2].Kp)
	}
}

func TestParseKpRowsKeepsTail(t *testing.T) {
	rows := [][]string{{"time_tag", "Kp", "a", "n"}}
	for i := 0; i < 12; i++ {
		rows = append(rows, []string{
			time.Date(2025, 5, 10, i, 0, 0, 0, time.UTC).Format("2006-01-02 15:04:05"),
			"3.0", "0", "8",
		})
	}
	readings, err := parseKpRows(rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(readings) != kpHistoryLen {
		t.Fatalf("got %d readings, want %d", len(readings), kpHistoryLen)
	}
	if readings[0].Time.Hour() != 12-kpHistoryLen {
		t.Errorf("tail should keep the newest readings, first hour %d", readings[0].Time.Hour())
	}
}

func TestParseKpRowsEmpty(t *testing.T) {
	if _, err := parseKpRows([][]string{{"time_tag", "Kp"}}); err == nil {
		t.Error("header-only table must error")
	}
}

func TestParsePlasmaRowsSkipsIncompleteTail(t *testing.T) {
	rows := [][]string{
		{"time_tag", "density", "speed", "temperature"},
		{"2025-05-10 06:30:00", "4.5", "412.3", "98000"},
		{"2025-05-10 06:35:00", "null", "null", "null"},
	}
	wind := parsePlasmaRows(rows)
	if wind == nil {
		t.Fatal("expected the last complete row")
	}
	if wind.Speed != 412.3 || wind.Density != 4.5 {
		t.Errorf("got %+v", wind)
	}
}

func TestParseMagRows(t *testing.T) {
	rows := [][]string{
		{"time_tag", "bx_gsm", "by_gsm", "bz_gsm", "lon_gsm", "lat_gsm", "bt"},
		{"2025-05-10 06:35:00", "1.2", "-3.4", "-12.7", "120", "-45", "13.1"},
	}
	mag := parseMagRows(rows)
	if mag == nil {
		t.Fatal("expected a field")
	}
	if mag.Bz != -12.7 || mag.Bt != 13.1 {
		t.Errorf("got %+v", mag)
	}
}

func TestConvertCMEEarthDirected(t *testing.T) {
	raw := donkiCME{
		ActivityID: "2025-05-09T18:24:00-CME-001",
		StartTime:  "2025-05-09T18:24Z",
		Analyses: []donkiCMEAnalysis{
			{Speed: 800, Type: "C", IsMostAccurate: false},
			{
				Speed:          1250,
				Type:           "R",
				IsMostAccurate: true,
				EnlilList: []donkiEnlil{
					{EstimatedShockArrivalTime: "2025-05-11T12:00Z", Kp90: 6, Kp135: 8, Kp180: 7},
				},
			},
		},
	}
	cme, ok := convertCME(raw)
	if !ok {
		t.Fatal("conversion failed")
	}
	if !cme.IsEarthDirected {
		t.Error("ENLIL shock arrival means Earth-directed")
	}
	if cme.Speed != 1250 {
		t.Errorf("speed %v, want the most accurate analysis", cme.Speed)
	}
	if cme.PredictedKp != 8 {
		t.Errorf("predictedKp %v, want max of kp bands", cme.PredictedKp)
	}
	if cme.PredictedArrival == nil || !cme.PredictedArrival.Equal(time.Date(2025, 5, 11, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("predictedArrival %v", cme.PredictedArrival)
	}
}

func TestConvertCMENotEarthDirected(t *testing.T) {
	raw := donkiCME{
		ActivityID: "2025-05-09T02:00:00-CME-002",
		StartTime:  "2025-05-09T02:00Z",
		Analyses:   []donkiCMEAnalysis{{Speed: 500, IsMostAccurate: true}},
	}
	cme, ok := convertCME(raw)
	if !ok {
		t.Fatal("conversion failed")
	}
	if cme.IsEarthDirected || cme.PredictedArrival != nil {
		t.Errorf("no ENLIL arrival must mean not Earth-directed: %+v", cme)
	}
}

func TestScaleLabel(t *testing.T) {
	tests := []struct {
		prefix, value, want string
	}{
		{"G", "2", "G2"},
		{"G", "0", ""},
		{"S", "", ""},
		{"R", "none", ""},
		{"R", "1", "R1"},
	}
	for _, tt := range tests {
		if got := scaleLabel(tt.prefix, tt.value); got != tt.want {
			t.Errorf("scaleLabel(%q, %q) = %q, want %q", tt.prefix, tt.value, got, tt.want)
		}
	}
}

func TestLatestRegions(t *testing.T) {
	records := []solarRegionRecord{
		{ObservedDate: "2025-05-09", Region: 3664, MFlareProbability: 40},
		{ObservedDate: "2025-05-10", Region: 3664, MFlareProbability: 65},
		{ObservedDate: "2025-05-10", Region: 3665, MFlareProbability: 5},
		{ObservedDate: "2025-05-10", Region: 0, MFlareProbability: 99}, // unnumbered
	}
	regions := latestRegions(records)
	if len(regions) != 2 {
		t.Fatalf("got %d regions, want 2", len(regions))
	}
	if regions[0].RegionNumber != 3664 || regions[0].FlareProbM != 65 {
		t.Errorf("region 3664 should carry the newest observation: %+v", regions[0])
	}
}
