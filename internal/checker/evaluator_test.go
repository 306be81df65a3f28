package checker

import (
	"strings"
	"testing"
	"time"

	"github.com/bonecondor/space-weather/internal/config"
	"github.com/bonecondor/space-weather/internal/models"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Thresholds.Kp = config.KpThresholds{Elevated: 4, Storm: 5, Major: 7}
	cfg.Thresholds.Bz = config.BzThresholds{Moderate: -10, Strong: -15}
	cfg.Thresholds.WindSpeed = config.WindThresholds{Elevated: 600, High: 700}
	cfg.Thresholds.DensityHigh = 20
	cfg.Thresholds.ActiveRegion = config.RegionThresholds{MFlareProb: 30, XFlareProb: 10}
	cfg.Thresholds.CMERevisionKpJump = 2
	cfg.Cooldowns = config.DefaultCooldowns()
	cfg.Channels = config.DefaultChannels()
	cfg.Checker.MaxAlertHistory = 100
	cfg.Checker.ActiveRegionAlerts = true
	return cfg
}

func quietSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Timestamp:     time.Now().UTC(),
		Kp:            2.0,
		MagneticField: &models.MagneticField{Bz: -1},
		SolarWind:     &models.SolarWind{Speed: 350, Density: 5},
	}
}

func alertTypes(alerts []models.Alert) []string {
	types := make([]string, len(alerts))
	for i, a := range alerts {
		types[i] = a.Type
	}
	return types
}

func TestEvaluateQuietSky(t *testing.T) {
	alerts := Evaluate(testConfig(), quietSnapshot(), nil, models.DefaultCheckerState(), time.Now().UTC())
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts for a quiet sky, got %v", alertTypes(alerts))
	}
}

func TestEvaluateKpCrossings(t *testing.T) {
	now := time.Now().UTC()
	tests := []struct {
		name        string
		kp, prevKp  float64
		wantType    string
		wantUrgency models.Urgency
		wantTitle   string
	}{
		{"storm threshold", 5.3, 4.0, models.AlertKpThreshold, models.UrgencyHigh, "Kp 5.3 — G1 Storm Threshold"},
		{"major threshold", 7.2, 6.0, models.AlertKpThreshold, models.UrgencyCritical, ""},
		{"elevated", 4.1, 3.0, models.AlertKpElevated, models.UrgencyInfo, ""},
		{"no recross above", 5.5, 5.2, "", "", ""},
		{"falling", 4.0, 6.0, "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := quietSnapshot()
			snap.Kp = tt.kp
			prev := models.DefaultCheckerState()
			prev.LastKp = tt.prevKp

			alerts := Evaluate(testConfig(), snap, nil, prev, now)
			if tt.wantType == "" {
				if len(alerts) != 0 {
					t.Fatalf("expected no alerts, got %v", alertTypes(alerts))
				}
				return
			}
			if len(alerts) != 1 {
				t.Fatalf("expected 1 alert, got %v", alertTypes(alerts))
			}
			if alerts[0].Type != tt.wantType || alerts[0].Urgency != tt.wantUrgency {
				t.Errorf("got %s/%s, want %s/%s", alerts[0].Type, alerts[0].Urgency, tt.wantType, tt.wantUrgency)
			}
			if tt.wantTitle != "" && alerts[0].Title != tt.wantTitle {
				t.Errorf("title %q, want %q", alerts[0].Title, tt.wantTitle)
			}
		})
	}
}

func TestEvaluateKpTieBreak(t *testing.T) {
	// A jump from 3 straight past 7 must emit only the highest branch.
	snap := quietSnapshot()
	snap.Kp = 7.5
	prev := models.DefaultCheckerState()
	prev.LastKp = 3.0

	alerts := Evaluate(testConfig(), snap, nil, prev, time.Now().UTC())
	if len(alerts) != 1 {
		t.Fatalf("expected exactly 1 alert, got %v", alertTypes(alerts))
	}
	if alerts[0].Urgency != models.UrgencyCritical {
		t.Errorf("urgency %s, want critical", alerts[0].Urgency)
	}
}

func TestEvaluateBzCrossings(t *testing.T) {
	now := time.Now().UTC()
	tests := []struct {
		name        string
		bz, prevBz  float64
		wantUrgency models.Urgency
		want        bool
	}{
		{"strong", -16, -5, models.UrgencyHigh, true},
		{"moderate", -11, -5, models.UrgencyModerate, true},
		{"already below", -12, -11, "", false},
		{"north", 3, 2, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := quietSnapshot()
			snap.MagneticField.Bz = tt.bz
			prev := models.DefaultCheckerState()
			prev.LastBz = tt.prevBz

			alerts := Evaluate(testConfig(), snap, nil, prev, now)
			if !tt.want {
				if len(alerts) != 0 {
					t.Fatalf("expected no alerts, got %v", alertTypes(alerts))
				}
				return
			}
			if len(alerts) != 1 || alerts[0].Type != models.AlertBzThreshold {
				t.Fatalf("expected one bz-threshold, got %v", alertTypes(alerts))
			}
			if alerts[0].Urgency != tt.wantUrgency {
				t.Errorf("urgency %s, want %s", alerts[0].Urgency, tt.wantUrgency)
			}
		})
	}
}

func TestEvaluateMissingMagneticFieldCannotCross(t *testing.T) {
	snap := quietSnapshot()
	snap.MagneticField = nil
	prev := models.DefaultCheckerState()
	prev.LastBz = -20 // previous reading deep south; missing field reads as 0

	alerts := Evaluate(testConfig(), snap, nil, prev, time.Now().UTC())
	for _, a := range alerts {
		if a.Type == models.AlertBzThreshold {
			t.Fatalf("bz-threshold must not fire without magnetometer data")
		}
	}
}

func TestEvaluateWindCrossings(t *testing.T) {
	snap := quietSnapshot()
	snap.SolarWind = &models.SolarWind{Speed: 750, Density: 25}
	prev := models.DefaultCheckerState()
	prev.LastWindSpeed = 500
	prev.LastWindDensity = 10

	alerts := Evaluate(testConfig(), snap, nil, prev, time.Now().UTC())
	if len(alerts) != 2 {
		t.Fatalf("expected wind-speed and wind-density, got %v", alertTypes(alerts))
	}
	if alerts[0].Type != models.AlertWindSpeed || alerts[0].Urgency != models.UrgencyHigh {
		t.Errorf("first alert %s/%s, want wind-speed/high", alerts[0].Type, alerts[0].Urgency)
	}
	if alerts[1].Type != models.AlertWindDensity || alerts[1].Urgency != models.UrgencyModerate {
		t.Errorf("second alert %s/%s, want wind-density/moderate", alerts[1].Type, alerts[1].Urgency)
	}
}

func TestEvaluateNewEarthDirectedCME(t *testing.T) {
	now := time.Now().UTC()
	arrival := now.Add(18 * time.Hour)
	snap := quietSnapshot()
	snap.EarthDirectedCMEs = []models.CME{{
		ID:               "X1",
		StartTime:        now.Add(-6 * time.Hour),
		Speed:            1200,
		IsEarthDirected:  true,
		PredictedKp:      8,
		PredictedArrival: &arrival,
	}}

	alerts := Evaluate(testConfig(), snap, nil, models.DefaultCheckerState(), now)
	if len(alerts) != 1 || alerts[0].Type != models.AlertCMEEarth {
		t.Fatalf("expected one cme-earth, got %v", alertTypes(alerts))
	}
	if alerts[0].Urgency != models.UrgencyCritical {
		t.Errorf("urgency %s, want critical for predicted Kp 8", alerts[0].Urgency)
	}
	if !strings.Contains(alerts[0].Body, "~18h") {
		t.Errorf("body missing ETA ~18h: %q", alerts[0].Body)
	}
	if !strings.Contains(alerts[0].Body, "G4") {
		t.Errorf("body missing G4 impact sentence: %q", alerts[0].Body)
	}
	if alerts[0].SourceEventID != "X1" {
		t.Errorf("sourceEventId %q, want X1", alerts[0].SourceEventID)
	}
}

func TestEvaluateCMERevision(t *testing.T) {
	now := time.Now().UTC()
	prev := models.DefaultCheckerState()
	prev.KnownCMEs = []models.KnownCME{{ID: "X1", PredictedKp: 8}}

	// Downward revision: no alert.
	snap := quietSnapshot()
	snap.EarthDirectedCMEs = []models.CME{{ID: "X1", StartTime: now, IsEarthDirected: true, PredictedKp: 6}}
	if alerts := Evaluate(testConfig(), snap, nil, prev, now); len(alerts) != 0 {
		t.Fatalf("downward revision must not alert, got %v", alertTypes(alerts))
	}

	// Upward jump of +2 landing at 10: critical revision alert.
	snap.EarthDirectedCMEs[0].PredictedKp = 10
	alerts := Evaluate(testConfig(), snap, nil, prev, now)
	if len(alerts) != 1 || alerts[0].Type != models.AlertCMERevision {
		t.Fatalf("expected one cme-revision, got %v", alertTypes(alerts))
	}
	if alerts[0].Urgency != models.UrgencyCritical {
		t.Errorf("urgency %s, want critical", alerts[0].Urgency)
	}

	// Upward jump that stays below the storm level: stays quiet.
	prev.KnownCMEs[0].PredictedKp = 1
	snap.EarthDirectedCMEs[0].PredictedKp = 4
	if alerts := Evaluate(testConfig(), snap, nil, prev, now); len(alerts) != 0 {
		t.Fatalf("sub-storm revision must not alert, got %v", alertTypes(alerts))
	}
}

func TestEvaluateFlareNovelty(t *testing.T) {
	now := time.Now().UTC()
	snap := quietSnapshot()
	snap.RecentFlares = []models.Flare{
		{ID: "F1", ClassType: "X1.5", BeginTime: now, PeakTime: now},
		{ID: "F2", ClassType: "M2.1", BeginTime: now, PeakTime: now},
		{ID: "F3", ClassType: "C5.0", BeginTime: now, PeakTime: now},
		{ID: "F4", ClassType: "M9.9", BeginTime: now, PeakTime: now},
	}
	prev := models.DefaultCheckerState()
	prev.KnownFlareIDs = []string{"F4"}

	alerts := Evaluate(testConfig(), snap, nil, prev, now)
	if len(alerts) != 2 {
		t.Fatalf("expected flare-x and flare-m, got %v", alertTypes(alerts))
	}
	if alerts[0].Type != models.AlertFlareX || alerts[0].Urgency != models.UrgencyCritical {
		t.Errorf("X flare got %s/%s", alerts[0].Type, alerts[0].Urgency)
	}
	if alerts[1].Type != models.AlertFlareM || alerts[1].Urgency != models.UrgencyHigh {
		t.Errorf("M flare got %s/%s", alerts[1].Type, alerts[1].Urgency)
	}
}

func TestEvaluateHSSNovelty(t *testing.T) {
	now := time.Now().UTC()
	snap := quietSnapshot()
	snap.HSSEvents = []models.HSSEvent{
		{ID: "H1", EventTime: now},
		{ID: "H2", EventTime: now},
	}
	prev := models.DefaultCheckerState()
	prev.KnownHSSIDs = []string{"H1"}

	alerts := Evaluate(testConfig(), snap, nil, prev, now)
	if len(alerts) != 1 || alerts[0].Type != models.AlertHSSArrival {
		t.Fatalf("expected one hss-arrival for the new id, got %v", alertTypes(alerts))
	}
	if alerts[0].SourceEventID != "H2" {
		t.Errorf("sourceEventId %q, want H2", alerts[0].SourceEventID)
	}
}

func TestEvaluateActiveRegions(t *testing.T) {
	now := time.Now().UTC()
	regions := []models.ActiveRegion{
		{RegionNumber: 3664, FlareProbM: 60, FlareProbX: 25}, // new, risky
		{RegionNumber: 3665, FlareProbM: 5, FlareProbX: 1},   // new, quiet
		{RegionNumber: 3660, FlareProbM: 80, FlareProbX: 40}, // already known
	}
	prev := models.DefaultCheckerState()
	prev.KnownRegionNumbers = []int{3660}

	alerts := Evaluate(testConfig(), quietSnapshot(), regions, prev, now)
	if len(alerts) != 1 || alerts[0].Type != models.AlertActiveRegion {
		t.Fatalf("expected one active-region, got %v", alertTypes(alerts))
	}
	if alerts[0].Urgency != models.UrgencyInfo {
		t.Errorf("urgency %s, want info", alerts[0].Urgency)
	}

	cfg := testConfig()
	cfg.Checker.ActiveRegionAlerts = false
	if alerts := Evaluate(cfg, quietSnapshot(), regions, prev, now); len(alerts) != 0 {
		t.Fatalf("region alerts disabled but got %v", alertTypes(alerts))
	}
}

func TestEvaluateAllClear(t *testing.T) {
	now := time.Now().UTC()
	cfg := testConfig()

	prev := models.DefaultCheckerState()
	prev.KpWasAbove5 = true
	prev.LastKp = 5.8
	snap := quietSnapshot()
	snap.Kp = 3.5

	alerts := Evaluate(cfg, snap, nil, prev, now)
	if len(alerts) != 1 || alerts[0].Type != models.AlertAllClear {
		t.Fatalf("expected one all-clear, got %v", alertTypes(alerts))
	}
	if alerts[0].Urgency != models.UrgencyModerate {
		t.Errorf("urgency %s, want moderate", alerts[0].Urgency)
	}

	// After the recovery tick the flag is rewritten from the current
	// observation, so the next quiet tick stays silent.
	UpdateState(cfg, prev, snap, nil, map[string]models.SourceHealth{}, nil, now)
	if prev.KpWasAbove5 {
		t.Fatal("KpWasAbove5 should be false after recovery tick")
	}
	snap2 := quietSnapshot()
	snap2.Kp = 3.0
	if alerts := Evaluate(cfg, snap2, nil, prev, now.Add(15*time.Minute)); len(alerts) != 0 {
		t.Fatalf("second quiet tick must not re-emit all-clear, got %v", alertTypes(alerts))
	}
}

func TestEvaluateAllClearBzAndWind(t *testing.T) {
	now := time.Now().UTC()
	prev := models.DefaultCheckerState()
	prev.BzWasBelow15 = true
	prev.WindWasAbove700 = true
	prev.LastBz = -17
	prev.LastWindSpeed = 750

	snap := quietSnapshot()
	snap.MagneticField.Bz = -5
	snap.SolarWind.Speed = 450

	alerts := Evaluate(testConfig(), snap, nil, prev, now)
	if len(alerts) != 2 {
		t.Fatalf("expected Bz and wind recoveries, got %v", alertTypes(alerts))
	}
	for _, a := range alerts {
		if a.Type != models.AlertAllClear {
			t.Errorf("unexpected alert type %s", a.Type)
		}
	}
}

func TestUpdateStateReplacesKnownSets(t *testing.T) {
	cfg := testConfig()
	now := time.Now().UTC()
	arrival := now.Add(24 * time.Hour)

	st := models.DefaultCheckerState()
	st.KnownFlareIDs = []string{"OLD"}
	st.KnownCMEs = []models.KnownCME{{ID: "OLDCME"}}

	snap := quietSnapshot()
	snap.Kp = 5.3
	snap.RecentFlares = []models.Flare{{ID: "F1", ClassType: "M1.0"}}
	snap.EarthDirectedCMEs = []models.CME{{ID: "X1", PredictedKp: 8, PredictedArrival: &arrival}}
	snap.HSSEvents = []models.HSSEvent{{ID: "H1"}}
	snap.ActiveAlerts = []models.AlertProduct{{ID: "P1"}}
	regions := []models.ActiveRegion{{RegionNumber: 3664}}

	dispatched := []models.Alert{{ID: "a1", Type: models.AlertKpThreshold, Timestamp: now}}
	UpdateState(cfg, st, snap, regions, map[string]models.SourceHealth{"kp": {OK: true}}, dispatched, now)

	if st.LastKp != 5.3 || !st.KpWasAbove5 || st.KpWasAbove7 {
		t.Errorf("kp fields wrong: lastKp=%v above5=%v above7=%v", st.LastKp, st.KpWasAbove5, st.KpWasAbove7)
	}
	if len(st.KnownFlareIDs) != 1 || st.KnownFlareIDs[0] != "F1" {
		t.Errorf("knownFlareIds not replaced: %v", st.KnownFlareIDs)
	}
	if len(st.KnownCMEs) != 1 || st.KnownCMEs[0].ID != "X1" || st.KnownCMEs[0].PredictedKp != 8 {
		t.Errorf("knownCMEs not replaced with forecast fields: %+v", st.KnownCMEs)
	}
	if st.KnownCMEs[0].PredictedArrival == nil || !st.KnownCMEs[0].PredictedArrival.Equal(arrival) {
		t.Errorf("predictedArrival not carried: %v", st.KnownCMEs[0].PredictedArrival)
	}
	if len(st.KnownHSSIDs) != 1 || len(st.KnownRegionNumbers) != 1 || len(st.KnownAlertProductIDs) != 1 {
		t.Errorf("known sets wrong: hss=%v regions=%v products=%v", st.KnownHSSIDs, st.KnownRegionNumbers, st.KnownAlertProductIDs)
	}
	if len(st.AlertsSent) != 1 || st.AlertsSent[0].ID != "a1" {
		t.Errorf("alertsSent not extended: %+v", st.AlertsSent)
	}
	if st.LastRunAt == nil {
		t.Error("lastRunAt not set")
	}
}

func TestUpdateStateCapsAlertHistory(t *testing.T) {
	cfg := testConfig()
	cfg.Checker.MaxAlertHistory = 3
	st := models.DefaultCheckerState()
	now := time.Now().UTC()

	var dispatched []models.Alert
	for i := 0; i < 5; i++ {
		dispatched = append(dispatched, models.Alert{ID: string(rune('a' + i)), Type: models.AlertKpThreshold, Timestamp: now})
	}
	UpdateState(cfg, st, quietSnapshot(), nil, map[string]models.SourceHealth{}, dispatched, now)

	if len(st.AlertsSent) != 3 {
		t.Fatalf("alertsSent length %d, want 3", len(st.AlertsSent))
	}
	if st.AlertsSent[0].ID != "c" {
		t.Errorf("oldest kept %q, want c", st.AlertsSent[0].ID)
	}
}
