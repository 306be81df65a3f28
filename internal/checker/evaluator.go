package checker

import (
	"fmt"
	"strings"
	"time"

	"github.com/bonecondor/space-weather/internal/config"
	"github.com/bonecondor/space-weather/internal/models"
)

// Evaluate compares the snapshot and region list against the previous state
// and returns the candidate alerts for this tick. It is pure over its inputs;
// cooldown and quiet-hours filtering happen later. Rule order is fixed but
// only affects log sequencing, never state.
func Evaluate(cfg *config.Config, snap *models.Snapshot, regions []models.ActiveRegion, prev *models.CheckerState, now time.Time) []models.Alert {
	var alerts []models.Alert

	alerts = append(alerts, evalEarthDirectedCMEs(cfg, snap, prev, now)...)
	alerts = append(alerts, evalFlares(snap, prev, now)...)
	alerts = append(alerts, evalHSS(snap, prev, now)...)

	if a, ok := evalKpCrossing(cfg, snap.Kp, prev.LastKp, now); ok {
		alerts = append(alerts, a)
	}

	bz := 0.0
	if snap.MagneticField != nil {
		bz = snap.MagneticField.Bz
	}
	if a, ok := evalBzCrossing(cfg, bz, prev.LastBz, now); ok {
		alerts = append(alerts, a)
	}

	speed, density := 0.0, 0.0
	if snap.SolarWind != nil {
		speed = snap.SolarWind.Speed
		density = snap.SolarWind.Density
	}
	if a, ok := evalWindSpeedCrossing(cfg, speed, prev.LastWindSpeed, now); ok {
		alerts = append(alerts, a)
	}
	if density >= cfg.Thresholds.DensityHigh && prev.LastWindDensity < cfg.Thresholds.DensityHigh {
		alerts = append(alerts, models.Alert{
			ID:        fmt.Sprintf("%s:%d", models.AlertWindDensity, now.Unix()),
			Type:      models.AlertWindDensity,
			Urgency:   models.UrgencyModerate,
			Title:     fmt.Sprintf("Solar Wind Density %.1f p/cm³", density),
			Body:      fmt.Sprintf("Proton density jumped to %.1f p/cm³ (threshold %.0f). Dense solar wind amplifies storm effects when Bz is southward.", density, cfg.Thresholds.DensityHigh),
			Timestamp: now,
		})
	}

	if cfg.Checker.ActiveRegionAlerts {
		alerts = append(alerts, evalActiveRegions(cfg, regions, prev, now)...)
	}

	alerts = append(alerts, evalAllClear(cfg, snap.Kp, bz, speed, prev, now)...)

	return alerts
}

func evalEarthDirectedCMEs(cfg *config.Config, snap *models.Snapshot, prev *models.CheckerState, now time.Time) []models.Alert {
	var alerts []models.Alert
	for _, cme := range snap.EarthDirectedCMEs {
		known, seen := prev.KnownCME(cme.ID)
		if !seen {
			urgency := models.UrgencyHigh
			if cme.PredictedKp >= cfg.Thresholds.Kp.Major {
				urgency = models.UrgencyCritical
			}
			alerts = append(alerts, models.Alert{
				ID:            models.AlertCMEEarth + ":" + cme.ID,
				Type:          models.AlertCMEEarth,
				Urgency:       urgency,
				Title:         "Earth-Directed CME Detected",
				Body:          cmeBody(cme, now),
				Timestamp:     now,
				SourceEventID: cme.ID,
			})
			continue
		}

		// Forecast revision: only an upward jump past the storm level warns.
		if cme.PredictedKp-known.PredictedKp >= cfg.Thresholds.CMERevisionKpJump &&
			cme.PredictedKp >= cfg.Thresholds.Kp.Storm {
			urgency := models.UrgencyHigh
			if cme.PredictedKp >= cfg.Thresholds.Kp.Major {
				urgency = models.UrgencyCritical
			}
			alerts = append(alerts, models.Alert{
				ID:      fmt.Sprintf("%s:%s:%d", models.AlertCMERevision, cme.ID, now.Unix()),
				Type:    models.AlertCMERevision,
				Urgency: urgency,
				Title:   fmt.Sprintf("CME Forecast Revised Upward — Kp %.0f", cme.PredictedKp),
				Body: fmt.Sprintf("Predicted Kp for CME %s rose from %.0f to %.0f. Arrival %s. %s",
					cme.ID, known.PredictedKp, cme.PredictedKp, formatETA(cme.PredictedArrival, now), kpImpactSentence(cme.PredictedKp)),
				Timestamp:     now,
				SourceEventID: cme.ID,
			})
		}
	}
	return alerts
}

func cmeBody(cme models.CME, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CME %s launched %s at %.0f km/s.", cme.ID, cme.StartTime.Format("Jan 2 15:04 MST"), cme.Speed)
	fmt.Fprintf(&b, " Arrival %s.", formatETA(cme.PredictedArrival, now))
	if cme.PredictedKp > 0 {
		fmt.Fprintf(&b, " Predicted Kp %.0f. %s", cme.PredictedKp, kpImpactSentence(cme.PredictedKp))
	}
	return b.String()
}

func evalFlares(snap *models.Snapshot, prev *models.CheckerState, now time.Time) []models.Alert {
	var alerts []models.Alert
	for _, flare := range snap.RecentFlares {
		if prev.HasFlareID(flare.ID) {
			continue
		}
		var alertType string
		var urgency models.Urgency
		switch flareClassLetter(flare.ClassType) {
		case 'X':
			alertType, urgency = models.AlertFlareX, models.UrgencyCritical
		case 'M':
			alertType, urgency = models.AlertFlareM, models.UrgencyHigh
		default:
			// C class and below are routine.
			continue
		}
		body := fmt.Sprintf("%s flare peaked at %s. %s",
			flare.ClassType, flare.PeakTime.Format("15:04 MST"), flareImpactSentence(flare.ClassType))
		if flare.ActiveRegionNum > 0 {
			body += fmt.Sprintf(" Source region %d.", flare.ActiveRegionNum)
		}
		alerts = append(alerts, models.Alert{
			ID:            alertType + ":" + flare.ID,
			Type:          alertType,
			Urgency:       urgency,
			Title:         fmt.Sprintf("%c-Class Flare: %s", flareClassLetter(flare.ClassType), flare.ClassType),
			Body:          body,
			Timestamp:     now,
			SourceEventID: flare.ID,
		})
	}
	return alerts
}

func evalHSS(snap *models.Snapshot, prev *models.CheckerState, now time.Time) []models.Alert {
	var alerts []models.Alert
	for _, hss := range snap.HSSEvents {
		if prev.HasHSSID(hss.ID) {
			continue
		}
		alerts = append(alerts, models.Alert{
			ID:            models.AlertHSSArrival + ":" + hss.ID,
			Type:          models.AlertHSSArrival,
			Urgency:       models.UrgencyModerate,
			Title:         "High-Speed Stream Arrival",
			Body:          fmt.Sprintf("High-speed solar wind stream detected at %s. Elevated wind speeds and unsettled geomagnetic conditions expected over the next days.", hss.EventTime.Format("Jan 2 15:04 MST")),
			Timestamp:     now,
			SourceEventID: hss.ID,
		})
	}
	return alerts
}

// evalKpCrossing emits at most one alert: the highest threshold freshly
// crossed this tick.
func evalKpCrossing(cfg *config.Config, kp, prevKp float64, now time.Time) (models.Alert, bool) {
	t := cfg.Thresholds.Kp
	switch {
	case kp >= t.Major && prevKp < t.Major:
		return models.Alert{
			ID:        fmt.Sprintf("%s:%d", models.AlertKpThreshold, now.Unix()),
			Type:      models.AlertKpThreshold,
			Urgency:   models.UrgencyCritical,
			Title:     fmt.Sprintf("Kp %.1f — %s Major Storm", kp, kpToGScale(kp)),
			Body:      fmt.Sprintf("Planetary K index reached %.1f (previous %.1f). %s", kp, prevKp, kpImpactSentence(kp)),
			Timestamp: now,
		}, true
	case kp >= t.Storm && prevKp < t.Storm:
		return models.Alert{
			ID:        fmt.Sprintf("%s:%d", models.AlertKpThreshold, now.Unix()),
			Type:      models.AlertKpThreshold,
			Urgency:   models.UrgencyHigh,
			Title:     fmt.Sprintf("Kp %.1f — G1 Storm Threshold", kp),
			Body:      fmt.Sprintf("Planetary K index reached %.1f (previous %.1f). %s", kp, prevKp, kpImpactSentence(kp)),
			Timestamp: now,
		}, true
	case kp >= t.Elevated && prevKp < t.Elevated:
		return models.Alert{
			ID:        fmt.Sprintf("%s:%d", models.AlertKpElevated, now.Unix()),
			Type:      models.AlertKpElevated,
			Urgency:   models.UrgencyInfo,
			Title:     fmt.Sprintf("Kp %.1f — Elevated Geomagnetic Activity", kp),
			Body:      fmt.Sprintf("Planetary K index reached %.1f (previous %.1f). %s", kp, prevKp, kpImpactSentence(kp)),
			Timestamp: now,
		}, true
	}
	return models.Alert{}, false
}

func evalBzCrossing(cfg *config.Config, bz, prevBz float64, now time.Time) (models.Alert, bool) {
	t := cfg.Thresholds.Bz
	var urgency models.Urgency
	switch {
	case bz <= t.Strong && prevBz > t.Strong:
		urgency = models.UrgencyHigh
	case bz <= t.Moderate && prevBz > t.Moderate:
		urgency = models.UrgencyModerate
	default:
		return models.Alert{}, false
	}
	return models.Alert{
		ID:        fmt.Sprintf("%s:%d", models.AlertBzThreshold, now.Unix()),
		Type:      models.AlertBzThreshold,
		Urgency:   urgency,
		Title:     fmt.Sprintf("Bz %.1f nT Southward", bz),
		Body:      fmt.Sprintf("IMF Bz dropped to %.1f nT (previous %.1f). %s", bz, prevBz, bzImpactSentence(bz)),
		Timestamp: now,
	}, true
}

func evalWindSpeedCrossing(cfg *config.Config, speed, prevSpeed float64, now time.Time) (models.Alert, bool) {
	t := cfg.Thresholds.WindSpeed
	var urgency models.Urgency
	switch {
	case speed >= t.High && prevSpeed < t.High:
		urgency = models.UrgencyHigh
	case speed >= t.Elevated && prevSpeed < t.Elevated:
		urgency = models.UrgencyModerate
	default:
		return models.Alert{}, false
	}
	return models.Alert{
		ID:        fmt.Sprintf("%s:%d", models.AlertWindSpeed, now.Unix()),
		Type:      models.AlertWindSpeed,
		Urgency:   urgency,
		Title:     fmt.Sprintf("Solar Wind %.0f km/s", speed),
		Body:      fmt.Sprintf("Solar wind speed reached %.0f km/s (previous %.0f). %s", speed, prevSpeed, windImpactSentence(speed)),
		Timestamp: now,
	}, true
}

func evalActiveRegions(cfg *config.Config, regions []models.ActiveRegion, prev *models.CheckerState, now time.Time) []models.Alert {
	var alerts []models.Alert
	t := cfg.Thresholds.ActiveRegion
	for _, region := range regions {
		if prev.HasRegionNumber(region.RegionNumber) {
			continue
		}
		if region.FlareProbM < t.MFlareProb && region.FlareProbX < t.XFlareProb {
			continue
		}
		alerts = append(alerts, models.Alert{
			ID:      fmt.Sprintf("%s:%d", models.AlertActiveRegion, region.RegionNumber),
			Type:    models.AlertActiveRegion,
			Urgency: models.UrgencyInfo,
			Title:   fmt.Sprintf("Active Region %d — Elevated Flare Risk", region.RegionNumber),
			Body: fmt.Sprintf("Region %d (%s, class %s, %d spots): %.0f%% M-flare and %.0f%% X-flare probability in the next 24h.",
				region.RegionNumber, region.Location, region.MagneticClass, region.NumberSpots, region.FlareProbM, region.FlareProbX),
			Timestamp:     now,
			SourceEventID: fmt.Sprintf("AR%d", region.RegionNumber),
		})
	}
	return alerts
}

// evalAllClear emits recovery alerts on the falling edge of each remembered
// threshold flag. The flags are rewritten from current observations at the
// end of the tick, so each recovery fires once. A Kp drop from 7+ straight
// below 5 produces the same single G1 recovery; there is no separate
// major-storm all-clear.
func evalAllClear(cfg *config.Config, kp, bz, speed float64, prev *models.CheckerState, now time.Time) []models.Alert {
	var alerts []models.Alert

	if prev.KpWasAbove5 && kp < cfg.Thresholds.Kp.Storm {
		alerts = append(alerts, models.Alert{
			ID:        fmt.Sprintf("%s:kp:%d", models.AlertAllClear, now.Unix()),
			Type:      models.AlertAllClear,
			Urgency:   models.UrgencyModerate,
			Title:     fmt.Sprintf("All Clear — Kp Recovered to %.1f", kp),
			Body:      fmt.Sprintf("Geomagnetic activity has dropped below storm levels (Kp %.1f).", kp),
			Timestamp: now,
		})
	}
	if prev.BzWasBelow15 && bz > cfg.Thresholds.Bz.Moderate {
		alerts = append(alerts, models.Alert{
			ID:        fmt.Sprintf("%s:bz:%d", models.AlertAllClear, now.Unix()),
			Type:      models.AlertAllClear,
			Urgency:   models.UrgencyModerate,
			Title:     fmt.Sprintf("All Clear — Bz Recovered to %.1f nT", bz),
			Body:      fmt.Sprintf("IMF Bz has recovered to %.1f nT after a strongly southward excursion.", bz),
			Timestamp: now,
		})
	}
	if prev.WindWasAbove700 && speed < cfg.Thresholds.WindSpeed.Elevated {
		alerts = append(alerts, models.Alert{
			ID:        fmt.Sprintf("%s:wind:%d", models.AlertAllClear, now.Unix()),
			Type:      models.AlertAllClear,
			Urgency:   models.UrgencyModerate,
			Title:     fmt.Sprintf("All Clear — Solar Wind Down to %.0f km/s", speed),
			Body:      fmt.Sprintf("Solar wind speed has dropped to %.0f km/s.", speed),
			Timestamp: now,
		})
	}
	return alerts
}

// UpdateState rewrites the tick-carried fields of the state from the current
// snapshot: last observed values, threshold flags, and the known-id sets
// (replaced wholesale, carrying CME forecast fields for revision detection).
func UpdateState(cfg *config.Config, st *models.CheckerState, snap *models.Snapshot, regions []models.ActiveRegion, health map[string]models.SourceHealth, dispatched []models.Alert, now time.Time) {
	st.SchemaVersion = models.CheckerStateSchemaVersion
	ts := now
	st.LastRunAt = &ts

	st.LastKp = snap.Kp
	if snap.MagneticField != nil {
		st.LastBz = snap.MagneticField.Bz
	}
	if snap.SolarWind != nil {
		st.LastWindSpeed = snap.SolarWind.Speed
		st.LastWindDensity = snap.SolarWind.Density
	}

	// Flags come from the current observation; a missing source reads as
	// zero, which never satisfies a threshold.
	bz, speed, density := 0.0, 0.0, 0.0
	if snap.MagneticField != nil {
		bz = snap.MagneticField.Bz
	}
	if snap.SolarWind != nil {
		speed = snap.SolarWind.Speed
		density = snap.SolarWind.Density
	}
	st.KpWasAbove5 = snap.Kp >= cfg.Thresholds.Kp.Storm
	st.KpWasAbove7 = snap.Kp >= cfg.Thresholds.Kp.Major
	st.BzWasBelow10 = bz <= cfg.Thresholds.Bz.Moderate
	st.BzWasBelow15 = bz <= cfg.Thresholds.Bz.Strong
	st.WindWasAbove600 = speed >= cfg.Thresholds.WindSpeed.Elevated
	st.WindWasAbove700 = speed >= cfg.Thresholds.WindSpeed.High
	st.DensityWasAbove20 = density >= cfg.Thresholds.DensityHigh

	st.KnownCMEs = make([]models.KnownCME, 0, len(snap.EarthDirectedCMEs))
	for _, cme := range snap.EarthDirectedCMEs {
		st.KnownCMEs = append(st.KnownCMEs, models.KnownCME{
			ID:               cme.ID,
			PredictedKp:      cme.PredictedKp,
			PredictedArrival: cme.PredictedArrival,
		})
	}
	st.KnownFlareIDs = make([]string, 0, len(snap.RecentFlares))
	for _, flare := range snap.RecentFlares {
		st.KnownFlareIDs = append(st.KnownFlareIDs, flare.ID)
	}
	st.KnownHSSIDs = make([]string, 0, len(snap.HSSEvents))
	for _, hss := range snap.HSSEvents {
		st.KnownHSSIDs = append(st.KnownHSSIDs, hss.ID)
	}
	st.KnownRegionNumbers = make([]int, 0, len(regions))
	for _, region := range regions {
		st.KnownRegionNumbers = append(st.KnownRegionNumbers, region.RegionNumber)
	}
	st.KnownAlertProductIDs = make([]string, 0, len(snap.ActiveAlerts))
	for _, product := range snap.ActiveAlerts {
		st.KnownAlertProductIDs = append(st.KnownAlertProductIDs, product.ID)
	}

	st.DataHealth = health

	for _, alert := range dispatched {
		st.AlertsSent = append(st.AlertsSent, models.SentAlert{
			ID:            alert.ID,
			Type:          alert.Type,
			Urgency:       alert.Urgency,
			Title:         alert.Title,
			Timestamp:     alert.Timestamp,
			SourceEventID: alert.SourceEventID,
		})
	}
	if max := cfg.Checker.MaxAlertHistory; max > 0 && len(st.AlertsSent) > max {
		st.AlertsSent = st.AlertsSent[len(st.AlertsSent)-max:]
	}
}
