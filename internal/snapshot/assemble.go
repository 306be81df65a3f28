package snapshot

import (
	"github.com/bonecondor/space-weather/internal/models"
	"github.com/bonecondor/space-weather/internal/swpc"
)

// Assemble combines the fetch outcomes into one snapshot, substituting
// last-known values where a source failed, and produces the refreshed
// per-source health map. Event lists are left empty on source failure; the
// evaluator treats absence as "nothing new".
func Assemble(res *swpc.Results, prev *models.CheckerState) (models.Snapshot, []models.ActiveRegion, map[string]models.SourceHealth) {
	snap := models.Snapshot{
		Timestamp: res.FetchedAt,
		FetchedAt: res.FetchedAt,
	}

	if res.KpErr == nil && len(res.Kp.Readings) > 0 {
		snap.Kp = res.Kp.Readings[len(res.Kp.Readings)-1].Kp
		for _, r := range res.Kp.Readings {
			snap.KpForecast24h = append(snap.KpForecast24h, r.Kp)
		}
	} else {
		snap.Kp = prev.LastKp
	}

	if res.XrayErr == nil {
		snap.XrayFlux = res.Xray.Flux
		snap.RecentFlares = res.Xray.Flares
		if n := len(res.Xray.Flares); n > 0 {
			latest := res.Xray.Flares[n-1]
			snap.LatestFlare = &latest
		}
	}

	if res.WindErr == nil {
		// Realtime feed preferred, 7-day fallback.
		snap.SolarWind = res.Wind.PlasmaRealtime
		if snap.SolarWind == nil {
			snap.SolarWind = res.Wind.Plasma7Day
		}
		snap.MagneticField = res.Wind.MagRealtime
		if snap.MagneticField == nil {
			snap.MagneticField = res.Wind.Mag7Day
		}
	}

	if res.DonkiErr == nil {
		snap.CMEs = res.Donki.CMEs
		snap.EarthDirectedCMEs = res.Donki.EarthDirectedCMEs
		snap.RecentStorms = res.Donki.Storms
		snap.SEPEvents = res.Donki.SEPEvents
		snap.HSSEvents = res.Donki.HSSEvents
		snap.IPSEvents = res.Donki.IPSEvents
		snap.MPCEvents = res.Donki.MPCEvents
	}

	var regions []models.ActiveRegion
	if res.ProductsErr == nil {
		snap.GScale = res.Products.GScale
		snap.SScale = res.Products.SScale
		snap.RScale = res.Products.RScale
		snap.ActiveAlerts = res.Products.ActiveAlerts
		snap.Forecast3Day = res.Products.Forecast3Day
		regions = res.Products.ActiveRegions
	}
	if snap.GScale == "" {
		snap.GScale = kpToGScale(snap.Kp)
	}

	return snap, regions, buildHealth(res, prev)
}

// buildHealth refreshes the per-source health map, carrying lastSuccess
// forward from the previous state when the current call failed.
func buildHealth(res *swpc.Results, prev *models.CheckerState) map[string]models.SourceHealth {
	health := make(map[string]models.SourceHealth, len(swpc.Sources))
	for _, source := range swpc.Sources {
		entry := models.SourceHealth{}
		if err := res.Err(source); err != nil {
			entry.OK = false
			entry.LastError = err.Error()
			if prevEntry, ok := prev.DataHealth[source]; ok {
				entry.LastSuccess = prevEntry.LastSuccess
			}
		} else {
			entry.OK = true
			ts := res.FetchedAt
			entry.LastSuccess = &ts
		}
		health[source] = entry
	}
	return health
}

// kpToGScale maps a Kp value onto the NOAA G scale; below G1 returns "".
func kpToGScale(kp float64) string {
	switch {
	case kp >= 9:
		return "G5"
	case kp >= 8:
		return "G4"
	case kp >= 7:
		return "G3"
	case kp >= 6:
		return "G2"
	case kp >= 5:
		return "G1"
	}
	return ""
}
