package checker

import (
	"fmt"
	"math"
	"time"
)

// kpImpact describes expected effects per integer Kp, 4 through 9.
var kpImpact = map[int]string{
	4: "Aurora possible at high latitudes; no infrastructure impact expected.",
	5: "G1 storm: weak power grid fluctuations, aurora visible at high latitudes.",
	6: "G2 storm: high-latitude power systems may see voltage alarms, aurora to ~55° latitude.",
	7: "G3 storm: voltage corrections may be required, satellite drag increases, aurora to ~50° latitude.",
	8: "G4 storm: widespread voltage control problems, satellite navigation degraded, aurora to ~45° latitude.",
	9: "G5 storm: possible grid collapse in extreme cases, HF radio blackout for days, aurora to ~40° latitude.",
}

// bzImpact describes southward IMF magnitudes at the alert thresholds.
var bzImpact = map[int]string{
	-10: "Sustained southward Bz near -10 nT supports minor storm conditions.",
	-15: "Strongly southward Bz near -15 nT supports moderate to strong storming.",
	-20: "Extreme southward Bz below -20 nT can drive severe storm conditions.",
}

// windImpact describes solar wind speed at the alert thresholds.
var windImpact = map[int]string{
	600: "Elevated solar wind speed; geomagnetic activity likely if Bz turns south.",
	700: "Very fast solar wind; strong storming possible with favorable IMF.",
}

// flareImpact describes radio effects per flare class letter.
var flareImpact = map[byte]string{
	'M': "Minor to moderate HF radio blackout on the sunlit side.",
	'X': "Strong HF radio blackout and possible radiation storm.",
}

// kpImpactSentence returns the effect description for a Kp value, bucketed by
// min(floor(kp), 9). Values below the table range return "".
func kpImpactSentence(kp float64) string {
	bucket := int(math.Floor(kp))
	if bucket > 9 {
		bucket = 9
	}
	return kpImpact[bucket]
}

// bzImpactSentence returns the effect description for the crossed Bz level.
func bzImpactSentence(bz float64) string {
	switch {
	case bz <= -20:
		return bzImpact[-20]
	case bz <= -15:
		return bzImpact[-15]
	case bz <= -10:
		return bzImpact[-10]
	}
	return ""
}

// windImpactSentence returns the effect description for the crossed speed.
func windImpactSentence(speed float64) string {
	switch {
	case speed >= 700:
		return windImpact[700]
	case speed >= 600:
		return windImpact[600]
	}
	return ""
}

// flareImpactSentence returns the effect description for a flare class.
func flareImpactSentence(classType string) string {
	return flareImpact[flareClassLetter(classType)]
}

// flareClassLetter extracts the upper-cased class letter from e.g. "m2.1".
func flareClassLetter(classType string) byte {
	if classType == "" {
		return 0
	}
	c := classType[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	return c
}

// formatETA renders a predicted arrival relative to now: "imminent" inside
// the next hour, "~Nh" inside two days, "~Nd" beyond that, and a fixed phrase
// once the predicted time has passed. A nil arrival yields "unknown".
func formatETA(arrival *time.Time, now time.Time) string {
	if arrival == nil {
		return "unknown"
	}
	diff := arrival.Sub(now)
	switch {
	case diff <= 0:
		return "already past predicted arrival"
	case diff < time.Hour:
		return "imminent"
	case diff < 48*time.Hour:
		return fmt.Sprintf("~%dh", int(math.Round(diff.Hours())))
	default:
		return fmt.Sprintf("~%dd", int(math.Round(diff.Hours()/24)))
	}
}

// kpToGScale maps a Kp value onto the NOAA G scale; below G1 returns "G0".
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
	return "G0"
}
