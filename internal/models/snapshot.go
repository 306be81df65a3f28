package models

import "time"

// SolarWind holds plasma parameters from the ACE/DSCOVR feed.
type SolarWind struct {
	Speed       float64 `json:"speed"`       // km/s
	Density     float64 `json:"density"`     // protons/cm^3
	Temperature float64 `json:"temperature"` // K
}

// MagneticField holds the interplanetary magnetic field components in GSM
// coordinates. Bz is the geoeffective component; negative values couple with
// the magnetosphere.
type MagneticField struct {
	Bx float64 `json:"bx"`
	By float64 `json:"by"`
	Bz float64 `json:"bz"`
	Bt float64 `json:"bt"`
}

// Flare is a solar flare event from the X-ray feed.
type Flare struct {
	ID              string    `json:"id"`
	ClassType       string    `json:"classType"` // e.g. "M2.1", "X1.5"
	BeginTime       time.Time `json:"beginTime"`
	PeakTime        time.Time `json:"peakTime"`
	EndTime         time.Time `json:"endTime,omitempty"`
	SourceLocation  string    `json:"sourceLocation,omitempty"`
	ActiveRegionNum int       `json:"activeRegionNum,omitempty"`
}

// CME is a coronal mass ejection analysis record.
type CME struct {
	ID               string     `json:"id"`
	StartTime        time.Time  `json:"startTime"`
	Speed            float64    `json:"speed"` // km/s
	Type             string     `json:"type,omitempty"`
	IsEarthDirected  bool       `json:"isEarthDirected"`
	PredictedKp      float64    `json:"predictedKp,omitempty"`
	PredictedArrival *time.Time `json:"predictedArrival,omitempty"`
	Note             string     `json:"note,omitempty"`
}

// Storm is a geomagnetic storm record with its peak observed Kp.
type Storm struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"startTime"`
	KpIndex   float64   `json:"kpIndex"`
	Source    string    `json:"source,omitempty"`
}

// SEPEvent is a solar energetic particle event.
type SEPEvent struct {
	ID         string    `json:"id"`
	EventTime  time.Time `json:"eventTime"`
	Instrument string    `json:"instrument,omitempty"`
}

// HSSEvent is a high-speed solar wind stream arrival.
type HSSEvent struct {
	ID         string    `json:"id"`
	EventTime  time.Time `json:"eventTime"`
	Instrument string    `json:"instrument,omitempty"`
}

// IPSEvent is an interplanetary shock.
type IPSEvent struct {
	ID        string    `json:"id"`
	EventTime time.Time `json:"eventTime"`
	Location  string    `json:"location,omitempty"`
}

// MPCEvent is a magnetopause crossing.
type MPCEvent struct {
	ID        string    `json:"id"`
	EventTime time.Time `json:"eventTime"`
}

// AlertProduct is an upstream NOAA alert/watch/warning product message.
type AlertProduct struct {
	ID        string    `json:"id"`
	IssueTime time.Time `json:"issueTime"`
	Message   string    `json:"message"`
}

// Snapshot is the assembled view of current space-weather conditions for one
// checker tick. Pointer fields are nil when the source had no data this tick.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	FetchedAt time.Time `json:"fetchedAt"`

	Kp            float64   `json:"kp"`
	KpForecast24h []float64 `json:"kpForecast24h,omitempty"`
	GScale        string    `json:"gScale,omitempty"`

	XrayFlux    *float64 `json:"xrayFlux,omitempty"` // W/m^2
	LatestFlare *Flare   `json:"latestFlare,omitempty"`
	SScale      string   `json:"sScale,omitempty"`
	RScale      string   `json:"rScale,omitempty"`

	SolarWind     *SolarWind     `json:"solarWind,omitempty"`
	MagneticField *MagneticField `json:"magneticField,omitempty"`

	CMEs              []CME      `json:"cmes,omitempty"`
	EarthDirectedCMEs []CME      `json:"earthDirectedCMEs,omitempty"`
	RecentFlares      []Flare    `json:"recentFlares,omitempty"`
	RecentStorms      []Storm    `json:"recentStorms,omitempty"`
	SEPEvents         []SEPEvent `json:"sepEvents,omitempty"`
	HSSEvents         []HSSEvent `json:"hssEvents,omitempty"`
	IPSEvents         []IPSEvent `json:"ipsEvents,omitempty"`
	MPCEvents         []MPCEvent `json:"mpcEvents,omitempty"`

	ActiveAlerts []AlertProduct `json:"activeAlerts,omitempty"`
	Forecast3Day string         `json:"forecast3Day,omitempty"`
}

// ActiveRegion is a numbered sunspot region with its flare probabilities.
type ActiveRegion struct {
	RegionNumber  int     `json:"regionNumber"`
	Location      string  `json:"location,omitempty"`
	MagneticClass string  `json:"magneticClass,omitempty"`
	NumberSpots   int     `json:"numberSpots,omitempty"`
	FlareProbC    float64 `json:"flareProbC"` // percent, 0-100
	FlareProbM    float64 `json:"flareProbM"`
	FlareProbX    float64 `json:"flareProbX"`
	ProtonProb    float64 `json:"protonProb"`
}
