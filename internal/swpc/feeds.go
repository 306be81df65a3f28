package swpc

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bonecondor/space-weather/internal/models"
)

// timeLayouts covers the formats seen across SWPC and DONKI feeds.
var timeLayouts = []string{
	"2006-01-02T15:04Z",
	"2006-01-02T15:04:05Z",
	time.RFC3339,
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func parseFeedTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// KpReading is one planetary K-index sample.
type KpReading struct {
	Time time.Time
	Kp   float64
}

// KpResult is the geomagnetic index feed output.
type KpResult struct {
	Readings []KpReading // ascending by time, at most kpHistoryLen entries
}

const kpHistoryLen = 8

// FetchKp reads the planetary K-index product. The product is a table whose
// first row is the header: time_tag, Kp, a_running, station_count.
func (c *Client) FetchKp(ctx context.Context) (KpResult, error) {
	var rows [][]string
	if err := c.getJSON(ctx, c.baseURL+"/products/noaa-planetary-k-index.json", &rows); err != nil {
		return KpResult{}, err
	}
	readings, err := parseKpRows(rows)
	if err != nil {
		return KpResult{}, err
	}
	return KpResult{Readings: readings}, nil
}

func parseKpRows(rows [][]string) ([]KpReading, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("kp product has no data rows")
	}
	var readings []KpReading
	for _, row := range rows[1:] {
		if len(row) < 2 {
			continue
		}
		ts, err := parseFeedTime(row[0])
		if err != nil {
			continue
		}
		kp, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			continue
		}
		readings = append(readings, KpReading{Time: ts, Kp: kp})
	}
	if len(readings) == 0 {
		return nil, fmt.Errorf("kp product had no parseable rows")
	}
	if len(readings) > kpHistoryLen {
		readings = readings[len(readings)-kpHistoryLen:]
	}
	return readings, nil
}

// XrayResult is the solar X-ray feed output.
type XrayResult struct {
	Flux   *float64 // latest long-band flux, W/m^2
	Flares []models.Flare
}

type xrayFluxRecord struct {
	TimeTag string  `json:"time_tag"`
	Flux    float64 `json:"flux"`
	Energy  string  `json:"energy"`
}

type xrayFlareRecord struct {
	BeginTime string `json:"begin_time"`
	MaxTime   string `json:"max_time"`
	EndTime   string `json:"end_time"`
	MaxClass  string `json:"max_class"`
}

// FetchXray reads the GOES X-ray flux plus the recent flare list.
func (c *Client) FetchXray(ctx context.Context) (XrayResult, error) {
	var fluxRecords []xrayFluxRecord
	if err := c.getJSON(ctx, c.baseURL+"/json/goes/primary/xrays-1-day.json", &fluxRecords); err != nil {
		return XrayResult{}, err
	}
	result := XrayResult{}
	for i := len(fluxRecords) - 1; i >= 0; i-- {
		if fluxRecords[i].Energy == "0.1-0.8nm" {
			flux := fluxRecords[i].Flux
			result.Flux = &flux
			break
		}
	}

	var flareRecords []xrayFlareRecord
	if err := c.getJSON(ctx, c.baseURL+"/json/goes/primary/xray-flares-7-day.json", &flareRecords); err != nil {
		return XrayResult{}, err
	}
	for _, r := range flareRecords {
		begin, err := parseFeedTime(r.BeginTime)
		if err != nil {
			continue
		}
		flare := models.Flare{
			ID:        fmt.Sprintf("FLR-%s-%s", begin.Format("20060102T1504"), r.MaxClass),
			ClassType: r.MaxClass,
			BeginTime: begin,
		}
		if peak, err := parseFeedTime(r.MaxTime); err == nil {
			flare.PeakTime = peak
		}
		if end, err := parseFeedTime(r.EndTime); err == nil {
			flare.EndTime = end
		}
		result.Flares = append(result.Flares, flare)
	}
	return result, nil
}

// WindResult carries both the realtime and 7-day solar wind candidates; the
// snapshot assembler applies the precedence.
type WindResult struct {
	PlasmaRealtime *models.SolarWind
	Plasma7Day     *models.SolarWind
	MagRealtime    *models.MagneticField
	Mag7Day        *models.MagneticField
}

// FetchSolarWind reads the plasma and magnetometer products, realtime first
// with the 7-day products as fallback. A missing realtime product is not an
// error as long as one candidate parses.
func (c *Client) FetchSolarWind(ctx context.Context) (WindResult, error) {
	result := WindResult{}
	var firstErr error

	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	var rows [][]string
	if err := c.getJSON(ctx, c.baseURL+"/products/solar-wind/plasma-5-minute.json", &rows); err != nil {
		keep(err)
	} else {
		result.PlasmaRealtime = parsePlasmaRows(rows)
	}
	rows = nil
	if err := c.getJSON(ctx, c.baseURL+"/products/solar-wind/plasma-7-day.json", &rows); err != nil {
		keep(err)
	} else {
		result.Plasma7Day = parsePlasmaRows(rows)
	}
	rows = nil
	if err := c.getJSON(ctx, c.baseURL+"/products/solar-wind/mag-5-minute.json", &rows); err != nil {
		keep(err)
	} else {
		result.MagRealtime = parseMagRows(rows)
	}
	rows = nil
	if err := c.getJSON(ctx, c.baseURL+"/products/solar-wind/mag-7-day.json", &rows); err != nil {
		keep(err)
	} else {
		result.Mag7Day = parseMagRows(rows)
	}

	if result.PlasmaRealtime == nil && result.Plasma7Day == nil &&
		result.MagRealtime == nil && result.Mag7Day == nil {
		if firstErr != nil {
			return WindResult{}, firstErr
		}
		return WindResult{}, fmt.Errorf("solar wind products had no parseable rows")
	}
	return result, nil
}

// parsePlasmaRows takes the plasma table (time_tag, density, speed,
// temperature) and returns the most recent complete row.
func parsePlasmaRows(rows [][]string) *models.SolarWind {
	for i := len(rows) - 1; i >= 1; i-- {
		row := rows[i]
		if len(row) < 4 {
			continue
		}
		density, err1 := strconv.ParseFloat(row[1], 64)
		speed, err2 := strconv.ParseFloat(row[2], 64)
		temp, err3 := strconv.ParseFloat(row[3], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		return &models.SolarWind{Speed: speed, Density: density, Temperature: temp}
	}
	return nil
}

// parseMagRows takes the magnetometer table (time_tag, bx_gsm, by_gsm,
// bz_gsm, lon_gsm, lat_gsm, bt) and returns the most recent complete row.
func parseMagRows(rows [][]string) *models.MagneticField {
	for i := len(rows) - 1; i >= 1; i-- {
		row := rows[i]
		if len(row) < 7 {
			continue
		}
		bx, err1 := strconv.ParseFloat(row[1], 64)
		by, err2 := strconv.ParseFloat(row[2], 64)
		bz, err3 := strconv.ParseFloat(row[3], 64)
		bt, err4 := strconv.ParseFloat(row[6], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		return &models.MagneticField{Bx: bx, By: by, Bz: bz, Bt: bt}
	}
	return nil
}

// DonkiResult is the event-list feed output.
type DonkiResult struct {
	CMEs              []models.CME
	EarthDirectedCMEs []models.CME
	Storms            []models.Storm
	SEPEvents         []models.SEPEvent
	HSSEvents         []models.HSSEvent
	IPSEvents         []models.IPSEvent
	MPCEvents         []models.MPCEvent
}

type donkiEnlil struct {
	EstimatedShockArrivalTime string  `json:"estimatedShockArrivalTime"`
	Kp90                      float64 `json:"kp_90"`
	Kp135                     float64 `json:"kp_135"`
	Kp180                     float64 `json:"kp_180"`
	IsEarthGB                 bool    `json:"isEarthGB"`
}

type donkiCMEAnalysis struct {
	Time215        string       `json:"time21_5"`
	Speed          float64      `json:"speed"`
	Type           string       `json:"type"`
	IsMostAccurate bool         `json:"isMostAccurate"`
	Note           string       `json:"note"`
	EnlilList      []donkiEnlil `json:"enlilList"`
}

type donkiCME struct {
	ActivityID string             `json:"activityID"`
	StartTime  string             `json:"startTime"`
	Note       string             `json:"note"`
	Analyses   []donkiCMEAnalysis `json:"cmeAnalyses"`
}

type donkiKpEntry struct {
	ObservedTime string  `json:"observedTime"`
	KpIndex      float64 `json:"kpIndex"`
	Source       string  `json:"source"`
}

type donkiGST struct {
	GstID      string         `json:"gstID"`
	StartTime  string         `json:"startTime"`
	AllKpIndex []donkiKpEntry `json:"allKpIndex"`
}

type donkiInstrument struct {
	DisplayName string `json:"displayName"`
}

type donkiEvent struct {
	SepID       string            `json:"sepID"`
	HssID       string            `json:"hssID"`
	MpcID       string            `json:"mpcID"`
	ActivityID  string            `json:"activityID"`
	EventTime   string            `json:"eventTime"`
	Location    string            `json:"location"`
	Instruments []donkiInstrument `json:"instruments"`
}

// FetchEvents reads the DONKI event services over the trailing window. Every
// sub-feed must respond; a partial event picture would defeat the known-id
// replacement scheme.
func (c *Client) FetchEvents(ctx context.Context, now time.Time, window time.Duration) (DonkiResult, error) {
	startDate := now.Add(-window).Format("2006-01-02")
	endDate := now.Format("2006-01-02")
	dateRange := fmt.Sprintf("startDate=%s&endDate=%s", startDate, endDate)

	result := DonkiResult{}

	var cmes []donkiCME
	if err := c.getJSON(ctx, c.donkiURL+"/CME?"+dateRange, &cmes); err != nil {
		return DonkiResult{}, fmt.Errorf("CME feed: %w", err)
	}
	for _, raw := range cmes {
		cme, ok := convertCME(raw)
		if !ok {
			continue
		}
		result.CMEs = append(result.CMEs, cme)
		if cme.IsEarthDirected {
			result.EarthDirectedCMEs = append(result.EarthDirectedCMEs, cme)
		}
	}

	var gsts []donkiGST
	if err := c.getJSON(ctx, c.donkiURL+"/GST?"+dateRange, &gsts); err != nil {
		return DonkiResult{}, fmt.Errorf("GST feed: %w", err)
	}
	for _, raw := range gsts {
		start, err := parseFeedTime(raw.StartTime)
		if err != nil {
			continue
		}
		storm := models.Storm{ID: raw.GstID, StartTime: start}
		for _, entry := range raw.AllKpIndex {
			if entry.KpIndex > storm.KpIndex {
				storm.KpIndex = entry.KpIndex
				storm.Source = entry.Source
			}
		}
		result.Storms = append(result.Storms, storm)
	}

	var seps []donkiEvent
	if err := c.getJSON(ctx, c.donkiURL+"/SEP?"+dateRange, &seps); err != nil {
		return DonkiResult{}, fmt.Errorf("SEP feed: %w", err)
	}
	for _, raw := range seps {
		ts, err := parseFeedTime(raw.EventTime)
		if err != nil {
			continue
		}
		result.SEPEvents = append(result.SEPEvents, models.SEPEvent{
			ID: raw.SepID, EventTime: ts, Instrument: firstInstrument(raw.Instruments),
		})
	}

	var hsss []donkiEvent
	if err := c.getJSON(ctx, c.donkiURL+"/HSS?"+dateRange, &hsss); err != nil {
		return DonkiResult{}, fmt.Errorf("HSS feed: %w", err)
	}
	for _, raw := range hsss {
		ts, err := parseFeedTime(raw.EventTime)
		if err != nil {
			continue
		}
		result.HSSEvents = append(result.HSSEvents, models.HSSEvent{
			ID: raw.HssID, EventTime: ts, Instrument: firstInstrument(raw.Instruments),
		})
	}

	var ipss []donkiEvent
	if err := c.getJSON(ctx, c.donkiURL+"/IPS?"+dateRange, &ipss); err != nil {
		return DonkiResult{}, fmt.Errorf("IPS feed: %w", err)
	}
	for _, raw := range ipss {
		ts, err := parseFeedTime(raw.EventTime)
		if err != nil {
			continue
		}
		result.IPSEvents = append(result.IPSEvents, models.IPSEvent{
			ID: raw.ActivityID, EventTime: ts, Location: raw.Location,
		})
	}

	var mpcs []donkiEvent
	if err := c.getJSON(ctx, c.donkiURL+"/MPC?"+dateRange, &mpcs); err != nil {
		return DonkiResult{}, fmt.Errorf("MPC feed: %w", err)
	}
	for _, raw := range mpcs {
		ts, err := parseFeedTime(raw.EventTime)
		if err != nil {
			continue
		}
		result.MPCEvents = append(result.MPCEvents, models.MPCEvent{ID: raw.MpcID, EventTime: ts})
	}

	return result, nil
}

// convertCME collapses a raw DONKI record to the model, preferring the most
// accurate analysis. Earth-directed means an ENLIL run predicts a shock
// arrival; predicted Kp is the highest of the modelled Kp bands.
func convertCME(raw donkiCME) (models.CME, bool) {
	start, err := parseFeedTime(raw.StartTime)
	if err != nil {
		return models.CME{}, false
	}
	cme := models.CME{ID: raw.ActivityID, StartTime: start, Note: raw.Note}

	var analysis *donkiCMEAnalysis
	for i := range raw.Analyses {
		if raw.Analyses[i].IsMostAccurate {
			analysis = &raw.Analyses[i]
			break
		}
	}
	if analysis == nil && len(raw.Analyses) > 0 {
		analysis = &raw.Analyses[len(raw.Analyses)-1]
	}
	if analysis == nil {
		return cme, true
	}

	cme.Speed = analysis.Speed
	cme.Type = analysis.Type
	for _, enlil := range analysis.EnlilList {
		if enlil.EstimatedShockArrivalTime == "" {
			continue
		}
		arrival, err := parseFeedTime(enlil.EstimatedShockArrivalTime)
		if err != nil {
			continue
		}
		cme.IsEarthDirected = true
		if cme.PredictedArrival == nil || arrival.Before(*cme.PredictedArrival) {
			cme.PredictedArrival = &arrival
		}
		for _, kp := range []float64{enlil.Kp90, enlil.Kp135, enlil.Kp180} {
			if kp > cme.PredictedKp {
				cme.PredictedKp = kp
			}
		}
	}
	return cme, true
}

func firstInstrument(list []donkiInstrument) string {
	if len(list) == 0 {
		return ""
	}
	return list[0].DisplayName
}

// ProductsResult is the NOAA product-feed output: scales, alert messages,
// forecast text and the active-region list.
type ProductsResult struct {
	GScale        string
	SScale        string
	RScale        string
	ActiveAlerts  []models.AlertProduct
	Forecast3Day  string
	ActiveRegions []models.ActiveRegion
}

type noaaScaleEntry struct {
	Scale string `json:"Scale"`
}

type noaaScales struct {
	G noaaScaleEntry `json:"G"`
	S noaaScaleEntry `json:"S"`
	R noaaScaleEntry `json:"R"`
}

type alertProductRecord struct {
	ProductID     string `json:"product_id"`
	IssueDatetime string `json:"issue_datetime"`
	Message       string `json:"message"`
}

type solarRegionRecord struct {
	ObservedDate      string  `json:"observed_date"`
	Region            int     `json:"region"`
	Location          string  `json:"location"`
	MagClass          string  `json:"mag_class"`
	NumberSpots       int     `json:"number_spots"`
	CFlareProbability float64 `json:"c_flare_probability"`
	MFlareProbability float64 `json:"m_flare_probability"`
	XFlareProbability float64 `json:"x_flare_probability"`
	ProtonProbability float64 `json:"proton_probability"`
}

// FetchProducts reads the NOAA scales, the alert product stream, the 3-day
// forecast text and the sunspot region list.
func (c *Client) FetchProducts(ctx context.Context) (ProductsResult, error) {
	result := ProductsResult{}

	var scales map[string]noaaScales
	if err := c.getJSON(ctx, c.baseURL+"/products/noaa-scales.json", &scales); err != nil {
		return ProductsResult{}, fmt.Errorf("scales feed: %w", err)
	}
	// Key "0" is the current observation; negative keys are past days.
	if current, ok := scales["0"]; ok {
		result.GScale = scaleLabel("G", current.G.Scale)
		result.SScale = scaleLabel("S", current.S.Scale)
		result.RScale = scaleLabel("R", current.R.Scale)
	}

	var alerts []alertProductRecord
	if err := c.getJSON(ctx, c.baseURL+"/products/alerts.json", &alerts); err != nil {
		return ProductsResult{}, fmt.Errorf("alerts feed: %w", err)
	}
	for _, raw := range alerts {
		issued, err := parseFeedTime(raw.IssueDatetime)
		if err != nil {
			continue
		}
		result.ActiveAlerts = append(result.ActiveAlerts, models.AlertProduct{
			ID: raw.ProductID, IssueTime: issued, Message: raw.Message,
		})
	}

	forecast, err := c.getText(ctx, c.baseURL+"/text/3-day-forecast.txt")
	if err != nil {
		return ProductsResult{}, fmt.Errorf("forecast feed: %w", err)
	}
	result.Forecast3Day = forecast

	var regions []solarRegionRecord
	if err := c.getJSON(ctx, c.baseURL+"/json/solar_regions.json", &regions); err != nil {
		return ProductsResult{}, fmt.Errorf("regions feed: %w", err)
	}
	result.ActiveRegions = latestRegions(regions)

	return result, nil
}

// scaleLabel converts a numeric scale value to e.g. "G2"; empty, "0" and
// "None" collapse to "".
func scaleLabel(prefix, value string) string {
	value = strings.TrimSpace(value)
	if value == "" || value == "0" || strings.EqualFold(value, "none") {
		return ""
	}
	return prefix + value
}

// latestRegions keeps the most recently observed record per region number.
func latestRegions(records []solarRegionRecord) []models.ActiveRegion {
	latest := map[int]solarRegionRecord{}
	var order []int
	for _, r := range records {
		if r.Region == 0 {
			continue
		}
		prev, seen := latest[r.Region]
		if !seen {
			order = append(order, r.Region)
			latest[r.Region] = r
			continue
		}
		if r.ObservedDate >= prev.ObservedDate {
			latest[r.Region] = r
		}
	}
	regions := make([]models.ActiveRegion, 0, len(order))
	for _, num := range order {
		r := latest[num]
		regions = append(regions, models.ActiveRegion{
			RegionNumber:  r.Region,
			Location:      r.Location,
			MagneticClass: r.MagClass,
			NumberSpots:   r.NumberSpots,
			FlareProbC:    r.CFlareProbability,
			FlareProbM:    r.MFlareProbability,
			FlareProbX:    r.XFlareProbability,
			ProtonProb:    r.ProtonProbability,
		})
	}
	return regions
}
