package models

// Coords is the resolved location of a city.
type Coords struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DateRange is the inclusive requested range, yyyy-MM-dd.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DailyRecord is one day of archive data. Missing upstream values are
// zero-filled during normalization, never dropped.
type DailyRecord struct {
	Date     string  `json:"date"`
	TMin     float64 `json:"tMin"`
	TMax     float64 `json:"tMax"`
	PrecipMm float64 `json:"precipMm"`
}

// Summary aggregates the full record set. Avg/min/max are nil when the
// record set is empty; nil fields are omitted from the JSON body.
type Summary struct {
	AvgTempC      *float64 `json:"avgTempC,omitempty"`
	MinTempC      *float64 `json:"minTempC,omitempty"`
	MaxTempC      *float64 `json:"maxTempC,omitempty"`
	TotalPrecipMm float64  `json:"totalPrecipMm"`
	RainyDays     int      `json:"rainyDays"`
}

// Trend compares the first and last 3-day windows of the range.
// TempChangeC/TrendLabel are nil below 6 records; MostRainMm/MostRainDate
// are nil only for an empty record set.
type Trend struct {
	TempChangeC  *float64 `json:"tempChangeC,omitempty"`
	TrendLabel   *string  `json:"trendLabel,omitempty"`
	MostRainMm   *float64 `json:"mostRainMm,omitempty"`
	MostRainDate *string  `json:"mostRainDate,omitempty"`
}

// WeatherResponse is the one-shot artifact produced per request. It is
// built once by the analytics engine and never mutated afterwards.
type WeatherResponse struct {
	City          string        `json:"city"`
	Coords        Coords        `json:"coords"`
	Range         DateRange     `json:"range"`
	Daily         []DailyRecord `json:"daily"`
	Summary       Summary       `json:"summary"`
	Trends        Trend         `json:"trends"`
	SmoothedTMean []*float64    `json:"smoothedTMean,omitempty"`
}

// RawDaily is the archive provider payload: parallel arrays indexed by day.
// Value arrays may be shorter than Dates; the engine tolerates that.
type RawDaily struct {
	Dates  []string
	TMax   []float64
	TMin   []float64
	Precip []float64
}
