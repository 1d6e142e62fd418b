package analytics

import (
	"math"

	"github.com/weathertrends/weather-trends-service/internal/models"
)

const (
	trendMinRecords = 6
	trendWindow     = 3
	trendThresholdC = 0.5

	// DefaultSmoothingWindow is the trailing window the dashboard uses for
	// chart smoothing. The client-side implementation must produce the same
	// numbers.
	DefaultSmoothingWindow = 7
)

// Trend labels returned in Trend.TrendLabel.
const (
	LabelWarming = "warming"
	LabelCooling = "cooling"
	LabelStable  = "stable"
)

// BuildResponse converts a raw archive payload into the full response:
// normalized records, summary statistics and trend/extremes. Pure; never
// fails. Empty or short inputs degrade to nil optional fields.
func BuildResponse(city string, coords models.Coords, rng models.DateRange, raw models.RawDaily) models.WeatherResponse {
	records := NormalizeRecords(raw)
	return models.WeatherResponse{
		City:    city,
		Coords:  coords,
		Range:   rng,
		Daily:   records,
		Summary: Summarize(records),
		Trends:  ComputeTrend(records),
	}
}

// NormalizeRecords builds one record per date, in upstream (ascending date)
// order. A value array shorter than Dates reads as 0 past its end; values
// beyond the date array are dropped.
func NormalizeRecords(raw models.RawDaily) []models.DailyRecord {
	records := make([]models.DailyRecord, 0, len(raw.Dates))
	for i, date := range raw.Dates {
		records = append(records, models.DailyRecord{
			Date:     date,
			TMin:     valueAt(raw.TMin, i),
			TMax:     valueAt(raw.TMax, i),
			PrecipMm: valueAt(raw.Precip, i),
		})
	}
	return records
}

func valueAt(vals []float64, i int) float64 {
	if i < len(vals) {
		return vals[i]
	}
	return 0
}

// Summarize computes summary statistics over the full record set.
// Avg/min/max are nil for an empty set; rainy days count precipitation
// strictly greater than zero.
func Summarize(records []models.DailyRecord) models.Summary {
	if len(records) == 0 {
		return models.Summary{}
	}

	var sumMean, sumPrecip float64
	minT := records[0].TMin
	maxT := records[0].TMax
	rainy := 0
	for _, r := range records {
		sumMean += dayMean(r)
		sumPrecip += r.PrecipMm
		if r.TMin < minT {
			minT = r.TMin
		}
		if r.TMax > maxT {
			maxT = r.TMax
		}
		if r.PrecipMm > 0 {
			rainy++
		}
	}

	avg := round2(sumMean / float64(len(records)))
	return models.Summary{
		AvgTempC:      &avg,
		MinTempC:      &minT,
		MaxTempC:      &maxT,
		TotalPrecipMm: round2(sumPrecip),
		RainyDays:     rainy,
	}
}

// ComputeTrend classifies the temperature direction across the range and
// locates the wettest day. The classification compares the mean of per-day
// mean temperature over the first 3 records against the last 3; middle
// records do not participate. Below 6 records the classification is nil.
// Ties for most rain go to the earliest record.
func ComputeTrend(records []models.DailyRecord) models.Trend {
	var t models.Trend

	if len(records) >= trendMinRecords {
		first := meanOfDayMeans(records[:trendWindow])
		last := meanOfDayMeans(records[len(records)-trendWindow:])
		change := round2(last - first)

		label := LabelStable
		switch {
		case change > trendThresholdC:
			label = LabelWarming
		case change < -trendThresholdC:
			label = LabelCooling
		}
		t.TempChangeC = &change
		t.TrendLabel = &label
	}

	if len(records) > 0 {
		wettest := records[0]
		for _, r := range records[1:] {
			if r.PrecipMm > wettest.PrecipMm {
				wettest = r
			}
		}
		mm := round2(wettest.PrecipMm)
		date := wettest.Date
		t.MostRainMm = &mm
		t.MostRainDate = &date
	}

	return t
}

// MovingAverage computes a left-aligned trailing mean over the window
// ending at each index, skipping nil and non-finite inputs. An index whose
// window holds no valid value yields nil; the first window-1 points use a
// partial window rather than being nil. Results round to 2 decimals.
func MovingAverage(values []*float64, window int) []*float64 {
	if window < 1 {
		window = 1
	}
	out := make([]*float64, len(values))
	for i := range values {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		var sum float64
		n := 0
		for _, v := range values[lo : i+1] {
			if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
				continue
			}
			sum += *v
			n++
		}
		if n == 0 {
			continue
		}
		avg := round2(sum / float64(n))
		out[i] = &avg
	}
	return out
}

// DayMeans returns the per-day mean temperature series used for chart
// smoothing.
func DayMeans(records []models.DailyRecord) []*float64 {
	out := make([]*float64, len(records))
	for i, r := range records {
		m := dayMean(r)
		out[i] = &m
	}
	return out
}

// dayMean is the per-day mean temperature. Trend comparison always uses
// this, never smoothed values.
func dayMean(r models.DailyRecord) float64 {
	return (r.TMin + r.TMax) / 2
}

func meanOfDayMeans(records []models.DailyRecord) float64 {
	var sum float64
	for _, r := range records {
		sum += dayMean(r)
	}
	return sum / float64(len(records))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
