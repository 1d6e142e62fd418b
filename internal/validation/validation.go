package validation

import (
	"errors"
	"strings"
	"time"

	"github.com/weathertrends/weather-trends-service/internal/models"
)

const dateLayout = "2006-01-02"

// DefaultMaxRangeDays caps the requested span. Open-Meteo serves longer
// ranges, but a year-and-change is all the dashboard can chart legibly.
const DefaultMaxRangeDays = 370

// Error messages are part of the inbound contract; clients match on the
// exact strings.
var (
	ErrCityRequired  = errors.New("city is required")
	ErrStartFormat   = errors.New("start must be yyyy-MM-dd")
	ErrEndFormat     = errors.New("end must be yyyy-MM-dd")
	ErrRangeInverted = errors.New("end must be >= start")
	ErrRangeTooLarge = errors.New("date range too large (max ~370 days)")
)

// ValidateCity trims the input and rejects blank values. Further
// normalization (lowercase for metrics and upstream queries) is left to the
// service layer.
func ValidateCity(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrCityRequired
	}
	return s, nil
}

// ValidateRange parses start/end as yyyy-MM-dd, enforces ordering and the
// span cap (maxDays; <= 0 falls back to DefaultMaxRangeDays). Returns the
// range with dates re-formatted canonically.
func ValidateRange(start, end string, maxDays int) (models.DateRange, error) {
	if maxDays <= 0 {
		maxDays = DefaultMaxRangeDays
	}

	startDate, err := time.Parse(dateLayout, strings.TrimSpace(start))
	if err != nil {
		return models.DateRange{}, ErrStartFormat
	}
	endDate, err := time.Parse(dateLayout, strings.TrimSpace(end))
	if err != nil {
		return models.DateRange{}, ErrEndFormat
	}
	if endDate.Before(startDate) {
		return models.DateRange{}, ErrRangeInverted
	}
	if int(endDate.Sub(startDate).Hours()/24) > maxDays {
		return models.DateRange{}, ErrRangeTooLarge
	}

	return models.DateRange{
		Start: startDate.Format(dateLayout),
		End:   endDate.Format(dateLayout),
	}, nil
}
