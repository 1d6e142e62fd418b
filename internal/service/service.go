package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/weathertrends/weather-trends-service/internal/analytics"
	"github.com/weathertrends/weather-trends-service/internal/archive"
	"github.com/weathertrends/weather-trends-service/internal/geocode"
	"github.com/weathertrends/weather-trends-service/internal/models"
	"github.com/weathertrends/weather-trends-service/internal/observability"
)

// WeatherService orchestrates a trend lookup: geocode the city, fetch the
// daily archive for the resolved coordinates, run the analytics engine.
// The three steps form a strict dependency chain, so they run sequentially.
type WeatherService struct {
	geocoder geocode.Geocoder
	fetcher  archive.Fetcher
}

// NewWeatherService creates a WeatherService over the two upstream adapters.
func NewWeatherService(geocoder geocode.Geocoder, fetcher archive.Fetcher) *WeatherService {
	return &WeatherService{
		geocoder: geocoder,
		fetcher:  fetcher,
	}
}

// loggerFromContext extracts a zap.Logger from request context if present.
// Returns nil if logger is not found or context is invalid.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// GetTrends resolves city, fetches the archive for rng and returns the
// computed response. smoothWindow > 0 additionally attaches the trailing
// moving average of per-day mean temperature. Geocoding misses surface as
// geocode.ErrCityNotFound; upstream failures propagate wrapped.
func (s *WeatherService) GetTrends(ctx context.Context, city string, rng models.DateRange, smoothWindow int) (models.WeatherResponse, error) {
	start := time.Now()
	logger := loggerFromContext(ctx)

	place, err := s.geocoder.Resolve(ctx, city)
	if err != nil {
		return models.WeatherResponse{}, fmt.Errorf("geocode %s: %w", city, err)
	}
	if logger != nil {
		logger.Debug("city resolved",
			zap.String("city", city),
			zap.String("resolved", place.Name),
			zap.Float64("lat", place.Coords.Lat),
			zap.Float64("lon", place.Coords.Lon))
	}

	raw, err := s.fetcher.FetchDaily(ctx, place.Coords, rng)
	if err != nil {
		return models.WeatherResponse{}, fmt.Errorf("fetch archive for %s: %w", place.Name, err)
	}

	resp := analytics.BuildResponse(place.Name, place.Coords, rng, raw)
	if smoothWindow > 0 {
		resp.SmoothedTMean = analytics.MovingAverage(analytics.DayMeans(resp.Daily), smoothWindow)
	}

	observability.RecordTrendQuery(city)
	if logger != nil {
		logger.Debug("trends served",
			zap.String("city", place.Name),
			zap.Int("days", len(resp.Daily)),
			zap.Duration("duration", time.Since(start)))
	}
	return resp, nil
}
