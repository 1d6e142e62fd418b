package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/weathertrends/weather-trends-service/internal/geocode"
	"github.com/weathertrends/weather-trends-service/internal/lifecycle"
	"github.com/weathertrends/weather-trends-service/internal/service"
	"github.com/weathertrends/weather-trends-service/internal/validation"
)

// Smoothing window bounds for the optional smooth query parameter.
const (
	smoothWindowMin = 2
	smoothWindowMax = 31
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weatherService *service.WeatherService
	logger         *zap.Logger
	maxRangeDays   int
}

// NewHandler returns a new Handler. maxRangeDays <= 0 uses the default cap.
func NewHandler(weatherService *service.WeatherService, logger *zap.Logger, maxRangeDays int) *Handler {
	return &Handler{
		weatherService: weatherService,
		logger:         logger,
		maxRangeDays:   maxRangeDays,
	}
}

// GetWeather handles GET /api/weather?city=&start=&end=[&smooth=].
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	city, err := validation.ValidateCity(q.Get("city"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rng, err := validation.ValidateRange(q.Get("start"), q.Get("end"), h.maxRangeDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	smooth, err := parseSmoothParam(q.Get("smooth"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.weatherService.GetTrends(r.Context(), city, rng, smooth)
	if err != nil {
		if errors.Is(err, geocode.ErrCityNotFound) {
			writeError(w, http.StatusNotFound, "city not found: "+city)
			return
		}
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetHealth handles GET /health. The body is intentionally minimal; the
// only state worth reporting is whether the process is draining.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	if lifecycle.IsDraining() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting-down"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseSmoothParam parses the optional smooth window. Empty means no
// server-side smoothing.
func parseSmoothParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < smoothWindowMin || n > smoothWindowMax {
		return 0, errors.New("smooth must be an integer between 2 and 31")
	}
	return n, nil
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the contract error body: a single error string field.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeUpstreamError writes a 502 for geocoding/archive failures. The
// underlying error goes to the request logger only; clients get a stable
// message.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, http.StatusBadGateway, "upstream weather service unavailable")
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Warn("upstream error", zap.Error(err))
	}
}
