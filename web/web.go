// Package web serves the bundled trends dashboard. The dashboard is a
// static single page that calls /api/weather and renders tables plus a
// combo chart; it computes its own 7-day trailing moving average for chart
// smoothing, duplicating analytics.MovingAverage number for number.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFiles embed.FS

// Handler returns the file server for the embedded dashboard assets.
func Handler() http.Handler {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		// embed guarantees the directory exists at build time
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
