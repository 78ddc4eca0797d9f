// Package statusapi exposes a read-only JSON view of a tracker.Client's registry over HTTP. It has
// no bearing on the tracker protocol itself (SPEC_FULL.md §4.11) — it exists purely so the demo
// binary has something to point a browser or curl at while a run is in progress.
package statusapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"BitTorrent/tracker"
)

// --------------------------------------------------------------------------------------------- //

/*
Server wraps an echo instance serving snapshots pulled from a tracker.Client on demand.
*/
type Server struct {
	echo   *echo.Echo
	client *tracker.Client
}

/*
New builds a Server bound to client. It does not start listening; call ListenAndServe.
*/
func New(client *tracker.Client) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, client: client}
	e.GET("/trackers", s.handleTrackers)
	e.GET("/healthz", s.handleHealthz)
	return s
}

/*
ListenAndServe blocks serving on addr until the process is terminated or the listener fails.
*/
func (s *Server) ListenAndServe(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) handleTrackers(c echo.Context) error {
	return c.JSON(http.StatusOK, s.client.Snapshot())
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
