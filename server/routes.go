// Package server - HTTP-Host fuer einen Filter
// Beinhaltet: Server-Struct, Router-Registrierung, Middleware
package server

import (
	"net"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/vsmlrt/vstrt/api"
	"github.com/vsmlrt/vstrt/envconfig"
	"github.com/vsmlrt/vstrt/trt"
	"github.com/vsmlrt/vstrt/version"
)

var mode string = gin.DebugMode

// Server liefert die Ausgabe-Frames eines Filters ueber HTTP
type Server struct {
	addr   net.Addr
	filter *trt.Filter
}

// NewServer erstellt einen Server fuer f. addr wird fuer die Host-Pruefung verwendet.
func NewServer(addr net.Addr, f *trt.Filter) *Server {
	return &Server{addr: addr, filter: f}
}

func init() {
	switch mode {
	case gin.DebugMode:
	case gin.ReleaseMode:
	case gin.TestMode:
	default:
		mode = gin.DebugMode
	}

	gin.SetMode(mode)
}

// GenerateRoutes erstellt und konfiguriert den HTTP-Router
func (s *Server) GenerateRoutes() (http.Handler, error) {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowWildcard = true
	corsConfig.AllowBrowserExtensions = true
	corsConfig.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"User-Agent",
		"Accept",
		"X-Requested-With",
		requestIDHeader,
	}
	corsConfig.ExposeHeaders = []string{requestIDHeader}
	corsConfig.AllowOrigins = envconfig.AllowedOrigins()

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(
		gin.Recovery(),
		cors.New(corsConfig),
		allowedHostsMiddleware(s.addr),
		requestIDMiddleware(),
	)

	// General
	r.HEAD("/", func(c *gin.Context) { c.String(http.StatusOK, "vstrt is running") })
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "vstrt is running") })
	r.HEAD("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, api.VersionResponse{Version: version.Version}) })
	r.GET("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, api.VersionResponse{Version: version.Version}) })

	// Filter
	r.GET("/api/info", s.InfoHandler)
	r.GET("/api/stats", s.StatsHandler)
	r.GET("/api/frames/:n", s.FrameHandler)

	return r, nil
}
