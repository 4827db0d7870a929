// types.go - Antwort-Typen der HTTP-API
// Enthaelt: StatusError, VersionResponse, InfoResponse, StatsResponse
package api

import (
	"fmt"
)

// StatusError is an error with an HTTP status code and message.
type StatusError struct {
	StatusCode   int
	Status       string
	ErrorMessage string `json:"error"`
}

func (e StatusError) Error() string {
	switch {
	case e.Status != "" && e.ErrorMessage != "":
		return fmt.Sprintf("%s: %s", e.Status, e.ErrorMessage)
	case e.Status != "":
		return e.Status
	case e.ErrorMessage != "":
		return e.ErrorMessage
	default:
		// this should not happen
		return "something went wrong, please see the vstrt server logs for details"
	}
}

// VersionResponse ist die Antwort von GET /api/version
type VersionResponse struct {
	Version string `json:"version"`
}

// OptionsResponse sind die aufgeloesten Filter-Optionen
type OptionsResponse struct {
	Engine       string `json:"engine"`
	Pad          int    `json:"pad"`
	BlockW       int    `json:"block_w,omitempty"`
	BlockH       int    `json:"block_h,omitempty"`
	DeviceID     int    `json:"device_id"`
	UseCudaGraph bool   `json:"use_cuda_graph"`
	NumStreams   int    `json:"num_streams"`
	Verbosity    string `json:"verbosity"`
	Backend      string `json:"backend"`
}

// InfoResponse ist die Antwort von GET /api/info
type InfoResponse struct {
	Format    string          `json:"format"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	NumFrames int             `json:"num_frames"`
	FPSNum    int64           `json:"fps_num"`
	FPSDen    int64           `json:"fps_den"`
	Options   OptionsResponse `json:"options"`
}

// StatsResponse ist die Antwort von GET /api/stats
type StatsResponse struct {
	NumStreams   int   `json:"num_streams"`
	FreeSlots    int   `json:"free_slots"`
	Waiting      int   `json:"waiting"`
	InFlight     int64 `json:"in_flight"`
	PeakInFlight int64 `json:"peak_in_flight"`
	Frames       int64 `json:"frames"`
	Errors       int64 `json:"errors"`
}
