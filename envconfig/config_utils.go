// config_utils.go - Utility-Funktionen und Export fuer Konfiguration
//
// Dieses Modul enthaelt:
// - BoolWithDefault/Bool: Boolean-Getter mit Default-Wert
// - String: String-Getter
// - Uint: Integer-Getter mit Default-Wert
// - EnvVar: Struktur fuer Environment-Variablen-Info
// - AsMap: Gibt alle Konfigurationen als Map zurueck
// - Values: Gibt alle Konfigurationswerte als String-Map zurueck
package envconfig

import (
	"fmt"
	"log/slog"
	"strconv"
)

// =============================================================================
// Boolean-Getter
// =============================================================================

// BoolWithDefault gibt eine Funktion zurueck, die einen Bool mit Default-Wert liest
func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return defaultValue
	}
}

// Bool gibt eine Funktion zurueck, die einen Bool liest (Default: false)
func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

// =============================================================================
// String-Getter
// =============================================================================

// String gibt eine Funktion zurueck, die einen String liest
func String(s string) func() string {
	return func() string {
		return Var(s)
	}
}

// =============================================================================
// Integer-Getter
// =============================================================================

// Uint gibt eine Funktion zurueck, die einen uint mit Default-Wert liest
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// =============================================================================
// Export-Strukturen und -Funktionen
// =============================================================================

// EnvVar repraesentiert eine Environment-Variable mit Metadaten
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap gibt alle Konfigurationen als Map zurueck
// Enthaelt Namen, aktuelle Werte und Beschreibungen
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"VSTRT_DEBUG":          {"VSTRT_DEBUG", LogLevel(), "Show additional debug information (e.g. VSTRT_DEBUG=1)"},
		"VSTRT_HOST":           {"VSTRT_HOST", Host(), "IP Address for the vstrt server (default 127.0.0.1:11435)"},
		"VSTRT_ORIGINS":        {"VSTRT_ORIGINS", AllowedOrigins(), "A comma separated list of allowed origins"},
		"VSTRT_BACKEND":        {"VSTRT_BACKEND", Backend(), "Inference backend used to load engines (default \"ref\")"},
		"VSTRT_NUM_STREAMS":    {"VSTRT_NUM_STREAMS", NumStreams(), "Default number of inference instances per filter"},
		"VSTRT_DEVICE":         {"VSTRT_DEVICE", DeviceID(), "Default accelerator device index"},
		"VSTRT_USE_CUDA_GRAPH": {"VSTRT_USE_CUDA_GRAPH", UseCudaGraph(), "Enable graph replay for inference calls by default"},
		"VSTRT_THREADS":        {"VSTRT_THREADS", Threads(), "Maximum number of concurrent frame requests"},
		"VSTRT_REF_DEVICES":    {"VSTRT_REF_DEVICES", RefDevices(), "Number of devices reported by the reference backend"},
	}
}

// Values gibt alle Konfigurationswerte als String-Map zurueck
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
