// device_info.go
// Dieses Modul enthaelt die DeviceInfo-Struktur und die Pruefung von
// Geraete-Indizes gegen die Liste sichtbarer Geraete.

package ml

import (
	"fmt"
	"log/slog"
	"strconv"
)

type DeviceInfo struct {
	// ID ist der Geraete-Index innerhalb des Backends
	ID int `json:"id"`

	// Library ist der Name des Backends, das das Geraet meldet
	Library string `json:"library"`

	// Name is the name of the device as labeled by the backend.
	Name string `json:"name"`

	// Description is the longer user-friendly identification of the device
	Description string `json:"description"`

	// TotalMemory is the total amount of memory the device can use
	TotalMemory uint64 `json:"total_memory"`

	// ComputeMajor is the major version of capabilities of the device
	// if unsupported by the backend, -1 will be returned
	ComputeMajor int

	// ComputeMinor is the minor version of capabilities of the device
	// if unsupported by the backend, -1 will be returned
	ComputeMinor int
}

func (d DeviceInfo) Compute() string {
	if d.ComputeMajor < 0 {
		return ""
	}
	return strconv.Itoa(d.ComputeMajor) + "." + strconv.Itoa(d.ComputeMinor)
}

func (d DeviceInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("id", d.ID),
		slog.String("library", d.Library),
		slog.String("name", d.Name),
		slog.String("description", d.Description),
		slog.String("compute", d.Compute()),
	)
}

// ValidDevice prueft ob id ein gueltiger Index in devices ist
func ValidDevice(devices []DeviceInfo, id int) error {
	if 0 <= id && id < len(devices) {
		return nil
	}
	return fmt.Errorf("invalid device ID (%d)", id)
}
