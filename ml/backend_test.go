package ml

import (
	"errors"
	"log/slog"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type testBackend struct{ name string }

func (b *testBackend) Name() string                             { return b.name }
func (b *testBackend) Devices() ([]DeviceInfo, error)           { return nil, nil }
func (b *testBackend) SetDevice(int) error                      { return nil }
func (b *testBackend) NewRuntime(*slog.Logger) (Runtime, error) { return nil, nil }

func TestRegisterBackend(t *testing.T) {
	RegisterBackend(&testBackend{name: "test-a"})
	RegisterBackend(&testBackend{name: "test-b"})

	b, err := GetBackend("test-a")
	if err != nil {
		t.Fatalf("GetBackend(test-a) error = %v", err)
	}
	if b.Name() != "test-a" {
		t.Errorf("Name() = %q, erwartet test-a", b.Name())
	}

	names := Backends()
	for _, want := range []string{"test-a", "test-b"} {
		found := false
		for _, n := range names {
			found = found || n == want
		}
		if !found {
			t.Errorf("Backends() = %v, %q fehlt", names, want)
		}
	}

	if _, err := GetBackend("missing"); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("GetBackend(missing) error = %v, erwartet ErrUnknownBackend", err)
	}
}

func TestRegisterBackendTwicePanics(t *testing.T) {
	RegisterBackend(&testBackend{name: "test-dup"})

	defer func() {
		if recover() == nil {
			t.Error("doppelte Registrierung sollte panic ausloesen")
		}
	}()
	RegisterBackend(&testBackend{name: "test-dup"})
}

func TestProfileSupports(t *testing.T) {
	p := Profile{
		Min: Dims{1, 3, 16, 16},
		Opt: Dims{1, 3, 64, 64},
		Max: Dims{1, 3, 128, 96},
	}

	tests := []struct {
		size Size
		want bool
	}{
		{Size{Width: 16, Height: 16}, true},
		{Size{Width: 96, Height: 128}, true},
		{Size{Width: 97, Height: 64}, false},
		{Size{Width: 64, Height: 15}, false},
	}

	for _, tt := range tests {
		if got := p.Supports(tt.size); got != tt.want {
			t.Errorf("Supports(%v) = %v, erwartet %v", tt.size, got, tt.want)
		}
	}
}

func TestValidDevice(t *testing.T) {
	devices := []DeviceInfo{{ID: 0}, {ID: 1}}

	for _, id := range []int{0, 1} {
		if err := ValidDevice(devices, id); err != nil {
			t.Errorf("ValidDevice(%d) error = %v", id, err)
		}
	}

	for _, id := range []int{-1, 2} {
		err := ValidDevice(devices, id)
		if err == nil {
			t.Fatalf("ValidDevice(%d) sollte fehlschlagen", id)
		}
		if diff := cmp.Diff("invalid device ID ("+strconv.Itoa(id)+")", err.Error()); diff != "" {
			t.Errorf("Fehlermeldung (-want +got):\n%s", diff)
		}
	}
}
