package trt

import (
	"errors"
	"fmt"
)

// Fehlerklassen des Filters
var (
	// ErrConfig: ungueltige Optionen oder inkompatible Clips
	ErrConfig = errors.New("configuration error")

	// ErrResource: Engine laden, Profilwahl oder Instanz-Aufbau fehlgeschlagen
	ErrResource = errors.New("resource error")

	// ErrInference: ein einzelner Frame konnte nicht erzeugt werden
	ErrInference = errors.New("inference error")
)

const (
	opCreate   = "Model"
	opGetFrame = "GetFrame"
)

// FilterError ist ein klassifizierter Fehler mit dem Namen der Operation.
// Die Meldung ist "<Op>: <Err>", Err stammt bei Ressourcen- und
// Inferenzfehlern unveraendert vom Backend.
type FilterError struct {
	Op   string
	Kind error
	Err  error
}

func (e *FilterError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *FilterError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func configError(format string, args ...any) error {
	return &FilterError{Op: opCreate, Kind: ErrConfig, Err: fmt.Errorf(format, args...)}
}

func resourceError(err error) error {
	return &FilterError{Op: opCreate, Kind: ErrResource, Err: err}
}

func inferenceError(err error) error {
	return &FilterError{Op: opGetFrame, Kind: ErrInference, Err: err}
}
