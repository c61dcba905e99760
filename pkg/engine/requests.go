package engine

import (
	"github.com/jihwankim/spectrum-utils/pkg/conditions"
	"github.com/jihwankim/spectrum-utils/pkg/parameters"
	"github.com/jihwankim/spectrum-utils/pkg/spectra"
)

// AxisDef is an axis request with optional coordinates; omitted values
// default from parameter metadata.
type AxisDef struct {
	Low, High *float64
	Bins      *uint32
}

// ParameterMetadata is the mutable metadata of a parameter; nil fields
// are left untouched.
type ParameterMetadata struct {
	Low, High   *float64
	Bins        *uint32
	Units       *string
	Description *string
}

// ParameterInfo describes a parameter in listings.
type ParameterInfo struct {
	Name        string
	ID          uint32
	Low, High   *float64
	Bins        *uint32
	Units       string
	Description string
}

// ConditionInfo describes a condition in listings.
type ConditionInfo struct {
	Name         string
	Type         string
	Points       []conditions.Point
	Dependencies []string
}

// ContourProperties reconstitutes a contour condition: the existing
// condition of that name (if any) is replaced in place, preserving
// dependents.
type ContourProperties struct {
	Name     string
	XID, YID uint32
	Points   []conditions.Point
}

// SpectrumInfo describes a spectrum in listings.
type SpectrumInfo struct {
	Name    string
	Type    string
	XParams []string
	YParams []string
	XAxis   *spectra.Axis
	YAxis   *spectra.Axis
	Gate    string
	Fold    string
}

// operation is one engine request; execute runs inside the engine
// goroutine with exclusive access to the dictionaries.
type operation interface {
	execute(e *Engine) reply
}

type reply struct {
	err     error
	payload interface{}
}

type request struct {
	op    operation
	reply chan reply
}

// Parameter operations.

type createParameterOp struct{ name string }

type listParametersOp struct{ pattern string }

type setParameterMetadataOp struct {
	name string
	meta ParameterMetadata
}

// Condition operations.

type createConditionOp struct {
	name string
	// build constructs the condition; it runs in the engine goroutine
	// so it can consult the dictionaries.
	build func(e *Engine) (conditions.Condition, error)
}

type listConditionsOp struct{ pattern string }

type deleteConditionOp struct{ name string }

// Spectrum operations.

type createSpectrumOp struct {
	name string
	// build constructs the spectrum against the parameter dictionary.
	build func(e *Engine) (spectra.Spectrum, error)
}

type listSpectraOp struct{ pattern string }

type deleteSpectrumOp struct{ spectrum string }

type clearSpectraOp struct{ pattern string }

type gateSpectrumOp struct{ spectrum, condition string }

type ungateSpectrumOp struct{ spectrum string }

type foldSpectrumOp struct{ spectrum, condition string }

type unfoldSpectrumOp struct{ spectrum string }

type fillChannelsOp struct {
	spectrum string
	channels []spectra.Channel
}

type getContentsOp struct {
	spectrum string
	window   *spectra.ContentsWindow
}

type getStatsOp struct{ spectrum string }

type boundInfoOp struct{ spectrum string }

type boundContentsOp struct{ spectrum string }

// Event processing.

type processEventsOp struct{ events []parameters.Event }

// Shutdown.

type exitOp struct{}
