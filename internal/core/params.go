package core

const (
	// MinPixelsPerCell is the finest zoom: one pixel per cell.
	MinPixelsPerCell = 1
	// MaxPixelsPerCell is the coarsest zoom.
	MaxPixelsPerCell = 16
	// PixelsPerCellStep is the granularity of zoom levels above the minimum.
	PixelsPerCellStep = 2
	// DefaultPixelsPerCell is the zoom used when none is configured.
	DefaultPixelsPerCell = 2
)

// SanitizePixelsPerCell rounds v down to a multiple of PixelsPerCellStep and
// clamps it to [MinPixelsPerCell, MaxPixelsPerCell]. The second return value
// reports whether the input had to be adjusted.
func SanitizePixelsPerCell(v int) (int, bool) {
	out := (v / PixelsPerCellStep) * PixelsPerCellStep
	if out <= MinPixelsPerCell {
		out = MinPixelsPerCell
	}
	if out >= MaxPixelsPerCell {
		out = MaxPixelsPerCell
	}
	return out, out != v
}

// ParamType enumerates supported parameter value kinds.
type ParamType string

const (
	// ParamTypeInt denotes integer-valued parameters.
	ParamTypeInt ParamType = "int"
	// ParamTypeString denotes read-only informational values.
	ParamTypeString ParamType = "string"
)

// Parameter describes a single value exposed by the tile engine.
type Parameter struct {
	Key         string
	Label       string
	Type        ParamType
	Value       string
	Description string
}

// ParameterGroup clusters related parameters for presentation purposes.
type ParameterGroup struct {
	Name    string
	Params  []Parameter
	Summary string
}

// ParameterSnapshot captures the current engine settings and counters.
type ParameterSnapshot struct {
	Groups []ParameterGroup
}

// Lookup returns the parameter with the given key.
func (s ParameterSnapshot) Lookup(key string) (Parameter, bool) {
	for _, g := range s.Groups {
		for _, p := range g.Params {
			if p.Key == key {
				return p, true
			}
		}
	}
	return Parameter{}, false
}

// ParameterControl describes an adjustable integer parameter for the HUD.
type ParameterControl struct {
	Key   string
	Label string
	Step  int
	Min   int
	Max   int
}

// Clamp restricts v to the control's bounds.
func (c ParameterControl) Clamp(v int) int {
	if v < c.Min {
		return c.Min
	}
	if v > c.Max {
		return c.Max
	}
	return v
}

// ParameterControlsProvider exposes the list of HUD-adjustable controls.
type ParameterControlsProvider interface {
	ParameterControls() []ParameterControl
}

// ParameterProvider exposes a snapshot of the current values.
type ParameterProvider interface {
	Parameters() ParameterSnapshot
}

// IntParameterSetter allows HUD interactions to update integer parameters.
type IntParameterSetter interface {
	SetIntParameter(key string, value int) bool
}

// Adjust moves v one step in direction and clamps the result. The second
// return value is false when v is already at that bound.
func (c ParameterControl) Adjust(v, direction int) (int, bool) {
	step := c.Step
	if step <= 0 {
		step = 1
	}
	target := c.Clamp(v + direction*step)
	return target, target != v
}
