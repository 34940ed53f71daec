package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Sample is one recorded instant of a car along a lap. Optional channels are
// pointers so that a missing channel is distinguishable from a zero reading.
type Sample struct {
	X        float64  `json:"X"`
	Y        float64  `json:"Y"`
	Z        *float64 `json:"Z,omitempty"`
	Distance *float64 `json:"Distance,omitempty"`
	Speed    *float64 `json:"Speed,omitempty"`
	RPM      *float64 `json:"RPM,omitempty"`
	Gear     *int     `json:"Gear,omitempty"`
	Throttle *float64 `json:"Throttle,omitempty"`
	Brake    *Brake   `json:"Brake,omitempty"`
	Time     *float64 `json:"Time,omitempty"`
}

// Finite reports whether both coordinates can be projected.
func (s Sample) Finite() bool {
	return !math.IsNaN(s.X) && !math.IsInf(s.X, 0) && !math.IsNaN(s.Y) && !math.IsInf(s.Y, 0)
}

// Brake is sent either as an on/off flag or as an application ratio.
type Brake float64

func (b *Brake) UnmarshalJSON(data []byte) error {
	var on bool
	if err := json.Unmarshal(data, &on); err == nil {
		*b = 0
		if on {
			*b = 1
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return errors.Wrap(err, "brake is neither a flag nor a number")
	}
	*b = Brake(v)
	return nil
}

// Applied reports whether the brake is pressed.
func (b *Brake) Applied() bool {
	return b != nil && *b > 0
}

type DriverTrace struct {
	Driver  string   `json:"driver"`
	Color   string   `json:"color"`
	Samples []Sample `json:"telemetry"`
}

func (d DriverTrace) Len() int {
	return len(d.Samples)
}

// Payload is the unit of input of the replay. Drivers keep the order in which
// the backend sent them; the first one is the track reference.
type Payload struct {
	Drivers []DriverTrace `json:"drivers"`
}

// Reference returns the trace the static track path is derived from.
func (p *Payload) Reference() (DriverTrace, bool) {
	if p == nil || len(p.Drivers) == 0 {
		return DriverTrace{}, false
	}
	return p.Drivers[0], true
}

// Points returns every sample position of every driver.
func (p *Payload) Points() [][2]float64 {
	if p == nil {
		return nil
	}
	n := lo.SumBy(p.Drivers, func(d DriverTrace) int { return len(d.Samples) })
	points := make([][2]float64, 0, n)
	for _, d := range p.Drivers {
		for _, s := range d.Samples {
			points = append(points, [2]float64{s.X, s.Y})
		}
	}
	return points
}

func (p *Payload) DriverCodes() []string {
	if p == nil {
		return nil
	}
	return lo.Map(p.Drivers, func(d DriverTrace, _ int) string { return d.Driver })
}

// Driver returns a payload holding only the trace of code.
func (p *Payload) Driver(code string) (*Payload, bool) {
	if p == nil {
		return nil, false
	}
	d, found := lo.Find(p.Drivers, func(d DriverTrace) bool { return d.Driver == code })
	if !found {
		return nil, false
	}
	return &Payload{Drivers: []DriverTrace{d}}, true
}

func (p *Payload) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d drivers, %d samples", len(p.Drivers), len(p.Points()))
}

// Decode reads a payload in the backend's wire format.
func Decode(r io.Reader) (*Payload, error) {
	var p *Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, errors.Wrap(err, "decoding telemetry payload")
	}
	if p == nil {
		return nil, errors.New("telemetry payload is null")
	}
	return p.normalize()
}

// normalize enforces the keyed-by-driver invariant: first occurrence wins.
func (p *Payload) normalize() (*Payload, error) {
	seen := make(map[string]bool, len(p.Drivers))
	drivers := make([]DriverTrace, 0, len(p.Drivers))
	for i, d := range p.Drivers {
		if d.Driver == "" {
			return nil, fmt.Errorf("driver #%d has no code", i)
		}
		if seen[d.Driver] {
			continue
		}
		seen[d.Driver] = true
		drivers = append(drivers, d)
	}
	return &Payload{Drivers: drivers}, nil
}

// Lap is the detailed telemetry of one driver's fastest lap.
type Lap struct {
	Driver  string   `json:"driver"`
	Color   string   `json:"color"`
	LapTime float64  `json:"lap_time"`
	Data    []Sample `json:"data"`
}

func DecodeLap(r io.Reader) (*Lap, error) {
	var lap *Lap
	if err := json.NewDecoder(r).Decode(&lap); err != nil {
		return nil, errors.Wrap(err, "decoding lap telemetry")
	}
	if lap == nil {
		return nil, errors.New("lap telemetry is null")
	}
	if lap.Driver == "" {
		return nil, errors.New("lap telemetry has no driver")
	}
	return lap, nil
}
