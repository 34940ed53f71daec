package report

import (
	"bytes"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"

	"f1replaybot/pkg/helper"
	"f1replaybot/pkg/playback"
	"f1replaybot/pkg/telemetry"
)

const (
	colDriver   = "DRV"
	colIndex    = "#"
	colSpeed    = "KM/H"
	colGear     = "GEAR"
	colThrottle = "THR"
	colBrake    = "BRK"
)

func newWriter(b *bytes.Buffer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(b)
	t.SetStyle(table.StyleRounded)
	return t
}

// SampleTable lists, in payload order, the sample every driver is at for
// progress. Drivers without samples are listed with dashes.
func SampleTable(p *telemetry.Payload, progress float64) string {
	var b bytes.Buffer
	t := newWriter(&b)
	t.AppendHeader(table.Row{colDriver, colIndex, colSpeed, colGear, colThrottle, colBrake})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	if p != nil {
		for _, d := range p.Drivers {
			s, idx, ok := playback.SampleAt(d, progress)
			if !ok {
				t.AppendRow(table.Row{d.Driver, "-", "-", "-", "-", "-"})
				continue
			}
			t.AppendRow(table.Row{
				d.Driver,
				fmt.Sprintf("%d/%d", idx+1, d.Len()),
				helper.Optional(s.Speed, "%.0f"),
				helper.OptionalInt(s.Gear),
				helper.Optional(s.Throttle, "%.0f"),
				brake(s.Brake),
			})
		}
	}
	t.Render()
	return b.String()
}

func brake(b *telemetry.Brake) string {
	switch {
	case b == nil:
		return "-"
	case b.Applied():
		return "ON"
	default:
		return "off"
	}
}

// LapStats summarizes a lap's telemetry.
type LapStats struct {
	LapTime      float64
	TopSpeed     float64
	MinSpeed     float64
	AvgThrottle  float64
	BrakingShare float64
	FullThrottle float64
	TopGear      int
	SampleCount  int
}

func Summarize(lap *telemetry.Lap) LapStats {
	st := LapStats{LapTime: lap.LapTime, SampleCount: len(lap.Data)}

	speeds := lo.FilterMap(lap.Data, func(s telemetry.Sample, _ int) (float64, bool) {
		return lo.FromPtr(s.Speed), s.Speed != nil
	})
	if len(speeds) > 0 {
		st.TopSpeed = lo.Max(speeds)
		st.MinSpeed = lo.Min(speeds)
	}

	throttles := lo.FilterMap(lap.Data, func(s telemetry.Sample, _ int) (float64, bool) {
		return lo.FromPtr(s.Throttle), s.Throttle != nil
	})
	if len(throttles) > 0 {
		st.AvgThrottle = lo.Sum(throttles) / float64(len(throttles))
		st.FullThrottle = float64(lo.CountBy(throttles, func(v float64) bool { return v >= 99 })) / float64(len(throttles))
	}

	braked := lo.Filter(lap.Data, func(s telemetry.Sample, _ int) bool { return s.Brake != nil })
	if len(braked) > 0 {
		st.BrakingShare = float64(lo.CountBy(braked, func(s telemetry.Sample) bool { return s.Brake.Applied() })) / float64(len(braked))
	}

	gears := lo.FilterMap(lap.Data, func(s telemetry.Sample, _ int) (int, bool) {
		return lo.FromPtr(s.Gear), s.Gear != nil
	})
	if len(gears) > 0 {
		st.TopGear = lo.Max(gears)
	}
	return st
}

// LapSummary renders the summary of a driver's fastest lap.
func LapSummary(lap *telemetry.Lap) string {
	st := Summarize(lap)

	var b bytes.Buffer
	t := newWriter(&b)
	t.SetTitle(fmt.Sprintf("%s fastest lap", lap.Driver))
	t.AppendRows([]table.Row{
		{"Lap time", helper.SecondsToMinutes(st.LapTime)},
		{"Top speed", fmt.Sprintf("%.0f km/h", st.TopSpeed)},
		{"Min speed", fmt.Sprintf("%.0f km/h", st.MinSpeed)},
		{"Top gear", st.TopGear},
		{"Avg throttle", fmt.Sprintf("%.0f%%", st.AvgThrottle)},
		{"Full throttle", helper.Percent(st.FullThrottle)},
		{"Braking", helper.Percent(st.BrakingShare)},
		{"Samples", st.SampleCount},
	})
	t.Render()
	return b.String()
}
