package sim

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/veldrive/pathmpc/vehicle"
)

// Record is one control cycle as observed by the runner: the state measured
// at the start of the cycle and the command that answered it.
type Record struct {
	Time          float64 // seconds since the start of the run
	Pose          vehicle.Pose
	CrossTrackErr float64
	HeadingErr    float64

	Command vehicle.Actuation
	Solved  bool
	Cost    float64
	// SolveTime is zero on fallback cycles.
	SolveTime time.Duration
	// Predicted holds the solved trajectory's world-frame points, nil on
	// fallback cycles.
	Predicted []r3.Vector
}

// Trace accumulates the records of one run.
type Trace struct {
	recs []Record
}

func newTrace() *Trace {
	return &Trace{}
}

func (tr *Trace) add(rec Record) {
	tr.recs = append(tr.recs, rec)
}

// Records returns all records in time order.
func (tr *Trace) Records() []Record {
	return tr.recs
}

// Len returns the number of completed cycles.
func (tr *Trace) Len() int {
	return len(tr.recs)
}

// Failures counts cycles that ran on the fallback command.
func (tr *Trace) Failures() int {
	n := 0
	for _, rec := range tr.recs {
		if !rec.Solved {
			n++
		}
	}
	return n
}

// Summary condenses a run into the numbers worth reading on a terminal.
type Summary struct {
	Cycles   int
	Failures int

	MeanAbsCrossTrack float64
	MaxAbsCrossTrack  float64
	P95AbsCrossTrack  float64

	MeanSpeed float64

	MeanSolveMillis float64
	MaxSolveMillis  float64
	MeanCost        float64
}

// Summarize reduces the trace. It errors on an empty trace.
func (tr *Trace) Summarize() (Summary, error) {
	if len(tr.recs) == 0 {
		return Summary{}, errors.New("trace is empty")
	}

	absCTE := make(stats.Float64Data, 0, len(tr.recs))
	speeds := make(stats.Float64Data, 0, len(tr.recs))
	var solveMillis, costs stats.Float64Data
	for _, rec := range tr.recs {
		absCTE = append(absCTE, math.Abs(rec.CrossTrackErr))
		speeds = append(speeds, rec.Pose.Speed)
		if rec.Solved {
			solveMillis = append(solveMillis, float64(rec.SolveTime)/float64(time.Millisecond))
			costs = append(costs, rec.Cost)
		}
	}

	sum := Summary{Cycles: len(tr.recs), Failures: tr.Failures()}
	var err error
	var errs error

	sum.MeanAbsCrossTrack, err = stats.Mean(absCTE)
	errs = multierr.Combine(errs, err)
	sum.MaxAbsCrossTrack, err = stats.Max(absCTE)
	errs = multierr.Combine(errs, err)
	sum.P95AbsCrossTrack, err = stats.Percentile(absCTE, 95)
	errs = multierr.Combine(errs, err)
	sum.MeanSpeed, err = stats.Mean(speeds)
	errs = multierr.Combine(errs, err)
	if len(solveMillis) > 0 {
		sum.MeanSolveMillis, err = stats.Mean(solveMillis)
		errs = multierr.Combine(errs, err)
		sum.MaxSolveMillis, err = stats.Max(solveMillis)
		errs = multierr.Combine(errs, err)
		sum.MeanCost, err = stats.Mean(costs)
		errs = multierr.Combine(errs, err)
	}
	if errs != nil {
		return Summary{}, errors.Wrap(errs, "trace statistics")
	}
	return sum, nil
}

// WriteCSV streams the trace as one row per cycle.
func (tr *Trace) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{
		"t_s", "x_m", "y_m", "heading_rad", "speed_mps",
		"cross_track_m", "heading_err_rad",
		"steer_rad", "accel_mps2", "solved", "cost", "solve_ms",
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "csv header")
	}
	row := make([]string, 0, len(header))
	for _, rec := range tr.recs {
		row = row[:0]
		for _, v := range []float64{
			rec.Time, rec.Pose.X, rec.Pose.Y, rec.Pose.Heading, rec.Pose.Speed,
			rec.CrossTrackErr, rec.HeadingErr,
			rec.Command.Steer, rec.Command.Accel,
		} {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		row = append(row,
			strconv.FormatBool(rec.Solved),
			strconv.FormatFloat(rec.Cost, 'g', -1, 64),
			strconv.FormatFloat(float64(rec.SolveTime)/float64(time.Millisecond), 'g', -1, 64),
		)
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "csv flush")
}

// WriteHistogram prints a terminal histogram of absolute cross-track error.
func (tr *Trace) WriteHistogram(w io.Writer, bins int) error {
	if len(tr.recs) == 0 {
		return errors.New("trace is empty")
	}
	absCTE := make([]float64, 0, len(tr.recs))
	for _, rec := range tr.recs {
		absCTE = append(absCTE, math.Abs(rec.CrossTrackErr))
	}
	hist := histogram.Hist(bins, absCTE)
	return errors.Wrap(histogram.Fprint(w, hist, histogram.Linear(40)), "histogram")
}
