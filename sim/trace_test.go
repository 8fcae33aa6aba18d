package sim

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/veldrive/pathmpc/vehicle"
)

func sampleTrace() *Trace {
	tr := newTrace()
	ctes := []float64{0.1, -0.3, 0.2, 0.4}
	for i, cte := range ctes {
		tr.add(Record{
			Time:          float64(i) * 0.1,
			Pose:          vehicle.Pose{X: float64(i), Speed: 10},
			CrossTrackErr: cte,
			Command:       vehicle.Actuation{Steer: 0.01 * float64(i)},
			Solved:        true,
			Cost:          10 + 10*float64(i%2),
			SolveTime:     time.Duration(2+2*(i%2)) * time.Millisecond,
		})
	}
	tr.add(Record{
		Time:          0.4,
		Pose:          vehicle.Pose{X: 4, Speed: 10},
		CrossTrackErr: -0.5,
		Command:       vehicle.Actuation{Accel: -fallbackBrake},
	})
	return tr
}

func TestSummarize(t *testing.T) {
	sum, err := sampleTrace().Summarize()
	test.That(t, err, test.ShouldBeNil)

	test.That(t, sum.Cycles, test.ShouldEqual, 5)
	test.That(t, sum.Failures, test.ShouldEqual, 1)
	test.That(t, sum.MeanAbsCrossTrack, test.ShouldAlmostEqual, 0.3)
	test.That(t, sum.MaxAbsCrossTrack, test.ShouldAlmostEqual, 0.5)
	test.That(t, sum.P95AbsCrossTrack, test.ShouldAlmostEqual, 0.45)
	test.That(t, sum.MeanSpeed, test.ShouldAlmostEqual, 10)

	// Only solved cycles contribute solver statistics.
	test.That(t, sum.MeanSolveMillis, test.ShouldAlmostEqual, 3)
	test.That(t, sum.MaxSolveMillis, test.ShouldAlmostEqual, 4)
	test.That(t, sum.MeanCost, test.ShouldAlmostEqual, 15)
}

func TestSummarizeEmpty(t *testing.T) {
	_, err := newTrace().Summarize()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	test.That(t, sampleTrace().WriteCSV(&buf), test.ShouldBeNil)

	rows, err := csv.NewReader(&buf).ReadAll()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(rows), test.ShouldEqual, 6)
	test.That(t, rows[0][0], test.ShouldEqual, "t_s")
	test.That(t, rows[0][9], test.ShouldEqual, "solved")
	test.That(t, rows[1][4], test.ShouldEqual, "10")
	test.That(t, rows[5][9], test.ShouldEqual, "false")
	test.That(t, rows[5][5], test.ShouldEqual, "-0.5")
}

func TestWriteHistogram(t *testing.T) {
	var buf bytes.Buffer
	test.That(t, sampleTrace().WriteHistogram(&buf, 4), test.ShouldBeNil)
	test.That(t, buf.Len(), test.ShouldBeGreaterThan, 0)

	test.That(t, newTrace().WriteHistogram(&buf, 4), test.ShouldNotBeNil)
}
