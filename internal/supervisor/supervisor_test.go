package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaeringr/cdsp/internal/chunk"
	"github.com/vaeringr/cdsp/internal/device"
	"github.com/vaeringr/cdsp/internal/graph"
	"github.com/vaeringr/cdsp/internal/pipeline"
	"github.com/vaeringr/cdsp/internal/status"
)

func testFormat() device.Format {
	return device.Format{SampleRate: 48000, Channels: 2, BlockSize: 16, SampleFormat: chunk.S16LE}
}

func seedSilence(format device.Format, n int) [][]byte {
	return device.ChunksFromSilence(format, n)
}

func newHarness(t *testing.T, blocks [][]byte, steps []graph.Step) (*Supervisor, *device.NullCapture, *device.NullPlayback) {
	t.Helper()
	format := testFormat()
	capDev := device.NewNullCapture(format, blocks)
	playDev := device.NewNullPlayback(format)

	g, err := graph.Build(steps, format.SampleRate, format.Channels, status.NewProcessingParameters())
	require.NoError(t, err)

	cToP := make(chan *chunk.Chunk, 8)
	pToB := make(chan *chunk.Chunk, 8)

	cw := &pipeline.CaptureWorker{Device: capDev, Out: cToP}
	pw := &pipeline.ProcessWorker{In: cToP, Out: pToB, Graph: g}
	bw := &pipeline.PlaybackWorker{Device: playDev, In: pToB}

	sup := New(cw, pw, bw, nil)
	return sup, capDev, playDev
}

func TestSupervisorDrainsCleanlyToDone(t *testing.T) {
	format := testFormat()
	blocks := seedSilence(format, 10)
	sup, _, playDev := newHarness(t, blocks, nil)

	done := make(chan status.StopReason, 1)
	go func() { done <- sup.Run() }()

	select {
	case reason := <-done:
		assert.Equal(t, status.StopDone, reason)
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not finish in time")
	}
	assert.Len(t, playDev.Written(), 10)
}

func TestSupervisorExitRequestTearsDownChain(t *testing.T) {
	format := testFormat()
	blocks := seedSilence(format, 10000)
	sup, _, _ := newHarness(t, blocks, nil)

	done := make(chan status.StopReason, 1)
	go func() { done <- sup.Run() }()

	time.Sleep(50 * time.Millisecond)
	sup.RequestExit()

	select {
	case reason := <-done:
		assert.Equal(t, status.StopDone, reason)
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not finish after exit request")
	}
}

func TestSupervisorEmptyCaptureDrainsImmediately(t *testing.T) {
	format := testFormat()
	capDev := device.NewNullCapture(format, nil)
	playDev := device.NewNullPlayback(format)
	g, err := graph.Build(nil, format.SampleRate, format.Channels, status.NewProcessingParameters())
	require.NoError(t, err)

	cToP := make(chan *chunk.Chunk, 8)
	pToB := make(chan *chunk.Chunk, 8)
	cw := &pipeline.CaptureWorker{Device: capDev, Out: cToP}
	pw := &pipeline.ProcessWorker{In: cToP, Out: pToB, Graph: g}
	bw := &pipeline.PlaybackWorker{Device: playDev, In: pToB}
	sup := New(cw, pw, bw, nil)

	done := make(chan status.StopReason, 1)
	go func() { done <- sup.Run() }()

	select {
	case reason := <-done:
		assert.Equal(t, status.StopDone, reason)
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not finish in time")
	}
}
