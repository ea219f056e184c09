package pipeline

import (
	"errors"
	"math"

	"github.com/vaeringr/cdsp/internal/chunk"
	"github.com/vaeringr/cdsp/internal/device"
	"github.com/vaeringr/cdsp/internal/status"
)

// CaptureWorker is stage C of spec.md §4.1: it owns the input device,
// reads fixed-size blocks, converts them to chunks, runs the silence gate,
// and forwards admitted chunks downstream.
type CaptureWorker struct {
	Device  device.CaptureDevice
	Out     chan<- *chunk.Chunk
	Status  chan<- StatusMessage
	Cmd     <-chan Command
	Barrier *Barrier
	Gate    *SilenceGate
	St      *status.CaptureStatus

	timestamp int64
}

// Run executes the capture loop. It returns once the device is closed,
// whether cleanly (CmdExit) or due to a fatal device error.
func (w *CaptureWorker) Run() {
	if err := w.Device.Open(); err != nil {
		w.Status <- StatusMessage{Kind: CaptureError, Err: err}
		return
	}
	w.Status <- StatusMessage{Kind: CaptureReady}
	w.Barrier.Wait()
	if w.St != nil {
		w.St.SetState(status.Running)
	}

	format := w.Device.Format()
	buf := make([]byte, format.BlockSize*format.Channels*format.SampleFormat.BytesPerSample(format.Packed24In32))

	for {
		select {
		case cmd := <-w.Cmd:
			if cmd.Kind == CmdExit {
				w.finish(CaptureDone, nil)
				return
			}
			if cmd.Kind == CmdSetSpeed {
				ppm := int(math.Round(100000 * cmd.Speed))
				w.Device.SetSampleRateShift(ppm)
			}
		default:
		}

		err := w.Device.ReadBlock(buf)
		if errors.Is(err, device.ErrXRun) {
			if perr := w.Device.Prepare(); perr != nil {
				w.finish(CaptureError, perr)
				return
			}
			err = w.Device.ReadBlock(buf)
		}
		if errors.Is(err, device.ErrDeviceDone) {
			w.finish(CaptureDone, nil)
			return
		}
		if err != nil {
			w.finish(CaptureError, err)
			return
		}

		w.timestamp++
		c, err := chunk.BufferToChunk(buf, format.SampleFormat, format.Channels, format.BlockSize, format.Packed24In32, w.timestamp)
		if err != nil {
			w.finish(CaptureError, err)
			return
		}

		if w.St != nil {
			w.St.Peak.Append(w.timestamp, peakValues(c))
			w.St.RMS.Append(w.timestamp, rmsValues(c))
		}

		if w.Gate != nil && !w.Gate.Admit(c) {
			if w.St != nil {
				w.St.SetState(status.Paused)
			}
			continue
		}
		if w.St != nil && w.St.State() == status.Paused {
			w.St.SetState(status.Running)
		}

		w.Out <- c
	}
}

func (w *CaptureWorker) finish(kind StatusKind, err error) {
	w.Device.Close()
	close(w.Out)
	if w.St != nil {
		w.St.SetState(status.Stopped)
	}
	w.Status <- StatusMessage{Kind: kind, Err: err}
}
