package pipeline

import (
	"errors"

	"github.com/vaeringr/cdsp/internal/chunk"
	"github.com/vaeringr/cdsp/internal/device"
	"github.com/vaeringr/cdsp/internal/ratectrl"
	"github.com/vaeringr/cdsp/internal/status"
)

// PlaybackWorker is stage B of spec.md §4.1: it owns the output device,
// writes each processed chunk, samples buffer fill, and periodically
// drives the rate controller to emit a SetSpeed status message.
type PlaybackWorker struct {
	Device   device.PlaybackDevice
	In       <-chan *chunk.Chunk
	Status   chan<- StatusMessage
	Barrier  *Barrier
	RateCtrl *ratectrl.Controller
	St       *status.PlaybackStatus

	// ChunksPerUpdate is how many chunks pass between rate-controller
	// updates (derived from the controller's configured interval and the
	// device's block size).
	ChunksPerUpdate int

	chunkCount int
}

// Run executes the playback loop until In is closed.
func (w *PlaybackWorker) Run() {
	if err := w.Device.Open(); err != nil {
		w.Status <- StatusMessage{Kind: PlaybackError, Err: err}
		return
	}
	w.Status <- StatusMessage{Kind: PlaybackReady}
	w.Barrier.Wait()
	if w.St != nil {
		w.St.SetState(status.Running)
	}

	format := w.Device.Format()

	for c := range w.In {
		buf, clipped, err := chunk.ChunkToBuffer(c, format.SampleFormat, format.Packed24In32)
		if err != nil {
			w.Status <- StatusMessage{Kind: PlaybackError, Err: err}
			continue
		}
		if w.St != nil && clipped > 0 {
			w.St.AddClipped(clipped)
		}

		werr := w.Device.WriteBlock(buf)
		if errors.Is(werr, device.ErrXRun) {
			if perr := w.Device.Prepare(); perr != nil {
				w.finish(PlaybackError, perr)
				return
			}
			werr = w.Device.WriteBlock(buf)
		}
		if werr != nil {
			w.finish(PlaybackError, werr)
			return
		}

		if w.St != nil {
			w.St.Peak.Append(c.Timestamp, peakValues(c))
			w.St.RMS.Append(c.Timestamp, rmsValues(c))
		}

		w.chunkCount++
		if w.RateCtrl != nil && w.ChunksPerUpdate > 0 && w.chunkCount%w.ChunksPerUpdate == 0 {
			level, err := w.Device.BufferedFrames()
			if err == nil {
				if w.St != nil {
					w.St.SetBufferLevel(level)
				}
				speed := w.RateCtrl.Update(float64(level))
				if w.St != nil {
					w.St.SetRateAdjust(speed)
				}
				w.Status <- StatusMessage{Kind: SetSpeed, Speed: speed}
			}
		}
	}

	w.Device.Close()
	if w.St != nil {
		w.St.SetState(status.Stopped)
	}
	w.Status <- StatusMessage{Kind: PlaybackDone}
}

func (w *PlaybackWorker) finish(kind StatusKind, err error) {
	w.Device.Close()
	if w.St != nil {
		w.St.SetState(status.Stopped)
	}
	w.Status <- StatusMessage{Kind: kind, Err: err}
}
