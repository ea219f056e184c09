// Package supervisor owns the orchestration loop described in spec.md §4.5:
// it starts the capture/process/playback workers behind a rendezvous
// barrier, owns the hot-reload and exit signals, and is the sole decision
// point for whole-pipeline shutdown.
package supervisor

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/vaeringr/cdsp/internal/graph"
	"github.com/vaeringr/cdsp/internal/pipeline"
	"github.com/vaeringr/cdsp/internal/status"
)

// ExitState is the tri-state {none, stop, exit} signal named in spec.md §4.5.
type ExitState int

const (
	ExitNone ExitState = iota
	ExitStop
	ExitExit
)

// pollInterval is the periodic timeout on the status-channel receive the
// supervisor uses to service reload/exit flags between messages, standing
// in for dlq.go's dlq_wait_while_empty timeout-select idiom.
const pollInterval = 200 * time.Millisecond

// Supervisor wires the three pipeline workers together and runs the
// orchestration loop until a stop/exit signal or fatal error is observed.
type Supervisor struct {
	Capture  *pipeline.CaptureWorker
	Process  *pipeline.ProcessWorker
	Playback *pipeline.PlaybackWorker

	Barrier *pipeline.Barrier
	Status  chan pipeline.StatusMessage
	Cmd     chan pipeline.Command
	Reload  *pipeline.ReloadSlot

	CaptureStatus  *status.CaptureStatus
	PlaybackStatus *status.PlaybackStatus

	Logger *log.Logger

	exitState ExitState

	captureDone  bool
	playbackDone bool

	stopReason status.StopReason
}

// New builds a Supervisor around the three workers, wiring the shared
// status/command channels and a four-party barrier (C, P, B, and the
// supervisor itself, which releases it once both devices report ready).
func New(capture *pipeline.CaptureWorker, process *pipeline.ProcessWorker, playback *pipeline.PlaybackWorker, logger *log.Logger) *Supervisor {
	statusCh := make(chan pipeline.StatusMessage, 64)
	cmdCh := make(chan pipeline.Command, 4)
	barrier := pipeline.NewBarrier(4)
	reload := &pipeline.ReloadSlot{}

	capture.Status = statusCh
	capture.Cmd = cmdCh
	capture.Barrier = barrier

	process.Status = statusCh
	process.Barrier = barrier
	process.Reload = reload

	playback.Status = statusCh
	playback.Barrier = barrier

	if logger == nil {
		logger = log.Default()
	}

	return &Supervisor{
		Capture:  capture,
		Process:  process,
		Playback: playback,
		Barrier:  barrier,
		Status:   statusCh,
		Cmd:      cmdCh,
		Reload:   reload,
		Logger:   logger.With("component", "supervisor"),
	}
}

// RequestReload installs steps as the pending configuration; the process
// worker picks it up between chunks.
func (s *Supervisor) RequestReload(steps []graph.Step) {
	s.Reload.Request(steps)
}

// RequestStop asks the pipeline to drain and stop cleanly.
func (s *Supervisor) RequestStop() {
	s.exitState = ExitStop
}

// RequestExit asks the pipeline to exit, same effect as Stop in this
// implementation: both result in an orderly Exit command to capture.
func (s *Supervisor) RequestExit() {
	s.exitState = ExitExit
}

// StopReason reports the terminal cause once Run has returned.
func (s *Supervisor) StopReason() status.StopReason {
	return s.stopReason
}

// Run starts the three workers, waits for both devices to report ready,
// releases the barrier, and runs the orchestration loop until the pipeline
// drains cleanly or a fatal device error is observed.
func (s *Supervisor) Run() status.StopReason {
	go s.Capture.Run()
	go s.Process.Run()
	go s.Playback.Run()

	captureReady := false
	playbackReady := false
	for !captureReady || !playbackReady {
		msg := <-s.Status
		switch msg.Kind {
		case pipeline.CaptureReady:
			captureReady = true
		case pipeline.PlaybackReady:
			playbackReady = true
		case pipeline.CaptureError:
			s.Logger.Error("capture failed before ready", "err", msg.Err)
			s.stopReason = status.StopCaptureError
			return s.stopReason
		case pipeline.PlaybackError:
			s.Logger.Error("playback failed before ready", "err", msg.Err)
			s.stopReason = status.StopPlaybackError
			return s.stopReason
		}
	}
	s.Logger.Info("devices ready, releasing barrier")
	s.Barrier.Wait()

	return s.loop()
}

func (s *Supervisor) loop() status.StopReason {
	for {
		select {
		case msg, ok := <-s.Status:
			if !ok {
				return s.finish(status.StopDone)
			}
			if done := s.handle(msg); done {
				return s.finish(s.stopReason)
			}
		case <-time.After(pollInterval):
			if s.exitState != ExitNone {
				s.Logger.Info("exit requested, signalling capture")
				s.Cmd <- pipeline.Command{Kind: pipeline.CmdExit}
				s.exitState = ExitNone
			}
		}
	}
}

func (s *Supervisor) handle(msg pipeline.StatusMessage) (done bool) {
	switch msg.Kind {
	case pipeline.SetSpeed:
		s.Cmd <- pipeline.Command{Kind: pipeline.CmdSetSpeed, Speed: msg.Speed}
	case pipeline.CaptureError:
		s.Logger.Error("capture error, tearing down", "err", msg.Err)
		s.stopReason = status.StopCaptureError
		return true
	case pipeline.PlaybackError:
		s.Logger.Error("playback error, tearing down", "err", msg.Err)
		s.stopReason = status.StopPlaybackError
		return true
	case pipeline.ProcessError:
		s.Logger.Warn("process error on one chunk, continuing", "err", msg.Err)
	case pipeline.ReloadFailed:
		s.Logger.Warn("reload rejected, active graph unchanged", "err", msg.Err)
	case pipeline.CaptureDone:
		s.captureDone = true
		if s.captureDone && s.playbackDone {
			s.stopReason = status.StopDone
			return true
		}
	case pipeline.PlaybackDone:
		s.playbackDone = true
		if s.captureDone && s.playbackDone {
			s.stopReason = status.StopDone
			return true
		}
	}
	return false
}

func (s *Supervisor) finish(reason status.StopReason) status.StopReason {
	s.stopReason = reason
	s.Logger.Info("pipeline stopped", "reason", reason.String())
	return reason
}
