// Command cdspd is the daemon entry point: it loads a configuration
// document, opens the capture and playback devices it names, builds the
// initial processing graph, and runs the capture/process/playback chain
// under a supervisor until told to stop, per spec.md §4/§6.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/vaeringr/cdsp/internal/chunk"
	"github.com/vaeringr/cdsp/internal/config"
	"github.com/vaeringr/cdsp/internal/control"
	"github.com/vaeringr/cdsp/internal/device"
	"github.com/vaeringr/cdsp/internal/graph"
	"github.com/vaeringr/cdsp/internal/pipeline"
	"github.com/vaeringr/cdsp/internal/ratectrl"
	"github.com/vaeringr/cdsp/internal/status"
	"github.com/vaeringr/cdsp/internal/supervisor"
)

func main() {
	var (
		configFile      = pflag.StringP("config", "c", "", "Configuration file (YAML).")
		controlAddr     = pflag.StringP("control-addr", "p", "127.0.0.1:1234", "Address the control surface listens on.")
		ringCapacity    = pflag.IntP("stats-capacity", "r", 256, "Number of entries kept in each signal-statistics ring.")
		silenceThreshDB = pflag.Float64P("silence-threshold", "s", -1000, "Silence gate threshold in dBFS. Below -200 disables the gate.")
		silenceTimeout  = pflag.Float64P("silence-timeout", "t", 0, "Seconds of sub-threshold audio before the silence gate pauses. 0 disables.")
		rateUpdateSecs  = pflag.Float64P("rate-update-interval", "i", 1.0, "Seconds between rate-controller updates.")
		verbose         = pflag.BoolP("verbose", "v", false, "Enable debug logging.")
		help            = pflag.BoolP("help", "h", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: cdspd -c <config.yaml> [options]")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}
	if *configFile == "" {
		fmt.Fprintln(os.Stderr, "cdspd: -c/--config is required")
		pflag.Usage()
		os.Exit(2)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if err := run(runOptions{
		configFile:      *configFile,
		controlAddr:     *controlAddr,
		ringCapacity:    *ringCapacity,
		silenceThreshDB: *silenceThreshDB,
		silenceTimeout:  *silenceTimeout,
		rateUpdateSecs:  *rateUpdateSecs,
		logger:          logger,
	}); err != nil {
		logger.Error("cdspd exiting", "err", err)
		os.Exit(1)
	}
}

type runOptions struct {
	configFile      string
	controlAddr     string
	ringCapacity    int
	silenceThreshDB float64
	silenceTimeout  float64
	rateUpdateSecs  float64
	logger          *log.Logger
}

func run(opts runOptions) error {
	data, err := os.ReadFile(opts.configFile)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	doc, err := config.Load(data)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	captureFmt, err := doc.CaptureFormat()
	if err != nil {
		return fmt.Errorf("capture format: %w", err)
	}
	playbackFmt, err := doc.PlaybackFormat()
	if err != nil {
		return fmt.Errorf("playback format: %w", err)
	}

	params := status.NewProcessingParameters()
	steps, err := doc.GraphSteps()
	if err != nil {
		return fmt.Errorf("building graph: %w", err)
	}
	g, err := graph.Build(steps, captureFmt.SampleRate, captureFmt.Channels, params)
	if err != nil {
		return fmt.Errorf("building graph: %w", err)
	}

	captureDevice := device.NewPortAudioCapture(captureFmt)
	playbackDevice := device.NewPortAudioPlayback(playbackFmt)

	captureStatus := status.NewCaptureStatus(opts.ringCapacity, captureFmt.Channels)
	playbackStatus := status.NewPlaybackStatus(opts.ringCapacity, playbackFmt.Channels)

	var gate *pipeline.SilenceGate
	if opts.silenceTimeout > 0 && opts.silenceThreshDB >= -200 {
		gate = pipeline.NewSilenceGate(opts.silenceThreshDB, opts.silenceTimeout, captureFmt.SampleRate, captureFmt.BlockSize)
	}

	rateCtrl := ratectrl.NewWithDefaults(playbackFmt.SampleRate, opts.rateUpdateSecs, float64(playbackFmt.BlockSize)*4)
	chunksPerUpdate := int(opts.rateUpdateSecs * playbackFmt.SampleRate / float64(playbackFmt.BlockSize))
	if chunksPerUpdate < 1 {
		chunksPerUpdate = 1
	}

	capToProc := make(chan *chunk.Chunk, 8)
	procToPlay := make(chan *chunk.Chunk, 8)

	capture := &pipeline.CaptureWorker{
		Device: captureDevice,
		Out:    capToProc,
		Gate:   gate,
		St:     captureStatus,
	}
	process := &pipeline.ProcessWorker{
		In:    capToProc,
		Out:   procToPlay,
		Graph: g,
	}
	playback := &pipeline.PlaybackWorker{
		Device:          playbackDevice,
		In:              procToPlay,
		RateCtrl:        rateCtrl,
		St:              playbackStatus,
		ChunksPerUpdate: chunksPerUpdate,
	}

	sup := supervisor.New(capture, process, playback, opts.logger)

	ctrlServer := control.NewServer(sup, params, captureStatus, playbackStatus, opts.logger)
	ctrlServer.ConfigPath = opts.configFile
	ctrlServer.SetActiveConfig(data)

	errCh := make(chan error, 1)
	go func() {
		errCh <- ctrlServer.ListenAndServe(opts.controlAddr)
	}()

	reason := sup.Run()
	ctrlServer.Close()
	opts.logger.Info("stopped", "reason", reason.String())

	select {
	case err := <-errCh:
		if err != nil {
			opts.logger.Warn("control server closed", "err", err)
		}
	default:
	}

	switch reason {
	case status.StopCaptureError, status.StopPlaybackError:
		return fmt.Errorf("pipeline stopped with reason %s", reason.String())
	default:
		return nil
	}
}
