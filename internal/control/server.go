// Package control implements the thread-per-connection TCP text protocol
// named in spec.md §6: one newline-terminated command per frame, direct
// synchronous read/reply, a registry of connected clients, grounded on
// src/server.go's AGWPE socket handler (net.Listen, an Accept loop handing
// each connection to its own goroutine, synchronous request/response).
package control

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/vaeringr/cdsp/internal/config"
	"github.com/vaeringr/cdsp/internal/graph"
	"github.com/vaeringr/cdsp/internal/status"
	"github.com/vaeringr/cdsp/internal/supervisor"
)

// Supervisor is the subset of *supervisor.Supervisor the control surface
// drives; named so tests can substitute a fake.
type Supervisor interface {
	RequestReload(steps []graph.Step)
	RequestStop()
	RequestExit()
	StopReason() status.StopReason
}

var _ Supervisor = (*supervisor.Supervisor)(nil)

// Server is a thread-per-connection control listener. Each accepted
// connection gets its own goroutine reading newline-terminated commands
// and writing single-line replies, synchronously, per connection.
type Server struct {
	Supervisor Supervisor
	Params     *status.ProcessingParameters
	Capture    *status.CaptureStatus
	Playback   *status.PlaybackStatus

	// ConfigPath, if set, is reloaded from disk on a RELOAD command.
	ConfigPath string

	Logger *log.Logger

	mu           sync.Mutex
	clients      map[net.Conn]struct{}
	listener     net.Listener
	activeConfig []byte
}

// NewServer builds a Server ready to Serve once a listener is attached.
func NewServer(sup Supervisor, params *status.ProcessingParameters, capture *status.CaptureStatus, playback *status.PlaybackStatus, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		Supervisor: sup,
		Params:     params,
		Capture:    capture,
		Playback:   playback,
		Logger:     logger.With("component", "control"),
		clients:    make(map[net.Conn]struct{}),
	}
}

// ListenAndServe binds addr and accepts connections until the listener is
// closed, handing each one to its own goroutine.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("control: listen: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.Logger.Info("listening", "addr", addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.clients[conn] = struct{}{}
		s.mu.Unlock()
		go s.handleConn(conn)
	}
}

// SetActiveConfig records data as the currently-loaded configuration
// document, for GETACTIVECONFIG to report. Called at startup with the
// document the daemon booted with, and again after each successful RELOAD
// or SETACTIVECONFIG.
func (s *Server) SetActiveConfig(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeConfig = data
}

func (s *Server) getActiveConfig() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeConfig == nil {
		return nil, false
	}
	return s.activeConfig, true
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			reply := s.dispatch(line)
			if _, werr := io.WriteString(conn, reply+"\n"); werr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) dispatch(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "ERR empty command"
	}
	cmd := strings.ToUpper(fields[0])
	args := fields[1:]

	switch cmd {
	case "RELOAD":
		return s.handleReload()
	case "GETACTIVECONFIG":
		return s.handleGetActiveConfig()
	case "SETACTIVECONFIG":
		return s.handleSetActiveConfig(args)
	case "STOP":
		s.Supervisor.RequestStop()
		return "OK"
	case "EXIT":
		s.Supervisor.RequestExit()
		return "OK"
	case "GETVOLUME":
		return s.handleGetVolume(args)
	case "SETVOLUME":
		return s.handleSetVolume(args)
	case "GETMUTE":
		return s.handleGetMute(args)
	case "SETMUTE":
		return s.handleSetMute(args)
	case "GETLEVELS":
		return s.handleGetLevels(args)
	case "GETCAPTURERATE":
		return fmt.Sprintf("OK %g", s.Capture.MeasuredRate())
	case "GETRATEADJUST":
		return fmt.Sprintf("OK %g", s.Capture.RateAdjust())
	case "GETCLIPPED":
		return s.handleGetClipped(args)
	case "RESETCLIPPED":
		return s.handleResetClipped(args)
	case "GETBUFFERLEVEL":
		return fmt.Sprintf("OK %d", s.Playback.BufferLevel())
	case "GETUPDATEINTERVAL":
		return fmt.Sprintf("OK %g", s.Playback.UpdateInterval())
	case "SETUPDATEINTERVAL":
		return s.handleSetUpdateInterval(args)
	case "GETSTATE":
		return s.handleGetState(args)
	case "GETSTOPREASON":
		return fmt.Sprintf("OK %s", s.Supervisor.StopReason().String())
	default:
		return fmt.Sprintf("ERR unknown command %q", fields[0])
	}
}

// handleReload re-reads the configuration document from ConfigPath on
// disk. Distinct from SETACTIVECONFIG, which takes the document inline.
func (s *Server) handleReload() string {
	if s.ConfigPath == "" {
		return "ERR no config path configured"
	}
	data, err := os.ReadFile(s.ConfigPath)
	if err != nil {
		return fmt.Sprintf("ERR %v", err)
	}
	doc, err := config.Load(data)
	if err != nil {
		return fmt.Sprintf("ERR %v", err)
	}
	steps, err := doc.GraphSteps()
	if err != nil {
		return fmt.Sprintf("ERR %v", err)
	}
	s.Supervisor.RequestReload(steps)
	s.SetActiveConfig(data)
	return "OK"
}

// handleGetActiveConfig reports the document currently driving the
// pipeline, base64-encoded to fit the one-line reply framing.
func (s *Server) handleGetActiveConfig() string {
	data, ok := s.getActiveConfig()
	if !ok {
		return "OK NODATA"
	}
	return "OK " + base64.StdEncoding.EncodeToString(data)
}

// handleSetActiveConfig installs a new configuration document sent inline
// over the control connection (base64-encoded YAML, one token), bypassing
// ConfigPath entirely. Distinct from RELOAD, which re-reads disk.
func (s *Server) handleSetActiveConfig(args []string) string {
	if len(args) < 1 {
		return "ERR usage: SETACTIVECONFIG <base64-yaml>"
	}
	data, err := base64.StdEncoding.DecodeString(args[0])
	if err != nil {
		return fmt.Sprintf("ERR invalid base64: %v", err)
	}
	doc, err := config.Load(data)
	if err != nil {
		return fmt.Sprintf("ERR %v", err)
	}
	steps, err := doc.GraphSteps()
	if err != nil {
		return fmt.Sprintf("ERR %v", err)
	}
	s.Supervisor.RequestReload(steps)
	s.SetActiveConfig(data)
	return "OK"
}

func parseFader(args []string) (int, bool) {
	if len(args) < 1 {
		return 0, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 || n >= status.NumFaders {
		return 0, false
	}
	return n, true
}

func (s *Server) handleGetVolume(args []string) string {
	fader, ok := parseFader(args)
	if !ok {
		return "ERR invalid fader"
	}
	return fmt.Sprintf("OK %g", s.Params.TargetVolume(fader))
}

func (s *Server) handleSetVolume(args []string) string {
	if len(args) < 2 {
		return "ERR usage: SETVOLUME <fader> <db>"
	}
	fader, ok := parseFader(args[:1])
	if !ok {
		return "ERR invalid fader"
	}
	db, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return "ERR invalid volume"
	}
	s.Params.SetVolume(fader, db)
	return "OK"
}

func (s *Server) handleGetMute(args []string) string {
	fader, ok := parseFader(args)
	if !ok {
		return "ERR invalid fader"
	}
	return fmt.Sprintf("OK %t", s.Params.Mute(fader))
}

func (s *Server) handleSetMute(args []string) string {
	if len(args) < 2 {
		return "ERR usage: SETMUTE <fader> <0|1>"
	}
	fader, ok := parseFader(args[:1])
	if !ok {
		return "ERR invalid fader"
	}
	mute, err := strconv.ParseBool(args[1])
	if err != nil {
		return "ERR invalid mute value"
	}
	s.Params.SetMute(fader, mute)
	return "OK"
}

func (s *Server) directionStatus(name string) (*status.DirectionStatus, bool) {
	switch strings.ToUpper(name) {
	case "CAPTURE":
		return s.Capture.DirectionStatus, true
	case "PLAYBACK":
		return s.Playback.DirectionStatus, true
	default:
		return nil, false
	}
}

func (s *Server) handleGetLevels(args []string) string {
	if len(args) < 3 {
		return "ERR usage: GETLEVELS <RMS|PEAK> <LAST|SINCE <t>|SINCELAST> <CAPTURE|PLAYBACK>"
	}
	kind := strings.ToUpper(args[0])
	mode := strings.ToUpper(args[1])

	var direction string
	var since int64
	switch mode {
	case "LAST", "SINCELAST":
		if len(args) < 3 {
			return "ERR missing direction"
		}
		direction = args[2]
	case "SINCE":
		if len(args) < 4 {
			return "ERR usage: GETLEVELS <RMS|PEAK> SINCE <t> <CAPTURE|PLAYBACK>"
		}
		t, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return "ERR invalid timestamp"
		}
		since = t
		direction = args[3]
	default:
		return "ERR unknown mode"
	}

	ds, ok := s.directionStatus(direction)
	if !ok {
		return "ERR unknown direction"
	}

	var ring *status.Ring
	switch kind {
	case "RMS":
		ring = ds.RMS
	case "PEAK":
		ring = ds.Peak
	default:
		return "ERR unknown level kind"
	}

	var rec status.Record
	var found bool
	switch mode {
	case "LAST", "SINCELAST":
		rec, found = ring.Last()
	case "SINCE":
		if kind == "RMS" {
			rec, found = ring.AverageSqrtSince(since)
		} else {
			rec, found = ring.MaxSince(since)
		}
	}
	if !found {
		return "OK NODATA"
	}
	return fmt.Sprintf("OK %d %s", rec.Timestamp, formatValues(rec.Values))
}

func formatValues(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func (s *Server) handleGetClipped(args []string) string {
	ds, ok := s.directionStatus(firstOr(args, "PLAYBACK"))
	if !ok {
		return "ERR unknown direction"
	}
	return fmt.Sprintf("OK %d", ds.ClippedSamples())
}

func (s *Server) handleResetClipped(args []string) string {
	ds, ok := s.directionStatus(firstOr(args, "PLAYBACK"))
	if !ok {
		return "ERR unknown direction"
	}
	ds.ResetClippedSamples()
	return "OK"
}

func (s *Server) handleSetUpdateInterval(args []string) string {
	if len(args) < 1 {
		return "ERR usage: SETUPDATEINTERVAL <seconds>"
	}
	secs, err := strconv.ParseFloat(args[0], 64)
	if err != nil || secs <= 0 {
		return "ERR invalid interval"
	}
	s.Capture.SetUpdateInterval(secs)
	s.Playback.SetUpdateInterval(secs)
	return "OK"
}

func (s *Server) handleGetState(args []string) string {
	ds, ok := s.directionStatus(firstOr(args, "PLAYBACK"))
	if !ok {
		return "ERR unknown direction"
	}
	return fmt.Sprintf("OK %s", ds.State().String())
}

func firstOr(args []string, def string) string {
	if len(args) > 0 {
		return args[0]
	}
	return def
}
