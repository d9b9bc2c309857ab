// Package monitoring turns a simulation into a server that can be observed
// and controlled over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/reactor/monitoring/web"
	"github.com/sarchlab/reactor/sim/engine"
	"github.com/sarchlab/reactor/sim/id"
	"github.com/sarchlab/reactor/sim/model"
	"github.com/sarchlab/reactor/sim/timing"
)

// A Controller is the part of an engine that the server can drive. Both
// *engine.Engine and *engine.BatchEngine are controllers.
type Controller interface {
	Play() error
	Pause() error
	Terminate() error
	GoToStep(step uint64) error
	GoToTime(t timing.VTimeInSec) error
	Schedule(cmd engine.Command) error
	WaitFor(s engine.Status, timeout time.Duration) engine.Status
	Status() engine.Status
	Time() timing.VTimeInSec
	Step() uint64
	Error() error
	Environment() model.Environment
}

const (
	defaultWaitTimeout    = 10 * time.Second
	defaultCommandTimeout = 5 * time.Second
)

// Server exposes a simulation over HTTP. It is also an engine monitor that
// tracks the steps of the simulation with a progress bar.
type Server struct {
	controller     Controller
	portNumber     int
	totalSteps     uint64
	commandTimeout time.Duration
	logger         *slog.Logger
	ids            id.IDGenerator

	listener   net.Listener
	httpServer *http.Server

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
	stepBar          *ProgressBar
}

// NewServer creates a new Server.
func NewServer() *Server {
	return &Server{
		commandTimeout: defaultCommandTimeout,
		logger:         slog.New(slog.DiscardHandler),
		ids:            id.NewParallelIDGenerator(),
	}
}

// WithPortNumber sets the port number of the server. Port numbers below 1000
// are replaced by a random port.
func (s *Server) WithPortNumber(portNumber int) *Server {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	s.portNumber = portNumber

	return s
}

// WithTotalSteps sets the expected number of steps shown by the step
// progress bar. Zero means unknown.
func (s *Server) WithTotalSteps(n uint64) *Server {
	s.totalSteps = n
	return s
}

// WithLogger sets the logger of the server.
func (s *Server) WithLogger(logger *slog.Logger) *Server {
	if logger != nil {
		s.logger = logger
	}

	return s
}

// RegisterEngine registers the engine that the server controls.
func (s *Server) RegisterEngine(c Controller) {
	s.controller = c
}

// CreateProgressBar creates a new progress bar.
func (s *Server) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        s.ids.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	s.progressBarsLock.Lock()
	defer s.progressBarsLock.Unlock()

	s.progressBars = append(s.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (s *Server) CompleteProgressBar(pb *ProgressBar) {
	s.progressBarsLock.Lock()
	defer s.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(s.progressBars))
	for _, b := range s.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	s.progressBars = newBars
}

// Initialized starts the step progress bar.
func (s *Server) Initialized(_ model.Environment) error {
	s.stepBar = s.CreateProgressBar("steps", s.totalSteps)
	return nil
}

// StepDone moves the step progress bar.
func (s *Server) StepDone(
	_ model.Environment,
	_ model.Reaction,
	_ timing.VTimeInSec,
	step uint64,
) error {
	if s.stepBar != nil {
		s.stepBar.SetFinished(step + 1)
	}

	return nil
}

// Finished removes the step progress bar.
func (s *Server) Finished(
	_ model.Environment,
	_ timing.VTimeInSec,
	_ uint64,
) error {
	if s.stepBar != nil {
		s.CompleteProgressBar(s.stepBar)
		s.stepBar = nil
	}

	return nil
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/play", s.play)
	r.HandleFunc("/api/pause", s.pause)
	r.HandleFunc("/api/terminate", s.terminate)
	r.HandleFunc("/api/status", s.status)
	r.HandleFunc("/api/goto/step/{step}", s.goToStep)
	r.HandleFunc("/api/goto/time/{time}", s.goToTime)
	r.HandleFunc("/api/wait/{status}", s.wait)
	r.HandleFunc("/api/environment", s.dumpEnvironment)
	r.HandleFunc("/api/progress", s.listProgressBars)
	r.HandleFunc("/api/resource", s.listResources)
	r.HandleFunc("/api/profile", s.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts listening in the background.
func (s *Server) StartServer() error {
	addr := ":" + strconv.Itoa(s.portNumber)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("monitoring: listen on %s: %w", addr, err)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("monitoring server started", "url", s.URL())

	go func() {
		err := s.httpServer.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("monitoring server stopped", "error", err)
		}
	}()

	return nil
}

// URL returns the address of a started server.
func (s *Server) URL() string {
	if s.listener == nil {
		return ""
	}

	port := s.listener.Addr().(*net.TCPAddr).Port

	return fmt.Sprintf("http://localhost:%d", port)
}

// OpenBrowser opens the dashboard of a started server.
func (s *Server) OpenBrowser() error {
	if s.listener == nil {
		return errors.New("monitoring: server not started")
	}

	return browser.OpenURL(s.URL())
}

// StopServer shuts the server down.
func (s *Server) StopServer(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

type statusRsp struct {
	Status string  `json:"status"`
	Time   float64 `json:"time"`
	Step   uint64  `json:"step"`
	Error  string  `json:"error,omitempty"`
}

func (s *Server) currentStatus() statusRsp {
	rsp := statusRsp{
		Status: s.controller.Status().String(),
		Time:   float64(s.controller.Time()),
		Step:   s.controller.Step(),
	}

	if err := s.controller.Error(); err != nil {
		rsp.Error = err.Error()
	}

	return rsp
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.currentStatus())
}

func (s *Server) play(w http.ResponseWriter, _ *http.Request) {
	s.control(w, s.controller.Play())
}

func (s *Server) pause(w http.ResponseWriter, _ *http.Request) {
	s.control(w, s.controller.Pause())
}

func (s *Server) terminate(w http.ResponseWriter, _ *http.Request) {
	s.control(w, s.controller.Terminate())
}

func (s *Server) goToStep(w http.ResponseWriter, r *http.Request) {
	step, err := strconv.ParseUint(mux.Vars(r)["step"], 10, 64)
	if err != nil {
		http.Error(w, "invalid step: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.control(w, s.controller.GoToStep(step))
}

func (s *Server) goToTime(w http.ResponseWriter, r *http.Request) {
	t, err := strconv.ParseFloat(mux.Vars(r)["time"], 64)
	if err != nil || t < 0 {
		http.Error(w, "invalid time", http.StatusBadRequest)
		return
	}

	s.control(w, s.controller.GoToTime(timing.VTimeInSec(t)))
}

func (s *Server) control(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrTerminated):
		http.Error(w, err.Error(), http.StatusConflict)
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		s.writeJSON(w, s.currentStatus())
	}
}

func (s *Server) wait(w http.ResponseWriter, r *http.Request) {
	target, err := engine.ParseStatus(mux.Vars(r)["status"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	timeout := defaultWaitTimeout
	if str := r.URL.Query().Get("timeout"); str != "" {
		timeout, err = time.ParseDuration(str)
		if err != nil || timeout <= 0 {
			http.Error(w, "invalid timeout", http.StatusBadRequest)
			return
		}
	}

	reached := s.controller.WaitFor(target, timeout)

	rsp := s.currentStatus()
	rsp.Status = reached.String()
	s.writeJSON(w, rsp)
}

// dumpEnvironment serializes the environment on the simulation goroutine,
// where it cannot change under the serializer.
func (s *Server) dumpEnvironment(w http.ResponseWriter, r *http.Request) {
	depth := 1
	if str := r.URL.Query().Get("depth"); str != "" {
		d, err := strconv.Atoi(str)
		if err != nil || d < 0 {
			http.Error(w, "invalid depth", http.StatusBadRequest)
			return
		}

		depth = d
	}

	buf := bytes.NewBuffer(nil)
	dump := func() error {
		return serializeEnvironment(buf, s.controller.Environment(), depth)
	}

	var err error

	switch s.controller.Status() {
	case engine.StatusInit, engine.StatusTerminated:
		err = dump()
	default:
		err = s.onSimulation(dump)
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	s.write(w, buf.Bytes())
}

// onSimulation runs fn as an engine command and waits for it.
func (s *Server) onSimulation(fn func() error) error {
	done := make(chan error, 1)

	err := s.controller.Schedule(func(*engine.Engine) error {
		done <- fn()
		return nil
	})
	if errors.Is(err, engine.ErrTerminated) {
		return fn()
	}

	if err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-time.After(s.commandTimeout):
		return errors.New("monitoring: simulation did not respond")
	}
}

func serializeEnvironment(w io.Writer, env model.Environment, depth int) error {
	serializer := goseth.NewSerializer()
	serializer.SetRoot(env)
	serializer.SetMaxDepth(depth)

	return serializer.Serialize(w)
}

func (s *Server) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	s.progressBarsLock.Lock()
	bars := make([]progressBarRsp, 0, len(s.progressBars))
	for _, b := range s.progressBars {
		bars = append(bars, b.snapshot())
	}
	s.progressBarsLock.Unlock()

	s.writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (s *Server) listResources(w http.ResponseWriter, _ *http.Request) {
	rsp, err := currentResources()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, rsp)
}

func currentResources() (resourceRsp, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return resourceRsp{}, err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return resourceRsp{}, err
	}

	memory, err := p.MemoryInfo()
	if err != nil {
		return resourceRsp{}, err
	}

	return resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	}, nil
}

func (s *Server) collectProfile(w http.ResponseWriter, r *http.Request) {
	duration := time.Second
	if str := r.URL.Query().Get("duration"); str != "" {
		d, err := time.ParseDuration(str)
		if err != nil || d <= 0 {
			http.Error(w, "invalid duration", http.StatusBadRequest)
			return
		}

		duration = d
	}

	prof, err := cpuProfile(r.Context(), duration)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, prof)
}

func cpuProfile(
	ctx context.Context,
	duration time.Duration,
) (*profile.Profile, error) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		return nil, err
	}

	select {
	case <-time.After(duration):
	case <-ctx.Done():
	}

	pprof.StopCPUProfile()

	return profile.ParseData(buf.Bytes())
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	s.write(w, bytes)
}

func (s *Server) write(w http.ResponseWriter, b []byte) {
	if _, err := w.Write(b); err != nil {
		s.logger.Debug("monitoring response not delivered", "error", err)
	}
}
