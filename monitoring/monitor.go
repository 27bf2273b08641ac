// Package monitoring turns a training run into a server and allows external
// monitoring of the micro-batch controller.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/trainware/microbatch/accum"
	"github.com/trainware/microbatch/monitoring/web"
)

// splitHistoryLen bounds the number of split raises kept in memory.
const splitHistoryLen = 128

// A Pausable can be paused and continued, like the training loop.
type Pausable interface {
	Pause()
	Continue()
}

// Monitor can turn a training run into a server and allows external
// monitoring of the controller and the loop.
type Monitor struct {
	controller *accum.Controller
	loop       Pausable
	portNumber int
	url        string

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	historyLock  sync.Mutex
	splitHistory []accum.SplitRaise
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterController registers the controller to be monitored. The monitor
// hooks into the controller to keep the split-raise history.
func (m *Monitor) RegisterController(c *accum.Controller) {
	m.controller = c
	c.AcceptHook(&splitHistoryHook{monitor: m})
}

// RegisterLoop registers the training loop so that it can be paused and
// continued from the dashboard.
func (m *Monitor) RegisterLoop(l Pausable) {
	m.loop = l
}

// CreateProgressBar creates a new progress bar over a known number of
// logical batches.
func (m *Monitor) CreateProgressBar(name string, totalBatches uint64) *ProgressBar {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bar := &ProgressBar{
		ID:           "pb_" + strconv.Itoa(len(m.progressBars)+1),
		Name:         name,
		StartTime:    time.Now(),
		TotalBatches: totalBatches,
		SplitFactor:  1,
	}

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// ProgressBars returns a snapshot of the bars currently shown.
func (m *Monitor) ProgressBars() []*ProgressBar {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]*ProgressBar, len(m.progressBars))
	copy(bars, m.progressBars)

	return bars
}

// URL returns the address of the monitoring server, once started.
func (m *Monitor) URL() string {
	return m.url
}

// OpenDashboard opens the monitoring page in the default browser.
func (m *Monitor) OpenDashboard() error {
	if m.url == "" {
		return fmt.Errorf("the monitoring server is not started")
	}

	return browser.OpenURL(m.url)
}

// StartServer starts the monitor as a web server with a custom port if
// wanted.
func (m *Monitor) StartServer() {
	r := mux.NewRouter()

	fs := web.Assets()
	fServer := http.FileServer(fs)
	r.HandleFunc("/api/pause", m.pauseLoop)
	r.HandleFunc("/api/continue", m.continueLoop)
	r.HandleFunc("/api/state", m.controllerState)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/split_history", m.listSplitHistory)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(fServer)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	m.url = fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring training run with %s\n", m.url)

	go func() {
		err = http.Serve(listener, r)
		dieOnErr(err)
	}()
}

func (m *Monitor) pauseLoop(w http.ResponseWriter, _ *http.Request) {
	if m.loop == nil {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	m.loop.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueLoop(w http.ResponseWriter, _ *http.Request) {
	if m.loop == nil {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	m.loop.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) controllerState(w http.ResponseWriter, _ *http.Request) {
	serializer := goseth.NewSerializer()
	serializer.SetRoot(m.controller.State())
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	dieOnErr(err)

	serializer := goseth.NewSerializer()
	serializer.SetRoot(m.controller)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint([]string{req.FieldName})
	dieOnErr(err)

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) listSplitHistory(w http.ResponseWriter, _ *http.Request) {
	m.historyLock.Lock()
	history := make([]accum.SplitRaise, len(m.splitHistory))
	copy(history, m.splitHistory)
	m.historyLock.Unlock()

	bytes, err := json.Marshal(history)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bytes, err := json.Marshal(m.progressBars)
	m.progressBarsLock.Unlock()
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	bytes, err := json.Marshal(prof)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) recordSplitRaise(raise accum.SplitRaise) {
	m.historyLock.Lock()
	defer m.historyLock.Unlock()

	m.splitHistory = append(m.splitHistory, raise)
	if len(m.splitHistory) > splitHistoryLen {
		m.splitHistory = m.splitHistory[len(m.splitHistory)-splitHistoryLen:]
	}
}

// splitHistoryHook feeds controller split raises into the monitor.
type splitHistoryHook struct {
	monitor *Monitor
}

func (h *splitHistoryHook) Func(ctx accum.HookCtx) {
	if ctx.Pos != accum.HookPosSplitRaise {
		return
	}

	h.monitor.recordSplitRaise(ctx.Detail.(accum.SplitRaise))
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
