package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"

	"github.com/ethereum-optimism/infra/op-jobrunner/job"
)

// JobStatus is served on /status while a job is attached.
type JobStatus struct {
	ID       string   `json:"id"`
	Phase    string   `json:"phase"`
	Status   string   `json:"status"`
	ExitCode int      `json:"exit_code"`
	ExitBits []string `json:"exit_bits"`
}

type HealthzServer struct {
	log log.Logger
	job atomic.Pointer[job.Job]

	mu     sync.Mutex
	ctx    context.Context
	server *http.Server
	closed bool
}

func NewHealthzServer(logger log.Logger) *HealthzServer {
	return &HealthzServer{log: logger}
}

// SetJob attaches the job reported on /status. Nil detaches it.
func (h *HealthzServer) SetJob(j *job.Job) {
	h.job.Store(j)
}

func (h *HealthzServer) Handler() http.Handler {
	hdlr := http.NewServeMux()
	hdlr.HandleFunc("/healthz", h.Handle)
	hdlr.HandleFunc("/status", h.HandleStatus)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return c.Handler(hdlr)
}

func (h *HealthzServer) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Handler: h.Handler(),
		Addr:    addr,
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return http.ErrServerClosed
	}
	h.server = server
	h.ctx = ctx
	h.mu.Unlock()
	return server.ListenAndServe()
}

func (h *HealthzServer) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(context.WithoutCancel(h.ctx))
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	h.log.Trace("Received health check request", "path", r.URL.Path)
	w.Write([]byte("OK")) //nolint:errcheck
}

func (h *HealthzServer) HandleStatus(w http.ResponseWriter, r *http.Request) {
	j := h.job.Load()
	if j == nil {
		http.Error(w, "no job", http.StatusNotFound)
		return
	}
	code := j.ExitCode()
	status := JobStatus{
		ID:       j.ID(),
		Phase:    j.Phase().String(),
		Status:   string(j.Status()),
		ExitCode: code.Int(),
		ExitBits: code.Bits(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status) //nolint:errcheck
}
