package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/fosdem/framexform/lib/config"
	"github.com/fosdem/framexform/lib/metrics"
	"github.com/fosdem/framexform/lib/pipeline"
)

type Api struct {
	srv      http.Server
	mux      *http.ServeMux
	cfg      *config.ApiCfg
	pipeline *pipeline.Pipeline
	log      *slog.Logger

	wsMu      sync.Mutex
	wsClients map[*wsClient]bool
}

func New(cfg *config.ApiCfg, p *pipeline.Pipeline, log *slog.Logger) *Api {
	a := &Api{}
	a.cfg = cfg
	a.mux = http.NewServeMux()
	a.pipeline = p
	a.log = log
	a.srv.Addr = cfg.Bind
	a.srv.Handler = a.mux
	a.wsClients = make(map[*wsClient]bool)

	p.AddEventListener(pipeline.EventJobDone, func(p *pipeline.Pipeline, data interface{}) {
		event := data.(pipeline.EventDataJobDone)
		packet, err := json.Marshal(event)
		if err != nil {
			return
		}
		a.broadcast(packet)
	})

	a.routes()
	return a
}

func (a *Api) routes() {
	if a.cfg.EnableProfiler {
		a.mux.HandleFunc("/prof", a.profileCPU)
	}
	a.mux.HandleFunc("GET /api/stats", a.getStats)
	a.mux.HandleFunc("GET /api/jobs", a.listJobs)
	a.mux.HandleFunc("POST /api/jobs/{job}", a.runJob)
	a.mux.HandleFunc("GET /api/media/{job}", a.handleMedia)
	a.mux.HandleFunc("GET /api/media/{job}/{format}", a.handleMedia)
	a.mux.HandleFunc("PUT /api/sources/{source}", a.putSourceImage)
	a.mux.HandleFunc("GET /api/transform", a.handleTransform)
	a.mux.HandleFunc("/api/ws", a.handleWebsocket)
	a.mux.Handle("/metrics", metrics.Handler())
}

func (a *Api) Handler() http.Handler {
	return a.mux
}

func (a *Api) Serve() error {
	return a.srv.ListenAndServe()
}

// Shutdown stops accepting requests and waits for the ones in flight, so
// the pipeline can be closed afterwards.
func (a *Api) Shutdown(ctx context.Context) error {
	return a.srv.Shutdown(ctx)
}

func (a *Api) profileCPU(w http.ResponseWriter, _ *http.Request) {
	err := pprof.StartCPUProfile(w)
	if err != nil {
		http.Error(w, fmt.Sprintf("Could not start CPU profile: %s", err), http.StatusInternalServerError)
		return
	}
	time.Sleep(10 * time.Second)
	pprof.StopCPUProfile()
}

// @Summary	Conversion counters and stage timings
// @Router		/api/stats [get]
// @Tags		base
// @Produce	json
// @Success	200
func (a *Api) getStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	err := encoder.Encode(a.pipeline.Stats.Snapshot())
	if err != nil {
		http.Error(w, fmt.Sprintf("could encode stats: %s", err), http.StatusInternalServerError)
		return
	}
}

func ServeInBackground(p *pipeline.Pipeline, cfg *config.ApiCfg, log *slog.Logger) *Api {
	var theApi *Api
	if cfg != nil {
		theApi = New(cfg, p, log)

		log.Info("starting web server", "bind", cfg.Bind)
		go func() {
			err := theApi.Serve()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("could not start web server", "err", err)
			}
		}()
	}
	return theApi
}
