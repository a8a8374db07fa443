// Package server assembles a castcore node: one partition per configured map
// sharing a unit directory, a router over them, and the websocket hub whose
// inbound frames go through the session intake.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/lawnchairsociety/castcore/internal/casting"
	"github.com/lawnchairsociety/castcore/internal/config"
	"github.com/lawnchairsociety/castcore/internal/content"
	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/ledger"
	"github.com/lawnchairsociety/castcore/internal/logger"
	"github.com/lawnchairsociety/castcore/internal/notify"
	"github.com/lawnchairsociety/castcore/internal/partition"
	"github.com/lawnchairsociety/castcore/internal/scripting"
	"github.com/lawnchairsociety/castcore/internal/session"
)

const shutdownTimeout = 5 * time.Second

// Server runs the partitions and the notification endpoint.
type Server struct {
	cfg    *config.ServerConfig
	store  *content.Store
	dir    *entity.Directory
	worlds map[entity.MapKey]*entity.Map
	router *partition.Router
	hub    *notify.Hub
	intake *session.Intake

	engines []*scripting.Engine
	log     *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	running  bool

	shutdownOnce sync.Once
}

// New builds a server for every map in cfg.Partition.Maps and places the
// configured spawns. Nothing runs until Run is called.
func New(cfg *config.ServerConfig, store *content.Store) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		store:  store,
		dir:    entity.NewDirectory(),
		worlds: make(map[entity.MapKey]*entity.Map),
		log:    logger.Component("server"),
	}
	s.router = partition.NewRouter(s.dir)

	maps := cfg.Partition.Maps
	if len(maps) == 0 {
		maps = []uint32{0}
	}
	s.intake = session.New(cfg.Session, s.router, store)
	s.hub = notify.NewHub(cfg.WebSocket, cfg.Connections, s.intake.Handle)
	events := notify.Multi{s.hub, notify.NewLog(logger.Component("cast"))}

	for _, id := range maps {
		key := entity.MapKey{Map: id}
		if _, dup := s.worlds[key]; dup {
			continue
		}
		if err := s.addPartition(key, events); err != nil {
			s.closeEngines()
			return nil, err
		}
	}

	if len(s.engines) > 0 {
		s.log.Info("Scripts loaded", "dir", cfg.Scripts.Dir, "count", s.engines[0].Len())
	}

	if err := s.populate(); err != nil {
		s.closeEngines()
		return nil, err
	}
	return s, nil
}

func (s *Server) addPartition(key entity.MapKey, events casting.Notifier) error {
	world := entity.NewMap(key, s.dir)
	deps := casting.Deps{
		Key:      key,
		Lookup:   world,
		Content:  s.store,
		Ledgers:  ledger.New(s.cfg.Casting.DRReset()),
		Notifier: events,
		Logger:   logger.Component("casting").With("map", key.Map, "instance", key.Instance),
	}

	// each partition gets its own Lua state since states are single-goroutine
	if s.cfg.Scripts.Dir != "" {
		engine, err := scripting.NewEngine(s.cfg.Scripts.Dir)
		if err != nil {
			return oops.In("server").With("map", key.Map).Wrapf(err, "load scripts")
		}
		s.engines = append(s.engines, engine)
		deps.Scripts = engine
	}

	casts := casting.NewManager(s.cfg.Casting, deps)
	s.worlds[key] = world
	s.router.Add(partition.New(s.cfg.Partition, world, casts))
	return nil
}

// populate places the configured spawns. It runs before any partition goroutine starts.
func (s *Server) populate() error {
	for _, sp := range s.cfg.Partition.Spawns {
		world, ok := s.worlds[entity.MapKey{Map: sp.Map}]
		if !ok {
			return oops.In("server").With("map", sp.Map, "creature", sp.Creature).
				Wrap(partition.ErrUnknownPartition)
		}
		tmpl, ok := s.store.Creature(sp.Creature)
		if !ok {
			return oops.In("server").With("map", sp.Map, "creature", sp.Creature).
				Errorf("spawn of unknown creature")
		}
		count := sp.Count
		if count <= 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			u := tmpl.NewUnit()
			u.Team = sp.Team
			u.Pos = entity.Position{X: sp.X + float64(i)*sp.Spread, Y: sp.Y, Z: sp.Z}
			world.AddUnit(u)
		}
		s.log.Info("Creatures spawned", "map", sp.Map, "creature", tmpl.Name, "count", count)
	}
	return nil
}

// Router returns the partition router.
func (s *Server) Router() *partition.Router {
	return s.router
}

// Hub returns the notification hub.
func (s *Server) Hub() *notify.Hub {
	return s.hub
}

// Handler serves the websocket endpoint at /ws and a plain text status at /status.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.hub)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "partitions %d\nsubscribers %d\n", len(s.router.Keys()), s.hub.Clients())
}

// Addr returns the address the websocket endpoint listens on, or nil before Run.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run runs every partition and, when cfg.WebSocket.Listen is set, the
// websocket endpoint, until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.closeEngines()
		s.mu.Unlock()
	}()

	var srv *http.Server
	if addr := s.cfg.WebSocket.Listen; addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return oops.In("server").With("address", addr).Wrapf(err, "listen")
		}
		s.mu.Lock()
		s.listener = ln
		s.mu.Unlock()
		srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
		s.logOriginPolicy()
		s.log.Info("WebSocket server listening", "address", ln.Addr().String())
	}

	var wg sync.WaitGroup
	errs := make([]error, 3)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = s.router.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		errs[1] = s.intake.Run(ctx)
	}()
	if srv != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs[2] = oops.In("server").Wrapf(err, "serve websocket")
				cancel()
			}
		}()
	}

	<-ctx.Done()
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("WebSocket server shutdown incomplete", "error", err)
		}
		done()
	}
	s.Shutdown()
	wg.Wait()
	return errors.Join(errs...)
}

func (s *Server) logOriginPolicy() {
	origins := s.cfg.WebSocket.AllowedOrigins
	switch {
	case len(origins) == 0:
		s.log.Info("WebSocket CORS policy", "mode", "same-origin")
	case len(origins) == 1 && origins[0] == "*":
		s.log.Warn("WebSocket CORS allows all origins (not recommended for production)")
	default:
		s.log.Info("WebSocket CORS policy", "allowed_origins", origins)
	}
}

// Shutdown disconnects every subscriber and refuses new ones. Partitions stop
// when the context passed to Run is cancelled; their script engines are
// released once they have. Safe to call more than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.hub.Close()
		s.mu.Lock()
		if !s.running {
			s.closeEngines()
		}
		s.mu.Unlock()
		s.log.Info("Server shutdown complete")
	})
}

func (s *Server) closeEngines() {
	for _, e := range s.engines {
		e.Close()
	}
	s.engines = nil
}
