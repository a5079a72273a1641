package relay

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/boardstream/project/internal/contracts"
	"github.com/boardstream/project/internal/platform/auth"
	"github.com/boardstream/project/internal/platform/metrics"
)

type Server struct {
	Auth   auth.Manager
	Oracle MembershipOracle
	Rooms  *Rooms
	Log    *zap.Logger

	connected *metrics.Gauge
	eventsIn  *metrics.CounterVec
}

func NewServer(authManager auth.Manager, oracle MembershipOracle, log *zap.Logger) *Server {
	connected := metrics.NewGauge(metrics.Opts{
		Name: "relay_connected_sockets",
		Help: "Currently connected websocket sessions.",
	})
	eventsIn := metrics.NewCounterVec(metrics.Opts{
		Name: "relay_events_total",
		Help: "Events accepted on the broadcast ingress.",
	}, []string{"event"})
	metrics.Default.MustRegister(connected, eventsIn)

	return &Server{
		Auth:      authManager,
		Oracle:    oracle,
		Rooms:     NewRooms(),
		Log:       log,
		connected: connected,
		eventsIn:  eventsIn,
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", metrics.DefaultHandler())

	r.Get("/socket", s.handleSocket)
	r.Post("/broadcast", s.handleBroadcast)
	return r
}

// handleBroadcast is the trusted ingress for the API tier. An event with a
// board id goes to that room only; without one it reaches every socket.
func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req contracts.BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Event == "" {
		http.Error(w, "event is required", http.StatusBadRequest)
		return
	}

	var delivered int
	if req.BoardID == "" {
		delivered = s.Rooms.EmitAll(req.Event, req.Data)
	} else {
		delivered = s.Rooms.Emit(req.BoardID, req.Event, req.Data)
	}
	if s.eventsIn != nil {
		s.eventsIn.WithLabelValues(req.Event).Inc()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]int{"delivered": delivered})
}
