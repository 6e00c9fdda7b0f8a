// Package dashboard serves a read-only HTTP view of an agent: the current
// strategy state and projections, Prometheus metrics and a WebSocket stream
// of strategy events.
package dashboard

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rxtech-lab/argo-sizing/internal/agent"
	"github.com/rxtech-lab/argo-sizing/internal/codec"
	"github.com/rxtech-lab/argo-sizing/internal/logger"
	"github.com/rxtech-lab/argo-sizing/internal/types"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// Server is the dashboard HTTP server.
type Server struct {
	agent    *agent.Agent
	gatherer prometheus.Gatherer
	log      *logger.Logger
	upgrader websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates a dashboard for a. Metrics are served from gatherer.
func NewServer(a *agent.Agent, gatherer prometheus.Gatherer, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Server{
		agent:    a,
		gatherer: gatherer,
		log:      log,
		upgrader: websocket.Upgrader{ //nolint:exhaustruct
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		httpServer: nil,
		listener:   nil,
	}
}

// Router returns the dashboard routes.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api/strategy").Subrouter()
	api.HandleFunc("", s.handleStrategy).Methods("GET")
	api.HandleFunc("/diagnostics", s.handleDiagnostics).Methods("GET")
	api.HandleFunc("/budget", s.handleBudget).Methods("GET")
	api.HandleFunc("/chart", s.handleChart).Methods("GET")
	api.HandleFunc("/range", s.handleRange).Methods("GET")
	api.HandleFunc("/equilibrium", s.handleEquilibrium).Methods("GET")

	router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET") //nolint:exhaustruct
	router.HandleFunc("/ws", s.handleWebSocket)

	return router
}

// Start serves the dashboard on address. An empty address or ":0" picks a free port.
func (s *Server) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "failed to listen on %s", address)
	}

	s.listener = listener
	s.httpServer = &http.Server{ //nolint:exhaustruct
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Dashboard server failed", zap.Error(err))
		}
	}()

	s.log.Info("Dashboard listening", zap.String("address", listener.Addr().String()))

	return nil
}

// Address returns the listening address once started.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

type strategyResponse struct {
	BotID      string         `json:"bot_id"`
	StrategyID string         `json:"strategy_id"`
	Valid      bool           `json:"valid"`
	State      map[string]any `json:"state"`
}

func (s *Server) handleStrategy(w http.ResponseWriter, _ *http.Request) {
	st := s.agent.Strategy()

	writeJSON(w, http.StatusOK, strategyResponse{
		BotID:      s.agent.Config().BotID,
		StrategyID: string(st.ID()),
		Valid:      st.IsValid(),
		State:      codec.ToJSONSafe(st.ExportState()),
	})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, _ *http.Request) {
	diag := s.agent.Strategy().DumpStatePretty(s.agent.Config().Market)

	out := make([]map[string]any, 0, len(diag))
	for _, e := range diag {
		out = append(out, map[string]any{
			"label": e.Label,
			"value": codec.ToJSONSafe(types.StateValue{"v": e.Value})["v"],
		})
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBudget(w http.ResponseWriter, _ *http.Request) {
	b := s.agent.Strategy().GetBudgetInfo()

	writeJSON(w, http.StatusOK, codec.ToJSONSafe(types.StateValue{
		"total":  b.Total,
		"assets": b.Assets,
	}))
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	price, ok := positiveParam(w, r, "price")
	if !ok {
		return
	}

	p := s.agent.Strategy().CalcChart(price)

	out := codec.ToJSONSafe(types.StateValue{
		"price":    price,
		"position": p.Position,
		"budget":   p.Budget,
	})
	out["valid"] = p.Valid

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	assets, ok := floatParam(w, r, "assets")
	if !ok {
		return
	}

	currency, ok := floatParam(w, r, "currency")
	if !ok {
		return
	}

	rng := s.agent.Strategy().CalcSafeRange(s.agent.Config().Market, assets, currency)

	writeJSON(w, http.StatusOK, codec.ToJSONSafe(types.StateValue{
		"min": rng.Min,
		"max": rng.Max,
	}))
}

func (s *Server) handleEquilibrium(w http.ResponseWriter, r *http.Request) {
	assets, ok := floatParam(w, r, "assets")
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, codec.ToJSONSafe(types.StateValue{
		"assets": assets,
		"price":  s.agent.Strategy().GetEquilibrium(assets),
	}))
}

// handleWebSocket streams agent events until the client goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// subscribed before the handshake completes so no event is missed
	sub := s.agent.Subscribe()
	defer s.agent.Unsubscribe(sub)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("WebSocket upgrade failed", zap.Error(err))

		return
	}
	defer conn.Close()

	// the read pump only notices the client closing
	done := make(chan struct{})

	go func() {
		defer close(done)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-sub.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))

				return
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := conn.WriteJSON(eventMessage(ev)); err != nil {
				s.log.Debug("WebSocket write failed", zap.Error(err))

				return
			}
		}
	}
}

// eventMessage converts ev to a JSON-safe message.
func eventMessage(ev agent.Event) map[string]any {
	msg := map[string]any{
		"type":        ev.Type,
		"bot_id":      ev.BotID,
		"strategy_id": ev.StrategyID,
		"time":        ev.Time,
		"valid":       ev.Valid,
		"state":       ev.State,
	}

	if ev.Fill != nil {
		fill := codec.ToJSONSafe(types.StateValue{"price": ev.Fill.Price, "size": ev.Fill.Size})
		fill["id"] = ev.Fill.ID
		fill["time"] = ev.Fill.Time
		msg["fill"] = fill
	}

	if ev.Result != nil {
		msg["result"] = codec.ToJSONSafe(types.StateValue{
			"norm_profit":   ev.Result.NormProfit,
			"norm_accum":    ev.Result.NormAccum,
			"neutral_price": ev.Result.NeutralPrice,
			"open_price":    ev.Result.OpenPrice,
		})
	}

	return msg
}

func floatParam(w http.ResponseWriter, r *http.Request, name string) (float64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter "+name)

		return 0, false
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid query parameter "+name)

		return 0, false
	}

	return v, true
}

func positiveParam(w http.ResponseWriter, r *http.Request, name string) (float64, bool) {
	v, ok := floatParam(w, r, name)
	if ok && !(v > 0) {
		writeError(w, http.StatusBadRequest, name+" must be positive")

		return 0, false
	}

	return v, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
