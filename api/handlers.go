package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/sim"
	"github.com/rustyeddy/papertrade/store"
	"github.com/rustyeddy/papertrade/strategy"
)

type startRequest struct {
	ID                  string          `json:"id,omitempty"`
	Symbol              string          `json:"symbol"`
	Strategy            string          `json:"strategy"`
	Parameters          strategy.Params `json:"parameters,omitempty"`
	InitialBalance      float64         `json:"initial_balance"`
	TickIntervalSeconds float64         `json:"tick_interval_seconds,omitempty"`
}

type startResponse struct {
	SimulationID string `json:"simulation_id"`
}

type simulationResponse struct {
	ID             string     `json:"id"`
	Symbol         string     `json:"symbol"`
	Strategy       string     `json:"strategy"`
	Status         string     `json:"status"`
	InitialBalance float64    `json:"initial_balance"`
	CurrentBalance float64    `json:"current_balance"`
	TotalTrades    int        `json:"total_trades"`
	WinRate        float64    `json:"win_rate"`
	ProfitLoss     float64    `json:"profit_loss"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
}

type tradeResponse struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Quantity   int64     `json:"quantity"`
	Price      float64   `json:"price"`
	Time       time.Time `json:"time"`
	RealizedPL *float64  `json:"realized_pl,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := sim.Config{
		ID:             req.ID,
		Symbol:         req.Symbol,
		Strategy:       req.Strategy,
		Params:         req.Parameters,
		InitialBalance: req.InitialBalance,
		TickInterval:   time.Duration(req.TickIntervalSeconds * float64(time.Second)),
	}

	simID, err := s.registry.Start(r.Context(), cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, startResponse{SimulationID: simID})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	simID := mux.Vars(r)["id"]

	if err := s.registry.Stop(r.Context(), simID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "simulation not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	simID := mux.Vars(r)["id"]

	st, err := s.registry.Status(r.Context(), simID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "simulation not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toSimulationResponse(st))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	states, err := s.registry.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]simulationResponse, 0, len(states))
	for _, st := range states {
		out = append(out, toSimulationResponse(st))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	simID := mux.Vars(r)["id"]

	if _, err := s.registry.Status(r.Context(), simID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "simulation not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	trades, err := s.st.ListTrades(r.Context(), simID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]tradeResponse, 0, len(trades))
	for _, tr := range trades {
		out = append(out, toTradeResponse(tr))
	}
	writeJSON(w, http.StatusOK, out)
}

func toSimulationResponse(st store.SimulationState) simulationResponse {
	return simulationResponse{
		ID:             st.ID,
		Symbol:         st.Symbol,
		Strategy:       st.Strategy,
		Status:         string(st.Status),
		InitialBalance: st.InitialBalance,
		CurrentBalance: st.CurrentBalance,
		TotalTrades:    st.TotalTrades,
		WinRate:        st.WinRate,
		ProfitLoss:     st.ProfitLoss,
		StartTime:      st.StartTime,
		EndTime:        st.EndTime,
		LastError:      st.LastError,
	}
}

func toTradeResponse(tr ledger.Trade) tradeResponse {
	return tradeResponse{
		ID:         tr.ID,
		Symbol:     tr.Symbol,
		Side:       string(tr.Side),
		Quantity:   tr.Quantity,
		Price:      tr.Price,
		Time:       tr.Time,
		RealizedPL: tr.RealizedPL,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
