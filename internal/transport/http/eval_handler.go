package http

import (
	"net/http"

	"debate-lab-service/internal/domain"
)

type scoreRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

type logsRequest struct {
	Logs []domain.LogLine `json:"logs" validate:"required,min=1"`
}

type debateTurnRequest struct {
	Topic   string               `json:"topic" validate:"required"`
	History []domain.ChatMessage `json:"history"`
	Text    string               `json:"text" validate:"required,max=4000"`
}

type debateTurnResponse struct {
	Reply string `json:"reply"`
}

func (a *API) score(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	score, err := a.eval.Score(r.Context(), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (a *API) report(w http.ResponseWriter, r *http.Request) {
	var req logsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	report, err := a.eval.Report(r.Context(), req.Logs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) portfolio(w http.ResponseWriter, r *http.Request) {
	var req logsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	portfolio, err := a.eval.Portfolio(r.Context(), req.Logs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, portfolio)
}

func (a *API) debateTurn(w http.ResponseWriter, r *http.Request) {
	var req debateTurnRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply, err := a.eval.DebateTurn(r.Context(), req.Topic, req.History, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, debateTurnResponse{Reply: reply})
}
