package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type enqueueRequest struct {
	ClassCode string `json:"classCode" validate:"required"`
	StudentID string `json:"studentId" validate:"required"`
	Nickname  string `json:"nickname" validate:"max=40"`
}

type dequeueRequest struct {
	ClassCode string `json:"classCode" validate:"required"`
	StudentID string `json:"studentId" validate:"required"`
}

type matchRequest struct {
	ClassCode string `json:"classCode" validate:"required"`
}

type roundRequest struct {
	BattleID  string `json:"battleId" validate:"required"`
	StudentID string `json:"studentId" validate:"required"`
	Text      string `json:"text" validate:"required,max=4000"`
}

type queuedResponse struct {
	Queued bool `json:"queued"`
}

func (a *API) enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := actingAs(r, req.StudentID); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.battles.Enqueue(r.Context(), req.ClassCode, req.StudentID, req.Nickname); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, queuedResponse{Queued: true})
}

func (a *API) dequeue(w http.ResponseWriter, r *http.Request) {
	var req dequeueRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := actingAs(r, req.StudentID); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.battles.Dequeue(r.Context(), req.ClassCode, req.StudentID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, queuedResponse{Queued: false})
}

func (a *API) match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := a.battles.Match(r.Context(), req.ClassCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) submitRound(w http.ResponseWriter, r *http.Request) {
	var req roundRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := actingAs(r, req.StudentID); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := a.battles.SubmitRound(r.Context(), req.BattleID, req.StudentID, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) getBattle(w http.ResponseWriter, r *http.Request) {
	battle, err := a.battles.GetBattle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, battle)
}
