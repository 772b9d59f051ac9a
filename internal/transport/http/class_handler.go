package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type createClassRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type setTopicRequest struct {
	Topic string `json:"topic" validate:"max=500"`
}

func (a *API) createClass(w http.ResponseWriter, r *http.Request) {
	var req createClassRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	class, err := a.classes.CreateClass(r.Context(), currentUser(r), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, class)
}

func (a *API) getClass(w http.ResponseWriter, r *http.Request) {
	class, err := a.classes.GetClass(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, class)
}

func (a *API) joinClass(w http.ResponseWriter, r *http.Request) {
	class, err := a.classes.JoinClass(r.Context(), chi.URLParam(r, "code"), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, class)
}

func (a *API) setTopic(w http.ResponseWriter, r *http.Request) {
	var req setTopicRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	class, err := a.classes.SetCommonTopic(r.Context(), chi.URLParam(r, "code"), currentUser(r), req.Topic)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, class)
}

func (a *API) ranking(w http.ResponseWriter, r *http.Request) {
	ranking, err := a.classes.Ranking(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}
