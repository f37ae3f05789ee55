package httpapi

import (
	"net/http"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
	jsonpkg "github.com/BrandonDHaskell/Portunus/doorsync/internal/pkg/json"
)

type controllerStatus struct {
	Controller types.Controller   `json:"controller"`
	Status     jsonpkg.RawMessage `json:"status"`
}

func (s *Server) handleListControllers(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, map[string]any{"controllers": s.registry.List()})
}

func (s *Server) handleControllerStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := controllerIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_controller_id", "controller id must be a positive integer")
		return
	}
	c, err := s.registry.Get(id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	raw, err := s.gateway.DeviceRaw(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, controllerStatus{Controller: c, Status: raw})
}

func (s *Server) handleReconcileAll(w http.ResponseWriter, r *http.Request) {
	summary := types.Summarize(s.reconciler.ReconcileAll(r.Context()))
	s.respond(w, r, http.StatusOK, summary)
}

func (s *Server) handleReconcileOne(w http.ResponseWriter, r *http.Request) {
	id, ok := controllerIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_controller_id", "controller id must be a positive integer")
		return
	}
	if _, err := s.registry.Get(id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	res := s.reconciler.Reconcile(r.Context(), id)
	status := http.StatusOK
	if res.Failed() {
		status = http.StatusBadGateway
	}
	s.respond(w, r, status, res)
}
