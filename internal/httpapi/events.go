package httpapi

import (
	"net/http"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/service"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/store"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
)

func (s *Server) handleEventsPage(w http.ResponseWriter, r *http.Request) {
	id, ok := controllerIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_controller_id", "controller id must be a positive integer")
		return
	}
	page, ok := intQuery(r, "page", 1)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_page", "page must be an integer")
		return
	}
	perPage, ok := intQuery(r, "per_page", service.DefaultPerPage)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_per_page", "per_page must be an integer")
		return
	}

	res, err := s.events.Page(r.Context(), id, page, perPage)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, res)
}

func (s *Server) handleLastEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := controllerIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_controller_id", "controller id must be a positive integer")
		return
	}

	last, etag, err := s.events.Last(r.Context(), id, r.Header.Get("If-None-Match"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if last == nil {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	s.respond(w, r, http.StatusOK, last)
}

func (s *Server) handleQueryEvents(w http.ResponseWriter, r *http.Request) {
	var f types.EventFilter
	var ok bool

	if f.ControllerID, ok = uint32Query(r, "controller_id"); !ok {
		writeError(w, http.StatusBadRequest, "invalid_query", "controller_id must be an unsigned integer")
		return
	}
	if f.CardNumber, ok = uint32Query(r, "card_number"); !ok {
		writeError(w, http.StatusBadRequest, "invalid_query", "card_number must be an unsigned integer")
		return
	}
	if f.DoorID, ok = intQuery(r, "door_id", 0); !ok {
		writeError(w, http.StatusBadRequest, "invalid_query", "door_id must be an integer")
		return
	}
	if f.Limit, ok = intQuery(r, "limit", store.DefaultQueryLimit); !ok {
		writeError(w, http.StatusBadRequest, "invalid_query", "limit must be an integer")
		return
	}
	if f.Offset, ok = intQuery(r, "offset", 0); !ok {
		writeError(w, http.StatusBadRequest, "invalid_query", "offset must be an integer")
		return
	}
	f = store.NormalizeFilter(f)

	rows, total, err := s.eventLog.Query(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if rows == nil {
		rows = []types.EventRecord{}
	}
	s.respond(w, r, http.StatusOK, types.EventQueryResult{
		Count:  len(rows),
		Total:  total,
		Limit:  f.Limit,
		Offset: f.Offset,
		Events: rows,
	})
}
