package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/service"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/gateway"
	jsonpkg "github.com/BrandonDHaskell/Portunus/doorsync/internal/pkg/json"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := jsonpkg.Marshal(v)
	if err != nil {
		http.Error(w, "json marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

// respond writes v as JSON, or as a protobuf Value when the client asks for
// one.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if wantsProtobuf(r) {
		pv, err := toProtoValue(v)
		if err != nil {
			s.logger.WithError(err).Error("protobuf conversion failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}
		writeProto(w, status, pv)
		return
	}
	writeJSON(w, status, v)
}

// writeServiceError maps domain errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownController):
		writeError(w, http.StatusNotFound, "unknown_controller", err.Error())
	case errors.Is(err, service.ErrNoEvents):
		writeError(w, http.StatusNotFound, "no_events", err.Error())
	case errors.Is(err, service.ErrInvalidPage):
		writeError(w, http.StatusBadRequest, "invalid_page", err.Error())
	case errors.Is(err, service.ErrInvalidImportMode):
		writeError(w, http.StatusBadRequest, "invalid_mode", err.Error())
	case errors.Is(err, service.ErrMissingImportData):
		writeError(w, http.StatusBadRequest, "missing_data", err.Error())
	case errors.Is(err, gateway.ErrNotFound):
		writeError(w, http.StatusNotFound, "upstream_not_found", err.Error())
	case errors.Is(err, gateway.ErrUpstream):
		writeError(w, http.StatusBadGateway, "upstream_error", err.Error())
	default:
		s.logger.WithError(err).WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}

func controllerIDParam(r *http.Request) (uint32, bool) {
	n, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint32(n), true
}

// intQuery returns def when the parameter is absent.
func intQuery(r *http.Request, name string, def int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func uint32Query(r *http.Request, name string) (uint32, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

func boolQuery(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}
