package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
	jsonpkg "github.com/BrandonDHaskell/Portunus/doorsync/internal/pkg/json"
)

// maxImportBody caps the size of an import document.
const maxImportBody = 64 << 20

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.archive.Export(r.Context(), boolQuery(r, "include_events"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	name := fmt.Sprintf("doorsync_export_%s.json", doc.Metadata.Timestamp.Format("20060102_150405"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	s.respond(w, r, http.StatusOK, doc)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "import document too large")
		return
	}

	var req types.ImportRequest
	if err := jsonpkg.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	start := time.Now()
	res, err := s.archive.Import(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logger.WithField("dur", time.Since(start).String()).Debug("import handled")
	s.respond(w, r, http.StatusOK, res)
}
