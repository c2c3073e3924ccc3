package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/lanelab/frameview/internal/history"
	"github.com/lanelab/frameview/internal/httputil"
	"github.com/lanelab/frameview/internal/security"
)

// maxUploadBytes caps uploaded CSV size (64MB).
const maxUploadBytes = 64 << 20

// handleUpload accepts a multipart CSV upload and starts a new table
// session over it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("missing file field: %v", err))
		return
	}
	defer file.Close()

	if err := s.session.Upload(file); err != nil {
		s.record(history.KindUpload, header.Filename, 0, err)
		httputil.BadRequest(w, fmt.Sprintf("upload failed: %v", err))
		return
	}
	view, err := s.session.CurrentView()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	s.record(history.KindUpload, header.Filename, view.TotalRows, nil)
	httputil.WriteJSONOK(w, view)
}

// handleTable returns the current page of the working table. Optional
// query params page and rows update pagination before rendering.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	if p := q.Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil {
			s.session.SetPage(page)
		}
	}
	if rp := q.Get("rows"); rp != "" {
		rows, err := strconv.Atoi(rp)
		if err != nil {
			httputil.BadRequest(w, "rows must be an integer")
			return
		}
		if err := s.session.SetRowsPerPage(rows); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
	}
	view, err := s.session.CurrentView()
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, view)
}

type sqlRequest struct {
	Query string `json:"query"`
}

// handleApplySQL replaces the working table with the query result. The
// engine's error text is surfaced verbatim; the table is untouched on
// failure.
func (s *Server) handleApplySQL(w http.ResponseWriter, r *http.Request) {
	s.runSQL(w, r, history.KindApplySQL, s.session.ApplySQL)
}

// handleAddColumn runs the query against the current table so computed
// columns stack on earlier transformations.
func (s *Server) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	s.runSQL(w, r, history.KindAddColumn, s.session.AddComputedColumn)
}

func (s *Server) runSQL(w http.ResponseWriter, r *http.Request, kind string, run func(ctx context.Context, q string) error) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req sqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("bad request body: %v", err))
		return
	}
	if err := run(r.Context(), req.Query); err != nil {
		s.record(kind, req.Query, 0, err)
		httputil.BadRequest(w, fmt.Sprintf("SQL error: %v", err))
		return
	}
	view, err := s.session.CurrentView()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	s.record(kind, req.Query, view.TotalRows, nil)
	httputil.WriteJSONOK(w, view)
}

// handleReset restores the working table to the original upload.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if err := s.session.Reset(); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	view, err := s.session.CurrentView()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, view)
}

type labelRequest struct {
	FrameID string `json:"frame_id"`
	Label   string `json:"label"`
}

// handleSetLabel stores a frame label. The label file is rewritten
// immediately so a crash never loses an edit.
func (s *Server) handleSetLabel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req labelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("bad request body: %v", err))
		return
	}
	if req.FrameID == "" {
		httputil.BadRequest(w, "frame_id is required")
		return
	}
	if err := s.session.SetLabel(req.FrameID, req.Label); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"frame_id": req.FrameID, "label": req.Label})
}

type displayRequest struct {
	Column string `json:"column"`
	Type   string `json:"type"`
	Label  string `json:"label"`
}

func (s *Server) handleSetDisplayType(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req displayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("bad request body: %v", err))
		return
	}
	if err := s.session.SetDisplayType(req.Column, req.Type); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"column": req.Column, "type": req.Type})
}

func (s *Server) handleSetColumnLabel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req displayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("bad request body: %v", err))
		return
	}
	if req.Column == "" {
		httputil.BadRequest(w, "column is required")
		return
	}
	s.session.SetColumnLabel(req.Column, req.Label)
	httputil.WriteJSONOK(w, map[string]string{"column": req.Column, "label": req.Label})
}

type sortRequest struct {
	Column string `json:"column"`
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req sortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("bad request body: %v", err))
		return
	}
	if req.Column == "" {
		httputil.BadRequest(w, "column is required")
		return
	}
	s.session.ToggleSort(req.Column)
	view, err := s.session.CurrentView()
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, view)
}

type exportRequest struct {
	FileName string `json:"file_name"`
}

// handleExport writes the labeled CSV and copies images. Missing source
// images are reported in the result counts, not treated as failures.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("bad request body: %v", err))
		return
	}
	if req.FileName == "" {
		req.FileName = "labeled_table.csv"
	}
	t := s.session.Current()
	if t == nil {
		httputil.BadRequest(w, "no table loaded")
		return
	}
	res, err := s.exporter.Run(t, s.session.ModelVersions(), req.FileName)
	if err != nil {
		s.record(history.KindExport, req.FileName, 0, err)
		httputil.BadRequest(w, fmt.Sprintf("export failed: %v", err))
		return
	}
	// Chart rendering is best-effort; the CSV already exists.
	if histPath, err := s.exporter.WriteDiffHistogram(t, req.FileName); err == nil && histPath != "" {
		res.HistogramPath = histPath
	}
	s.record(history.KindExport, req.FileName, t.Len(), nil)
	httputil.WriteJSONOK(w, res)
}

// handleImage serves an image referenced by a table cell. Paths are
// validated against the configured roots; anything else is rejected.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		httputil.BadRequest(w, "path is required")
		return
	}
	if err := security.ValidatePathWithinAllowedDirs(path, s.imageRoots); err != nil {
		httputil.WriteJSONError(w, http.StatusForbidden, err.Error())
		return
	}
	http.ServeFile(w, r, path)
}

// handleHistory lists recent session history entries.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.history == nil {
		httputil.WriteJSONOK(w, []history.Record{})
		return
	}
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil {
			limit = v
		}
	}
	records, err := s.history.Recent(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to read history: %v", err))
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	httputil.WriteJSONOK(w, records)
}
