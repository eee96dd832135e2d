package app

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"

	"gadgetsync/internal/pipeline/business/models"
	"gadgetsync/internal/pipeline/storage"
	"gadgetsync/internal/sheets"
	"gadgetsync/metrics"
	"gadgetsync/pkg/logger"
	"gadgetsync/pkg/middleware"
)

// Server exposes the pipeline's job and review endpoints.
type Server struct {
	dispatcher *Dispatcher
	staging    *storage.StagingStore
	jobStatus  *storage.JobStatusStore
	alerts     *storage.AlertStore
	log        logger.Logger
}

func NewServer(dispatcher *Dispatcher, staging *storage.StagingStore,
	jobStatus *storage.JobStatusStore, alerts *storage.AlertStore, log logger.Logger) *Server {
	return &Server{
		dispatcher: dispatcher,
		staging:    staging,
		jobStatus:  jobStatus,
		alerts:     alerts,
		log:        log,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/import", s.handleImport)
	mux.HandleFunc("/api/refresh", s.handleRefresh)
	mux.HandleFunc("/api/sync", s.handleSync)
	mux.HandleFunc("/api/job", s.handleJobStatus)
	mux.HandleFunc("/api/staging", s.handleStaging)
	mux.HandleFunc("/api/alerts", s.handleAlerts)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	return middleware.Prometheus(mux)
}

// Run blocks serving HTTP on addr.
func (s *Server) Run(addr string) error {
	s.log.Log("listening on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

type importRequest struct {
	SheetURL string `json:"sheet_url"`
}

type jobResponse struct {
	JobID string `json:"job_id"`
}

// handleImport dispatches an import job. The sheet comes in either as a
// published-sheet URL in a JSON body, or as an uploaded XLSX file in a
// multipart form under the "file" field.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var source sheets.Source
	if mt := r.Header.Get("Content-Type"); len(mt) >= 19 && mt[:19] == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file field", http.StatusBadRequest)
			return
		}
		defer file.Close()

		tmp, err := os.CreateTemp("", "import-*.xlsx")
		if err != nil {
			http.Error(w, "could not store upload", http.StatusInternalServerError)
			return
		}
		if _, err := io.Copy(tmp, file); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			http.Error(w, "could not store upload", http.StatusInternalServerError)
			return
		}
		tmp.Close()
		source = sheets.NewXLSXSource(tmp.Name(), "")
	} else {
		var req importRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SheetURL == "" {
			http.Error(w, "sheet_url is required", http.StatusBadRequest)
			return
		}
		source = sheets.NewHTMLSource(req.SheetURL)
	}

	jobID := s.dispatcher.StartImport(source)
	writeJSON(w, http.StatusAccepted, jobResponse{JobID: jobID})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusAccepted, jobResponse{JobID: s.dispatcher.StartRefresh()})
}

type syncRequest struct {
	JobID string `json:"job_id"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID == "" {
		http.Error(w, "job_id is required", http.StatusBadRequest)
		return
	}

	switch err := s.dispatcher.StartSync(req.JobID); err {
	case nil:
		writeJSON(w, http.StatusAccepted, jobResponse{JobID: req.JobID})
	case storage.ErrNotFound:
		http.Error(w, "no staged rows for this job (expired or never imported)", http.StatusNotFound)
	case ErrSyncInFlight:
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jobID := r.URL.Query().Get("id")
	if jobID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	job, err := s.jobStatus.Get(jobID)
	if err == storage.ErrNotFound {
		http.Error(w, "unknown job", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type stagingUpdateRequest struct {
	JobID string             `json:"job_id"`
	Rows  []models.ImportRow `json:"rows"`
}

// handleStaging reads or replaces a job's staged rows. The reviewer edits
// actions and linked ids in place; resolution is not re-run.
func (s *Server) handleStaging(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		jobID := r.URL.Query().Get("job_id")
		if jobID == "" {
			http.Error(w, "job_id is required", http.StatusBadRequest)
			return
		}
		rows, err := s.staging.GetStaged(jobID)
		if err == storage.ErrNotFound {
			http.Error(w, "no staged rows for this job", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, rows)

	case http.MethodPut:
		var req stagingUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID == "" {
			http.Error(w, "job_id and rows are required", http.StatusBadRequest)
			return
		}
		if err := s.staging.UpdateStaged(req.JobID, req.Rows); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"rows": len(req.Rows)})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var sub storage.AlertSubscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, "invalid subscription", http.StatusBadRequest)
		return
	}
	if err := s.alerts.Subscribe(sub); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
