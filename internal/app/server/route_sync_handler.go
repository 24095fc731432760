package server

import (
	"errors"
	"net/http"
	"strconv"

	"holesync/internal/history"
	"holesync/internal/syncer"
)

type syncHandlers struct {
	service *syncer.Service
}

func (h *syncHandlers) getStatus(w http.ResponseWriter, r *http.Request) {
	report := h.service.LastReport()
	if report == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "no runs yet"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *syncHandlers) triggerSync(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Run(r.Context(), "manual")
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *syncHandlers) listHistory(w http.ResponseWriter, r *http.Request) {
	store := h.service.History()
	if store == nil {
		writeError(w, "history is disabled", http.StatusNotFound)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *syncHandlers) getHistoryRun(w http.ResponseWriter, r *http.Request) {
	store := h.service.History()
	if store == nil {
		writeError(w, "history is disabled", http.StatusNotFound)
		return
	}

	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, "invalid run id", http.StatusBadRequest)
		return
	}

	record, err := store.GetRun(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	report, err := record.Report()
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
