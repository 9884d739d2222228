package http

import (
	"bytes"
	"encoding/csv"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/couchcryptid/nem12-statistics/internal/adapter/csvfile"
	"github.com/couchcryptid/nem12-statistics/internal/domain"
	"github.com/couchcryptid/nem12-statistics/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/google/uuid"
)

// convertHandler accepts a NEM12 body and answers with the statistics
// import CSV. The response is buffered so a fatal record error can still be
// reported with a proper status code.
type convertHandler struct {
	conv     Converter
	settings ConvertSettings
	logger   *slog.Logger
}

func (h *convertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	statisticID := r.URL.Query().Get("statistic_id")
	if statisticID == "" {
		statisticID = h.settings.StatisticID
	}

	importID := uuid.NewString()
	body := http.MaxBytesReader(w, r.Body, h.settings.MaxUploadBytes)

	var out bytes.Buffer
	sink := pipeline.MultiSink{csvfile.NewWriter(&out)}
	var store ImportStore
	if h.settings.NewStore != nil {
		store = h.settings.NewStore(importID)
		sink = append(sink, store)
	}

	summary, err := h.conv.Convert(r.Context(), csvfile.NewReader(body), sink, pipeline.Options{
		StatisticID:           statisticID,
		DefaultIntervalLength: h.settings.DefaultIntervalLength,
		Source:                "http",
		ImportID:              importID,
	})
	if err != nil {
		status := convertErrorStatus(err)
		h.logger.Warn("convert request failed", "import_id", importID, "status", status, "error", err)
		sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error(), "import_id": importID})
		return
	}

	if store != nil {
		if err := store.RecordImport(r.Context(), summary); err != nil {
			h.logger.Error("record import failed", "import_id", importID, "error", err)
			sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "record import failed", "import_id": importID})
			return
		}
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("X-Import-Id", importID)
	w.Header().Set("X-Conversion-Warnings", strconv.Itoa(len(summary.Warnings)))
	w.WriteHeader(http.StatusOK)
	w.Write(out.Bytes()) //nolint:errcheck // client went away
}

func convertErrorStatus(err error) int {
	var (
		tooLarge *http.MaxBytesError
		dateErr  *domain.DateFormatError
		parseErr *csv.ParseError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &dateErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &parseErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
