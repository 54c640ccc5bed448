package v1

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sebastien-sq/ragserve/application/service"
	"github.com/sebastien-sq/ragserve/infrastructure/api/middleware"
	"github.com/sebastien-sq/ragserve/infrastructure/api/v1/dto"
)

// maxUploadBytes caps multipart document uploads.
const maxUploadBytes = 64 << 20

// Ingester indexes uploaded documents and manages the vector index.
type Ingester interface {
	Document(ctx context.Context, filename string, data []byte) (service.IngestResult, error)
	ClearIndex(ctx context.Context) error
}

// IngestRouter handles document ingestion and index management.
type IngestRouter struct {
	ingester Ingester
	logger   *slog.Logger
}

// NewIngestRouter creates an IngestRouter.
func NewIngestRouter(ingester Ingester, logger *slog.Logger) *IngestRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestRouter{ingester: ingester, logger: logger}
}

// Routes registers the ingestion endpoints.
func (rt *IngestRouter) Routes(r chi.Router) {
	r.Post("/ingest", rt.ingest)
	r.Delete("/index", rt.clearIndex)
}

func (rt *IngestRouter) ingest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.ErrorResponse{Error: middleware.ErrorBody{
			Status: http.StatusText(http.StatusBadRequest),
			Detail: "multipart field \"file\" is required",
		}})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, r, fmt.Errorf("read upload: %w", err), rt.logger)
		return
	}

	result, err := rt.ingester.Document(r.Context(), header.Filename, data)
	if err != nil {
		middleware.WriteError(w, r, err, rt.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, dto.IngestResponse{
		Source: result.Source(),
		Chunks: result.ChunkCount(),
	})
}

func (rt *IngestRouter) clearIndex(w http.ResponseWriter, r *http.Request) {
	if err := rt.ingester.ClearIndex(r.Context()); err != nil {
		middleware.WriteError(w, r, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "index cleared"})
}
