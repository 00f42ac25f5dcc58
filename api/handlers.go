package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/aluiziolira/go-books-api/dataset"
	"github.com/aluiziolira/go-books-api/predict"
	"github.com/aluiziolira/go-books-api/query"
)

// Handler wires the HTTP surface to the snapshot store, the prediction
// intake, and the auth shell.
type Handler struct {
	store   *dataset.Store
	intake  *predict.Intake
	auth    *Auth
	metrics *Metrics
}

// NewHandler builds the handler set.
func NewHandler(store *dataset.Store, intake *predict.Intake, auth *Auth, metrics *Metrics) *Handler {
	return &Handler{store: store, intake: intake, auth: auth, metrics: metrics}
}

func (h *Handler) engine() *query.Engine {
	ds := h.store.Snapshot()
	if h.metrics != nil && ds != nil {
		h.metrics.SetDatasetRows(len(ds.Records))
	}
	return query.NewEngine(ds)
}

// respondQueryError maps engine errors onto the transport taxonomy.
func respondQueryError(w http.ResponseWriter, err error) {
	var notFound query.NotFoundError
	var invalid query.InvalidArgumentError
	switch {
	case errors.Is(err, query.ErrDataUnavailable):
		respondError(w, http.StatusServiceUnavailable, "dataset unavailable")
	case errors.As(err, &notFound):
		respondError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &invalid):
		respondError(w, http.StatusBadRequest, invalid.Error())
	default:
		slog.Error("query failed", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parameter %q must be an integer", name)
	}
	return v, nil
}

func queryFloat(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("parameter %q must be numeric", name)
	}
	return &v, nil
}

func pageParams(r *http.Request, defaultSize int) (query.Page, error) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		return query.Page{}, err
	}
	size, err := queryInt(r, "size", defaultSize)
	if err != nil {
		return query.Page{}, err
	}
	return query.Page{Page: page, Size: size}, nil
}

// Health reports loader state: 200 when the dataset is loaded with all
// required columns, 503 (degraded) otherwise.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	details := h.store.Health()
	ok := details.Exists && details.Rows > 0 && details.ColumnsRequiredOK

	status := "ok"
	code := http.StatusOK
	if !ok {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]interface{}{
		"status":  status,
		"details": details,
	})
}

// ListBooks lists books, optionally filtered by the "q" title substring.
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	p, err := pageParams(r, query.DefaultPageSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.engine().List(r.URL.Query().Get("q"), p)
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// BookDetail returns the full field set of one book by id.
func (h *Handler) BookDetail(w http.ResponseWriter, r *http.Request) {
	record, err := h.engine().Detail(chi.URLParam(r, "id"))
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// SearchBooks filters by title and/or category substrings.
func (h *Handler) SearchBooks(w http.ResponseWriter, r *http.Request) {
	p, err := pageParams(r, query.DefaultPageSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	result, err := h.engine().Search(q.Get("title"), q.Get("category"), p)
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Categories lists distinct category values.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine().Categories()
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// PriceRange filters books by an inclusive price interval.
func (h *Handler) PriceRange(w http.ResponseWriter, r *http.Request) {
	min, err := queryFloat(r, "min")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	max, err := queryFloat(r, "max")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := pageParams(r, query.DefaultPageSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.engine().PriceRange(min, max, p)
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// TopRated lists the highest-rated books.
func (h *Handler) TopRated(w http.ResponseWriter, r *http.Request) {
	minRating, err := queryInt(r, "min_rating", query.DefaultTopRatedMin)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", query.DefaultTopRatedSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.engine().TopRated(minRating, limit, r.URL.Query().Get("category"))
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// StatsCategories returns the per-category aggregate statistics.
func (h *Handler) StatsCategories(w http.ResponseWriter, r *http.Request) {
	minCount, err := queryInt(r, "min_count", 1)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	result, err := h.engine().CategoryStats(query.CategoryStatsParams{
		MinCount: minCount,
		Sort:     q.Get("sort"),
		Order:    q.Get("order"),
	})
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// StatsOverview returns the collection-wide statistics.
func (h *Handler) StatsOverview(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine().Overview()
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// MLFeatures returns one page of derived feature vectors.
func (h *Handler) MLFeatures(w http.ResponseWriter, r *http.Request) {
	p, err := pageParams(r, query.DefaultPageSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.engine().FeaturesPage(p)
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// MLTrainingData returns one page of labeled training rows.
func (h *Handler) MLTrainingData(w http.ResponseWriter, r *http.Request) {
	p, err := pageParams(r, query.DefaultPageSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.engine().TrainingDataPage(p)
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// SubmitPredictions validates and persists a prediction batch.
func (h *Handler) SubmitPredictions(w http.ResponseWriter, r *http.Request) {
	var batch predict.Batch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.intake.Submit(batch)
	if err != nil {
		if errors.Is(err, predict.ErrMalformedBatch) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("prediction intake failed", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "failed to persist predictions")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// TriggerScraping is the admin stub kept from the original surface; in
// production it would enqueue the ETL job.
func (h *Handler) TriggerScraping(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusAccepted, map[string]string{
		"msg": "trigger received (stub); run the scraper and cleaner jobs to refresh the dataset",
	})
}

// ReloadDataset swaps in a freshly loaded snapshot.
func (h *Handler) ReloadDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.store.Reload()
	if err != nil {
		slog.Error("dataset reload failed", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "reload failed")
		return
	}
	if ds == nil {
		respondError(w, http.StatusServiceUnavailable, "dataset unavailable")
		return
	}
	if h.metrics != nil {
		h.metrics.SetDatasetRows(len(ds.Records))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "reloaded",
		"rows":   len(ds.Records),
	})
}
