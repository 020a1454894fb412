// Package dashboard serves the sentiment dashboard: a dataset picker and
// JSON views over the dataset loaded into each browser session.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/IshaanNene/newsgoat/internal/analysis"
	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/nlp"
)

// Dashboard serves the analysis views.
type Dashboard struct {
	cfg        config.DashboardConfig
	nlpCfg     config.NLPConfig
	summarizer nlp.Summarizer
	sessions   *SessionStore
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewDashboard creates a dashboard. summarizer may be nil, which
// disables the summary view.
func NewDashboard(cfg *config.Config, summarizer nlp.Summarizer, logger *slog.Logger) *Dashboard {
	d := &Dashboard{
		cfg:        cfg.Dashboard,
		nlpCfg:     cfg.NLP,
		summarizer: summarizer,
		sessions:   NewSessionStore(cfg.Dashboard.SessionTTL),
		mux:        http.NewServeMux(),
		logger:     logger.With("component", "dashboard"),
	}
	d.registerRoutes()
	return d
}

// Handler returns the dashboard's HTTP handler.
func (d *Dashboard) Handler() http.Handler { return d.mux }

// Sessions exposes the session store.
func (d *Dashboard) Sessions() *SessionStore { return d.sessions }

// Start serves until ctx is cancelled.
func (d *Dashboard) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", d.cfg.Port),
		Handler:           d.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	d.logger.Info("dashboard starting", "addr", srv.Addr, "data_dir", d.cfg.DataDir)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (d *Dashboard) registerRoutes() {
	d.mux.HandleFunc("GET /{$}", d.handleIndex)
	d.mux.HandleFunc("GET /api/health", d.handleHealth)
	d.mux.HandleFunc("GET /api/datasets", d.handleDatasets)
	d.mux.HandleFunc("POST /api/session/load", d.handleLoad)
	d.mux.HandleFunc("GET /api/overview", d.handleOverview)
	d.mux.HandleFunc("GET /api/wordcloud", d.handleWordCloud)
	d.mux.HandleFunc("GET /api/similarity", d.handleSimilarity)
	d.mux.HandleFunc("GET /api/summary", d.handleSummary)
}

func (d *Dashboard) handleIndex(w http.ResponseWriter, r *http.Request) {
	d.sessions.Get(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(dashboardHTML))
}

func (d *Dashboard) handleHealth(w http.ResponseWriter, r *http.Request) {
	d.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

func (d *Dashboard) handleDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := analysis.ListDatasets(d.cfg.DataDir, d.cfg.DatasetPrefix)
	if err != nil {
		d.logger.Error("list datasets", "error", err)
		d.jsonError(w, http.StatusInternalServerError, "Data folder does not exist.")
		return
	}
	if datasets == nil {
		datasets = []analysis.DatasetInfo{}
	}
	d.jsonResponse(w, http.StatusOK, datasets)
}

// Overview is the dataset summary shown after loading.
type Overview struct {
	File         string                `json:"file"`
	Label        string                `json:"label"`
	Articles     []ArticleOption       `json:"articles"`
	Dropped      int                   `json:"dropped"`
	Distribution []analysis.LabelShare `json:"distribution"`
	MostPositive *analysis.Article     `json:"most_positive,omitempty"`
	MostNegative *analysis.Article     `json:"most_negative,omitempty"`
}

// ArticleOption is one entry of the article pickers.
type ArticleOption struct {
	Index int    `json:"index"`
	Title string `json:"title"`
}

func overview(ds *analysis.Dataset) Overview {
	ov := Overview{
		File:         ds.File,
		Label:        ds.Label,
		Dropped:      ds.Dropped,
		Distribution: ds.Distribution(),
		Articles:     make([]ArticleOption, 0, len(ds.Articles)),
	}
	for _, a := range ds.Articles {
		ov.Articles = append(ov.Articles, ArticleOption{Index: a.Index, Title: a.Title})
	}
	if a, ok := ds.Most(nlp.LabelPositive); ok {
		ov.MostPositive = &a
	}
	if a, ok := ds.Most(nlp.LabelNegative); ok {
		ov.MostNegative = &a
	}
	return ov
}

func (d *Dashboard) handleLoad(w http.ResponseWriter, r *http.Request) {
	var body struct {
		File string `json:"file"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		d.jsonError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.File == "" || filepath.Base(body.File) != body.File || !strings.HasSuffix(body.File, ".csv") {
		d.jsonError(w, http.StatusBadRequest, "invalid dataset name")
		return
	}

	sess := d.sessions.Get(w, r)
	ds, err := analysis.LoadDataset(filepath.Join(d.cfg.DataDir, body.File), d.cfg.DatasetPrefix)
	if err != nil {
		d.logger.Warn("load dataset failed", "file", body.File, "session", sess.ID, "error", err)
		d.jsonError(w, http.StatusUnprocessableEntity, fmt.Sprintf("An error occurred while processing the CSV file: %v", err))
		return
	}
	sess.SetDataset(ds)
	d.logger.Info("dataset loaded", "file", body.File, "session", sess.ID, "articles", len(ds.Articles))
	d.jsonResponse(w, http.StatusOK, overview(ds))
}

func (d *Dashboard) handleOverview(w http.ResponseWriter, r *http.Request) {
	ds, ok := d.dataset(w, r)
	if !ok {
		return
	}
	d.jsonResponse(w, http.StatusOK, overview(ds))
}

func (d *Dashboard) handleWordCloud(w http.ResponseWriter, r *http.Request) {
	ds, ok := d.dataset(w, r)
	if !ok {
		return
	}
	article, ok := d.article(w, r, ds, "article")
	if !ok {
		return
	}
	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	d.jsonResponse(w, http.StatusOK, map[string]any{
		"index": article.Index,
		"title": article.Title,
		"words": analysis.WordFrequencies(article.Content, limit),
	})
}

func (d *Dashboard) handleSimilarity(w http.ResponseWriter, r *http.Request) {
	ds, ok := d.dataset(w, r)
	if !ok {
		return
	}
	a, ok := d.article(w, r, ds, "a")
	if !ok {
		return
	}
	b, ok := d.article(w, r, ds, "b")
	if !ok {
		return
	}

	score, err := analysis.Similarity(a.Content, b.Content)
	if err != nil && !errors.Is(err, analysis.ErrEmptyVocabulary) {
		d.jsonError(w, http.StatusInternalServerError, "An error has occurred. Please contact your admin.")
		return
	}
	d.jsonResponse(w, http.StatusOK, map[string]any{
		"a":       a.Index,
		"b":       b.Index,
		"score":   score,
		"display": fmt.Sprintf("Cosine Similarity: %.2f", score),
	})
}

func (d *Dashboard) handleSummary(w http.ResponseWriter, r *http.Request) {
	if d.summarizer == nil {
		d.jsonError(w, http.StatusServiceUnavailable, "summarization is not configured")
		return
	}
	ds, ok := d.dataset(w, r)
	if !ok {
		return
	}
	article, ok := d.article(w, r, ds, "article")
	if !ok {
		return
	}

	text := nlp.Truncate(article.Content, d.nlpCfg.SummaryMaxChars)
	summary, err := d.summarizer.Summarize(r.Context(), text, d.nlpCfg.SummaryMaxLength, d.nlpCfg.SummaryMinLength)
	if err != nil {
		d.logger.Warn("summarization failed", "article", article.Index, "error", err)
		d.jsonError(w, http.StatusBadGateway, fmt.Sprintf("Error during summarization: %v", err))
		return
	}
	d.jsonResponse(w, http.StatusOK, map[string]any{
		"index":   article.Index,
		"title":   article.Title,
		"summary": summary,
	})
}

// dataset returns the session's dataset or writes a 409.
func (d *Dashboard) dataset(w http.ResponseWriter, r *http.Request) (*analysis.Dataset, bool) {
	ds := d.sessions.Get(w, r).Dataset()
	if ds == nil {
		d.jsonError(w, http.StatusConflict, "no dataset loaded")
		return nil, false
	}
	return ds, true
}

// article resolves ?<param>=index, or ?title= when param is "article".
func (d *Dashboard) article(w http.ResponseWriter, r *http.Request, ds *analysis.Dataset, param string) (analysis.Article, bool) {
	q := r.URL.Query()
	if raw := q.Get(param); raw != "" {
		i, err := strconv.Atoi(raw)
		if err != nil {
			d.jsonError(w, http.StatusBadRequest, fmt.Sprintf("%s must be an article index", param))
			return analysis.Article{}, false
		}
		a, err := ds.Article(i)
		if err != nil {
			d.jsonError(w, http.StatusNotFound, err.Error())
			return analysis.Article{}, false
		}
		return a, true
	}
	if title := q.Get("title"); title != "" && param == "article" {
		a, err := ds.ArticleByTitle(title)
		if err != nil {
			d.jsonError(w, http.StatusNotFound, err.Error())
			return analysis.Article{}, false
		}
		return a, true
	}
	d.jsonError(w, http.StatusBadRequest, fmt.Sprintf("missing %s parameter", param))
	return analysis.Article{}, false
}

func (d *Dashboard) jsonError(w http.ResponseWriter, status int, msg string) {
	d.jsonResponse(w, status, map[string]string{"error": msg})
}

func (d *Dashboard) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
