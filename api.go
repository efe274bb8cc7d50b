package horum

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/horum/internal/store"
)

// Handler returns the HTTP read surface consumed by the API layer and the
// scheduler. Authentication, billing and rate limiting belong to that
// outer layer; nothing here mutates the archive except keyword management
// and the explicit sweep trigger.
func (svc *Service) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/api/search", func(w http.ResponseWriter, req *http.Request) {
		query := req.URL.Query().Get("q")
		if query == "" {
			writeError(w, 400, errors.New("missing q parameter"))
			return
		}
		limit := queryInt(req, "limit", 50)
		offset := queryInt(req, "offset", 0)
		results, total, boards, err := svc.Search(req.Context(), query, limit, offset)
		if err != nil {
			writeError(w, 500, err)
			return
		}
		if results == nil {
			results = []store.SearchResult{}
		}
		writeJSON(w, 200, map[string]any{
			"results":      results,
			"total":        total,
			"board_counts": boards,
		})
	})

	r.Get("/api/boards", func(w http.ResponseWriter, req *http.Request) {
		boards, err := svc.Boards(req.Context())
		if err != nil {
			writeError(w, 500, err)
			return
		}
		if boards == nil {
			boards = []string{}
		}
		writeJSON(w, 200, map[string]any{"boards": boards})
	})

	r.Get("/api/boards/{board}/stats", func(w http.ResponseWriter, req *http.Request) {
		stats, err := svc.BoardStats(req.Context(), chi.URLParam(req, "board"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, err)
			return
		}
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, stats)
	})

	r.Get("/api/boards/{board}/threads/{threadID}", func(w http.ResponseWriter, req *http.Request) {
		threadID, err := strconv.ParseInt(chi.URLParam(req, "threadID"), 10, 64)
		if err != nil {
			writeError(w, 400, errors.New("invalid thread id"))
			return
		}
		page, err := svc.Thread(req.Context(), chi.URLParam(req, "board"), threadID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, err)
			return
		}
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, page)
	})

	r.Get("/api/stats", func(w http.ResponseWriter, req *http.Request) {
		stats, err := svc.GlobalStats(req.Context())
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, stats)
	})

	r.Get("/api/ingest", func(w http.ResponseWriter, req *http.Request) {
		boardsParam := req.URL.Query().Get("boards")
		if boardsParam == "" {
			writeError(w, 400, errors.New("missing boards parameter"))
			return
		}
		boards := strings.Split(boardsParam, ",")
		limit := queryInt(req, "limit", 20)
		minReplies := queryInt(req, "min_replies", 30)
		docs, err := svc.Ingest(req.Context(), boards, limit, minReplies)
		if err != nil {
			writeError(w, 500, err)
			return
		}
		if docs == nil {
			writeJSON(w, 200, []any{})
			return
		}
		writeJSON(w, 200, docs)
	})

	r.Get("/api/crawl-log", func(w http.ResponseWriter, req *http.Request) {
		entries, err := svc.CrawlLog(req.Context(), queryInt(req, "limit", 50))
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, entries)
	})

	r.Post("/api/sync", func(w http.ResponseWriter, req *http.Request) {
		if board := req.URL.Query().Get("board"); board != "" {
			summary, err := svc.SyncBoard(req.Context(), board)
			if err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, summary)
			return
		}
		summaries, err := svc.SyncAll(req.Context(), nil)
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, summaries)
	})

	r.Post("/api/sweep", func(w http.ResponseWriter, req *http.Request) {
		count, err := svc.Sweep(req.Context())
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, map[string]any{"status": "ok", "new_matches": count})
	})

	r.Route("/api/keywords", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			stats, err := svc.KeywordStats(req.Context(), req.URL.Query().Get("user"))
			if errors.Is(err, ErrInvalidInput) {
				writeError(w, 400, err)
				return
			}
			if err != nil {
				writeError(w, 500, err)
				return
			}
			if stats == nil {
				writeJSON(w, 200, []any{})
				return
			}
			writeJSON(w, 200, stats)
		})

		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				UserID  string `json:"user_id"`
				Keyword string `json:"keyword"`
				Label   string `json:"label"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, 400, err)
				return
			}
			if err := svc.Track(req.Context(), body.UserID, body.Keyword, body.Label); err != nil {
				if errors.Is(err, ErrInvalidInput) {
					writeError(w, 400, err)
					return
				}
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 201, map[string]string{"status": "tracking", "keyword": body.Keyword})
		})

		r.Delete("/{keyword}", func(w http.ResponseWriter, req *http.Request) {
			err := svc.Untrack(req.Context(), req.URL.Query().Get("user"), chi.URLParam(req, "keyword"))
			if errors.Is(err, ErrInvalidInput) {
				writeError(w, 400, err)
				return
			}
			if err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, map[string]string{"status": "removed"})
		})

		r.Get("/{keyword}/matches", func(w http.ResponseWriter, req *http.Request) {
			matches, err := svc.Matches(req.Context(), req.URL.Query().Get("user"), chi.URLParam(req, "keyword"))
			if errors.Is(err, ErrInvalidInput) {
				writeError(w, 400, err)
				return
			}
			if err != nil {
				writeError(w, 500, err)
				return
			}
			if matches == nil {
				writeJSON(w, 200, []any{})
				return
			}
			writeJSON(w, 200, matches)
		})

		r.Post("/{keyword}/read", func(w http.ResponseWriter, req *http.Request) {
			count, err := svc.MarkRead(req.Context(), req.URL.Query().Get("user"), chi.URLParam(req, "keyword"))
			if errors.Is(err, ErrInvalidInput) {
				writeError(w, 400, err)
				return
			}
			if err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, map[string]any{"status": "ok", "marked": count})
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
