// Package server implements the one HTTP contract route named in spec §6:
// GET /paths/{source_id}/{target_id}. Grounded on the teacher's serve.go
// handler shape (query, marshal, write JSON; log and map errors to status
// codes), ported from net/http.ServeMux query-string routing to
// github.com/julienschmidt/httprouter path-parameter routing since the
// contract here specifies path segments, not query parameters.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/hut8/wikiwalk/internal/bfs"
	"github.com/hut8/wikiwalk/internal/graphdb"
	"github.com/hut8/wikiwalk/internal/pathcache"
	"github.com/hut8/wikiwalk/internal/wikierr"
	"github.com/hut8/wikiwalk/internal/wikiid"
)

// Server answers the /paths contract route against one Graph DB
// generation, through the Path Cache.
type Server struct {
	Graph   *graphdb.GraphDB
	Cache   *pathcache.Cache
	Timeout time.Duration
	Logger  *log.Logger
}

// pathsResponse is the JSON shape spec §6 names for the contract route.
type pathsResponse struct {
	Paths    [][]wikiid.PageID `json:"paths"`
	Degrees  int               `json:"degrees"`
	Count    int               `json:"count"`
	Duration int64             `json:"duration"`
}

// Handler returns the configured httprouter.Router for this server.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/paths/:source_id/:target_id", s.handlePaths)
	return router
}

func (s *Server) handlePaths(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	source := wikiid.ParsePageID(ps.ByName("source_id"))
	target := wikiid.ParsePageID(ps.ByName("target_id"))
	if source == wikiid.Null || target == wikiid.Null {
		http.Error(w, "source_id and target_id must be page IDs", http.StatusBadRequest)
		return
	}

	start := time.Now()
	key := pathcache.Key{Source: source, Target: target}
	result, err := s.Cache.Get(r.Context(), key, func(ctx context.Context, key pathcache.Key) (bfs.Result, error) {
		return bfs.Search(ctx, s.Graph, key.Source, key.Target, s.Timeout)
	})
	duration := time.Since(start).Milliseconds()

	if err != nil {
		switch err.(type) {
		case *wikierr.NoSuchVertexError:
			http.Error(w, err.Error(), http.StatusNotFound)
		case *wikierr.NoPathError:
			s.writeJSON(w, pathsResponse{Paths: [][]wikiid.PageID{}, Degrees: 0, Count: 0, Duration: duration})
		case *wikierr.TimeoutError:
			http.Error(w, err.Error(), http.StatusGatewayTimeout)
		default:
			s.logf("paths query %d->%d failed: %v", source, target, err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	s.writeJSON(w, pathsResponse{
		Paths:    result.Paths,
		Degrees:  result.Degrees,
		Count:    result.Count,
		Duration: duration,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, resp pathsResponse) {
	marshalled, err := json.Marshal(resp)
	if err != nil {
		s.logf("failed to marshal paths response: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(marshalled)
}

func (s *Server) logf(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	} else {
		log.Printf(format, args...)
	}
}
