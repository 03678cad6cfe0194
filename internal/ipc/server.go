package ipc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/typeahead/engine/internal/admin"
	"github.com/typeahead/engine/internal/logger"
	"github.com/typeahead/engine/internal/ranking"
)

var log = logger.New("ipc")

// QueryEngine is the minimal surface Server needs from the query path. A
// small interface here (rather than importing pkg/engine directly) avoids a
// dependency cycle, since pkg/engine is the top-level wiring that
// constructs this Server.
type QueryEngine interface {
	Suggest(ctx context.Context, prefix, userID string, limit int) ([]ranking.ScoredSuggestion, error)
}

// Server serves SuggestRequest and AdminRequest messages over stdin/stdout
// using msgpack encoding, mirroring the teacher's single-process debug IPC
// rather than inventing a production transport.
type Server struct {
	engine  QueryEngine
	admin   *admin.ControlPlane
	decoder *msgpack.Decoder

	writeMu sync.Mutex
}

// NewServer creates a Server reading requests from stdin.
func NewServer(engine QueryEngine, controlPlane *admin.ControlPlane) *Server {
	return &Server{
		engine:  engine,
		admin:   controlPlane,
		decoder: msgpack.NewDecoder(os.Stdin),
	}
}

// Start runs the request loop until stdin is closed.
func (s *Server) Start(ctx context.Context) error {
	log.Debug("ipc: starting msgpack debug server")
	for {
		if err := s.processOne(ctx); err != nil {
			if err == io.EOF {
				log.Debug("ipc: client disconnected")
				return nil
			}
			log.Errorf("ipc: request error: %v", err)
		}
	}
}

func (s *Server) processOne(ctx context.Context) error {
	var raw map[string]any
	if err := s.decoder.Decode(&raw); err != nil {
		return err
	}

	if action, ok := raw["action"].(string); ok {
		return s.processAdmin(ctx, raw, action)
	}
	return s.processSuggest(ctx, raw)
}

func (s *Server) processSuggest(ctx context.Context, raw map[string]any) error {
	var req SuggestRequest
	if id, ok := raw["id"].(string); ok {
		req.ID = id
	}
	if p, ok := raw["p"].(string); ok {
		req.Prefix = p
	}
	if u, ok := raw["u"].(string); ok {
		req.UserID = u
	}
	if l, ok := raw["l"].(int8); ok {
		req.Limit = int(l)
	} else if lf, ok := raw["l"].(float64); ok {
		req.Limit = int(lf)
	}

	start := time.Now()
	results, err := s.engine.Suggest(ctx, req.Prefix, req.UserID, req.Limit)
	elapsed := time.Since(start)
	if err != nil {
		return s.send(&SuggestError{ID: req.ID, Error: err.Error(), Code: 400})
	}

	wire := make([]SuggestionWire, len(results))
	for i, r := range results {
		wire[i] = SuggestionWire{Phrase: r.Phrase, Score: r.Score}
	}
	return s.send(&SuggestResponse{
		ID:          req.ID,
		Suggestions: wire,
		Count:       len(wire),
		TimeTakenUs: elapsed.Microseconds(),
	})
}

func (s *Server) processAdmin(ctx context.Context, raw map[string]any, action string) error {
	var id string
	if v, ok := raw["id"].(string); ok {
		id = v
	}
	if s.admin == nil {
		return s.send(&AdminResponse{ID: id, Status: "error", Error: "admin control plane not wired"})
	}

	switch action {
	case "rebuild":
		if err := s.admin.Rebuild(ctx); err != nil {
			return s.send(&AdminResponse{ID: id, Status: "error", Error: err.Error()})
		}
		return s.send(&AdminResponse{ID: id, Status: "ok"})

	case "clear_cache":
		if err := s.admin.ClearCache(); err != nil {
			return s.send(&AdminResponse{ID: id, Status: "error", Error: err.Error()})
		}
		return s.send(&AdminResponse{ID: id, Status: "ok"})

	case "stats":
		report, err := s.admin.Stats()
		if err != nil {
			return s.send(&AdminResponse{ID: id, Status: "error", Error: err.Error()})
		}
		versions := make(map[int]int64, len(report.Shards))
		for _, sh := range report.Shards {
			versions[sh.ShardID] = sh.Version
		}
		return s.send(&AdminResponse{
			ID:            id,
			Status:        "ok",
			ShardVersions: versions,
			CacheSize:     report.CacheSize,
			Backpressure:  report.Backpressure,
		})

	case "trending_top":
		n := 10
		if v, ok := raw["top_n"].(int8); ok {
			n = int(v)
		} else if v, ok := raw["top_n"].(float64); ok {
			n = int(v)
		}
		top, err := s.admin.TrendingTop(n)
		if err != nil {
			return s.send(&AdminResponse{ID: id, Status: "error", Error: err.Error()})
		}
		wire := make([]TrendingWire, len(top))
		for i, t := range top {
			wire[i] = TrendingWire{Phrase: t.Phrase, Score: t.Score}
		}
		return s.send(&AdminResponse{ID: id, Status: "ok", Trending: wire})

	default:
		return s.send(&AdminResponse{ID: id, Status: "error", Error: fmt.Sprintf("unknown action: %s", action)})
	}
}

func (s *Server) send(response any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(response); err != nil {
		return fmt.Errorf("ipc: failed to encode response: %w", err)
	}
	if _, err := os.Stdout.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("ipc: failed to write response: %w", err)
	}
	return nil
}
