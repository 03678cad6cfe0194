// Package ipc implements the debug msgpack transport over stdin/stdout that
// cmd/autosuggested serves for local testing of the query and admin
// surfaces, without standing up the (out of scope) production HTTP/RPC
// transport. Adapted from the teacher's own stdin/stdout protocol.
// cmd/adminctl does not use it; it drives an in-process control plane.
package ipc

// SuggestRequest is a minimal suggestion query.
type SuggestRequest struct {
	ID     string `msgpack:"id"`
	Prefix string `msgpack:"p"`
	UserID string `msgpack:"u,omitempty"`
	Limit  int    `msgpack:"l,omitempty"`
}

// SuggestionWire is one suggestion on the wire: phrase and score.
type SuggestionWire struct {
	Phrase string  `msgpack:"w"`
	Score  float64 `msgpack:"s"`
}

// SuggestResponse is the response to a SuggestRequest.
type SuggestResponse struct {
	ID          string           `msgpack:"id"`
	Suggestions []SuggestionWire `msgpack:"r"`
	Count       int              `msgpack:"c"`
	TimeTakenUs int64            `msgpack:"t"`
}

// SuggestError reports a failed suggestion request.
type SuggestError struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"ec"`
}

// AdminRequest drives the admin control plane over the same transport.
// Action is one of: "rebuild", "clear_cache", "stats", "trending_top".
type AdminRequest struct {
	ID     string `msgpack:"id"`
	Action string `msgpack:"action"`
	TopN   int    `msgpack:"top_n,omitempty"`
}

// AdminResponse is a generic admin response; exactly one of the optional
// fields is populated depending on the request's Action.
type AdminResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
	Error  string `msgpack:"error,omitempty"`

	ShardVersions map[int]int64 `msgpack:"shard_versions,omitempty"`
	CacheSize     int           `msgpack:"cache_size,omitempty"`
	Backpressure  int64         `msgpack:"backpressure,omitempty"`

	Trending []TrendingWire `msgpack:"trending,omitempty"`
}

// TrendingWire is one entry of a trending_top admin response.
type TrendingWire struct {
	Phrase string `msgpack:"w"`
	Score  int64  `msgpack:"s"`
}
