// Package feature implements the lookup providers exposed under /api and the
// typed request/result model shared by the HTTP layer, the dispatch queue, and
// the audit notification sink.
package feature

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
)

// Kind is the closed set of supported features.
type Kind int

const (
	KindUnknown Kind = iota
	KindMorse
	KindRomans
	KindSpamwatch
	KindLyrics
)

// String returns the feature key as it appears in the request path.
func (k Kind) String() string {
	switch k {
	case KindMorse:
		return "morse"
	case KindRomans:
		return "romans"
	case KindSpamwatch:
		return "spamwatch"
	case KindLyrics:
		return "lyrics"
	default:
		return "unknown"
	}
}

// Request is one inbound feature call with its typed parameter set. Created
// per HTTP request and discarded after the response is sent.
type Request struct {
	Kind   Kind
	Encode string // en
	Decode string // de
	ID     string // id
	Query  string // q
}

// Result is the outcome of one feature call. Fields always carries an "error"
// key, empty on success. Recognized is true only when at least one parameter
// matched a known feature input.
type Result struct {
	Recognized bool
	Fields     map[string]string
}

func newResult() Result {
	return Result{Fields: map[string]string{"error": ""}}
}

// ParseRequest maps a feature path segment and its query parameters into a
// typed Request. It returns false when the feature key is unknown or none of
// the feature's expected parameters are present.
func ParseRequest(feature string, params url.Values) (Request, bool) {
	req := Request{
		Encode: params.Get("en"),
		Decode: params.Get("de"),
		ID:     params.Get("id"),
		Query:  params.Get("q"),
	}

	switch feature {
	case "morse":
		req.Kind = KindMorse
		return req, req.Encode != "" || req.Decode != ""
	case "romans":
		req.Kind = KindRomans
		return req, req.Encode != "" || req.Decode != ""
	case "spamwatch":
		req.Kind = KindSpamwatch
		return req, req.ID != ""
	case "lyrics":
		req.Kind = KindLyrics
		return req, req.Query != ""
	default:
		return Request{Kind: KindUnknown}, false
	}
}

// Registry resolves a feature request to its provider and runs the lookups.
type Registry struct {
	log       *slog.Logger
	spamwatch *SpamwatchClient
	lyrics    *LyricsClient
}

// NewRegistry creates a provider registry backed by the given external lookup
// clients.
func NewRegistry(log *slog.Logger, spamwatch *SpamwatchClient, lyrics *LyricsClient) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		log:       log.With("component", "feature_registry"),
		spamwatch: spamwatch,
		lyrics:    lyrics,
	}
}

// Handle runs the request's lookups sequentially and merges every input/result
// pair into one Result. Lookup failures become result fields, never Go errors.
func (r *Registry) Handle(ctx context.Context, req Request) Result {
	switch req.Kind {
	case KindMorse:
		return r.handleMorse(req)
	case KindRomans:
		return r.handleRomans(req)
	case KindSpamwatch:
		return r.handleSpamwatch(ctx, req)
	case KindLyrics:
		return r.handleLyrics(ctx, req)
	default:
		return newResult()
	}
}

func (r *Registry) handleMorse(req Request) Result {
	res := newResult()
	res.Recognized = true

	if req.Encode != "" {
		res.Fields["input"] = req.Encode
		if encoded, err := MorseEncode(req.Encode); err != nil {
			res.Fields["result"] = err.Error()
		} else {
			res.Fields["result"] = encoded
		}
	}
	if req.Decode != "" {
		res.Fields["input"] = req.Decode
		if decoded, err := MorseDecode(req.Decode); err != nil {
			res.Fields["result"] = err.Error()
		} else {
			res.Fields["result"] = decoded
		}
	}
	return res
}

func (r *Registry) handleRomans(req Request) Result {
	res := newResult()
	res.Recognized = true

	if req.Encode != "" {
		res.Fields["input"] = req.Encode
		n, err := strconv.Atoi(req.Encode)
		if err != nil {
			res.Fields["result"] = "requires a number between 1 and 3999"
		} else if encoded, err := Romanize(n); err != nil {
			res.Fields["result"] = err.Error()
		} else {
			res.Fields["result"] = encoded
		}
	}
	if req.Decode != "" {
		res.Fields["input"] = req.Decode
		if decoded, err := Deromanize(req.Decode); err != nil {
			res.Fields["result"] = err.Error()
		} else {
			res.Fields["result"] = strconv.Itoa(decoded)
		}
	}
	return res
}

func (r *Registry) handleSpamwatch(ctx context.Context, req Request) Result {
	res := newResult()
	res.Recognized = true

	ban, err := r.spamwatch.Lookup(ctx, req.ID)
	if err != nil {
		r.log.DebugContext(ctx, "spamwatch lookup failed", "id", req.ID, "error", err)
		res.Fields["error"] = err.Error()
		return res
	}
	for key, val := range ban {
		res.Fields[key] = val
	}
	return res
}

func (r *Registry) handleLyrics(ctx context.Context, req Request) Result {
	res := newResult()
	res.Recognized = true

	song, err := r.lyrics.Search(ctx, req.Query)
	if err != nil {
		r.log.DebugContext(ctx, "lyrics lookup failed", "query", req.Query, "error", err)
		res.Fields["error"] = err.Error()
		return res
	}
	res.Fields["title"] = song.Title
	res.Fields["artist"] = song.Artist
	res.Fields["url"] = song.URL
	res.Fields["lyrics"] = song.Lyrics
	return res
}
