// Package routes decides how each request is answered: a redirect to the
// home page, one of the configured pages, a static file, or a 404.
package routes

import (
	"io"
	"net/http"
	"path"
	"time"

	"github.com/niels/page-server/pkg/logging"
	"github.com/niels/page-server/pkg/storage"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/niels/page-server/pkg/routes"

// Outcome is the terminal state a request ends in
type Outcome int

const (
	OutcomeRedirect Outcome = iota
	OutcomeStream
	OutcomeNotFound
	OutcomeServerError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRedirect:
		return "redirect"
	case OutcomeStream:
		return "stream"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// Recorder receives one observation per dispatched request
type Recorder interface {
	ObserveDispatch(outcome string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveDispatch(string, time.Duration) {}

// Router answers requests from the route table and a file store
type Router struct {
	table    Table
	store    storage.FileStore
	recorder Recorder
	tracer   trace.Tracer
	log      zerolog.Logger
}

// Option configures a Router
type Option func(*Router)

// WithRecorder reports dispatch outcomes to rec
func WithRecorder(rec Recorder) Option {
	return func(rt *Router) {
		if rec != nil {
			rt.recorder = rec
		}
	}
}

// WithTracerProvider traces store lookups with tp instead of the global provider
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(rt *Router) {
		rt.tracer = tp.Tracer(tracerName)
	}
}

// WithLogger replaces the component logger
func WithLogger(log zerolog.Logger) Option {
	return func(rt *Router) {
		rt.log = log
	}
}

// NewRouter creates a router serving table with files from store
func NewRouter(table Table, store storage.FileStore, opts ...Option) *Router {
	rt := &Router{
		table:    table,
		store:    store,
		recorder: nopRecorder{},
		tracer:   otel.Tracer(tracerName),
		log:      logging.WithComponent("routes"),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// ServeHTTP implements http.Handler. Every call ends in exactly one of the
// four outcomes.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := rt.dispatch(w, r)
	rt.recorder.ObserveDispatch(outcome.String(), time.Since(start))
}

func (rt *Router) dispatch(w http.ResponseWriter, r *http.Request) Outcome {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusNotFound)
		return OutcomeNotFound
	}

	urlPath := r.URL.Path
	if urlPath == "/" {
		w.Header().Set("Location", rt.table.HomeLocation)
		w.WriteHeader(http.StatusFound)
		return OutcomeRedirect
	}

	if file, ok := rt.table.Pages[urlPath]; ok {
		return rt.stream(w, r, file, "")
	}

	return rt.stream(w, r, urlPath, path.Ext(urlPath))
}

// stream opens name and copies it to w. fallbackType is used when the store
// does not report a type.
func (rt *Router) stream(w http.ResponseWriter, r *http.Request, name, fallbackType string) Outcome {
	ctx, span := rt.tracer.Start(r.Context(), "routes.GetFileStream",
		trace.WithAttributes(
			attribute.String("file.name", name),
			attribute.String("http.path", r.URL.Path),
		))
	log := logging.FromContext(r.Context(), rt.log)
	res, err := rt.store.GetFileStream(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()

		if storage.IsNotFound(err) {
			log.Debug().Str("path", r.URL.Path).Str("file", name).Msg("File not found")
			w.WriteHeader(http.StatusNotFound)
			return OutcomeNotFound
		}

		log.Error().Err(err).Str("path", r.URL.Path).Str("file", name).Msg("Failed to open file")
		w.WriteHeader(http.StatusInternalServerError)
		return OutcomeServerError
	}
	span.End()

	stream := res.Stream
	defer stream.Close()

	fileType := res.Type
	if fileType == "" {
		fileType = fallbackType
	}

	if mime, ok := rt.table.ContentTypes[fileType]; ok {
		w.Header().Set("Content-Type", mime)
		w.WriteHeader(http.StatusOK)
	} else {
		// A nil entry stops net/http from sniffing a Content-Type
		w.Header()["Content-Type"] = nil
	}

	if _, err := io.Copy(w, stream); err != nil {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Stream interrupted")
	}

	return OutcomeStream
}
