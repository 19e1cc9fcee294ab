package backend

import (
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry owns the inference backends for a process. Each backend is
// resolved lazily on first use, exactly once; a failed load is logged a
// single time and replaced by the capability's fallback.
//
// Resolution is goroutine-safe. Whether inference itself may run
// concurrently is up to each backend implementation.
type Registry struct {
	detector  lazy[ObjectDetector]
	extractor lazy[EmbeddingExtractor]
	reader    lazy[TextReader]
	enhancer  lazy[Enhancer]
}

// Option configures a Registry.
type Option func(*Registry)

// WithDetector sets the loader for the object detection backend.
func WithDetector(load func() (ObjectDetector, error)) Option {
	return func(r *Registry) { r.detector.load = load }
}

// WithExtractor sets the loader for the embedding backend.
func WithExtractor(load func() (EmbeddingExtractor, error)) Option {
	return func(r *Registry) { r.extractor.load = load }
}

// WithTextReader sets the loader for the OCR backend.
func WithTextReader(load func() (TextReader, error)) Option {
	return func(r *Registry) { r.reader.load = load }
}

// WithEnhancer sets the loader for the contrast enhancement backend.
func WithEnhancer(load func() (Enhancer, error)) Option {
	return func(r *Registry) { r.enhancer.load = load }
}

// NewRegistry creates a registry. Capabilities without a loader resolve
// directly to their fallback.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		detector:  lazy[ObjectDetector]{kind: "detector", fallback: MockDetector{}},
		extractor: lazy[EmbeddingExtractor]{kind: "embedding", fallback: NullExtractor{}},
		reader:    lazy[TextReader]{kind: "ocr", fallback: NullTextReader{}},
		enhancer:  lazy[Enhancer]{kind: "enhancer", fallback: IdentityEnhancer{}},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Detector returns the resolved object detector.
func (r *Registry) Detector() ObjectDetector { return r.detector.get() }

// Extractor returns the resolved embedding extractor.
func (r *Registry) Extractor() EmbeddingExtractor { return r.extractor.get() }

// TextReader returns the resolved OCR backend.
func (r *Registry) TextReader() TextReader { return r.reader.get() }

// Enhancer returns the resolved contrast enhancer.
func (r *Registry) Enhancer() Enhancer { return r.enhancer.get() }

// Status reports the backend name behind each capability, resolving any
// that have not been used yet.
func (r *Registry) Status() map[string]string {
	return map[string]string{
		r.detector.kind:  r.Detector().Name(),
		r.extractor.kind: r.Extractor().Name(),
		r.reader.kind:    r.TextReader().Name(),
		r.enhancer.kind:  r.Enhancer().Name(),
	}
}

// Close releases every resolved backend that holds native resources.
func (r *Registry) Close() error {
	return errors.Join(
		r.detector.close(),
		r.extractor.close(),
		r.reader.close(),
		r.enhancer.close(),
	)
}

type lazy[T any] struct {
	once     sync.Once
	kind     string
	load     func() (T, error)
	fallback T
	value    T
	loaded   bool
}

func (l *lazy[T]) get() T {
	l.once.Do(func() {
		if l.load == nil {
			log.Debug().Str("backend", l.kind).Msg("no backend configured, using fallback")
			l.value = l.fallback
			return
		}
		v, err := l.load()
		if err != nil {
			log.Warn().Err(err).Str("backend", l.kind).Msg("backend unavailable, using fallback")
			l.value = l.fallback
			return
		}
		l.value = v
		l.loaded = true
		log.Info().Str("backend", l.kind).Msg("backend loaded")
	})
	return l.value
}

func (l *lazy[T]) close() error {
	if !l.loaded {
		return nil
	}
	if c, ok := any(l.value).(io.Closer); ok {
		return c.Close()
	}
	return nil
}
