package telemetry

import (
	"context"
	"io"
	"log/slog"
)

// Source hands out the most recent attitude frame, if one arrived since the last call.
type Source interface {
	Frame() ([]byte, bool)
}

// Provider couples a frame source with a decoder.
type Provider struct {
	source  Source
	decoder *Decoder
	last    Status
	logger  *slog.Logger
}

func WithLogger(logger *slog.Logger) func(*Provider) {
	return func(p *Provider) {
		p.logger = logger.With("component", "telemetry")
	}
}

func NewProvider(source Source, decoder *Decoder, opts ...func(*Provider)) *Provider {
	p := &Provider{
		source:  source,
		decoder: decoder,
		last:    StatusOK,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Heading decodes the latest frame. Status changes are logged once per transition.
func (p *Provider) Heading() Reading {
	var r Reading
	if frame, ok := p.source.Frame(); ok {
		r = p.decoder.Decode(frame)
	} else {
		r = Reading{Status: StatusNoFrame}
	}

	if r.Status != p.last {
		level := slog.LevelWarn
		if r.Status == StatusOK {
			level = slog.LevelInfo
		}
		p.logger.Log(context.Background(), level, "heading status changed", "from", p.last, "to", r.Status)
		p.last = r.Status
	}
	return r
}

type noFrames struct{}

func (noFrames) Frame() ([]byte, bool) { return nil, false }

// NoFrames is a Source that never delivers a frame, for relays flown without an attitude link.
var NoFrames Source = noFrames{}
