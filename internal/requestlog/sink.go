package requestlog

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/tuncerburak97/vitrin/internal/model"
)

// Mode selects the request record format.
type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
)

// Sink receives request entries. Implementations must not retain or mutate
// the entry after returning unless they own the write, as AsyncSink does.
type Sink interface {
	Emit(entry *model.LogEntry)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(entry *model.LogEntry)

func (f SinkFunc) Emit(entry *model.LogEntry) { f(entry) }

type writerSink struct {
	mode   Mode
	logger zerolog.Logger
}

// NewWriterSink writes one line per entry to w: a JSON record in production
// mode, a space-separated summary otherwise. Writes to w are serialized, so
// the sink may sit behind an AsyncSink with any writer.
func NewWriterSink(w io.Writer, mode Mode) Sink {
	w = zerolog.SyncWriter(w)
	if mode == ModeProduction {
		return &writerSink{mode: mode, logger: zerolog.New(w)}
	}
	console := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		PartsOrder: []string{zerolog.MessageFieldName},
	}
	return &writerSink{mode: mode, logger: zerolog.New(console)}
}

func (s *writerSink) Emit(entry *model.LogEntry) {
	if s.mode == ModeProduction {
		s.logger.Log().EmbedObject(entry).Send()
		return
	}
	s.logger.Log().Msg(entry.Line())
}
