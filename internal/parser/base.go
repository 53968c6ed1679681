package parser

import (
	"context"

	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
)

// BaseParser provides the shared plumbing for adapter implementations.
// Adapters embed it to inherit logger handling and cancellation checks:
//
//	type MT940Parser struct {
//		parser.BaseParser
//	}
type BaseParser struct {
	logger logging.Logger
}

// NewBaseParser creates a BaseParser with the provided logger. A nil logger
// falls back to a default text logger.
func NewBaseParser(logger logging.Logger) BaseParser {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return BaseParser{logger: logger}
}

// SetLogger replaces the parser's logger. A nil logger is ignored.
func (b *BaseParser) SetLogger(logger logging.Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// Logger returns the current logger instance.
func (b *BaseParser) Logger() logging.Logger {
	return b.logger
}

// CheckCancelled returns the context error if the parse was cancelled.
// Adapters call this between line batches so a stuck analysis can be
// abandoned without leaking server state.
func (b *BaseParser) CheckCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
