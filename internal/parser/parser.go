// Package parser defines the format-adapter contract shared by all statement
// parsers and the factory that selects one by declared format.
package parser

import (
	"context"
	"io"

	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
)

// Adapter decodes one statement file format into an ordered, normalized
// sequence of raw lines. Parsing is all-or-nothing: implementations return a
// complete ParseResult or a *financeerrors.ParseError, never a partial set.
// Implementations must be deterministic for identical input bytes and must
// honor context cancellation on large files.
type Adapter interface {
	// Parse reads the whole statement from r and returns the parse result.
	Parse(ctx context.Context, r io.Reader) (*models.ParseResult, error)

	// Format returns the statement format this adapter decodes.
	Format() models.Format
}
