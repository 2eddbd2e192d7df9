// Package langerr defines the diagnostic error type shared by every
// pipeline phase (spec §7). Each phase stops at the first fault and
// returns one of these; nothing is recovered locally.
package langerr

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Phase identifies which stage of the pipeline raised an Error.
type Phase string

const (
	Lex     Phase = "lex"
	Parse   Phase = "parse"
	Compile Phase = "compile"
	Runtime Phase = "runtime"
)

// Error is the diagnostic type every phase returns. Message is
// rendered verbatim by Error() to match the exact strings spec §7
// mandates, except that a non-empty ChunkID is appended; Cause, when
// present, is the lower-level fault that triggered this one (e.g. a
// lex error token surfacing through parse).
type Error struct {
	Phase   Phase
	Message string
	Cause   error

	// ChunkID identifies which compiled chunk a Runtime error came
	// from, so a host running many chunks concurrently (internal/batch)
	// can attribute a fault to its source. Empty outside the VM.
	ChunkID string
}

func (e *Error) Error() string {
	if e.ChunkID == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (chunk: %s)", e.Message, e.ChunkID)
}

// Unwrap lets errors.Is/As reach the wrapped cause.
func (e *Error) Unwrap() error { return e.Cause }

// NewParseError renders spec §7's "Parse error: <message> (token: <lexeme>)".
func NewParseError(message, tokenLexeme string) *Error {
	return &Error{
		Phase:   Parse,
		Message: fmt.Sprintf("Parse error: %s (token: %s)", message, tokenLexeme),
	}
}

// NewCompileError wraps a compile-time semantic fault (unknown
// identifier/function, bare string literal) with a caller-supplied,
// already-formatted message.
func NewCompileError(message string) *Error {
	return &Error{Phase: Compile, Message: message}
}

// NewRuntimeError wraps a VM-time fault (arity mismatch, unknown
// opcode, stack overflow). Call WithChunk on the result to attribute
// it to the chunk that was executing.
func NewRuntimeError(message string) *Error {
	return &Error{Phase: Runtime, Message: message}
}

// WithChunk tags e with the id of the chunk that produced it.
func (e *Error) WithChunk(id uuid.UUID) *Error {
	e.ChunkID = id.String()
	return e
}

// Wrap attaches a lower-phase cause to a higher-phase diagnostic
// without altering the rendered message, using pkg/errors so a host
// can print the full cause chain under -debug.
func Wrap(err *Error, cause error) *Error {
	err.Cause = errors.WithStack(cause)
	return err
}
