package flinksql

import "fmt"

// ParseError represents a parsing error with position information.
type ParseError struct {
	Pos     Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Common error messages
const (
	ErrNoCreateTable       = "no CREATE TABLE statement found"
	ErrMultipleSinks       = "statement defines more than one table: %s and %s"
	ErrUnbalancedOpen      = "unbalanced parenthesis: '(' is never closed"
	ErrUnbalancedClose     = "unbalanced parenthesis: unexpected ')'"
	ErrExpectedTableName   = "expected table name after %s"
	ErrUnterminatedStmtSet = "statement set is missing END"
)

func newParseError(pos Position, format string, args ...any) *ParseError {
	return &ParseError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}
