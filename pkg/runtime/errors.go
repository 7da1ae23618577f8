// Package runtime provides the connection pool, configuration, logging and
// error taxonomy shared by the other packages.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when a unique constraint is violated.
	ErrDuplicateKey = errors.New("duplicate key value")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated.
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrNoConnection is returned when the database cannot be reached.
	ErrNoConnection = errors.New("no database connection")

	// ErrValidation is returned for arguments the database would reject or
	// that cannot be turned into a query.
	ErrValidation = errors.New("invalid query arguments")

	// ErrTimeout is returned when an operation or transaction runs out of time.
	ErrTimeout = errors.New("operation timed out")

	// ErrUnknown matches errors that fit no other kind.
	ErrUnknown = errors.New("unknown database error")
)

// ErrorKind classifies database failures.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindUniqueViolation
	KindForeignKeyViolation
	KindConnection
	KindValidation
	KindTimeout
)

var kindNames = map[ErrorKind]string{
	KindUnknown:             "unknown",
	KindNotFound:            "not found",
	KindUniqueViolation:     "unique violation",
	KindForeignKeyViolation: "foreign key violation",
	KindConnection:          "connection error",
	KindValidation:          "validation error",
	KindTimeout:             "timeout",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindUniqueViolation:
		return ErrDuplicateKey
	case KindForeignKeyViolation:
		return ErrForeignKeyViolation
	case KindConnection:
		return ErrNoConnection
	case KindValidation:
		return ErrValidation
	case KindTimeout:
		return ErrTimeout
	}
	return ErrUnknown
}

// Error is a classified database error.
type Error struct {
	Kind       ErrorKind
	Code       string
	Table      string
	Constraint string
	Detail     string
	Message    string
	Query      string
	Err        error
	Format     ErrorFormat
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	if e.Format != ErrorFormatPretty {
		return b.String()
	}
	if e.Code != "" {
		fmt.Fprintf(&b, "\n  Code: %s", e.Code)
	}
	if e.Constraint != "" {
		fmt.Fprintf(&b, "\n  Constraint: %s", e.Constraint)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, "\n  Detail: %s", e.Detail)
	}
	if e.Query != "" {
		fmt.Fprintf(&b, "\n  Query: %s", e.Query)
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error for the kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// NewError builds an Error of the given kind without an underlying cause.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err and attaches the query text. It returns nil for a nil
// error and leaves an existing *Error untouched apart from a missing query.
func Wrap(err error, query string) error {
	return WrapFormat(err, query, ErrorFormatMinimal)
}

// WrapFormat is Wrap with an explicit error format.
func WrapFormat(err error, query string, format ErrorFormat) error {
	if err == nil {
		return nil
	}
	var dbErr *Error
	if errors.As(err, &dbErr) {
		if dbErr.Query == "" {
			dbErr.Query = query
		}
		return err
	}

	e := &Error{Kind: Classify(err), Query: query, Err: err, Format: format}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		e.Code = pgErr.Code
		e.Table = pgErr.TableName
		e.Constraint = pgErr.ConstraintName
		e.Detail = pgErr.Detail
		e.Message = pgErr.Message
	}
	return e
}

// Classify maps a driver error to an ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return dbErr.Kind
	}
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrNotFound) {
		return KindNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return KindUniqueViolation
		case pgErr.Code == "23503":
			return KindForeignKeyViolation
		case pgErr.Code == "23502", pgErr.Code == "23514", strings.HasPrefix(pgErr.Code, "22"):
			return KindValidation
		case pgErr.Code == "57014":
			return KindTimeout
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "57P"):
			return KindConnection
		}
		return KindUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return KindTimeout
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || strings.Contains(err.Error(), "closed pool") {
		return KindConnection
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindConnection
	}
	return KindUnknown
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return Classify(err) == KindNotFound }

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool { return Classify(err) == KindUniqueViolation }

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool { return Classify(err) == KindForeignKeyViolation }

// MigrationError represents a migration error.
type MigrationError struct {
	Version string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration error (version %s): %s: %v", e.Version, e.Message, e.Err)
}

// Unwrap returns the underlying error.
func (e *MigrationError) Unwrap() error {
	return e.Err
}
