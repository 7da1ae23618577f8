package runtime

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"no rows", pgx.ErrNoRows, KindNotFound},
		{"wrapped no rows", fmt.Errorf("find: %w", pgx.ErrNoRows), KindNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, KindUniqueViolation},
		{"foreign key", &pgconn.PgError{Code: "23503"}, KindForeignKeyViolation},
		{"not null", &pgconn.PgError{Code: "23502"}, KindValidation},
		{"invalid text representation", &pgconn.PgError{Code: "22P02"}, KindValidation},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, KindTimeout},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, KindConnection},
		{"connection failure", &pgconn.PgError{Code: "08006"}, KindConnection},
		{"syntax error", &pgconn.PgError{Code: "42601"}, KindUnknown},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"closed pool", errors.New("closed pool"), KindConnection},
		{"already classified", NewError(KindValidation, "bad"), KindValidation},
		{"other", errors.New("boom"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, "SELECT 1"))

	pgErr := &pgconn.PgError{
		Code:           "23505",
		Message:        `duplicate key value violates unique constraint "administrators_email_key"`,
		ConstraintName: "administrators_email_key",
		TableName:      "administrators",
		Detail:         "Key (email)=(a@b.c) already exists.",
	}
	err := Wrap(pgErr, "INSERT INTO administrators ...")

	var dbErr *Error
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, KindUniqueViolation, dbErr.Kind)
	assert.Equal(t, "administrators_email_key", dbErr.Constraint)
	assert.Equal(t, "administrators", dbErr.Table)
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.ErrorIs(t, err, pgErr)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.True(t, IsUniqueViolation(err))
	assert.NotContains(t, err.Error(), "Query:")

	again := Wrap(err, "other")
	assert.Same(t, dbErr, again)
	assert.Equal(t, "INSERT INTO administrators ...", dbErr.Query)
}

func TestError_PrettyFormat(t *testing.T) {
	err := WrapFormat(&pgconn.PgError{Code: "23503", Message: "fk", ConstraintName: "fk_orders_product_id"},
		"DELETE FROM products WHERE id = $1", ErrorFormatPretty)

	msg := err.Error()
	assert.Contains(t, msg, "foreign key violation: fk")
	assert.Contains(t, msg, "Constraint: fk_orders_product_id")
	assert.Contains(t, msg, "Query: DELETE FROM products WHERE id = $1")
	assert.True(t, IsForeignKeyViolation(err))
}

func TestNotFoundSentinel(t *testing.T) {
	err := fmt.Errorf("resumes: %w", NewError(KindNotFound, "no resume with id %s", "x"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "resumes: not found: no resume with id x", err.Error())
}
