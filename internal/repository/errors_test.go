package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	mysqlErr := func(n uint16) error { return &mysql.MySQLError{Number: n, Message: "server said no"} }
	boom := errors.New("boom")
	sentinels := []error{ErrNotFound, ErrDuplicate, ErrTransient, ErrInvalid}

	cases := []struct {
		name string
		err  error
		want error // nil means the error passes through unclassified
	}{
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("flight AI1: %w", sql.ErrNoRows), ErrNotFound},
		{"duplicate entry", mysqlErr(1062), ErrDuplicate},
		{"lock wait timeout", mysqlErr(1205), ErrTransient},
		{"deadlock", mysqlErr(1213), ErrTransient},
		{"missing referenced row", mysqlErr(1452), ErrNotFound},
		{"data too long", mysqlErr(1406), ErrInvalid},
		{"bad connection", driver.ErrBadConn, ErrTransient},
		{"invalid connection", mysql.ErrInvalidConn, ErrTransient},
		{"deadline", context.DeadlineExceeded, ErrTransient},
		{"connection done", sql.ErrConnDone, ErrTransient},
		{"syntax error", mysqlErr(1064), nil},
		{"unknown", boom, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Classify(c.err)
			assert.ErrorIs(t, got, c.err, "original stays in the chain")
			for _, s := range sentinels {
				if s == c.want {
					assert.ErrorIs(t, got, s)
				} else {
					assert.NotErrorIs(t, got, s)
				}
			}
		})
	}
}

func TestClassifyKeepsDriverError(t *testing.T) {
	assert.NoError(t, Classify(nil))

	err := Classify(fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'AI1-Economy:1A'"}))
	var me *mysql.MySQLError
	if assert.ErrorAs(t, err, &me) {
		assert.Equal(t, uint16(1062), me.Number)
	}
	assert.Contains(t, err.Error(), "Duplicate entry")
}
