package gormstore

import (
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"memoria/store"
	"memoria/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New(storetest.SQLite(t)) })
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"record not found", gorm.ErrRecordNotFound, store.ErrNotFound},
		{"gorm duplicate", gorm.ErrDuplicatedKey, store.ErrDuplicate},
		{"mysql duplicate entry", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, store.ErrDuplicate},
		{"sqlite unique", errors.New("UNIQUE constraint failed: users.username"), store.ErrDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translate(tt.err), tt.want)
		})
	}
	other := errors.New("connection reset")
	assert.Equal(t, other, translate(other))
	assert.NoError(t, translate(nil))
}
