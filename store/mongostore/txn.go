package mongostore

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// isTxnNotSupported reports whether err means the server cannot run
// multi-document transactions (standalone mongod, old servers).
func isTxnNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range []string{"transaction", "replica set", "session", "not supported", "illegal operation"} {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	return hits >= 2
}
