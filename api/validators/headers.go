package validators

import (
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	maxIdempotencyKeyLen = 255
)

// IdempotencyKey returns the trimmed Idempotency-Key header.
func IdempotencyKey(r *http.Request) (string, error) {
	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if key == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "idempotency key header required").
			WithDetails(map[string]string{IdempotencyKeyHeader: "is required"})
	}
	if len(key) > maxIdempotencyKeyLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "idempotency key too long").
			WithDetails(map[string]string{IdempotencyKeyHeader: "must contain at most 255"})
	}
	return key, nil
}
