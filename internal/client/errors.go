package client

import (
	"fmt"
	"net/http"
	"strings"
)

// StatusError is a non-2xx response from the stats API. Transient codes are
// retried inside the client's budget; everything else propagates immediately.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("stats API %s returned status %d", e.Endpoint, e.Code)
}

// Transient reports whether the status code is worth retrying.
func (e *StatusError) Transient() bool {
	switch e.Code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// SchemaError is returned when a response envelope carries neither of the
// known result-set shapes.
type SchemaError struct {
	Keys []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("unrecognized response envelope, keys found: [%s]", strings.Join(e.Keys, " "))
}
