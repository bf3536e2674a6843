package telegram

import (
	"errors"
	"net/http"

	"github.com/mirrorgram/mirrorgram/internal/retry"
)

// Classify maps client errors into the retry taxonomy: rate limits and
// server-side failures are transient; any other API rejection (bad request,
// missing permissions, unknown chat) is permanent. Transport-level errors
// (resets, timeouts) are treated as transient network blips.
func Classify(err error) retry.Class {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
			return retry.Transient
		}
		return retry.Permanent
	}
	return retry.Transient
}
