package reasoning

import (
	"fmt"

	"github.com/felixgeelhaar/sourcequery/domain/query"
)

// providerError maps a non-2xx provider response to the taxonomy without
// echoing the response body, which may contain request fragments.
func providerError(provider string, statusCode int) error {
	return fmt.Errorf("%w: %s returned status %d", query.ErrReasoning, provider, statusCode)
}

// transportError wraps a transport-level failure reaching the provider.
func transportError(provider string, err error) error {
	return fmt.Errorf("%w: %s: %v", query.ErrReasoning, provider, err)
}
