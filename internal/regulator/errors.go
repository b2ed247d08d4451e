package regulator

import (
	"fmt"
	"time"
)

// ThrottleError возвращается клиентом при HTTP 429: регулятор прислал
// Retry-After, и Retry Controller должен уважать его вместо своего бэкоффа.
type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}

func (e *ThrottleError) Unwrap() error {
	return e.Cause
}
