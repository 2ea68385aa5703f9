package reconcile

import (
	"context"
	"time"

	"github.com/go-logr/logr"
)

// ErrorPolicy maps a failed reconcile to the Result that schedules the next
// attempt. It never returns an error: the failure stops here.
type ErrorPolicy interface {
	OnError(ctx context.Context, req Request, err error) Result
}

// ErrorPolicyFunc is a function that implements ErrorPolicy.
type ErrorPolicyFunc func(context.Context, Request, error) Result

func (f ErrorPolicyFunc) OnError(ctx context.Context, req Request, err error) Result {
	return f(ctx, req, err)
}

// FixedDelay retries every failed request after d, whatever the error is.
// The failure is logged on the logger carried by ctx.
func FixedDelay(d time.Duration) ErrorPolicy {
	return ErrorPolicyFunc(func(ctx context.Context, req Request, err error) Result {
		logr.FromContextOrDiscard(ctx).Info("reconcile failed, retry later",
			"request", req.Key(), "retryAfter", d.String(), "error", err.Error())
		return Result{RequeueAfter: d}
	})
}
