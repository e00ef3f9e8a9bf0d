package dispatch

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Checker-Finance/ziva-sdk/internal/events"
	"github.com/Checker-Finance/ziva-sdk/internal/transport"
)

// Response is the uniform completion value handed to callers. StatusCode is
// -1 when no HTTP response was received; Body then holds the failure message.
type Response struct {
	StatusCode int
	Body       string
}

// OK reports a 2xx status.
func (r Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// Callback receives exactly one of OnSuccess or OnError per request.
type Callback interface {
	OnSuccess(Response)
	OnError(Response)
}

// CallbackFuncs adapts plain functions to Callback. Nil fields are skipped.
type CallbackFuncs struct {
	Success func(Response)
	Error   func(Response)
}

func (f CallbackFuncs) OnSuccess(r Response) {
	if f.Success != nil {
		f.Success(r)
	}
}

func (f CallbackFuncs) OnError(r Response) {
	if f.Error != nil {
		f.Error(r)
	}
}

// Op names the request kind for logs and events.
type Op string

const (
	OpGet          Op = "get"
	OpPost         Op = "post"
	OpLogin        Op = "login"
	OpCreateUser   Op = "create_user"
	OpSetUser      Op = "set_user"
	OpDeleteUser   Op = "delete_user"
	OpRefreshToken Op = "refresh_token"
)

// eventType returns the lifecycle event emitted after op's hook, if any.
func (o Op) eventType() string {
	switch o {
	case OpLogin, OpCreateUser, OpSetUser:
		return events.TypeCredentialsUpdated
	case OpDeleteUser:
		return events.TypeCredentialsCleared
	default:
		return ""
	}
}

// Hook runs on a successful response before the caller is notified.
type Hook func(ctx context.Context, body string)

// Dispatcher turns transport completions into Callback invocations.
type Dispatcher struct {
	logger   *zap.Logger
	notifier events.Notifier
}

// New creates a Dispatcher. A nil notifier disables events.
func New(logger *zap.Logger, notifier events.Notifier) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &Dispatcher{logger: logger, notifier: notifier}
}

// Bind returns the transport completion functions for one request. Whichever
// fires first wins; later invocations are dropped. On success the hook (if
// any) runs first, then the lifecycle event is published, then cb.OnSuccess.
// Errors skip the hook and reach only cb.OnError. A panicking hook is logged
// and does not prevent the success callback.
func (d *Dispatcher) Bind(ctx context.Context, op Op, hook Hook, cb Callback) (transport.SuccessFunc, transport.ErrorFunc) {
	var once sync.Once
	ctx = context.WithoutCancel(ctx)

	onSuccess := func(status int, body string) {
		fired := false
		once.Do(func() {
			fired = true
			if hook != nil {
				d.runHook(ctx, op, hook, body)
				d.notify(ctx, op)
			}
			d.deliver(op, func() { cb.OnSuccess(Response{StatusCode: status, Body: body}) })
		})
		if !fired {
			d.logger.Warn("ziva.duplicate_completion", zap.String("op", string(op)), zap.Int("status", status))
		}
	}

	onError := func(status int, message string) {
		fired := false
		once.Do(func() {
			fired = true
			d.logger.Debug("ziva.request_error", zap.String("op", string(op)), zap.Int("status", status))
			d.deliver(op, func() { cb.OnError(Response{StatusCode: status, Body: message}) })
		})
		if !fired {
			d.logger.Warn("ziva.duplicate_completion", zap.String("op", string(op)), zap.Int("status", status))
		}
	}

	return onSuccess, onError
}

func (d *Dispatcher) runHook(ctx context.Context, op Op, hook Hook, body string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("ziva.hook_panic", zap.String("op", string(op)), zap.String("panic", fmt.Sprint(r)))
		}
	}()
	hook(ctx, body)
	d.logger.Debug("ziva.hook_applied", zap.String("op", string(op)))
}

func (d *Dispatcher) notify(ctx context.Context, op Op) {
	typ := op.eventType()
	if typ == "" {
		return
	}
	if err := d.notifier.Notify(ctx, events.New(typ, string(op))); err != nil {
		d.logger.Warn("ziva.notify_failed", zap.String("op", string(op)), zap.Error(err))
	}
}

// deliver invokes a caller callback, containing any panic to the request.
func (d *Dispatcher) deliver(op Op, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("ziva.callback_panic", zap.String("op", string(op)), zap.String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}
