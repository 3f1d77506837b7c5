package mail

import (
	"context"
	"sync"
	"time"

	"storefront-service/pkg/logger"
	"storefront-service/prometheus"

	"go.uber.org/zap"
)

// Dispatcher sends verification emails in the background.
// Each message gets exactly one attempt; failures are logged and counted, never returned.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher that bounds each attempt by timeout
func NewDispatcher(sender Sender, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		timeout: timeout,
	}
}

// Dispatch starts delivery of msg and returns immediately.
// The send outlives the request: cancellation of ctx does not abort it.
func (d *Dispatcher) Dispatch(ctx context.Context, recipient string, msg VerificationMessage) {
	log := logger.FromContext(ctx).With(zap.String("username", msg.Username))
	sendCtx := logger.WithContext(context.WithoutCancel(ctx), log)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		if d.timeout > 0 {
			var cancel context.CancelFunc
			sendCtx, cancel = context.WithTimeout(sendCtx, d.timeout)
			defer cancel()
		}

		if err := d.sender.SendVerification(sendCtx, recipient, msg); err != nil {
			log.Error("Failed to send verification email", zap.Error(err))
			prometheus.RecordEmail("failed")
			return
		}

		log.Info("Verification email sent")
		prometheus.RecordEmail("sent")
	}()
}

// Wait blocks until all dispatched emails have been attempted
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
