package verification

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	pubsublib "cloud.google.com/go/pubsub/v2"

	"github.com/MarMoonz01/tiresync-hub-backend/internal/events"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
	pkgerrors "github.com/MarMoonz01/tiresync-hub-backend/pkg/errors"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
)

// Prober probes a store's registered webhook endpoint using the store's
// own channel access token.
type Prober interface {
	TestWebhookEndpoint(ctx context.Context, channelToken string) (bool, error)
}

// ProofSource delivers webhook delivery proofs; satisfied by a Pub/Sub
// subscriber handle.
type ProofSource interface {
	Receive(ctx context.Context, f func(context.Context, *pubsublib.Message)) error
}

// Reconciler converges store verification state from two directions:
// pushed delivery proofs off the verification subscription, and periodic
// endpoint probes for stores still awaiting confirmation. A store with no
// credentials is never probed, and a verified store drops out of the
// polling set, so polling stops on its own once a store connects.
type Reconciler struct {
	svc      Service
	repo     Repository
	prober   Prober
	source   ProofSource
	interval time.Duration
	logg     *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReconciler wires the reconciler. The proof source may be nil, in
// which case only polling runs.
func NewReconciler(svc Service, repo Repository, prober Prober, source ProofSource, interval time.Duration, logg *logger.Logger) (*Reconciler, error) {
	if svc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "verification service required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "verification repository required")
	}
	if prober == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "webhook prober required")
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reconciler{
		svc:      svc,
		repo:     repo,
		prober:   prober,
		source:   source,
		interval: interval,
		logg:     logg,
	}, nil
}

// Start launches the receive and poll loops. Call Close to stop them.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "reconciler already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	if r.source != nil {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.source.Receive(runCtx, r.handleProof); err != nil && runCtx.Err() == nil {
				if r.logg != nil {
					r.logg.Error(runCtx, "verification receive loop exited", err)
				}
			}
		}()
	}

	r.wg.Add(1)
	go r.pollLoop(runCtx)
	return nil
}

// Close stops both loops and waits for them to drain.
func (r *Reconciler) Close() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

func (r *Reconciler) handleProof(ctx context.Context, msg *pubsublib.Message) {
	if err := r.applyProof(ctx, msg.Data); err != nil {
		msg.Nack()
		return
	}
	msg.Ack()
}

// applyProof consumes one pushed delivery proof. Malformed or irrelevant
// payloads are dropped rather than redelivered; only a failed state write
// reports an error so the broker retries it.
func (r *Reconciler) applyProof(ctx context.Context, data []byte) error {
	var event events.ChangeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		if r.logg != nil {
			r.logg.Warn(ctx, "dropping malformed verification message")
		}
		return nil
	}
	if event.Type != enums.EventWebhookProofReceived || event.StoreID == nil {
		return nil
	}

	if err := r.svc.MarkVerified(ctx, *event.StoreID); err != nil {
		if r.logg != nil {
			r.logg.Error(ctx, "apply webhook proof", err)
		}
		return err
	}
	return nil
}

func (r *Reconciler) pollLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pollOnce(ctx)
		}
	}
}

// pollOnce probes every store still awaiting verification. Probe failures
// are logged and retried on the next tick.
func (r *Reconciler) pollOnce(ctx context.Context) {
	stores, err := r.repo.ListAwaiting(ctx)
	if err != nil {
		if r.logg != nil {
			r.logg.Error(ctx, "list stores awaiting verification", err)
		}
		return
	}

	for _, store := range stores {
		token := ""
		if store.LineChannelToken != nil {
			token = *store.LineChannelToken
		}
		ok, err := r.prober.TestWebhookEndpoint(ctx, token)
		if err != nil {
			if r.logg != nil {
				r.logg.Warn(ctx, "webhook probe failed")
			}
			continue
		}
		if !ok {
			continue
		}
		if err := r.svc.MarkVerified(ctx, store.ID); err != nil && r.logg != nil {
			r.logg.Error(ctx, "record webhook verification", err)
		}
	}
}
