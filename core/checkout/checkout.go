// Package checkout drives one payment attempt from idle through the
// external payment widget to a terminal state, and owns the only
// side-effecting decision in the flow: clearing the cart, which happens
// exclusively after payment capture and a fully committed order
// composition.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doorstep-app/doorstep/api/background"
	"github.com/doorstep-app/doorstep/core/cart"
	"github.com/doorstep-app/doorstep/core/order"
	"github.com/doorstep-app/doorstep/docstore"
	"github.com/doorstep-app/doorstep/events"
	"github.com/doorstep-app/doorstep/metrics"
	"github.com/doorstep-app/doorstep/random"
	"github.com/sirupsen/logrus"
)

type State string

const (
	StateIdle            State = "idle"
	StateAwaitingPayment State = "awaiting_payment"
	StateSucceeded       State = "succeeded"
	StateFailed          State = "failed"
	StateCancelled       State = "cancelled"
)

var (
	// ErrPartialCommit marks the reconciliation gap: the gateway has
	// captured money but one or more shop orders failed to commit.
	// It is never swallowed; the cart stays intact and the failure is
	// logged, counted and published for the ops consumer.
	ErrPartialCommit = errors.New("payment captured but order composition did not fully commit")

	// ErrNotAwaiting rejects a capture or dismissal for an attempt that
	// is not in the awaiting_payment state.
	ErrNotAwaiting = errors.New("checkout is not awaiting payment")

	// ErrAttemptNotFound means no attempt exists for the reference,
	// usually because it expired.
	ErrAttemptNotFound = errors.New("checkout attempt not found or expired")
)

// Attempt is the per-checkout state record. It lives in the document store
// under the gateway's reference with a TTL, so an abandoned attempt (the
// widget never calling back) expires instead of pinning awaiting_payment
// across sessions.
type Attempt struct {
	Ref         string         `json:"ref"`
	Provider    string         `json:"provider"`
	ProviderRef string         `json:"providerRef"`
	UserID      string         `json:"userId"`
	State       State          `json:"state"`
	Amount      int            `json:"amount"` // smallest currency unit, delivery fee included
	Currency    string         `json:"currency"`
	Delivery    order.Delivery `json:"delivery"`
	PaymentRef  string         `json:"paymentRef,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Session is what a gateway hands back for a new payment.
type Session struct {
	ProviderRef string `json:"providerRef"`
	RedirectURL string `json:"redirectUrl"`
}

// Gateway opens a payment session for the given amount in the smallest
// currency unit. ref is this service's checkout reference, echoed back by
// the gateway's callback.
type Gateway interface {
	Name() string
	CreateSession(ctx context.Context, amount int64, currency string, ref string) (Session, error)
}

type CartStore interface {
	Get(ctx context.Context, userID string) (cart.Cart, error)
	Clear(ctx context.Context, userID string) (cart.Cart, error)
}

type Composer interface {
	Compose(ctx context.Context, crt cart.Cart, del order.Delivery, paymentRef string) (order.Result, error)
}

type Events interface {
	OrderCreated(ctx context.Context, ord order.Order) error
	ReconciliationRequired(ctx context.Context, rec events.Reconciliation) error
}

type AdapterConfig struct {
	Log        logrus.FieldLogger
	Docs       docstore.Docs
	Carts      CartStore
	Orders     Composer
	Events     Events
	Background *background.Background
	Fee        int // flat delivery fee in major units
	Currency   string
	AttemptTTL time.Duration
}

type Adapter struct {
	log      logrus.FieldLogger
	docs     docstore.Docs
	carts    CartStore
	orders   Composer
	events   Events
	bg       *background.Background
	fee      int
	currency string
	ttl      time.Duration
}

func NewAdapter(cfg AdapterConfig) *Adapter {
	return &Adapter{
		log:      cfg.Log,
		docs:     cfg.Docs,
		carts:    cfg.Carts,
		orders:   cfg.Orders,
		events:   cfg.Events,
		bg:       cfg.Background,
		fee:      cfg.Fee,
		currency: cfg.Currency,
		ttl:      cfg.AttemptTTL,
	}
}

func attemptKey(providerRef string) string {
	return "checkouts/" + providerRef
}

// Begin moves a fresh attempt from idle to awaiting payment: it reads the
// cart, opens a gateway session for cart total plus the flat delivery fee,
// and records the attempt. The cart itself is untouched.
func (a *Adapter) Begin(ctx context.Context, gw Gateway, userID string, del order.Delivery) (Attempt, Session, error) {
	crt, err := a.carts.Get(ctx, userID)
	if err != nil {
		return Attempt{}, Session{}, err
	}

	if len(crt.Items) == 0 {
		return Attempt{}, Session{}, order.ErrEmptyCart
	}

	ref := "chk_" + random.String(12)
	amount := (crt.Total + a.fee) * 100

	sess, err := gw.CreateSession(ctx, int64(amount), a.currency, ref)
	if err != nil {
		return Attempt{}, Session{}, fmt.Errorf("opening %s payment session: %w", gw.Name(), err)
	}

	att := Attempt{
		Ref:         ref,
		Provider:    gw.Name(),
		ProviderRef: sess.ProviderRef,
		UserID:      userID,
		State:       StateAwaitingPayment,
		Amount:      amount,
		Currency:    a.currency,
		Delivery:    del,
		CreatedAt:   time.Now().UTC(),
	}

	if err := a.save(ctx, att); err != nil {
		return Attempt{}, Session{}, err
	}

	return att, sess, nil
}

// Complete handles the gateway's success callback. Payment is already
// captured at this point: orders are composed from the cart as it stands
// now, and the cart is cleared only when every shop's order committed.
func (a *Adapter) Complete(ctx context.Context, providerRef string, paymentRef string) (Attempt, order.Result, error) {
	att, err := a.load(ctx, providerRef)
	if err != nil {
		return Attempt{}, order.Result{}, err
	}

	if att.State != StateAwaitingPayment {
		return att, order.Result{}, ErrNotAwaiting
	}

	crt, err := a.carts.Get(ctx, att.UserID)
	if err != nil {
		return att, order.Result{}, fmt.Errorf("reading cart after capture: %w", err)
	}

	att.State = StateSucceeded
	att.PaymentRef = paymentRef

	res, err := a.orders.Compose(ctx, crt, att.Delivery, paymentRef)
	if err != nil {
		// Money is captured and not a single order exists. Same
		// reconciliation gap as a partial commit, worst case.
		a.flagReconciliation(ctx, att, res)
		if serr := a.save(ctx, att); serr != nil {
			a.log.WithField("checkout", att.Ref).Error(serr)
		}
		return att, res, fmt.Errorf("composing orders after captured payment: %w", err)
	}

	if !res.FullyCommitted() {
		a.flagReconciliation(ctx, att, res)
		if err := a.save(ctx, att); err != nil {
			a.log.WithField("checkout", att.Ref).Error(err)
		}
		return att, res, ErrPartialCommit
	}

	if _, err := a.carts.Clear(ctx, att.UserID); err != nil {
		// Orders exist and payment is captured; a stale cart is the
		// cheapest of the three to leave behind. Surface it anyway.
		a.log.WithFields(logrus.Fields{
			"checkout": att.Ref,
			"message":  err,
		}).Error("clearing cart after checkout")
	}

	if err := a.save(ctx, att); err != nil {
		a.log.WithField("checkout", att.Ref).Error(err)
	}

	metrics.CheckoutAttempts.WithLabelValues("succeeded").Inc()

	for _, ord := range res.Orders {
		ord := ord
		a.publish(func() error { return a.events.OrderCreated(context.Background(), ord) })
	}

	return att, res, nil
}

// Dismiss records a failed or user-cancelled widget. The two outcomes are
// identical for state purposes and cause no cart or order writes; they are
// distinguished only for telemetry.
func (a *Adapter) Dismiss(ctx context.Context, providerRef string, cancelled bool) (Attempt, error) {
	att, err := a.load(ctx, providerRef)
	if err != nil {
		return Attempt{}, err
	}

	if att.State != StateAwaitingPayment {
		return att, ErrNotAwaiting
	}

	result := "failed"
	att.State = StateFailed
	if cancelled {
		result = "cancelled"
		att.State = StateCancelled
	}

	if err := a.save(ctx, att); err != nil {
		return att, err
	}

	metrics.CheckoutAttempts.WithLabelValues(result).Inc()
	return att, nil
}

func (a *Adapter) flagReconciliation(ctx context.Context, att Attempt, res order.Result) {
	metrics.CheckoutAttempts.WithLabelValues("succeeded").Inc()
	metrics.PartialCommits.Inc()

	a.log.WithFields(logrus.Fields{
		"checkout":    att.Ref,
		"payment_ref": att.PaymentRef,
		"user_id":     att.UserID,
		"committed":   res.Committed,
		"failed":      res.Failed,
	}).Error("payment captured without full order commitment, reconciliation required")

	rec := events.Reconciliation{
		CheckoutRef: att.Ref,
		PaymentRef:  att.PaymentRef,
		UserID:      att.UserID,
		Committed:   res.Committed,
		Failed:      res.Failed,
	}
	if err := a.events.ReconciliationRequired(ctx, rec); err != nil {
		a.log.WithFields(logrus.Fields{
			"checkout": att.Ref,
			"message":  err,
		}).Error("publishing reconciliation event")
	}
}

func (a *Adapter) publish(task func() error) {
	run := func() {
		if err := task(); err != nil {
			a.log.WithField("message", err).Error("publishing order event")
		}
	}

	if a.bg != nil {
		a.bg.Add(run)
		return
	}
	run()
}

func (a *Adapter) load(ctx context.Context, providerRef string) (Attempt, error) {
	raw, ok, err := a.docs.Get(ctx, attemptKey(providerRef))
	if err != nil {
		return Attempt{}, fmt.Errorf("reading checkout attempt: %w", err)
	}
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}

	var att Attempt
	if err := json.Unmarshal(raw, &att); err != nil {
		return Attempt{}, fmt.Errorf("decoding checkout attempt: %w", err)
	}
	return att, nil
}

func (a *Adapter) save(ctx context.Context, att Attempt) error {
	raw, err := json.Marshal(att)
	if err != nil {
		return fmt.Errorf("encoding checkout attempt: %w", err)
	}

	if err := a.docs.Set(ctx, attemptKey(att.ProviderRef), raw, a.ttl); err != nil {
		return fmt.Errorf("writing checkout attempt: %w", err)
	}
	return nil
}
