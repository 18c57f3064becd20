package stripe

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/refund"
	"github.com/stripe/stripe-go/v81/webhook"
)

type Event = stripe.Event

// ErrUnknownOutcome marks a charge whose result never arrived (timeout,
// connection drop after send). The charge may have gone through, so the
// caller must not retry blindly or roll back stock.
var ErrUnknownOutcome = errors.New("payment outcome unknown")

type ChargeResult struct {
	TransactionRef string
	Status         string
	ClientSecret   string
}

// Gateway is the opaque payment collaborator. Amounts are in the
// currency's smallest unit, the way Stripe wants them. orderRef rides
// along in the intent metadata so webhook events resolve back to the
// order that created the charge.
type Gateway interface {
	Charge(ctx context.Context, amount int64, currency, description, customerRef, orderRef string) (*ChargeResult, error)
	Refund(ctx context.Context, transactionRef string, amount int64, reason string) (*ChargeResult, error)
	VerifyWebhookSignature(payload []byte, signature string) (Event, error)
}

type stripeGateway struct {
	webhookSecret string
}

func NewStripeGateway(apiKey string, webhookSecret string) Gateway {
	stripe.Key = apiKey

	return &stripeGateway{webhookSecret: webhookSecret}
}

func (s *stripeGateway) Charge(ctx context.Context, amount int64, currency, description, customerRef, orderRef string) (*ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Params:      stripe.Params{Context: ctx},
		Amount:      stripe.Int64(amount),
		Currency:    stripe.String(currency),
		Description: stripe.String(description),
		Confirm:     stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}

	if customerRef != "" {
		params.Customer = stripe.String(customerRef)
	}

	if orderRef != "" {
		params.AddMetadata("order_id", orderRef)
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrUnknownOutcome
		}

		return nil, err
	}

	return &ChargeResult{
		TransactionRef: intent.ID,
		Status:         string(intent.Status),
		ClientSecret:   intent.ClientSecret,
	}, nil
}

func (s *stripeGateway) Refund(ctx context.Context, transactionRef string, amount int64, reason string) (*ChargeResult, error) {
	params := &stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(transactionRef),
		Amount:        stripe.Int64(amount),
	}

	if reason != "" {
		params.Reason = stripe.String(reason)
	}

	ref, err := refund.New(params)
	if err != nil {
		return nil, err
	}

	return &ChargeResult{
		TransactionRef: ref.ID,
		Status:         string(ref.Status),
	}, nil
}

func (s *stripeGateway) VerifyWebhookSignature(payload []byte, signature string) (Event, error) {
	if s.webhookSecret == "" {
		return Event{}, errors.New("webhook secret not configured")
	}

	return webhook.ConstructEvent(payload, signature, s.webhookSecret)
}
