package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v84"
)

// ErrNoStripeKey indicates the Stripe secret key was not provided.
var ErrNoStripeKey = errors.New("billing: stripe secret key required")

// CustomerResolver maps a user to a Stripe customer id. ok is false for
// users without a customer.
type CustomerResolver func(ctx context.Context, userID string) (customerID string, ok bool, err error)

// StripeConfig configures the Stripe checker.
type StripeConfig struct {
	SecretKey string

	// Resolver maps users to customers. Nil treats the user id as the
	// customer id.
	Resolver CustomerResolver

	// BaseURL overrides the Stripe API URL.
	BaseURL string

	Logger *slog.Logger
}

// Stripe enables voice for users whose customer has an active or trialing
// subscription.
type Stripe struct {
	client   *stripe.Client
	resolver CustomerResolver
	logger   *slog.Logger
}

// NewStripe creates a Stripe checker.
func NewStripe(cfg StripeConfig) (*Stripe, error) {
	if cfg.SecretKey == "" {
		return nil, ErrNoStripeKey
	}
	if cfg.Resolver == nil {
		cfg.Resolver = func(_ context.Context, userID string) (string, bool, error) {
			return userID, userID != "", nil
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var opts []stripe.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, stripe.WithBackends(stripe.NewBackendsWithConfig(&stripe.BackendConfig{
			URL:               stripe.String(cfg.BaseURL),
			MaxNetworkRetries: stripe.Int64(0),
		})))
	}

	return &Stripe{
		client:   stripe.NewClient(cfg.SecretKey, opts...),
		resolver: cfg.Resolver,
		logger:   cfg.Logger.With("component", "billing.stripe"),
	}, nil
}

// VoiceEnabled implements Checker.
func (s *Stripe) VoiceEnabled(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, ErrNoUser
	}
	customer, ok, err := s.resolver(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("billing: resolve customer: %w", err)
	}
	if !ok {
		return false, nil
	}

	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customer),
		Status:   stripe.String("all"),
	}
	for sub, err := range s.client.V1Subscriptions.List(ctx, params) {
		if err != nil {
			return false, fmt.Errorf("billing: list subscriptions: %w", err)
		}
		switch sub.Status {
		case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
			s.logger.Debug("voice enabled", "user_id", userID, "subscription", sub.ID, "status", sub.Status)
			return true, nil
		}
	}
	return false, nil
}

// Verify Stripe implements Checker at compile time.
var _ Checker = (*Stripe)(nil)
