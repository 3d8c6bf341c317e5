package stripe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	"github.com/angelmondragon/ordering-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client holds the Stripe credentials and the per-call timeout.
type Client struct {
	environment   string
	signingSecret string
	currency      string
	timeout       time.Duration
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, timeout time.Duration, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.SecretKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	signingSecret := strings.TrimSpace(cfg.WebhookSecret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}
	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	stripe.Key = apiKey

	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = string(stripe.CurrencyGBP)
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		environment:   env,
		signingSecret: signingSecret,
		currency:      currency,
		timeout:       timeout,
	}, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// Currency is the ISO currency code every session is created in.
func (c *Client) Currency() string {
	if c == nil {
		return ""
	}
	return c.currency
}

// CreateCheckoutSession opens a hosted payment session.
func (c *Client) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session params required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return nil, ClassifyError(err, "create checkout session")
	}
	return sess, nil
}

// GetCheckoutSession retrieves a session with its payment intent expanded.
func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	sess, err := session.Get(id, params)
	if err != nil {
		return nil, ClassifyError(err, "retrieve checkout session")
	}
	return sess, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := config.MinGatewayTimeout
	if c != nil && c.timeout > 0 {
		timeout = c.timeout
	}
	return context.WithTimeout(ctx, timeout)
}

// ClassifyError maps a gateway failure onto the error taxonomy: timeouts,
// transport failures, rate limits and provider 5xx become DEPENDENCY_ERROR
// (gateway unavailable), everything else GATEWAY_ERROR.
func ClassifyError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op+": payment provider timed out")
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op+": payment provider unreachable")
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= 500 || stripeErr.HTTPStatusCode == 429 || stripeErr.Type == stripe.ErrorTypeAPI {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op+": payment provider unavailable")
		}
		if stripeErr.HTTPStatusCode == 404 {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, op+": payment session not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, op)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
