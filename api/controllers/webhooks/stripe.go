package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/ordering-backend/api/responses"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
)

// maxPayloadBytes matches the provider's documented event size ceiling.
const maxPayloadBytes = 64 << 10

type PaymentEventService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type signingSecretSource interface {
	SigningSecret() string
}

// PaymentWebhook verifies and applies payment provider events. Duplicate
// deliveries are acknowledged without reprocessing; a failed event releases
// its mark so the provider's retry runs again.
func PaymentWebhook(svc PaymentEventService, client signingSecretSource, guard eventGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload too large"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInvalidSignature, "signature header missing"))
			return
		}

		event, err := webhook.ConstructEventWithOptions(payload, sigHeader, client.SigningSecret(), webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInvalidSignature, err, "invalid webhook signature"))
			return
		}
		if logg != nil {
			ctx = logg.WithEventID(ctx, event.ID)
		}

		marked := false
		if guard != nil {
			seen, err := guard.CheckAndMark(ctx, event.ID)
			switch {
			case err != nil:
				// Transitions are conditional updates, so processing without
				// the mark is still safe.
				if logg != nil {
					logg.Warn(ctx, "webhook idempotency check failed: "+err.Error())
				}
			case seen:
				if logg != nil {
					logg.Debug(ctx, "duplicate webhook delivery acknowledged")
				}
				responses.WriteSuccess(w, map[string]bool{"received": true})
				return
			default:
				marked = true
			}
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			if marked {
				if delErr := guard.Delete(ctx, event.ID); delErr != nil && logg != nil {
					logg.Warn(ctx, "release webhook mark: "+delErr.Error())
				}
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}
