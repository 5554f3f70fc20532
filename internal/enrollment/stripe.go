package enrollment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"course-manager/internal/config"
	"course-manager/internal/models"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
	"github.com/stripe/stripe-go/v74/webhook"
)

// InitStripe initializes the Stripe API with the secret key.
func InitStripe(cfg config.StripeConfig) {
	stripe.Key = cfg.SecretKey
}

// StripeCheckout implements CheckoutGateway against Stripe Checkout
// Sessions. The full validated submission rides along as session
// metadata, so nothing is persisted until the payment callback fires.
type StripeCheckout struct {
	cfg config.StripeConfig
}

func NewStripeCheckout(cfg config.StripeConfig) *StripeCheckout {
	return &StripeCheckout{cfg: cfg}
}

func (g *StripeCheckout) CreateCheckoutSession(sub *CheckedSubmission, course *models.Course) (string, string, error) {
	payload, err := json.Marshal(sub)
	if err != nil {
		return "", "", fmt.Errorf("serialize submission: %w", err)
	}

	successURL := fmt.Sprintf("%s/%s?payment_success=1",
		strings.TrimRight(g.cfg.SuccessURL, "/"), course.CourseID)

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(fmt.Sprintf("%s/%s", strings.TrimRight(g.cfg.SuccessURL, "/"), course.CourseID)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(g.cfg.Currency),
					// NOK is stored without minor units; Stripe wants oere.
					UnitAmount: stripe.Int64(sub.TotalPrice * 100),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("%s (%d deltakere)", course.Title, len(sub.Participants))),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		CustomerEmail: stripe.String(sub.BuyerEmail),
	}
	params.AddMetadata("submission", string(payload))

	sess, err := session.New(params)
	if err != nil {
		return "", "", err
	}
	return sess.ID, sess.URL, nil
}

// WebhookError carries both a client-safe message and the detailed one
// for the logs.
type WebhookError struct {
	StatusCode    int
	PublicError   string
	InternalError string
}

func (e *WebhookError) Error() string {
	return e.InternalError
}

// HandleStripeWebhook verifies and processes a Stripe webhook delivery.
// Completed checkout sessions are turned into enrollments exactly once.
func (s *Service) HandleStripeWebhook(r *http.Request, webhookSecret string) error {
	if webhookSecret == "" {
		s.logger.Error("WEBHOOK", "Stripe webhook secret is not configured")
		return &WebhookError{
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Webhook processing error",
			InternalError: "Stripe webhook secret is not configured",
		}
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error("WEBHOOK", fmt.Sprintf("Failed to read webhook payload: %v", err))
		return &WebhookError{
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid webhook payload",
			InternalError: fmt.Sprintf("Failed to read webhook payload: %v", err),
		}
	}

	opts := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}
	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), webhookSecret, opts)
	if err != nil {
		s.logger.Error("WEBHOOK", fmt.Sprintf("Webhook signature verification failed: %v", err))
		return &WebhookError{
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid webhook signature",
			InternalError: fmt.Sprintf("Webhook signature verification failed: %v", err),
		}
	}

	s.logger.Info("WEBHOOK", fmt.Sprintf("Processing Stripe webhook event: %s", event.Type))

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			s.logger.Error("WEBHOOK", fmt.Sprintf("Failed to unmarshal checkout session: %v", err))
			return &WebhookError{
				StatusCode:    http.StatusBadRequest,
				PublicError:   "Invalid event data",
				InternalError: fmt.Sprintf("Failed to unmarshal checkout session: %v", err),
			}
		}
		if err := s.CompleteFromMetadata(r.Context(), sess.ID, sess.Metadata); err != nil {
			s.logger.Error("WEBHOOK", fmt.Sprintf("Failed to complete order %s: %v", sess.ID, err))
			return &WebhookError{
				StatusCode:    http.StatusInternalServerError,
				PublicError:   "Failed to process payment",
				InternalError: fmt.Sprintf("Failed to complete order %s: %v", sess.ID, err),
			}
		}
	default:
		s.logger.Info("WEBHOOK", fmt.Sprintf("Unhandled event type: %s", event.Type))
	}

	return nil
}

// CompleteFromMetadata turns a paid order's metadata back into an
// enrollment. Orders without a serialized submission are treated as
// unrelated and skipped; a repeated delivery of the same order id is a
// no-op.
func (s *Service) CompleteFromMetadata(ctx context.Context, orderID string, metadata map[string]string) error {
	raw, ok := metadata["submission"]
	if !ok || raw == "" {
		s.logger.Info("WEBHOOK", fmt.Sprintf("Order %s carries no enrollment submission, skipping", orderID))
		return nil
	}

	fresh, err := s.Redis.MarkOrderProcessed(orderID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if !fresh {
		s.logger.Info("WEBHOOK", fmt.Sprintf("Order %s already processed, skipping", orderID))
		return nil
	}

	var sub CheckedSubmission
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		s.logger.Warn("WEBHOOK", fmt.Sprintf("Order %s carries malformed submission metadata, skipping: %v", orderID, err))
		return nil
	}

	enrollmentID, err := s.Complete(ctx, &sub, orderID)
	if err != nil {
		// Release the marker so a redelivery can retry after a
		// transient failure; otherwise the paid order would never
		// produce an enrollment.
		if clearErr := s.Redis.ClearOrderProcessed(orderID); clearErr != nil {
			s.logger.Error("WEBHOOK", fmt.Sprintf("Failed to clear processed marker for order %s: %v", orderID, clearErr))
		}
		return err
	}
	s.logger.LogEnrollment("PAID", enrollmentID, fmt.Sprintf("Completed from order %s", orderID))
	return nil
}
