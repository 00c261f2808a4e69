// Package provider is the gateway-independent core of the checkout backend.
//
// It defines the shared request and result types, the Adapter interface that
// each gateway package (razorpay, phonepe, cashfree) implements, and the
// PaymentService that validates requests and dispatches them.
//
// # Amounts
//
// Requests carry amounts in rupees as decimal.Decimal. ToMinorUnits converts
// them to paise exactly; anything with more than two decimal places is
// rejected instead of rounded. Order.Amount is always in paise, whatever the
// gateway's own wire format is.
//
// # Errors
//
// Every failure is an *Error with a Kind:
//
//   - KindValidation: the caller sent something wrong; the message is safe to show.
//   - KindConfiguration: credentials for the gateway are missing.
//   - KindGateway: the upstream call failed, timed out or was rejected.
//
// A payment that the gateway reports as failed, or a signature that does not
// match, is a result with Success false, not an error.
//
// # Webhooks
//
// PaymentService.HandleWebhook first asks the adapter to check the
// authentication headers, then verifies the signature and parses the body.
// Rejections are *WebhookError values whose Stage tells the HTTP layer which
// status to answer with.
//
// # Basic Usage
//
//	registry := provider.NewRegistry(
//	    razorpay.NewProvider(cfg.Razorpay, timeout),
//	    phonepe.NewProvider(cfg.PhonePe, urls, timeout),
//	    cashfree.NewProvider(cfg.Cashfree, urls, timeout),
//	)
//	service := provider.NewPaymentService(registry, provider.WithUpstreamTimeout(timeout))
//
//	order, err := service.CreateOrder(ctx, provider.OrderRequest{
//	    Amount:   decimal.NewFromInt(999),
//	    Gateway:  "razorpay",
//	    Customer: provider.Customer{Name: "Asha", Email: "asha@example.com", Phone: "9876543210"},
//	})
package provider
