// Package handler provides the HTTP handlers of the course checkout API.
//
// The handlers decode and validate requests, call the payment service and
// turn its typed errors into status codes. They hold no payment state.
//
// # Payment Handler
//
//	paymentHandler := handler.NewPaymentHandler(paymentService, validate, cfg.IsProduction())
//
//	r.Post("/api/payment/create-order", paymentHandler.CreateOrder)
//	r.Post("/api/payment/verify-payment", paymentHandler.VerifyPayment)
//	r.Get("/api/payment/status/{gateway}/{id}", paymentHandler.GetStatus)
//	r.Post("/api/payment/refund", paymentHandler.Refund)
//	r.Post("/api/webhook/{gateway}", paymentHandler.HandleWebhook)
//
// Example order request:
//
//	POST /api/payment/create-order
//	Content-Type: application/json
//
//	{
//	  "amount": 999,
//	  "gateway": "razorpay",
//	  "customer": {
//	    "name": "Asha Rao",
//	    "email": "asha@example.com",
//	    "phone": "9876543210"
//	  },
//	  "description": "Go for backend engineers"
//	}
//
// Response:
//
//	{
//	  "code": 200,
//	  "success": true,
//	  "gateway": "razorpay",
//	  "order": {
//	    "orderId": "order_NXh1...",
//	    "amount": 99900,
//	    "currency": "INR",
//	    "razorpayKey": "rzp_test_..."
//	  }
//	}
//
// # Error Handling
//
//   - Validation errors: 400, the message is shown as is
//   - Missing gateway credentials: 500 "Payment gateway is not configured"
//   - Upstream failures: 500 "Payment gateway request failed", with details
//     outside production
//   - A payment the gateway did not confirm: 400 with its status
//   - A refund the gateway did not accept: 400 with the refund details
//
// # Webhooks
//
// Webhook deliveries with a missing signature header get 400 and failed
// authentication gets 401. Everything after authentication is answered with
// 200 and a success flag, so gateways only redeliver when they could not
// reach us.
package handler
