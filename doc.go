// Package coursepay is the payment backend of a course checkout. It opens
// orders at Razorpay, PhonePe or Cashfree, verifies the payments the
// customer's browser reports back and receives the gateways' webhooks.
//
// # Overview
//
// The frontend sends one create-order request with the chosen gateway and
// the customer's details. The backend answers with whatever the gateway
// needs to take the customer to its checkout: a Razorpay order and key id,
// a PhonePe redirect URL or a Cashfree payment session. After checkout the
// frontend calls verify-payment, and independently the gateway posts a
// signed webhook. No payment state is stored; every answer comes from the
// gateway.
//
// # Architecture
//
//	┌─────────────┐    ┌──────────────────┐    ┌─────────────┐
//	│             │    │                  │    │  Razorpay   │
//	│  Frontend   │◄──►│    coursepay     │◄──►│  PhonePe    │
//	│             │    │                  │    │  Cashfree   │
//	└─────────────┘    └──────────────────┘    └─────────────┘
//	                            ▲                     │
//	                            └───── webhooks ──────┘
//
// # Packages
//
//   - provider: request and result types, the Adapter interface, the
//     PaymentService and the gateway registry
//   - provider/razorpay, provider/phonepe, provider/cashfree: gateway adapters
//   - provider/signature: HMAC and checksum helpers shared by the adapters
//   - provider/events: the default sink for verified webhook events
//   - handler, router: the HTTP API
//   - infra: configuration, logging, metrics, middleware, OpenSearch
//
// # HTTP API
//
//	POST /api/payment/create-order              open an order
//	POST /api/payment/verify-payment            verify a completed payment
//	GET  /api/payment/status/{gateway}/{id}     look up an order or payment
//	POST /api/payment/refund                    refund a payment
//	POST /api/webhook/{gateway}                 gateway notifications
//	GET  /health                                liveness and gateway configuration
//	GET  /metrics                               Prometheus metrics
//
// # Configuration
//
// Settings come from the environment, optionally loaded from a .env file:
//
//	PORT=5000
//	APP_ENV=development
//	FRONTEND_URL=http://localhost:3000
//	BACKEND_URL=http://localhost:5000
//	GATEWAY_TIMEOUT=20s
//
//	RAZORPAY_KEY_ID=rzp_test_...
//	RAZORPAY_KEY_SECRET=...
//	RAZORPAY_WEBHOOK_SECRET=...
//
//	PHONEPE_MERCHANT_ID=...
//	PHONEPE_SALT_KEY=...
//	PHONEPE_SALT_INDEX=1
//	PHONEPE_ENV=sandbox
//
//	CASHFREE_APP_ID=...
//	CASHFREE_SECRET_KEY=...
//	CASHFREE_ENV=sandbox
//
// A gateway with missing credentials is reported at startup and on /health,
// and its requests fail with "Payment gateway is not configured".
//
// # Logging
//
// Logs are structured (zerolog, JSON or console). With
// ENABLE_OPENSEARCH_LOGGING=true they are also shipped to OpenSearch,
// together with every verified webhook event.
//
// # Security Features
//
//   - Razorpay payment and webhook signatures are HMAC-SHA256, compared in
//     constant time
//   - PhonePe X-VERIFY checksums and optional webhook Basic auth
//   - Cashfree webhook signatures
//   - Per-IP rate limiting on the payment routes
//   - Request size limits and security headers
//   - Secrets are never logged
package coursepay
