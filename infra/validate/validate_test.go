package validate

import (
	"testing"

	"github.com/mstgnz/coursepay/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomValidate(t *testing.T) {
	v := CustomValidate()

	tests := []struct {
		name    string
		req     provider.OrderRequest
		wantErr string
	}{
		{
			name: "valid request",
			req: provider.OrderRequest{
				Gateway:  "Razorpay",
				Customer: provider.Customer{Name: "Asha", Email: "asha@example.com", Phone: "+91 98765-43210"},
			},
		},
		{
			name: "unknown gateway",
			req: provider.OrderRequest{
				Gateway:  "paypal",
				Customer: provider.Customer{Name: "Asha", Email: "asha@example.com", Phone: "9876543210"},
			},
			wantErr: "Unsupported gateway",
		},
		{
			name: "bad phone",
			req: provider.OrderRequest{
				Gateway:  "cashfree",
				Customer: provider.Customer{Name: "Asha", Email: "asha@example.com", Phone: "12"},
			},
			wantErr: "Invalid customer phone",
		},
		{
			name: "bad email",
			req: provider.OrderRequest{
				Gateway:  "phonepe",
				Customer: provider.Customer{Name: "Asha", Email: "asha", Phone: "9876543210"},
			},
			wantErr: "Invalid customer email",
		},
		{
			name: "missing name",
			req: provider.OrderRequest{
				Gateway:  "phonepe",
				Customer: provider.Customer{Email: "asha@example.com", Phone: "9876543210"},
			},
			wantErr: "Customer details (name, email, phone) are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(v, tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}
