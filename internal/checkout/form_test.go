package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maiams/NomaCardHouse/internal/domain"
)

func validForm() *Form {
	return &Form{
		CustomerName:  "Maria Silva",
		CustomerEmail: "maria@example.com",
		CustomerCPF:   "529.982.247-25",
		CustomerPhone: "+55 11 91234-5678",
		Street:        "Rua Augusta",
		Number:        "1500",
		Complement:    "apto 42",
		Neighborhood:  "Consolação",
		City:          "São Paulo",
		State:         "SP",
		CEP:           "01304-001",
		PaymentMethod: domain.PaymentMethodPix,
	}
}

func TestValidFormPasses(t *testing.T) {
	assert.Nil(t, validForm().Validate())
}

func TestValidateCollectsAllFieldErrors(t *testing.T) {
	f := &Form{}
	errs := f.Validate()
	require.NotNil(t, errs)

	for _, field := range []string{
		"customer_name", "customer_email", "customer_cpf",
		"street", "number", "neighborhood", "city", "state", "cep",
		"payment_method",
	} {
		assert.Contains(t, errs, field)
	}
	// Optional fields never error.
	assert.NotContains(t, errs, "complement")
	assert.NotContains(t, errs, "customer_phone")
	assert.NotContains(t, errs, "notes")
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Form)
		field  string
	}{
		{"bad email", func(f *Form) { f.CustomerEmail = "not-an-email" }, "customer_email"},
		{"bad cpf checksum", func(f *Form) { f.CustomerCPF = "529.982.247-26" }, "customer_cpf"},
		{"repeated digit cpf", func(f *Form) { f.CustomerCPF = "111.111.111-11" }, "customer_cpf"},
		{"unknown state", func(f *Form) { f.State = "XX" }, "state"},
		{"short cep", func(f *Form) { f.CEP = "1234" }, "cep"},
		{"bad method", func(f *Form) { f.PaymentMethod = "BARTER" }, "payment_method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(f)
			errs := f.Validate()
			require.NotNil(t, errs)
			assert.Contains(t, errs, tt.field)
			assert.Len(t, errs, 1)
		})
	}
}

func TestShippingAddressNormalizesState(t *testing.T) {
	f := validForm()
	f.State = " sp "
	assert.Equal(t, "SP", f.shippingAddress().State)
}
