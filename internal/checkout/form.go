package checkout

import (
	"strings"

	"github.com/maiams/NomaCardHouse/internal/domain"
)

// Form is the checkout submission. Everything except Complement,
// Phone and Notes is required.
type Form struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerCPF   string `json:"customer_cpf"`
	CustomerPhone string `json:"customer_phone"`

	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	CEP          string `json:"cep"`

	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	Notes         string               `json:"notes"`
}

// FieldErrors maps form field names to human-readable problems.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	return "checkout form validation failed"
}

// Validate checks every field and returns the full error set, not
// just the first problem, so the UI can mark all bad fields at once.
func (f *Form) Validate() FieldErrors {
	errs := FieldErrors{}

	if strings.TrimSpace(f.CustomerName) == "" {
		errs["customer_name"] = "name is required"
	}
	switch {
	case strings.TrimSpace(f.CustomerEmail) == "":
		errs["customer_email"] = "email is required"
	case !domain.ValidEmail(f.CustomerEmail):
		errs["customer_email"] = "email is invalid"
	}
	switch {
	case strings.TrimSpace(f.CustomerCPF) == "":
		errs["customer_cpf"] = "cpf is required"
	case !domain.ValidCPF(f.CustomerCPF):
		errs["customer_cpf"] = "cpf is invalid"
	}

	if strings.TrimSpace(f.Street) == "" {
		errs["street"] = "street is required"
	}
	if strings.TrimSpace(f.Number) == "" {
		errs["number"] = "number is required"
	}
	if strings.TrimSpace(f.Neighborhood) == "" {
		errs["neighborhood"] = "neighborhood is required"
	}
	if strings.TrimSpace(f.City) == "" {
		errs["city"] = "city is required"
	}
	switch {
	case strings.TrimSpace(f.State) == "":
		errs["state"] = "state is required"
	case !domain.ValidState(f.State):
		errs["state"] = "state is not a valid brazilian state"
	}
	switch {
	case strings.TrimSpace(f.CEP) == "":
		errs["cep"] = "cep is required"
	case !domain.ValidCEP(f.CEP):
		errs["cep"] = "cep must have 8 digits"
	}

	if !f.PaymentMethod.IsValid() {
		errs["payment_method"] = "payment method is invalid"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (f *Form) customer() domain.Customer {
	return domain.Customer{
		Name:  strings.TrimSpace(f.CustomerName),
		Email: strings.TrimSpace(f.CustomerEmail),
		CPF:   f.CustomerCPF,
		Phone: strings.TrimSpace(f.CustomerPhone),
	}
}

func (f *Form) shippingAddress() domain.Address {
	return domain.Address{
		Street:       strings.TrimSpace(f.Street),
		Number:       strings.TrimSpace(f.Number),
		Complement:   strings.TrimSpace(f.Complement),
		Neighborhood: strings.TrimSpace(f.Neighborhood),
		City:         strings.TrimSpace(f.City),
		State:        strings.ToUpper(strings.TrimSpace(f.State)),
		CEP:          f.CEP,
	}
}
