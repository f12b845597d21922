package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidCPF_KnownValid(t *testing.T) {
	assert.True(t, ValidCPF("52998224725"))
	assert.True(t, ValidCPF("529.982.247-25"), "masked input should validate")
}

func TestValidCPF_RepeatedDigits(t *testing.T) {
	for d := '0'; d <= '9'; d++ {
		cpf := ""
		for i := 0; i < 11; i++ {
			cpf += string(d)
		}
		assert.False(t, ValidCPF(cpf), "repeated digit %s must be rejected", cpf)
	}
}

func TestValidCPF_SingleDigitMutationFails(t *testing.T) {
	const ref = "52998224725"
	for i := 0; i < len(ref); i++ {
		for r := byte('0'); r <= '9'; r++ {
			if r == ref[i] {
				continue
			}
			mutated := ref[:i] + string(r) + ref[i+1:]
			assert.False(t, ValidCPF(mutated), "mutation %s at position %d must fail", mutated, i)
		}
	}
}

func TestValidCPF_WrongLength(t *testing.T) {
	assert.False(t, ValidCPF(""))
	assert.False(t, ValidCPF("5299822472"))
	assert.False(t, ValidCPF("529982247255"))
	assert.False(t, ValidCPF("abc"))
}

func TestValidCEP(t *testing.T) {
	tests := []struct {
		cep  string
		want bool
	}{
		{"01310100", true},
		{"01310-100", true},
		{"0131010", false},
		{"013101000", false},
		{"", false},
		{"abcdefgh", false},
	}
	for _, tt := range tests {
		t.Run(tt.cep, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidCEP(tt.cep))
		})
	}
}

func TestValidState(t *testing.T) {
	assert.True(t, ValidState("SP"))
	assert.True(t, ValidState("rj"))
	assert.False(t, ValidState("XX"))
	assert.False(t, ValidState(""))
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("shopper@example.com.br"))
	assert.False(t, ValidEmail("shopper@"))
	assert.False(t, ValidEmail("not-an-email"))
}

func ExampleValidCPF() {
	fmt.Println(ValidCPF("529.982.247-25"))
	// Output: true
}
