package domain

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

var brazilianStates = map[string]struct{}{
	"AC": {}, "AL": {}, "AP": {}, "AM": {}, "BA": {}, "CE": {}, "DF": {},
	"ES": {}, "GO": {}, "MA": {}, "MT": {}, "MS": {}, "MG": {}, "PA": {},
	"PB": {}, "PR": {}, "PE": {}, "PI": {}, "RJ": {}, "RN": {}, "RS": {},
	"RO": {}, "RR": {}, "SC": {}, "SP": {}, "SE": {}, "TO": {},
}

func ValidState(state string) bool {
	_, ok := brazilianStates[strings.ToUpper(strings.TrimSpace(state))]
	return ok
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCPF checks the Brazilian CPF: 11 digits whose last two are
// check digits computed with a two-stage modulo-11 scheme. A CPF made
// of a single repeated digit passes the arithmetic but is invalid.
func ValidCPF(cpf string) bool {
	digits := onlyDigits(cpf)
	if len(digits) != 11 {
		return false
	}

	allEqual := true
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return false
	}

	if cpfCheckDigit(digits, 9) != int(digits[9]-'0') {
		return false
	}
	return cpfCheckDigit(digits, 10) == int(digits[10]-'0')
}

// cpfCheckDigit computes the check digit verified at position pos,
// weighting the preceding digits by pos+1 descending.
func cpfCheckDigit(digits string, pos int) int {
	sum := 0
	for i := 0; i < pos; i++ {
		sum += int(digits[i]-'0') * (pos + 1 - i)
	}
	digit := 11 - sum%11
	if digit >= 10 {
		return 0
	}
	return digit
}

// ValidCEP accepts a Brazilian postal code: exactly 8 digits after
// stripping mask characters.
func ValidCEP(cep string) bool {
	return len(onlyDigits(cep)) == 8
}
