package utils

import "strings"

// NormalizeCPF strips formatting punctuation from a CPF, keeping digits only.
// "123.456.789-09" and "12345678909" normalize to the same value, which is
// also the cache key for the customer's order history.
func NormalizeCPF(cpf string) string {
	var b strings.Builder
	for _, r := range cpf {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCPF checks the normalized CPF against the official check-digit
// algorithm. Repeated-digit sequences (000..., 111...) are rejected.
func ValidCPF(cpf string) bool {
	cpf = NormalizeCPF(cpf)
	if len(cpf) != 11 {
		return false
	}

	allEqual := true
	for i := 1; i < len(cpf); i++ {
		if cpf[i] != cpf[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return false
	}

	digits := make([]int, 11)
	for i, r := range cpf {
		digits[i] = int(r - '0')
	}

	for _, pos := range []int{9, 10} {
		sum := 0
		for i := 0; i < pos; i++ {
			sum += digits[i] * (pos + 1 - i)
		}
		check := (sum * 10) % 11
		if check == 10 {
			check = 0
		}
		if check != digits[pos] {
			return false
		}
	}
	return true
}
