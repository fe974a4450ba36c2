package recognizer

import (
	"math/big"
	"strings"
)

// passesChecksums applies the hard validation gates a pattern declares to one
// matched value. Regexes for credit cards and IBANs over-match by
// construction; the checksum rejects the false positives before they become
// detections.
func passesChecksums(p compiledPattern, value string) bool {
	if p.validateIBAN {
		clean := strings.ReplaceAll(value, " ", "")
		if !validIBANLength(clean) || !validIBANChecksum(clean) {
			return false
		}
	}
	if p.validateLuhn {
		if !luhnValid(stripNonDigits(value)) {
			return false
		}
	}
	return true
}

// luhnValid checks whether a digit string passes the Luhn algorithm
// (ISO/IEC 7812).
func luhnValid(number string) bool {
	n := len(number)
	if n < 2 {
		return false
	}
	sum := 0
	alt := false
	for i := n - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if alt {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		alt = !alt
	}
	return sum%10 == 0
}

// validIBANChecksum verifies the MOD-97 check digits per ISO 13616. The IBAN
// is rearranged (country+check moved to the end), letters converted to digits
// (A=10 ... Z=35), and the remainder mod 97 must equal 1.
func validIBANChecksum(iban string) bool {
	if len(iban) < 5 {
		return false
	}
	rearranged := iban[4:] + iban[:4]
	var numStr strings.Builder
	for _, ch := range rearranged {
		switch {
		case ch >= '0' && ch <= '9':
			numStr.WriteRune(ch)
		case ch >= 'A' && ch <= 'Z':
			numStr.WriteString(big.NewInt(int64(ch - 'A' + 10)).String())
		default:
			return false
		}
	}
	n, ok := new(big.Int).SetString(numStr.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}

// validIBANLength checks that the IBAN has the registered length for its
// country code.
func validIBANLength(iban string) bool {
	if len(iban) < 2 {
		return false
	}
	expected, ok := ibanLengths[iban[:2]]
	if !ok {
		return false
	}
	return len(iban) == expected
}

// ibanLengths maps ISO 3166 country codes to their registered IBAN length
// per the ISO 13616 registry.
var ibanLengths = map[string]int{
	"AD": 24, "AE": 23, "AL": 28, "AT": 20, "AZ": 28,
	"BA": 20, "BE": 16, "BG": 22, "BH": 22, "BR": 29,
	"CH": 21, "CY": 28, "CZ": 24, "DE": 22, "DK": 18,
	"EE": 20, "ES": 24, "FI": 18, "FR": 27, "GB": 22,
	"GE": 22, "GI": 23, "GR": 27, "HR": 21, "HU": 28,
	"IE": 22, "IL": 23, "IS": 26, "IT": 27, "LI": 21,
	"LT": 20, "LU": 20, "LV": 21, "MC": 27, "MD": 24,
	"ME": 22, "MK": 19, "MT": 31, "NL": 18, "NO": 15,
	"PL": 28, "PT": 25, "RO": 24, "RS": 22, "SA": 24,
	"SE": 24, "SI": 19, "SK": 24, "SM": 27, "TR": 26,
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}
