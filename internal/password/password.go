package password

import "unicode"

// Validate checks a candidate password against the account policy and
// returns every unmet rule, not just the first.
func Validate(candidate string) []string {
	var unmet []string

	if len(candidate) < 8 {
		unmet = append(unmet, "password must be at least 8 characters long")
	}

	var hasUpper, hasDigit, hasSpecial bool
	for _, r := range candidate {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		unmet = append(unmet, "password must contain at least 1 uppercase character")
	}
	if !hasDigit {
		unmet = append(unmet, "password must contain at least 1 number")
	}
	if !hasSpecial {
		unmet = append(unmet, "password must contain at least 1 special character")
	}

	return unmet
}
