package password

import (
	"fmt"
	"strings"
	"unicode"
)

const specialChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"

// Requirement names reported in Strength.Failed.
const (
	ReqMinLength = "min_length"
	ReqUpper     = "has_upper"
	ReqLower     = "has_lower"
	ReqDigit     = "has_digit"
	ReqSpecial   = "has_special"
)

// Strength is the result of a password policy check. Score is 0-100; each
// of the five requirements contributes 20 points, with small bonuses for
// extra length and absence of repeated substrings.
type Strength struct {
	Valid    bool
	Score    int
	Failed   []string
	Feedback []string
}

// ValidateStrength checks the password against the policy requirements:
// minimum length, at least one uppercase letter, one lowercase letter, one
// digit, and one special character. Valid is true only when every
// requirement passes.
func ValidateStrength(password string, minLength int) Strength {
	if minLength <= 0 {
		minLength = 8
	}

	var s Strength
	s.Valid = true

	fail := func(name, feedback string) {
		s.Valid = false
		s.Failed = append(s.Failed, name)
		s.Feedback = append(s.Feedback, feedback)
	}

	if len(password) >= minLength {
		s.Score += 20
	} else {
		fail(ReqMinLength, fmt.Sprintf("password must be at least %d characters long", minLength))
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
		if strings.ContainsRune(specialChars, r) {
			hasSpecial = true
		}
	}

	if hasUpper {
		s.Score += 20
	} else {
		fail(ReqUpper, "password must contain at least one uppercase letter")
	}
	if hasLower {
		s.Score += 20
	} else {
		fail(ReqLower, "password must contain at least one lowercase letter")
	}
	if hasDigit {
		s.Score += 20
	} else {
		fail(ReqDigit, "password must contain at least one digit")
	}
	if hasSpecial {
		s.Score += 20
	} else {
		fail(ReqSpecial, "password must contain at least one special character")
	}

	if len(password) >= 12 {
		s.Score += 10
	}
	if !hasRepeatedTrigram(password) {
		s.Score += 10
	}
	if s.Score > 100 {
		s.Score = 100
	}

	return s
}

func hasRepeatedTrigram(password string) bool {
	for i := 0; i+3 <= len(password)-3; i++ {
		if strings.Contains(password[i+3:], password[i:i+3]) {
			return true
		}
	}
	return false
}
