package auth

import (
	"strings"
)

// MinPasswordLength is the shortest password accepted at registration
const MinPasswordLength = 10

// EmailTakenMessage is reported on the email field when the address is in use
const EmailTakenMessage = "a user with this email already exists"

// Registration is a sign-up request. Presence and email syntax are checked
// by gin binding; Validate covers the rest.
type Registration struct {
	Email                string `json:"email" binding:"required,email"`
	Password             string `json:"password" binding:"required"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

// FieldErrors maps a request field to every problem found with it
type FieldErrors map[string][]string

// Add records msg against field
func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Validate normalises the email and checks the password rules
func (r *Registration) Validate() FieldErrors {
	errs := FieldErrors{}

	r.Email = strings.TrimSpace(r.Email)

	if len(r.Password) < MinPasswordLength {
		errs.Add("password", "passwords must be at least 10 characters long")
	}
	if r.Password != r.PasswordConfirmation {
		errs.Add("password", "password and password confirmation must match")
	}

	return errs
}
