package credentials

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/jrsteele09/go-fitness-client/apierrors"
)

const (
	FieldEmail    = "email"
	FieldPassword = "password"

	MinPasswordLength = 6

	invalidEmailMsg  = "Invalid email address"
	shortPasswordMsg = "Password must be at least 6 characters"
)

// Validator checks login and registration input shapes before any network call.
// Every invalid field is reported, not just the first.
type Validator struct{}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateLogin returns nil or a *apierrors.ValidationError.
func (v *Validator) ValidateLogin(c Credentials) error {
	verr := apierrors.NewValidationError()
	v.checkEmail(verr, c.Email)
	v.checkPassword(verr, c.Password)
	return result(verr)
}

// ValidateRegistration returns nil or a *apierrors.ValidationError.
// The username is optional and unconstrained.
func (v *Validator) ValidateRegistration(r RegistrationData) error {
	verr := apierrors.NewValidationError()
	v.checkEmail(verr, r.Email)
	v.checkPassword(verr, r.Password)
	return result(verr)
}

func (v *Validator) checkEmail(verr *apierrors.ValidationError, email string) {
	if !ValidEmail(email) {
		verr.Add(FieldEmail, invalidEmailMsg)
	}
}

func (v *Validator) checkPassword(verr *apierrors.ValidationError, password string) {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		verr.Add(FieldPassword, shortPasswordMsg)
	}
}

// ValidEmail reports whether email is a bare address such as "a@b.com".
// Display names, surrounding whitespace and single-label domains are rejected.
func ValidEmail(email string) bool {
	if email == "" || strings.TrimSpace(email) != email {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return false
	}
	domain := email[at+1:]
	if strings.HasPrefix(domain, "[") {
		return false
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if label == "" || strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
	}
	return true
}

func result(verr *apierrors.ValidationError) error {
	if verr.Empty() {
		return nil
	}
	return verr
}
