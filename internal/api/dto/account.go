package dto

import (
	"net/url"
	"regexp"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidEmail checks the address format.
func ValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// UpdateAccountRequest binds the form-encoded account update.
type UpdateAccountRequest struct {
	Name  string
	Email string
}

func ParseUpdateAccountRequest(form url.Values) UpdateAccountRequest {
	return UpdateAccountRequest{
		Name:  form.Get("name"),
		Email: form.Get("email"),
	}
}

func (r UpdateAccountRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Name == "" {
		errors["name"] = "Name is required"
	} else if len(r.Name) > 100 {
		errors["name"] = "Name must be at most 100 characters"
	}
	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !ValidEmail(r.Email) {
		errors["email"] = "Invalid email address"
	}

	return errors
}
