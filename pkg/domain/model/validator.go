package model

import (
	"fmt"
	"net/mail"
	"strings"
)

// ValidateUser runs the structural validation applied after all mutation.
// Problems are advisory: they surface as end-of-batch notifications and
// never roll back or fail the row.
func ValidateUser(u *User) []string {
	var problems []string

	if u.Username == "" {
		problems = append(problems, "username is empty")
	} else if u.Username != CleanUsername(u.Username) {
		problems = append(problems, fmt.Sprintf("username %q is not canonical", u.Username))
	}
	if u.Firstname == "" {
		problems = append(problems, "firstname is empty")
	}
	if u.Lastname == "" {
		problems = append(problems, "lastname is empty")
	}
	if u.Email != "" && !ValidEmail(u.Email) {
		problems = append(problems, fmt.Sprintf("email %q is not valid", u.Email))
	}
	if u.Auth == "" {
		problems = append(problems, "auth kind is empty")
	}

	return problems
}

// ValidEmail reports whether the address parses as a single plain RFC 5322
// address without a display name.
func ValidEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " \t") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email
}
