// Package identity supplies the user id stamped on entries and audit
// events. The core has no authentication of its own.
package identity

import "os"

// Provider returns the id of the user performing operations.
type Provider interface {
	CurrentUserID() string
}

// Static is a fixed user id.
type Static string

// CurrentUserID implements Provider.
func (s Static) CurrentUserID() string {
	return string(s)
}

// FromEnv reads CAIXA_USER, falling back to "local".
func FromEnv() Provider {
	if u := os.Getenv("CAIXA_USER"); u != "" {
		return Static(u)
	}
	return Static("local")
}
