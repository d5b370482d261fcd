package store

import "errors"

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Subscription is a browser push subscription and the companies whose asset events it receives.
type Subscription struct {
	Endpoint   string   `json:"endpoint"`
	P256DH     string   `json:"p256dh"`
	Auth       string   `json:"auth"`
	CompanyIDs []string `json:"subscribed_companies"`
}
