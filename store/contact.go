package store

import (
	"net/mail"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

// ContactMethod is how the sender wants to be answered.
type ContactMethod string

const (
	ContactEmail   ContactMethod = "email"
	ContactDiscord ContactMethod = "discord"
)

const (
	maxNameLen    = 200
	maxHandleLen  = 320
	maxMessageLen = 5000
)

// ContactRequest is a persisted contact form submission.
type ContactRequest struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Discord       string        `json:"discord"`
	Message       string        `json:"message"`
	ContactMethod ContactMethod `json:"contactMethod"`
	CreatedAt     time.Time     `json:"createdAt"`
	Read          bool          `json:"read"`
}

// NewContact is the raw contact form input.
type NewContact struct {
	Name          string `json:"name" form:"name"`
	Email         string `json:"email" form:"email"`
	Discord       string `json:"discord" form:"discord"`
	Message       string `json:"message" form:"message"`
	ContactMethod string `json:"contactMethod" form:"contactMethod"`
}

// Validate checks the submission and returns the request to store. Only the
// handle matching the chosen method is kept.
func (n NewContact) Validate() (ContactRequest, error) {
	req := ContactRequest{
		Name:          strings.TrimSpace(n.Name),
		Message:       strings.TrimSpace(n.Message),
		ContactMethod: ContactMethod(strings.TrimSpace(n.ContactMethod)),
	}
	if req.Name == "" {
		return req, &ValidationError{Field: "name", Message: "Name is required"}
	}
	if utf8.RuneCountInString(req.Name) > maxNameLen {
		return req, &ValidationError{Field: "name", Message: "Name is too long"}
	}
	if req.Message == "" {
		return req, &ValidationError{Field: "message", Message: "Message is required"}
	}
	if utf8.RuneCountInString(req.Message) > maxMessageLen {
		return req, &ValidationError{Field: "message", Message: "Message is too long"}
	}

	switch req.ContactMethod {
	case ContactEmail:
		email := strings.TrimSpace(n.Email)
		if email == "" {
			return req, &ValidationError{Field: "email", Message: "Email is required"}
		}
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email || utf8.RuneCountInString(email) > maxHandleLen {
			return req, &ValidationError{Field: "email", Message: "Email is invalid"}
		}
		req.Email = email
	case ContactDiscord:
		discord := strings.TrimSpace(n.Discord)
		if discord == "" {
			return req, &ValidationError{Field: "discord", Message: "Discord username is required"}
		}
		if utf8.RuneCountInString(discord) > maxHandleLen {
			return req, &ValidationError{Field: "discord", Message: "Discord username is too long"}
		}
		req.Discord = discord
	default:
		return req, &ValidationError{Field: "contactMethod", Message: "Contact method must be email or discord"}
	}
	return req, nil
}

var lastContactID atomic.Int64

// nextContactID returns the current Unix time in milliseconds, bumped so
// ids handed out by this process are strictly increasing.
func nextContactID(t time.Time) string {
	for {
		prev := lastContactID.Load()
		id := t.UnixMilli()
		if id <= prev {
			id = prev + 1
		}
		if lastContactID.CompareAndSwap(prev, id) {
			return strconv.FormatInt(id, 10)
		}
	}
}
