package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/Semkufu95/confessions/internal/model"
)

const (
	MaxConfessionLength = 1000
	MinConnectionAge    = 18
)

func validateConfession(content string, category model.Category) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return invalid("content", "Confession content is required")
	}
	if utf8.RuneCountInString(content) > MaxConfessionLength {
		return invalid("content", "Confession content must be %d characters or less", MaxConfessionLength)
	}
	if !category.Valid() {
		return invalid("category", "Invalid category %q", category)
	}
	return nil
}

func validateComment(content string) error {
	if strings.TrimSpace(content) == "" {
		return invalid("content", "Comment content is required")
	}
	return nil
}

// ValidateReaction rejects anything other than like or boo.
func ValidateReaction(t model.ReactionType) error {
	if !t.Valid() {
		return invalid("type", "Reaction must be %q or %q", model.ReactionLike, model.ReactionBoo)
	}
	return nil
}

func validateConnection(in model.CreateConnectionInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return invalid("title", "Title is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return invalid("description", "Description is required")
	}
	if in.Category != model.ConnectionLove && in.Category != model.ConnectionFriendship {
		return invalid("category", "Invalid connection category %q", in.Category)
	}
	if in.Age != nil && *in.Age < MinConnectionAge {
		return invalid("age", "You must be at least %d", MinConnectionAge)
	}
	return nil
}

func validateContact(m model.ContactMessage) error {
	switch {
	case strings.TrimSpace(m.Name) == "":
		return invalid("name", "Name is required")
	case strings.TrimSpace(m.Email) == "":
		return invalid("email", "Email is required")
	case !validEmail(m.Email):
		return invalid("email", "Invalid email format")
	case strings.TrimSpace(m.Subject) == "":
		return invalid("subject", "Subject is required")
	case strings.TrimSpace(m.Message) == "":
		return invalid("message", "Message is required")
	}
	return nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	return err == nil && addr.Address == strings.TrimSpace(s)
}
