package fakeapi

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Semkufu95/confessions/internal/model"
)

var errEmailTaken = errors.New("User already exists")

func (s *Server) addUser(username, email, password string) (*user, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.users[email]; taken {
		return nil, errEmailTaken
	}
	u := &user{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		CreatedAt: s.now().UTC(),
		password:  string(hash),
	}
	s.users[email] = u
	s.usersByID[u.ID] = u
	return u, nil
}

// AddUser registers an account directly and returns its id.
func (s *Server) AddUser(username, email, password string) (string, error) {
	u, err := s.addUser(username, email, password)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

// AddConfession stores a confession without broadcasting it and returns its
// id.
func (s *Server) AddConfession(userID, content string, category model.Category, anonymous bool) string {
	return s.addConfession(userID, content, category, anonymous).ID
}

func (s *Server) addConfession(userID, content string, category model.Category, anonymous bool) *confession {
	if category == "" {
		category = model.CategoryGeneral
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &confession{
		ID:          uuid.NewString(),
		UserID:      userID,
		Content:     strings.TrimSpace(content),
		Category:    string(category),
		IsAnonymous: anonymous,
		CreatedAt:   s.now().UTC(),
	}
	s.confessions = append([]*confession{c}, s.confessions...)
	return c
}

// ConfessionIDs lists stored confessions, newest first.
func (s *Server) ConfessionIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.confessions))
	for i, c := range s.confessions {
		ids[i] = c.ID
	}
	return ids
}

// Contacts returns the messages received on /contact.
func (s *Server) Contacts() []ContactMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ContactMessage(nil), s.contacts...)
}
