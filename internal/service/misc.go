package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/Semkufu95/confessions/internal/model"
	"github.com/Semkufu95/confessions/internal/normalize"
)

type Contact struct {
	api API
}

func NewContact(api API) *Contact {
	return &Contact{api: api}
}

func (s *Contact) Send(ctx context.Context, m model.ContactMessage) error {
	if err := validateContact(m); err != nil {
		return err
	}
	body := map[string]string{
		"name":    strings.TrimSpace(m.Name),
		"email":   strings.TrimSpace(m.Email),
		"subject": strings.TrimSpace(m.Subject),
		"message": strings.TrimSpace(m.Message),
	}
	return s.api.Do(ctx, http.MethodPost, "/contact", body, nil)
}

type Settings struct {
	api API
}

func NewSettings(api API) *Settings {
	return &Settings{api: api}
}

func (s *Settings) GetMine(ctx context.Context) (model.UserSettings, error) {
	var raw normalize.Record
	if err := s.api.Do(ctx, http.MethodGet, "/me/settings", nil, &raw); err != nil {
		return model.UserSettings{}, err
	}
	return normalize.Settings(raw), nil
}

// UpdateMine sends only the fields set in patch.
func (s *Settings) UpdateMine(ctx context.Context, patch model.SettingsPatch) (model.UserSettings, error) {
	var raw normalize.Record
	if err := s.api.Do(ctx, http.MethodPut, "/me/settings", patch, &raw); err != nil {
		return model.UserSettings{}, err
	}
	return normalize.Settings(raw), nil
}

type Stats struct {
	api API
}

func NewStats(api API) *Stats {
	return &Stats{api: api}
}

func (s *Stats) Get(ctx context.Context) (model.CommunityStats, error) {
	var raw normalize.Record
	if err := s.api.Do(ctx, http.MethodGet, "/stats", nil, &raw); err != nil {
		return model.CommunityStats{}, err
	}
	return normalize.Stats(raw), nil
}
