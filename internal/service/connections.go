package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/Semkufu95/confessions/internal/model"
	"github.com/Semkufu95/confessions/internal/normalize"
)

type Connections struct {
	api API
}

func NewConnections(api API) *Connections {
	return &Connections{api: api}
}

func (s *Connections) GetAll(ctx context.Context) ([]model.Connection, error) {
	var raw any
	if err := s.api.Do(ctx, http.MethodGet, "/connections", nil, &raw); err != nil {
		return nil, err
	}
	items := records(raw)
	out := make([]model.Connection, 0, len(items))
	for _, r := range items {
		out = append(out, normalize.Connection(r))
	}
	return out, nil
}

func (s *Connections) Create(ctx context.Context, in model.CreateConnectionInput) (model.Connection, error) {
	if err := validateConnection(in); err != nil {
		return model.Connection{}, err
	}
	interests := in.Interests
	if interests == nil {
		interests = []string{}
	}
	body := map[string]any{
		"title":       strings.TrimSpace(in.Title),
		"description": strings.TrimSpace(in.Description),
		"category":    in.Category,
		"interests":   interests,
	}
	if loc := strings.TrimSpace(in.Location); loc != "" {
		body["location"] = loc
	}
	if in.Age != nil {
		body["age"] = *in.Age
	}

	var raw normalize.Record
	if err := s.api.Do(ctx, http.MethodPost, "/connections/", body, &raw); err != nil {
		return model.Connection{}, err
	}
	return normalize.Connection(raw), nil
}

func (s *Connections) Connect(ctx context.Context, id string) (model.ConnectionRequestResult, error) {
	var raw normalize.Record
	if err := s.api.Do(ctx, http.MethodPost, "/connections/"+pathID(id)+"/connect", nil, &raw); err != nil {
		return model.ConnectionRequestResult{}, err
	}
	return normalize.ConnectionRequestResult(raw, string(model.RequestPending), "Connection request sent"), nil
}

func (s *Connections) GetProfile(ctx context.Context, id string) (model.ConnectionProfile, error) {
	var raw normalize.Record
	if err := s.api.Do(ctx, http.MethodGet, "/connections/"+pathID(id)+"/profile", nil, &raw); err != nil {
		return model.ConnectionProfile{}, err
	}
	return normalize.ConnectionProfile(raw), nil
}

// GetMyFriends accepts both the bare follower array and the
// {friends, pending} envelope.
func (s *Connections) GetMyFriends(ctx context.Context) (model.FriendsOverview, error) {
	var raw any
	if err := s.api.Do(ctx, http.MethodGet, "/me/friends", nil, &raw); err != nil {
		return model.FriendsOverview{}, err
	}
	return normalize.FriendsOverview(raw), nil
}

func (s *Connections) RespondToFriendRequest(ctx context.Context, requestID string, action model.RequestAction) (model.ConnectionRequestResult, error) {
	fallback := model.RequestAccepted
	switch action {
	case model.ActionAccept:
	case model.ActionDecline:
		fallback = model.RequestDeclined
	default:
		return model.ConnectionRequestResult{}, invalid("action", "Action must be %q or %q", model.ActionAccept, model.ActionDecline)
	}

	var raw normalize.Record
	body := map[string]any{"action": action}
	if err := s.api.Do(ctx, http.MethodPost, "/me/friends/requests/"+pathID(requestID)+"/respond", body, &raw); err != nil {
		return model.ConnectionRequestResult{}, err
	}
	return normalize.ConnectionRequestResult(raw, string(fallback), "Request "+string(fallback)), nil
}
