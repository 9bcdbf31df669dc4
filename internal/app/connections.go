package app

import (
	"context"
	"fmt"

	"github.com/Semkufu95/confessions/internal/model"
)

// RefreshConnections replaces the connection list. On failure the list is
// emptied.
func (s *State) RefreshConnections(ctx context.Context) error {
	fresh, err := s.deps.Connections.GetAll(ctx)
	s.mu.Lock()
	if err != nil {
		s.connections = []model.Connection{}
	} else {
		s.connections = fresh
	}
	s.mu.Unlock()
	s.changed()
	if err != nil {
		return fmt.Errorf("refresh connections: %w", err)
	}
	return nil
}

func (s *State) AddConnection(ctx context.Context, in model.CreateConnectionInput) (model.Connection, error) {
	created, err := s.deps.Connections.Create(ctx, in)
	if err != nil {
		return model.Connection{}, err
	}
	s.mu.Lock()
	s.connections = append([]model.Connection{created}, s.connections...)
	s.mu.Unlock()
	s.changed()
	return created, nil
}

// RefreshFriends loads followers and pending requests. The previous lists
// are kept when the call fails.
func (s *State) RefreshFriends(ctx context.Context) (model.FriendsOverview, error) {
	ov, err := s.deps.Connections.GetMyFriends(ctx)
	if err != nil {
		return s.Friends(), fmt.Errorf("refresh friends: %w", err)
	}
	s.mu.Lock()
	s.friends = ov
	s.mu.Unlock()
	s.changed()
	return s.Friends(), nil
}

// RespondToFriendRequest accepts or declines a request and records the
// resulting status on the matching pending entry.
func (s *State) RespondToFriendRequest(ctx context.Context, requestID string, action model.RequestAction) (model.ConnectionRequestResult, error) {
	res, err := s.deps.Connections.RespondToFriendRequest(ctx, requestID, action)
	if err != nil {
		return model.ConnectionRequestResult{}, err
	}
	s.mu.Lock()
	for i := range s.friends.Pending {
		if s.friends.Pending[i].RequestID == requestID {
			s.friends.Pending[i].Status = requestStatus(res.Status)
		}
	}
	s.mu.Unlock()
	s.changed()
	return res, nil
}

func requestStatus(raw string) model.RequestStatus {
	switch model.RequestStatus(raw) {
	case model.RequestAccepted, model.RequestDeclined:
		return model.RequestStatus(raw)
	}
	return model.RequestPending
}
