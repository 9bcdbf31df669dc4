package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/Semkufu95/confessions/internal/model"
	"github.com/Semkufu95/confessions/internal/normalize"
)

type Confessions struct {
	api API
}

func NewConfessions(api API) *Confessions {
	return &Confessions{api: api}
}

func (s *Confessions) GetAll(ctx context.Context) ([]model.Confession, error) {
	var raw any
	if err := s.api.Do(ctx, http.MethodGet, "/confessions", nil, &raw); err != nil {
		return nil, err
	}
	items := records(raw)
	out := make([]model.Confession, 0, len(items))
	for _, r := range items {
		out = append(out, normalize.Confession(r))
	}
	return out, nil
}

// GetWithComments fetches one confession with its full comment list.
func (s *Confessions) GetWithComments(ctx context.Context, id string) (model.Confession, error) {
	var raw normalize.Record
	if err := s.api.Do(ctx, http.MethodGet, "/confessions/"+pathID(id)+"/comments", nil, &raw); err != nil {
		return model.Confession{}, err
	}
	return normalize.ConfessionDetail(raw), nil
}

func (s *Confessions) Create(ctx context.Context, content string, category model.Category, anonymous bool) (model.Confession, error) {
	if err := validateConfession(content, category); err != nil {
		return model.Confession{}, err
	}
	body := map[string]any{
		"content":     strings.TrimSpace(content),
		"category":    category,
		"isAnonymous": anonymous,
	}
	return s.confession(ctx, http.MethodPost, "/confessions/", body)
}

func (s *Confessions) Update(ctx context.Context, id, content string, category model.Category) (model.Confession, error) {
	if err := validateConfession(content, category); err != nil {
		return model.Confession{}, err
	}
	body := map[string]any{
		"content":  strings.TrimSpace(content),
		"category": category,
	}
	return s.confession(ctx, http.MethodPut, "/confessions/"+pathID(id), body)
}

func (s *Confessions) Remove(ctx context.Context, id string) error {
	return s.api.Do(ctx, http.MethodDelete, "/confessions/"+pathID(id), nil, nil)
}

func (s *Confessions) Star(ctx context.Context, id string) (model.Confession, error) {
	return s.confession(ctx, http.MethodPost, "/confessions/"+pathID(id)+"/star", nil)
}

func (s *Confessions) React(ctx context.Context, id string, t model.ReactionType) (model.Confession, error) {
	if err := ValidateReaction(t); err != nil {
		return model.Confession{}, err
	}
	return s.confession(ctx, http.MethodPost, "/confessions/"+pathID(id)+"/react", map[string]any{"type": t})
}

func (s *Confessions) Comment(ctx context.Context, confessionID, content string) (model.Comment, error) {
	if err := validateComment(content); err != nil {
		return model.Comment{}, err
	}
	body := map[string]any{"content": strings.TrimSpace(content)}
	return s.comment(ctx, "/comments/"+pathID(confessionID), body)
}

func (s *Confessions) ReactComment(ctx context.Context, commentID string, t model.ReactionType) (model.Comment, error) {
	if err := ValidateReaction(t); err != nil {
		return model.Comment{}, err
	}
	return s.comment(ctx, "/comments/"+pathID(commentID)+"/react", map[string]any{"type": t})
}

func (s *Confessions) Share(ctx context.Context, id string) (model.ShareResult, error) {
	var raw normalize.Record
	if err := s.api.Do(ctx, http.MethodPost, "/confessions/"+pathID(id)+"/share", nil, &raw); err != nil {
		return model.ShareResult{}, err
	}
	res := model.ShareResult{Confession: normalize.ConfessionDetail(raw)}
	res.Message, _ = raw["message"].(string)
	res.URL, _ = raw["share_url"].(string)
	return res, nil
}

func (s *Confessions) confession(ctx context.Context, method, path string, body any) (model.Confession, error) {
	var raw normalize.Record
	if err := s.api.Do(ctx, method, path, body, &raw); err != nil {
		return model.Confession{}, err
	}
	return normalize.ConfessionDetail(raw), nil
}

func (s *Confessions) comment(ctx context.Context, path string, body any) (model.Comment, error) {
	var raw normalize.Record
	if err := s.api.Do(ctx, http.MethodPost, path, body, &raw); err != nil {
		return model.Comment{}, err
	}
	if inner := normalize.AsRecord(raw["comment"]); inner != nil {
		raw = inner
	}
	return normalize.Comment(raw), nil
}
