package fakeapi

import (
	"time"
)

type user struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	password  string
}

type confession struct {
	ID          string
	UserID      string
	Content     string
	Category    string
	IsAnonymous bool
	Likes       int
	Boos        int
	Stars       int
	Shares      int
	CreatedAt   time.Time
}

type comment struct {
	ID           string
	ConfessionID string
	UserID       string
	Content      string
	Likes        int
	Boos         int
	CreatedAt    time.Time
}

type connection struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Category    string
	Location    string
	Age         *int
	Interests   []string
	CreatedAt   time.Time
}

type friendRequest struct {
	ID           string
	ConnectionID string
	SenderID     string
	ReceiverID   string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type settings struct {
	PushNotifications  bool      `json:"pushNotifications"`
	EmailNotifications bool      `json:"emailNotifications"`
	CommentReplies     bool      `json:"commentReplies"`
	NewFollowers       bool      `json:"newFollowers"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// ContactMessage is a submission received on POST /contact.
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (s *Server) userJSON(id string) map[string]any {
	u := s.usersByID[id]
	if u == nil {
		return nil
	}
	return map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"created_at": u.CreatedAt,
	}
}

// confessionJSON renders the list shape, where "comments" is a count.
func (s *Server) confessionJSON(c *confession) map[string]any {
	out := map[string]any{
		"id":           c.ID,
		"content":      c.Content,
		"category":     c.Category,
		"likes":        c.Likes,
		"boos":         c.Boos,
		"stars":        c.Stars,
		"shares":       c.Shares,
		"comments":     len(s.comments[c.ID]),
		"created_at":   c.CreatedAt,
		"is_anonymous": c.IsAnonymous,
		"trending":     c.Likes+c.Stars >= trendingThreshold,
	}
	if !c.IsAnonymous {
		out["author"] = s.userJSON(c.UserID)
	}
	return out
}

func (s *Server) commentJSON(c *comment) map[string]any {
	return map[string]any{
		"id":            c.ID,
		"confession_id": c.ConfessionID,
		"content":       c.Content,
		"likes":         c.Likes,
		"boos":          c.Boos,
		"created_at":    c.CreatedAt,
		"author":        s.userJSON(c.UserID),
		"replies":       []any{},
	}
}

func (s *Server) connectionJSON(c *connection) map[string]any {
	out := map[string]any{
		"id":          c.ID,
		"title":       c.Title,
		"description": c.Description,
		"category":    c.Category,
		"interests":   c.Interests,
		"created_at":  c.CreatedAt,
		"author":      s.userJSON(c.UserID),
	}
	if c.Location != "" {
		out["location"] = c.Location
	}
	if c.Age != nil {
		out["age"] = *c.Age
	}
	return out
}

func (s *Server) findConfession(id string) *confession {
	for _, c := range s.confessions {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *Server) findComment(id string) *comment {
	for _, list := range s.comments {
		for _, c := range list {
			if c.ID == id {
				return c
			}
		}
	}
	return nil
}

func (s *Server) findConnection(id string) *connection {
	for _, c := range s.connections {
		if c.ID == id {
			return c
		}
	}
	return nil
}
