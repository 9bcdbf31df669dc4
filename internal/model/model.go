package model

import "time"

type Category string

const (
	CategoryGeneral    Category = "general"
	CategoryLove       Category = "love"
	CategoryFriendship Category = "friendship"
	CategoryWork       Category = "work"
	CategoryFamily     Category = "family"
)

var Categories = []Category{CategoryGeneral, CategoryLove, CategoryFriendship, CategoryWork, CategoryFamily}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type ConnectionCategory string

const (
	ConnectionLove       ConnectionCategory = "love"
	ConnectionFriendship ConnectionCategory = "friendship"
)

type ReactionType string

const (
	ReactionLike ReactionType = "like"
	ReactionBoo  ReactionType = "boo"
)

func (r ReactionType) Valid() bool {
	return r == ReactionLike || r == ReactionBoo
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
)

type RequestAction string

const (
	ActionAccept  RequestAction = "accept"
	ActionDecline RequestAction = "decline"
)

type Variant string

const (
	VariantInfo    Variant = "info"
	VariantSuccess Variant = "success"
	VariantWarning Variant = "warning"
)

type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	IsAnonymous bool      `json:"isAnonymous,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Confession struct {
	ID            string
	Content       string
	Author        *User
	CreatedAt     time.Time
	Likes         int
	Boos          int
	Stars         int
	Shares        int
	Category      Category
	Trending      bool
	Comments      []Comment
	CommentsCount int

	// Viewer-local flags, never authoritative.
	IsLiked   bool
	IsBooed   bool
	IsStarred bool
}

// Clone returns a copy that shares no slices with c.
func (c Confession) Clone() Confession {
	out := c
	if c.Author != nil {
		author := *c.Author
		out.Author = &author
	}
	if c.Comments != nil {
		out.Comments = make([]Comment, len(c.Comments))
		for i, cm := range c.Comments {
			out.Comments[i] = cm.Clone()
		}
	}
	return out
}

type ShareResult struct {
	Message    string
	URL        string
	Confession Confession
}

type Comment struct {
	ID        string
	Content   string
	Author    User
	CreatedAt time.Time
	Likes     int
	Boos      int
	Replies   []Reply
	IsLiked   bool
	IsBooed   bool
}

func (c Comment) Clone() Comment {
	out := c
	if c.Replies != nil {
		out.Replies = append([]Reply(nil), c.Replies...)
	}
	return out
}

type Reply struct {
	ID        string
	Content   string
	Author    User
	CreatedAt time.Time
	Likes     int
	IsLiked   bool
}

type Connection struct {
	ID          string
	Title       string
	Description string
	Author      User
	CreatedAt   time.Time
	Category    ConnectionCategory
	Location    string
	Age         *int
	Interests   []string
}

type CreateConnectionInput struct {
	Title       string
	Description string
	Category    ConnectionCategory
	Location    string
	Age         *int
	Interests   []string
}

type ConnectionRequestResult struct {
	Status  string
	Message string
}

type ConnectionPreview struct {
	ID        string
	Title     string
	Category  string
	CreatedAt time.Time
}

type ConnectionProfile struct {
	ID                string
	Username          string
	CreatedAt         time.Time
	ConnectionsPosted int
	Categories        []string
	RecentConnections []ConnectionPreview
}

type FriendFollower struct {
	SenderID              string
	Username              string
	Email                 string
	FollowedAt            time.Time
	LatestConnectionID    string
	LatestConnectionTitle string
}

type FriendRequestInboxItem struct {
	RequestID       string
	ConnectionID    string
	ConnectionTitle string
	SenderID        string
	Username        string
	Email           string
	Status          RequestStatus
	RequestedAt     time.Time
}

type FriendsOverview struct {
	Friends []FriendFollower
	Pending []FriendRequestInboxItem
}

type UserSettings struct {
	PushNotifications  bool
	EmailNotifications bool
	CommentReplies     bool
	NewFollowers       bool
	UpdatedAt          *time.Time
}

// SettingsPatch carries only the fields being changed.
type SettingsPatch struct {
	PushNotifications  *bool `json:"pushNotifications,omitempty"`
	EmailNotifications *bool `json:"emailNotifications,omitempty"`
	CommentReplies     *bool `json:"commentReplies,omitempty"`
	NewFollowers       *bool `json:"newFollowers,omitempty"`
}

type ContactMessage struct {
	Name    string
	Email   string
	Subject string
	Message string
}

type CommunityStats struct {
	CurrentOnline  int
	MaxVisitors24h int
	MaxVisitors7d  int
	MaxVisitors1m  int
	MaxVisitors1yr int
}

type Notification struct {
	ID      string
	Title   string
	Message string
	Variant Variant
}
