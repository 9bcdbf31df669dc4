package normalize

import (
	"strings"

	"github.com/Semkufu95/confessions/internal/model"
)

const (
	AnonymousID   = "anonymous"
	AnonymousName = "Anonymous"
)

func User(r Record) model.User {
	return model.User{
		ID:          firstNonEmpty(r.str("id"), AnonymousID),
		Username:    firstNonEmpty(r.str("username"), AnonymousName),
		Email:       r.str("email"),
		IsAnonymous: r.str("id") == "",
		CreatedAt:   r.stamp("created_at", "createdAt"),
	}
}

func Reply(r Record) model.Reply {
	liked, _ := r.flag("isLiked", "is_liked")
	return model.Reply{
		ID:        r.str("id"),
		Content:   r.str("content"),
		Author:    User(r.obj("author", "user")),
		CreatedAt: r.stamp("created_at", "createdAt", "timeStamp"),
		Likes:     r.count("likes"),
		IsLiked:   liked,
	}
}

func Comment(r Record) model.Comment {
	replies := records(r.list("replies"))
	c := model.Comment{
		ID:        r.str("id"),
		Content:   r.str("content"),
		Author:    User(r.obj("author", "user")),
		CreatedAt: r.stamp("created_at", "createdAt", "timeStamp"),
		Likes:     r.count("likes"),
		Boos:      r.count("boos"),
		Replies:   make([]model.Reply, 0, len(replies)),
	}
	for _, rep := range replies {
		c.Replies = append(c.Replies, Reply(rep))
	}
	return c
}

func Comments(items []any) []model.Comment {
	recs := records(items)
	out := make([]model.Comment, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Comment(rec))
	}
	return out
}

// Category maps free-form category text onto the known set.
func Category(raw string) model.Category {
	c := model.Category(strings.ToLower(strings.TrimSpace(raw)))
	if c.Valid() {
		return c
	}
	return model.CategoryGeneral
}

func Confession(r Record) model.Confession {
	c := model.Confession{
		ID:        r.str("id"),
		Content:   r.str("content"),
		CreatedAt: r.stamp("created_at", "createdAt", "timeStamp"),
		Likes:     r.count("likes"),
		Boos:      r.count("boos"),
		Stars:     r.count("stars"),
		Shares:    r.count("shares"),
		Category:  Category(r.str("category")),
		Comments:  Comments(r.list("comments")),
	}
	c.Trending, _ = r.flag("trending", "is_trending", "isTrending")

	anonymous, _ := r.flag("is_anonymous", "isAnonymous")
	if author := r.obj("author", "user"); author != nil && !anonymous {
		u := User(author)
		c.Author = &u
	}

	// The list endpoint sends "comments" as a bare count.
	count, ok := r.num("commentsCount", "comments_count", "comments")
	if !ok || count < len(c.Comments) {
		count = len(c.Comments)
	}
	c.CommentsCount = count
	return c
}

// ConfessionDetail accepts either a bare confession or the
// {"confession": ..., "comments": [...]} detail envelope.
func ConfessionDetail(r Record) model.Confession {
	inner := r.obj("confession")
	if inner == nil {
		return Confession(r)
	}
	c := Confession(inner)
	if items := r.list("comments"); items != nil {
		c.Comments = Comments(items)
		if c.CommentsCount < len(c.Comments) {
			c.CommentsCount = len(c.Comments)
		}
	}
	return c
}

func ConnectionCategory(raw string) model.ConnectionCategory {
	if strings.EqualFold(strings.TrimSpace(raw), string(model.ConnectionLove)) {
		return model.ConnectionLove
	}
	return model.ConnectionFriendship
}

func Connection(r Record) model.Connection {
	c := model.Connection{
		ID:          r.str("id"),
		Title:       firstNonEmpty(r.str("title"), "Untitled connection"),
		Description: r.str("description"),
		Author:      User(r.obj("author", "user")),
		CreatedAt:   r.stamp("created_at", "createdAt"),
		Category:    ConnectionCategory(r.str("category")),
		Location:    r.str("location"),
		Interests:   r.strings("interests"),
	}
	if age, ok := r.num("age"); ok {
		c.Age = &age
	}
	return c
}

func ConnectionProfile(r Record) model.ConnectionProfile {
	p := model.ConnectionProfile{
		ID:                r.str("id"),
		Username:          firstNonEmpty(r.str("username"), "Unknown"),
		CreatedAt:         r.stamp("created_at", "createdAt"),
		ConnectionsPosted: r.count("connections_posted", "connectionsPosted"),
		Categories:        r.strings("categories"),
	}
	for _, item := range records(r.list("recent_connections", "recentConnections")) {
		p.RecentConnections = append(p.RecentConnections, model.ConnectionPreview{
			ID:        item.str("id"),
			Title:     firstNonEmpty(item.str("title"), "Untitled"),
			Category:  firstNonEmpty(item.str("category"), string(model.ConnectionFriendship)),
			CreatedAt: item.stamp("created_at", "createdAt"),
		})
	}
	return p
}

func ConnectionRequestResult(r Record, fallbackStatus, fallbackMessage string) model.ConnectionRequestResult {
	return model.ConnectionRequestResult{
		Status:  firstNonEmpty(r.obj("request").str("status"), fallbackStatus),
		Message: firstNonEmpty(r.str("message"), fallbackMessage),
	}
}

func FriendFollower(r Record) model.FriendFollower {
	return model.FriendFollower{
		SenderID:              r.str("sender_id", "senderId"),
		Username:              firstNonEmpty(r.str("username"), "Unknown"),
		Email:                 r.str("email"),
		FollowedAt:            r.stamp("followed_at", "followedAt"),
		LatestConnectionID:    r.str("latest_connection_id", "latestConnectionId"),
		LatestConnectionTitle: firstNonEmpty(r.str("latest_connection_title", "latestConnectionTitle"), "Connection"),
	}
}

func RequestStatus(raw string) model.RequestStatus {
	switch model.RequestStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case model.RequestAccepted:
		return model.RequestAccepted
	case model.RequestDeclined:
		return model.RequestDeclined
	}
	return model.RequestPending
}

func FriendRequest(r Record) model.FriendRequestInboxItem {
	return model.FriendRequestInboxItem{
		RequestID:       r.str("request_id", "requestId"),
		ConnectionID:    r.str("connection_id", "connectionId"),
		ConnectionTitle: firstNonEmpty(r.str("connection_title", "connectionTitle"), "Connection"),
		SenderID:        r.str("sender_id", "senderId"),
		Username:        firstNonEmpty(r.str("username"), "Unknown"),
		Email:           r.str("email"),
		Status:          RequestStatus(r.str("status")),
		RequestedAt:     r.stamp("requested_at", "requestedAt"),
	}
}

// FriendsOverview accepts either a bare follower array or the
// {"friends": [...], "pending": [...]} envelope.
func FriendsOverview(v any) model.FriendsOverview {
	out := model.FriendsOverview{
		Friends: []model.FriendFollower{},
		Pending: []model.FriendRequestInboxItem{},
	}
	var friends, pending []any
	if items, ok := v.([]any); ok {
		friends = items
	} else if r := AsRecord(v); r != nil {
		friends = r.list("friends")
		pending = r.list("pending")
	}
	for _, f := range records(friends) {
		out.Friends = append(out.Friends, FriendFollower(f))
	}
	for _, p := range records(pending) {
		out.Pending = append(out.Pending, FriendRequest(p))
	}
	return out
}

var DefaultSettings = model.UserSettings{
	PushNotifications:  true,
	EmailNotifications: false,
	CommentReplies:     true,
	NewFollowers:       false,
}

func Settings(r Record) model.UserSettings {
	s := DefaultSettings
	if v, ok := r.flag("pushNotifications", "push_notifications"); ok {
		s.PushNotifications = v
	}
	if v, ok := r.flag("emailNotifications", "email_notifications"); ok {
		s.EmailNotifications = v
	}
	if v, ok := r.flag("commentReplies", "comment_replies"); ok {
		s.CommentReplies = v
	}
	if v, ok := r.flag("newFollowers", "new_followers"); ok {
		s.NewFollowers = v
	}
	if t, ok := r.optionalStamp("updatedAt", "updated_at"); ok {
		s.UpdatedAt = &t
	}
	return s
}

func Stats(r Record) model.CommunityStats {
	return model.CommunityStats{
		CurrentOnline:  r.count("currentOnline", "current_online"),
		MaxVisitors24h: r.count("maxVisitors24h", "max_visitors_24h"),
		MaxVisitors7d:  r.count("maxVisitors7d", "max_visitors_7d"),
		MaxVisitors1m:  r.count("maxVisitors1m", "max_visitors_1m"),
		MaxVisitors1yr: r.count("maxVisitors1yr", "max_visitors_1yr"),
	}
}
