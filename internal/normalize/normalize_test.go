package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Semkufu95/confessions/internal/model"
)

func decode(t *testing.T, raw string) Record {
	t.Helper()
	var r Record
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	return r
}

func fixedClock(t *testing.T) time.Time {
	t.Helper()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	prev := Now
	Now = func() time.Time { return fixed }
	t.Cleanup(func() { Now = prev })
	return fixed
}

func TestUserDefaults(t *testing.T) {
	fixed := fixedClock(t)

	u := User(nil)
	assert.Equal(t, AnonymousID, u.ID)
	assert.Equal(t, AnonymousName, u.Username)
	assert.True(t, u.IsAnonymous)
	assert.Equal(t, fixed, u.CreatedAt)

	u = User(decode(t, `{"id":"u1","username":"sam","email":"s@x.io","createdAt":"2023-01-02T03:04:05Z"}`))
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "sam", u.Username)
	assert.False(t, u.IsAnonymous)
	assert.Equal(t, 2023, u.CreatedAt.Year())
}

func TestConfessionListShape(t *testing.T) {
	c := Confession(decode(t, `{
		"id": "c1",
		"content": "hello",
		"created_at": "2024-02-03T10:00:00Z",
		"likes": 3, "boos": 1, "stars": 2,
		"category": "LOVE",
		"comments": 7
	}`))

	assert.Equal(t, "c1", c.ID)
	assert.Nil(t, c.Author)
	assert.Equal(t, model.CategoryLove, c.Category)
	assert.Equal(t, 3, c.Likes)
	assert.Equal(t, 0, c.Shares)
	assert.Equal(t, 7, c.CommentsCount)
	assert.Empty(t, c.Comments)
}

func TestConfessionWithEmbeddedComments(t *testing.T) {
	c := Confession(decode(t, `{
		"id": "c2",
		"content": "x",
		"category": "gossip",
		"author": {"id": "u1", "username": "sam"},
		"comments": [{"id":"m1","content":"first","likes":2}, "junk", {"id":"m2"}]
	}`))

	require.NotNil(t, c.Author)
	assert.Equal(t, "sam", c.Author.Username)
	assert.Equal(t, model.CategoryGeneral, c.Category)
	require.Len(t, c.Comments, 2)
	assert.Equal(t, 2, c.CommentsCount)
	assert.Equal(t, AnonymousName, c.Comments[1].Author.Username)
}

func TestConfessionAnonymousFlagHidesAuthor(t *testing.T) {
	c := Confession(decode(t, `{"id":"c3","is_anonymous":true,"author":{"id":"u1"}}`))
	assert.Nil(t, c.Author)
}

func TestConfessionDetailEnvelope(t *testing.T) {
	c := ConfessionDetail(decode(t, `{
		"confession": {"id": "c1", "content": "hello", "comments": 1},
		"comments": [
			{"id": "m1", "content": "a", "author": {"id": "u2", "username": "kim"}},
			{"id": "m2", "content": "b"}
		]
	}`))

	assert.Equal(t, "c1", c.ID)
	require.Len(t, c.Comments, 2)
	assert.Equal(t, 2, c.CommentsCount)
	assert.Equal(t, "kim", c.Comments[0].Author.Username)
}

func TestConnectionNormalization(t *testing.T) {
	fixed := fixedClock(t)

	c := Connection(decode(t, `{"id":"k1","category":"romance","age":24,"interests":["hiking",""," ",3],"user":{"id":"u1","username":"lee"}}`))
	assert.Equal(t, "Untitled connection", c.Title)
	assert.Equal(t, model.ConnectionFriendship, c.Category)
	require.NotNil(t, c.Age)
	assert.Equal(t, 24, *c.Age)
	assert.Equal(t, []string{"hiking"}, c.Interests)
	assert.Equal(t, "lee", c.Author.Username)
	assert.Equal(t, fixed, c.CreatedAt)

	c = Connection(decode(t, `{"id":"k2","category":"Love"}`))
	assert.Equal(t, model.ConnectionLove, c.Category)
	assert.Nil(t, c.Age)
	assert.NotNil(t, c.Interests)
}

func TestConnectionProfile(t *testing.T) {
	p := ConnectionProfile(decode(t, `{
		"username": "lee",
		"connections_posted": 4,
		"categories": ["love"],
		"recentConnections": [{"id":"k1"}, {"id":"k2","title":"Coffee","category":"love"}]
	}`))
	assert.Equal(t, "lee", p.Username)
	assert.Equal(t, 4, p.ConnectionsPosted)
	require.Len(t, p.RecentConnections, 2)
	assert.Equal(t, "Untitled", p.RecentConnections[0].Title)
	assert.Equal(t, "friendship", p.RecentConnections[0].Category)
	assert.Equal(t, "Coffee", p.RecentConnections[1].Title)
}

func TestFriendsOverviewShapes(t *testing.T) {
	var bare any
	require.NoError(t, json.Unmarshal([]byte(`[{"sender_id":"u1","username":"a"}]`), &bare))
	out := FriendsOverview(bare)
	require.Len(t, out.Friends, 1)
	assert.Equal(t, "u1", out.Friends[0].SenderID)
	assert.Equal(t, "Connection", out.Friends[0].LatestConnectionTitle)
	assert.Empty(t, out.Pending)

	var envelope any
	require.NoError(t, json.Unmarshal([]byte(`{
		"friends": [],
		"pending": [{"requestId":"r1","status":"ACCEPTED"},{"request_id":"r2","status":"weird"}]
	}`), &envelope))
	out = FriendsOverview(envelope)
	require.Len(t, out.Pending, 2)
	assert.Equal(t, model.RequestAccepted, out.Pending[0].Status)
	assert.Equal(t, model.RequestPending, out.Pending[1].Status)

	out = FriendsOverview("garbage")
	assert.Empty(t, out.Friends)
	assert.Empty(t, out.Pending)
}

func TestSettingsDefaults(t *testing.T) {
	s := Settings(nil)
	assert.Equal(t, DefaultSettings, s)

	s = Settings(decode(t, `{"pushNotifications":false,"new_followers":true,"updatedAt":"2024-01-01T00:00:00Z"}`))
	assert.False(t, s.PushNotifications)
	assert.True(t, s.NewFollowers)
	assert.True(t, s.CommentReplies)
	require.NotNil(t, s.UpdatedAt)
}

func TestConnectionRequestResultFallbacks(t *testing.T) {
	res := ConnectionRequestResult(nil, "pending", "Connection request sent")
	assert.Equal(t, "pending", res.Status)
	assert.Equal(t, "Connection request sent", res.Message)

	res = ConnectionRequestResult(decode(t, `{"message":"ok","request":{"status":"accepted"}}`), "pending", "x")
	assert.Equal(t, "accepted", res.Status)
	assert.Equal(t, "ok", res.Message)
}

func TestMistypedFieldsDegrade(t *testing.T) {
	c := Confession(decode(t, `{"id":42,"likes":"9","boos":-3,"stars":{"n":1},"comments":"many","author":"bob"}`))
	assert.Equal(t, "42", c.ID)
	assert.Equal(t, 9, c.Likes)
	assert.Equal(t, 0, c.Boos)
	assert.Equal(t, 0, c.Stars)
	assert.Nil(t, c.Author)
	assert.Equal(t, 0, c.CommentsCount)
}
