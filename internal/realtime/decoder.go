// Package realtime reads server-pushed change events from the backend
// WebSocket.
package realtime

import (
	"encoding/json"

	"github.com/Semkufu95/confessions/internal/normalize"
)

const (
	ConfessionCreated = "confessions:confession:created"
	ConfessionUpdated = "confessions:confession:updated"
	ConfessionDeleted = "confessions:confession:deleted"
	ConfessionStarred = "confessions:confession:starred"
	CommentCreated    = "confessions:comment:created"
	CommentUpdated    = "confessions:comment:updated"
	CommentDeleted    = "confessions:comment:deleted"
	ReactionUpdated   = "confessions:reaction:updated"
	ReactionRemoved   = "confessions:reaction:removed"
)

// Channels lists every channel the backend is known to publish.
var Channels = []string{
	ConfessionCreated, ConfessionUpdated, ConfessionDeleted, ConfessionStarred,
	CommentCreated, CommentUpdated, CommentDeleted,
	ReactionUpdated, ReactionRemoved,
}

type Event struct {
	Channel string
	Payload normalize.Record
}

// Content returns the payload's content text, if any.
func (e Event) Content() string {
	s, _ := e.Payload["content"].(string)
	return s
}

// Decode classifies one text frame. Frames that are not JSON objects, or
// whose shape matches no known event, report ok=false.
func Decode(frame []byte) (ev Event, ok bool) {
	if len(frame) == 0 {
		return Event{}, false
	}
	var obj map[string]any
	if err := json.Unmarshal(frame, &obj); err != nil || obj == nil {
		return Event{}, false
	}

	if channel, _ := obj["channel"].(string); channel != "" {
		if payload, isObj := obj["payload"].(map[string]any); isObj {
			return Event{Channel: channel, Payload: payload}, true
		}
	}

	// Untagged frames from older backends.
	has := func(k string) bool { _, found := obj[k]; return found }
	switch {
	case has("confession_id") && has("content"):
		return Event{Channel: CommentCreated, Payload: obj}, true
	case has("confession_id") || has("comment_id"):
		return Event{Channel: ReactionUpdated, Payload: obj}, true
	case has("content"):
		return Event{Channel: ConfessionUpdated, Payload: obj}, true
	case has("id"):
		return Event{Channel: ConfessionDeleted, Payload: obj}, true
	}
	return Event{}, false
}
