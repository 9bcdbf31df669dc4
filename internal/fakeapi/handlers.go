package fakeapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Semkufu95/confessions/internal/model"
	"github.com/Semkufu95/confessions/internal/realtime"
)

const maxContent = 1000

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r.Body, &input); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Username == "" || input.Email == "" || input.Password == "" {
		writeError(w, http.StatusBadRequest, errors.New("Username, email, and password are required"))
		return
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("Invalid email format"))
		return
	}

	u, err := s.addUser(input.Username, input.Email, input.Password)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	s.writeSession(w, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r.Body, &input); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	u := s.users[strings.ToLower(strings.TrimSpace(input.Email))]
	s.mu.Unlock()
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.password), []byte(input.Password)) != nil {
		writeError(w, http.StatusUnauthorized, errors.New("Invalid credentials"))
		return
	}
	s.writeSession(w, u)
}

func (s *Server) writeSession(w http.ResponseWriter, u *user) {
	s.mu.Lock()
	sessionID, token, err := s.issueToken(u.ID)
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user": map[string]any{
			"id":            u.ID,
			"username":      u.Username,
			"email":         u.Email,
			"emailVerified": false,
			"createdAt":     u.CreatedAt,
		},
		"access_token": token,
		"session_id":   sessionID,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id, ok := sessionClaims(r); ok {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Logged out"})
}

func (s *Server) handleListConfessions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]map[string]any, 0, len(s.confessions))
	for _, c := range s.confessions {
		out = append(out, s.confessionJSON(c))
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleConfessionDetail(w http.ResponseWriter, r *http.Request, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findConfession(id)
	if c == nil {
		writeError(w, http.StatusNotFound, errors.New("Confession not found"))
		return
	}
	comments := make([]map[string]any, 0, len(s.comments[id]))
	for _, cm := range s.comments[id] {
		comments = append(comments, s.commentJSON(cm))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"confession": s.confessionJSON(c),
		"comments":   comments,
	})
}

type confessionInput struct {
	Content     string         `json:"content"`
	Category    model.Category `json:"category"`
	IsAnonymous *bool          `json:"isAnonymous"`
}

func validateConfession(in confessionInput) error {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return errors.New("Confession content is required")
	}
	if utf8.RuneCountInString(content) > maxContent {
		return fmt.Errorf("Confession content must be %d characters or less", maxContent)
	}
	if in.Category != "" && !in.Category.Valid() {
		return errors.New("Invalid category")
	}
	return nil
}

func (s *Server) handleCreateConfession(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	var input confessionInput
	if err := readJSON(r.Body, &input); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := validateConfession(input); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	c := s.addConfession(userID, input.Content, input.Category, input.IsAnonymous == nil || *input.IsAnonymous)

	s.mu.Lock()
	payload := s.confessionJSON(c)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, payload)
	s.publish(realtime.ConfessionCreated, payload)
}

func (s *Server) handleUpdateConfession(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	var input confessionInput
	if err := readJSON(r.Body, &input); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := validateConfession(input); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	c := s.findConfession(id)
	switch {
	case c == nil:
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, errors.New("Confession not found"))
		return
	case c.UserID != userID:
		s.mu.Unlock()
		writeError(w, http.StatusForbidden, errors.New("Not allowed to edit this confession"))
		return
	}
	c.Content = strings.TrimSpace(input.Content)
	if input.Category != "" {
		c.Category = string(input.Category)
	}
	payload := s.confessionJSON(c)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, payload)
	s.publish(realtime.ConfessionUpdated, payload)
}

func (s *Server) handleDeleteConfession(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	c := s.findConfession(id)
	switch {
	case c == nil:
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, errors.New("Confession not found"))
		return
	case c.UserID != userID:
		s.mu.Unlock()
		writeError(w, http.StatusForbidden, errors.New("Not allowed to delete this confession"))
		return
	}
	for i, existing := range s.confessions {
		if existing.ID == id {
			s.confessions = append(s.confessions[:i], s.confessions[i+1:]...)
			break
		}
	}
	delete(s.comments, id)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"message": "Confession deleted"})
	s.publish(realtime.ConfessionDeleted, map[string]any{"id": id})
}

// handleStar counts one star per user; repeats return the current count.
func (s *Server) handleStar(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	c := s.findConfession(id)
	if c == nil {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, errors.New("Confession not found"))
		return
	}
	key := id + ":" + userID
	fresh := !s.stars[key]
	if fresh {
		s.stars[key] = true
		c.Stars++
	}
	payload := s.confessionJSON(c)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, payload)
	if fresh {
		s.publish(realtime.ConfessionStarred, payload)
	}
}

type reactionInput struct {
	Type model.ReactionType `json:"type"`
}

// applyReaction records userID's reaction on entity, moving an earlier
// opposite reaction over. It reports whether the counts changed.
func (s *Server) applyReaction(entity, userID string, t model.ReactionType, likes, boos *int) bool {
	key := entity + ":" + userID
	prev := model.ReactionType(s.reactions[key])
	if prev == t {
		return false
	}
	switch prev {
	case model.ReactionLike:
		*likes--
	case model.ReactionBoo:
		*boos--
	}
	if t == model.ReactionLike {
		*likes++
	} else {
		*boos++
	}
	s.reactions[key] = string(t)
	return true
}

func readReaction(w http.ResponseWriter, r *http.Request) (model.ReactionType, bool) {
	var input reactionInput
	if err := readJSON(r.Body, &input); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return "", false
	}
	if !input.Type.Valid() {
		writeError(w, http.StatusBadRequest, errors.New("Invalid reaction type"))
		return "", false
	}
	return input.Type, true
}

func (s *Server) handleReactConfession(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	t, ok := readReaction(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	c := s.findConfession(id)
	if c == nil {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, errors.New("Confession not found"))
		return
	}
	changed := s.applyReaction(id, userID, t, &c.Likes, &c.Boos)
	payload := s.confessionJSON(c)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, payload)
	if changed {
		s.publish(realtime.ReactionUpdated, map[string]any{
			"confession_id": id,
			"user_id":       userID,
			"type":          t,
			"likes":         payload["likes"],
			"boos":          payload["boos"],
		})
	}
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request, id string) {
	s.mu.Lock()
	c := s.findConfession(id)
	if c == nil {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, errors.New("Confession not found"))
		return
	}
	c.Shares++
	payload := s.confessionJSON(c)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Confession shared",
		"share_url":  "/confessions/" + id,
		"confession": payload,
	})
	s.publish(realtime.ConfessionUpdated, payload)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request, confessionID string) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	var input struct {
		Content string `json:"content"`
	}
	if err := readJSON(r.Body, &input); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(input.Content) == "" {
		writeError(w, http.StatusBadRequest, errors.New("Comment content is required"))
		return
	}

	s.mu.Lock()
	if s.findConfession(confessionID) == nil {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, errors.New("Confession not found"))
		return
	}
	cm := &comment{
		ID:           uuid.NewString(),
		ConfessionID: confessionID,
		UserID:       userID,
		Content:      strings.TrimSpace(input.Content),
		CreatedAt:    s.now().UTC(),
	}
	s.comments[confessionID] = append([]*comment{cm}, s.comments[confessionID]...)
	payload := s.commentJSON(cm)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, payload)
	s.publish(realtime.CommentCreated, payload)
}

func (s *Server) handleReactComment(w http.ResponseWriter, r *http.Request, commentID string) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	t, ok := readReaction(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	cm := s.findComment(commentID)
	if cm == nil {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, errors.New("Comment not found"))
		return
	}
	changed := s.applyReaction(commentID, userID, t, &cm.Likes, &cm.Boos)
	payload := s.commentJSON(cm)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, payload)
	if changed {
		s.publish(realtime.ReactionUpdated, map[string]any{
			"comment_id":    commentID,
			"confession_id": cm.ConfessionID,
			"user_id":       userID,
			"type":          t,
		})
	}
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]map[string]any, 0, len(s.connections))
	for _, c := range s.connections {
		out = append(out, s.connectionJSON(c))
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	var input struct {
		Title       string                   `json:"title"`
		Description string                   `json:"description"`
		Category    model.ConnectionCategory `json:"category"`
		Interests   []string                 `json:"interests"`
		Location    string                   `json:"location"`
		Age         *int                     `json:"age"`
	}
	if err := readJSON(r.Body, &input); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	switch {
	case strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Description) == "":
		writeError(w, http.StatusBadRequest, errors.New("Title and description are required"))
		return
	case input.Category != model.ConnectionLove && input.Category != model.ConnectionFriendship:
		writeError(w, http.StatusBadRequest, errors.New("Invalid category"))
		return
	case input.Age != nil && *input.Age < 18:
		writeError(w, http.StatusBadRequest, errors.New("You must be at least 18"))
		return
	}

	c := &connection{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    string(input.Category),
		Location:    strings.TrimSpace(input.Location),
		Age:         input.Age,
		Interests:   append([]string{}, input.Interests...),
	}
	s.mu.Lock()
	c.CreatedAt = s.now().UTC()
	s.connections = append([]*connection{c}, s.connections...)
	payload := s.connectionJSON(c)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, payload)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request, connectionID string) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findConnection(connectionID)
	if c == nil {
		writeError(w, http.StatusNotFound, errors.New("Connection not found"))
		return
	}
	if c.UserID == userID {
		writeError(w, http.StatusBadRequest, errors.New("You cannot connect to your own post"))
		return
	}
	for _, req := range s.requests {
		if req.ConnectionID == connectionID && req.SenderID == userID {
			writeError(w, http.StatusConflict, errors.New("Connection request already sent"))
			return
		}
	}
	now := s.now().UTC()
	req := &friendRequest{
		ID:           uuid.NewString(),
		ConnectionID: connectionID,
		SenderID:     userID,
		ReceiverID:   c.UserID,
		Status:       string(model.RequestPending),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.requests = append(s.requests, req)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Connection request sent",
		"request": map[string]any{"id": req.ID, "status": req.Status},
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findConnection(connectionID)
	if c == nil {
		writeError(w, http.StatusNotFound, errors.New("Connection not found"))
		return
	}
	owner := s.usersByID[c.UserID]
	if owner == nil {
		writeError(w, http.StatusNotFound, errors.New("User not found"))
		return
	}

	recent := make([]map[string]any, 0)
	categories := make([]string, 0)
	seen := make(map[string]bool)
	posted := 0
	for _, other := range s.connections {
		if other.UserID != owner.ID {
			continue
		}
		posted++
		if !seen[other.Category] {
			seen[other.Category] = true
			categories = append(categories, other.Category)
		}
		if len(recent) < 5 {
			recent = append(recent, map[string]any{
				"id":         other.ID,
				"title":      other.Title,
				"category":   other.Category,
				"created_at": other.CreatedAt,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":                 owner.ID,
		"username":           owner.Username,
		"created_at":         owner.CreatedAt,
		"connections_posted": posted,
		"categories":         categories,
		"recent_connections": recent,
	})
}

// handleFriends lists accepted followers and pending requests addressed to
// the caller.
func (s *Server) handleFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	friends := make([]map[string]any, 0)
	pending := make([]map[string]any, 0)
	for _, req := range s.requests {
		if req.ReceiverID != userID {
			continue
		}
		sender := s.usersByID[req.SenderID]
		if sender == nil {
			continue
		}
		title := ""
		if c := s.findConnection(req.ConnectionID); c != nil {
			title = c.Title
		}
		switch model.RequestStatus(req.Status) {
		case model.RequestAccepted:
			friends = append(friends, map[string]any{
				"sender_id":               sender.ID,
				"username":                sender.Username,
				"email":                   sender.Email,
				"followed_at":             req.UpdatedAt,
				"latest_connection_id":    req.ConnectionID,
				"latest_connection_title": title,
			})
		case model.RequestPending:
			pending = append(pending, map[string]any{
				"request_id":       req.ID,
				"connection_id":    req.ConnectionID,
				"connection_title": title,
				"sender_id":        sender.ID,
				"username":         sender.Username,
				"email":            sender.Email,
				"status":           req.Status,
				"requested_at":     req.CreatedAt,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"friends": friends, "pending": pending})
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request, requestID string) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	var input struct {
		Action model.RequestAction `json:"action"`
	}
	if err := readJSON(r.Body, &input); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var status model.RequestStatus
	switch input.Action {
	case model.ActionAccept:
		status = model.RequestAccepted
	case model.ActionDecline:
		status = model.RequestDeclined
	default:
		writeError(w, http.StatusBadRequest, errors.New("Invalid action"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.requests {
		if req.ID != requestID || req.ReceiverID != userID {
			continue
		}
		if req.Status != string(model.RequestPending) {
			writeError(w, http.StatusConflict, errors.New("Request already handled"))
			return
		}
		req.Status = string(status)
		req.UpdatedAt = s.now().UTC()
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Request " + string(status),
			"request": map[string]any{"id": req.ID, "status": req.Status},
		})
		return
	}
	writeError(w, http.StatusNotFound, errors.New("Request not found"))
}

func defaultSettings() settings {
	return settings{PushNotifications: true, CommentReplies: true}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	st, found := s.settings[userID]
	s.mu.Unlock()
	if !found {
		st = defaultSettings()
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	var patch model.SettingsPatch
	if err := readJSON(r.Body, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	st, found := s.settings[userID]
	if !found {
		st = defaultSettings()
	}
	if patch.PushNotifications != nil {
		st.PushNotifications = *patch.PushNotifications
	}
	if patch.EmailNotifications != nil {
		st.EmailNotifications = *patch.EmailNotifications
	}
	if patch.CommentReplies != nil {
		st.CommentReplies = *patch.CommentReplies
	}
	if patch.NewFollowers != nil {
		st.NewFollowers = *patch.NewFollowers
	}
	st.UpdatedAt = s.now().UTC()
	s.settings[userID] = st
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var msg ContactMessage
	if err := readJSON(r.Body, &msg); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if msg.Name == "" || msg.Email == "" || msg.Subject == "" || msg.Message == "" {
		writeError(w, http.StatusBadRequest, errors.New("All fields are required"))
		return
	}
	s.mu.Lock()
	s.contacts = append(s.contacts, msg)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Message sent"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	online := s.Online()
	s.mu.Lock()
	peak := max(s.peakOnline, online)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"currentOnline":  online,
		"maxVisitors24h": peak,
		"maxVisitors7d":  peak,
		"maxVisitors1m":  peak,
		"maxVisitors1yr": peak,
	})
}
