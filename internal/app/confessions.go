package app

import (
	"context"
	"fmt"

	"github.com/Semkufu95/confessions/internal/model"
	"github.com/Semkufu95/confessions/internal/service"
)

// RefreshConfessions replaces the list with the server's, keeping per-viewer
// flags. A response that lands after a newer refresh was applied is
// discarded; its error, if any, is still returned.
func (s *State) RefreshConfessions(ctx context.Context) error {
	s.mu.Lock()
	s.issuedSeq++
	seq := s.issuedSeq
	s.loadingCount++
	s.confessionsErr = ""
	s.mu.Unlock()
	s.changed()

	fresh, err := s.deps.Confessions.GetAll(ctx)

	s.mu.Lock()
	s.loadingCount--
	if applied := s.appliedSeq; seq < applied {
		s.mu.Unlock()
		s.log.Debug("discarding stale confessions response", "seq", seq, "applied", applied)
		s.changed()
		if err != nil {
			return fmt.Errorf("refresh confessions: %w", err)
		}
		return nil
	}
	if err != nil {
		s.confessionsErr = ConfessionsLoadError
		s.mu.Unlock()
		s.changed()
		return fmt.Errorf("refresh confessions: %w", err)
	}
	s.appliedSeq = seq
	s.confessions = s.mergeLocked(fresh)
	s.mu.Unlock()

	s.changed()
	return nil
}

// mergeLocked carries isLiked/isBooed over by id and derives isStarred from
// the starred set.
func (s *State) mergeLocked(fresh []model.Confession) []model.Confession {
	prev := make(map[string]model.Confession, len(s.confessions))
	for _, c := range s.confessions {
		prev[c.ID] = c
	}
	out := make([]model.Confession, len(fresh))
	for i, c := range fresh {
		old, seen := prev[c.ID]
		c.IsLiked = seen && old.IsLiked
		c.IsBooed = seen && old.IsBooed
		c.IsStarred = contains(s.starred, c.ID)
		if e := s.pending[c.ID]; e != nil {
			e.base.likes, e.base.boos, e.base.stars = c.Likes, c.Boos, c.Stars
		}
		out[i] = c
	}
	return out
}

// ToggleStar stars the confession and adds it to the persisted starred set.
// The list entry flips at once and reverts if the server rejects the star.
func (s *State) ToggleStar(ctx context.Context, id string) error {
	op := s.beginConfession(id, opStar, func(c *model.Confession) {
		if !c.IsStarred {
			c.Stars++
		}
		c.IsStarred = true
	})

	updated, err := s.deps.Confessions.Star(ctx, id)
	if err != nil {
		s.rollback(op)
		return err
	}

	ids, err := s.deps.Local.AddStarredID(ctx, id)
	s.commit(op, marks{stars: updated.Stars, starred: true})
	s.mu.Lock()
	if err == nil {
		s.starred = ids
	} else if !contains(s.starred, id) {
		s.starred = append(s.starred, id)
	}
	s.mu.Unlock()
	s.changed()

	if err != nil {
		return fmt.Errorf("save starred id: %w", err)
	}
	return nil
}

// ToggleLike records a like or boo on a confession. The reaction is shown
// at once and reverted if the call fails.
func (s *State) ToggleLike(ctx context.Context, id string, t model.ReactionType) error {
	if err := service.ValidateReaction(t); err != nil {
		return err
	}
	op := s.beginConfession(id, opReaction, func(c *model.Confession) {
		flipReaction(&c.Likes, &c.Boos, &c.IsLiked, &c.IsBooed, t)
	})

	updated, err := s.deps.Confessions.React(ctx, id, t)
	if err != nil {
		s.rollback(op)
		return err
	}
	s.commit(op, reactionMarks(updated.Likes, updated.Boos, t))
	return nil
}

func (s *State) ToggleCommentLike(ctx context.Context, confessionID, commentID string, t model.ReactionType) error {
	if err := service.ValidateReaction(t); err != nil {
		return err
	}
	op := s.beginComment(confessionID, commentID, func(cm *model.Comment) {
		flipReaction(&cm.Likes, &cm.Boos, &cm.IsLiked, &cm.IsBooed, t)
	})

	updated, err := s.deps.Confessions.ReactComment(ctx, commentID, t)
	if err != nil {
		s.rollback(op)
		return err
	}
	s.commit(op, reactionMarks(updated.Likes, updated.Boos, t))
	return nil
}

// AddConfession creates a confession and puts it at the top of the list.
func (s *State) AddConfession(ctx context.Context, content string, category model.Category, anonymous bool) (model.Confession, error) {
	created, err := s.deps.Confessions.Create(ctx, content, category, anonymous)
	if err != nil {
		return model.Confession{}, err
	}
	s.mu.Lock()
	created.IsStarred = contains(s.starred, created.ID)
	s.confessions = append([]model.Confession{created.Clone()}, s.confessions...)
	s.mu.Unlock()
	s.changed()
	return created, nil
}

// AddComment posts a comment and prepends it to the parent confession.
func (s *State) AddComment(ctx context.Context, confessionID, content string) (model.Comment, error) {
	comment, err := s.deps.Confessions.Comment(ctx, confessionID, content)
	if err != nil {
		return model.Comment{}, err
	}
	s.mu.Lock()
	if i := s.indexLocked(confessionID); i >= 0 {
		c := &s.confessions[i]
		c.Comments = append([]model.Comment{comment.Clone()}, c.Comments...)
		c.CommentsCount++
	}
	s.mu.Unlock()
	s.changed()
	return comment, nil
}

// GetConfessionByID fetches the full confession with comments and merges it
// into the list without losing local reaction flags.
func (s *State) GetConfessionByID(ctx context.Context, id string) (model.Confession, error) {
	detail, err := s.deps.Confessions.GetWithComments(ctx, id)
	if err != nil {
		s.log.Warn("fetch confession detail", "id", id, "error", err)
		return model.Confession{}, err
	}

	s.mu.Lock()
	detail.IsStarred = contains(s.starred, id)
	if i := s.indexLocked(id); i >= 0 {
		old := s.confessions[i]
		detail.IsLiked, detail.IsBooed = old.IsLiked, old.IsBooed
		keepCommentFlags(detail.Comments, old.Comments)
		s.confessions[i] = detail.Clone()
	}
	s.mu.Unlock()
	s.changed()
	return detail, nil
}

type opKind int

const (
	opReaction opKind = iota
	opStar
)

// marks is the server-owned reaction state of a confession or comment.
// Comments carry no stars.
type marks struct {
	likes, boos, stars    int
	liked, booed, starred bool
}

func (m *marks) merge(from marks, kind opKind) {
	if kind == opStar {
		m.stars, m.starred = from.stars, from.starred
		return
	}
	m.likes, m.boos, m.liked, m.booed = from.likes, from.boos, from.liked, from.booed
}

// inflight is kept per entity while optimistic changes on it await the
// server. base is the last state the server confirmed; failed records which
// kinds of change must revert to it once nothing is pending.
type inflight struct {
	count  int
	base   marks
	failed [2]bool
}

// pendingOp tracks one optimistic change awaiting the server.
type pendingOp struct {
	key          string
	kind         opKind
	confessionID string
	commentID    string
	applied      bool
}

func (s *State) beginConfession(id string, kind opKind, flip func(*model.Confession)) pendingOp {
	s.mu.Lock()
	o := pendingOp{key: id, kind: kind, confessionID: id}
	if i := s.indexLocked(id); i >= 0 {
		s.trackLocked(o)
		flip(&s.confessions[i])
		o.applied = true
	}
	s.mu.Unlock()
	if o.applied {
		s.changed()
	}
	return o
}

func (s *State) beginComment(confessionID, commentID string, flip func(*model.Comment)) pendingOp {
	s.mu.Lock()
	o := pendingOp{key: commentID, kind: opReaction, confessionID: confessionID, commentID: commentID}
	if i := s.indexLocked(confessionID); i >= 0 {
		if cm := findComment(&s.confessions[i], commentID); cm != nil {
			s.trackLocked(o)
			flip(cm)
			o.applied = true
		}
	}
	s.mu.Unlock()
	if o.applied {
		s.changed()
	}
	return o
}

// trackLocked counts o against its entity, taking the baseline when it is
// the first change in flight.
func (s *State) trackLocked(o pendingOp) {
	e := s.pending[o.key]
	if e == nil {
		base := s.marksLocked(o)
		e = &inflight{base: base}
		s.pending[o.key] = e
	}
	e.count++
}

// rollback marks o's kind as failed. The entity reverts to its baseline when
// the last change in flight on it settles.
func (s *State) rollback(o pendingOp) {
	if !o.applied {
		return
	}
	s.mu.Lock()
	if e := s.pending[o.key]; e != nil {
		e.failed[o.kind] = true
		s.settleLocked(o, e)
	}
	s.mu.Unlock()
	s.changed()
}

// commit applies the server's values for o's kind and makes them the new
// baseline.
func (s *State) commit(o pendingOp, server marks) {
	s.mu.Lock()
	s.setMarksLocked(o, server, o.kind)
	if e := s.pending[o.key]; o.applied && e != nil {
		e.base.merge(server, o.kind)
		e.failed[o.kind] = false
		s.settleLocked(o, e)
	}
	s.mu.Unlock()
	s.changed()
}

func (s *State) settleLocked(o pendingOp, e *inflight) {
	e.count--
	if e.count > 0 {
		return
	}
	delete(s.pending, o.key)
	for _, kind := range []opKind{opReaction, opStar} {
		if e.failed[kind] {
			s.setMarksLocked(o, e.base, kind)
		}
	}
}

func (s *State) marksLocked(o pendingOp) marks {
	i := s.indexLocked(o.confessionID)
	if i < 0 {
		return marks{}
	}
	c := &s.confessions[i]
	if o.commentID == "" {
		return marks{
			likes: c.Likes, boos: c.Boos, stars: c.Stars,
			liked: c.IsLiked, booed: c.IsBooed, starred: c.IsStarred,
		}
	}
	cm := findComment(c, o.commentID)
	if cm == nil {
		return marks{}
	}
	return marks{likes: cm.Likes, boos: cm.Boos, liked: cm.IsLiked, booed: cm.IsBooed}
}

// setMarksLocked writes the fields of kind from m onto o's entity. Other
// fields, and comments on the confession, are left alone.
func (s *State) setMarksLocked(o pendingOp, m marks, kind opKind) {
	i := s.indexLocked(o.confessionID)
	if i < 0 {
		return
	}
	c := &s.confessions[i]
	if o.commentID != "" {
		if cm := findComment(c, o.commentID); cm != nil {
			cm.Likes, cm.Boos, cm.IsLiked, cm.IsBooed = m.likes, m.boos, m.liked, m.booed
		}
		return
	}
	if kind == opStar {
		c.Stars, c.IsStarred = m.stars, m.starred
		return
	}
	c.Likes, c.Boos, c.IsLiked, c.IsBooed = m.likes, m.boos, m.liked, m.booed
}

func (s *State) indexLocked(id string) int {
	for i := range s.confessions {
		if s.confessions[i].ID == id {
			return i
		}
	}
	return -1
}

func findComment(c *model.Confession, id string) *model.Comment {
	for i := range c.Comments {
		if c.Comments[i].ID == id {
			return &c.Comments[i]
		}
	}
	return nil
}

func keepCommentFlags(fresh, old []model.Comment) {
	for i := range fresh {
		for _, o := range old {
			if o.ID == fresh[i].ID {
				fresh[i].IsLiked, fresh[i].IsBooed = o.IsLiked, o.IsBooed
				break
			}
		}
	}
}

func reactionMarks(likes, boos int, t model.ReactionType) marks {
	return marks{likes: likes, boos: boos, liked: t == model.ReactionLike, booed: t == model.ReactionBoo}
}

// flipReaction applies a like or boo locally, moving an opposite reaction
// over when present.
func flipReaction(likes, boos *int, liked, booed *bool, t model.ReactionType) {
	switch t {
	case model.ReactionLike:
		if !*liked {
			*likes++
		}
		if *booed && *boos > 0 {
			*boos--
		}
		*liked, *booed = true, false
	case model.ReactionBoo:
		if !*booed {
			*boos++
		}
		if *liked && *likes > 0 {
			*likes--
		}
		*liked, *booed = false, true
	}
}
