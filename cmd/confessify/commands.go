package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Semkufu95/confessions/internal/app"
	"github.com/Semkufu95/confessions/internal/model"
	"github.com/Semkufu95/confessions/internal/realtime"
	"github.com/Semkufu95/confessions/internal/service"
)

// ============================================================================
// ACCOUNT
// ============================================================================

func cmdRegister(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("username", "", "Display name (required)")
	email := fs.String("email", "", "Email address (required)")
	password := fs.String("password", "", "Password (required)")
	confirm := fs.String("confirm", "", "Password confirmation (defaults to --password)")
	fs.Parse(args)

	if *confirm == "" {
		*confirm = *password
	}
	e := openEnv()
	defer e.close()

	u, err := e.auth.Register(context.Background(), service.RegisterInput{
		Username:        *username,
		Email:           *email,
		Password:        *password,
		ConfirmPassword: *confirm,
	})
	if err != nil {
		fatal(err)
	}
	e.signedIn(u)
	fmt.Printf("✓ Registered and signed in as '%s'\n", u.Username)
}

func cmdLogin(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Email address (required)")
	password := fs.String("password", "", "Password (required)")
	fs.Parse(args)

	e := openEnv()
	defer e.close()

	u, err := e.auth.Login(context.Background(), *email, *password)
	if err != nil {
		fatal(err)
	}
	e.signedIn(u)
	fmt.Printf("✓ Signed in as '%s'\n", u.Username)
	if exp, ok := e.session.ExpiresAt(); ok {
		fmt.Printf("  Token expires %s\n", exp.Format(time.RFC3339))
	}
}

func cmdLogout(args []string) {
	e := openEnv()
	defer e.close()

	if err := e.auth.Logout(context.Background()); err != nil {
		fatal(err)
	}
	fmt.Println("✓ Signed out")
}

func cmdStatus(args []string) {
	e := openEnv()
	defer e.close()

	fmt.Printf("API:     %s\n", e.cfg.APIURL)
	fmt.Printf("State:   %s\n", e.cfg.StateDB)

	u, ok := e.session.User()
	if !ok {
		fmt.Println("Account: signed out")
		return
	}
	fmt.Printf("Account: %s <%s>\n", u.Username, u.Email)
	fmt.Printf("Token:   %s\n", e.session.Fingerprint())
	if exp, ok := e.session.ExpiresAt(); ok {
		fmt.Printf("Expires: %s (%s left)\n", exp.Format(time.RFC3339), time.Until(exp).Round(time.Minute))
	}
	if keys, err := e.kv.Keys(context.Background()); err == nil {
		fmt.Printf("Stored:  %s\n", strings.Join(keys, ", "))
	}
}

// ============================================================================
// CONFESSIONS
// ============================================================================

func cmdList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	starred := fs.Bool("starred", false, "Only starred confessions")
	limit := fs.Int("limit", 20, "Max confessions to print")
	fs.Parse(args)

	e := openEnv()
	defer e.close()
	ctx := context.Background()
	s := e.state(ctx, "", app.Deps{})
	defer s.Close()

	if msg := s.ConfessionsError(); msg != "" {
		fatal(errors.New(msg))
	}
	list := s.Confessions()
	if *starred {
		list = s.StarredConfessions()
	}
	if len(list) == 0 {
		fmt.Println("No confessions yet.")
		return
	}
	for i, c := range list {
		if i >= *limit {
			break
		}
		printConfession(c)
	}
}

func cmdShow(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	id := fs.String("id", "", "Confession id (required)")
	fs.Parse(args)
	required("id", *id, "confessify show --id <confession-id>")

	e := openEnv()
	defer e.close()
	ctx := context.Background()
	s := e.state(ctx, "", app.Deps{})
	defer s.Close()

	c, err := s.GetConfessionByID(ctx, *id)
	if err != nil {
		fatal(err)
	}
	printConfession(c)
	if len(c.Comments) == 0 {
		fmt.Println("  No comments.")
		return
	}
	for _, cm := range c.Comments {
		fmt.Printf("  └ %s: %s  (%d likes, %d boos) [%s]\n", cm.Author.Username, cm.Content, cm.Likes, cm.Boos, cm.ID)
		for _, r := range cm.Replies {
			fmt.Printf("      └ %s: %s\n", r.Author.Username, r.Content)
		}
	}
}

func cmdPost(args []string) {
	fs := flag.NewFlagSet("post", flag.ExitOnError)
	text := fs.String("text", "", "Confession text (required)")
	category := fs.String("category", string(model.CategoryGeneral), "general, love, friendship, work or family")
	anonymous := fs.Bool("anonymous", true, "Hide your username")
	fs.Parse(args)
	required("text", *text, `confessify post --text "..." [--category love]`)

	e := openEnv()
	defer e.close()
	e.requireLogin()

	c, err := e.confessions.Create(context.Background(), *text, model.Category(*category), *anonymous)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("✓ Posted confession %s\n", c.ID)
}

func cmdEdit(args []string) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	id := fs.String("id", "", "Confession id (required)")
	text := fs.String("text", "", "New text (required)")
	category := fs.String("category", string(model.CategoryGeneral), "Category")
	fs.Parse(args)
	required("id", *id, `confessify edit --id <id> --text "..."`)

	e := openEnv()
	defer e.close()
	e.requireLogin()

	c, err := e.confessions.Update(context.Background(), *id, *text, model.Category(*category))
	if err != nil {
		fatal(err)
	}
	fmt.Printf("✓ Updated confession %s\n", c.ID)
}

func cmdDelete(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "Confession id (required)")
	fs.Parse(args)
	required("id", *id, "confessify delete --id <confession-id>")

	e := openEnv()
	defer e.close()
	e.requireLogin()

	if err := e.confessions.Remove(context.Background(), *id); err != nil {
		fatal(err)
	}
	fmt.Printf("✓ Deleted confession %s\n", *id)
}

func cmdComment(args []string) {
	fs := flag.NewFlagSet("comment", flag.ExitOnError)
	id := fs.String("id", "", "Confession id (required)")
	text := fs.String("text", "", "Comment text (required)")
	fs.Parse(args)
	required("id", *id, `confessify comment --id <confession-id> --text "..."`)

	e := openEnv()
	defer e.close()
	e.requireLogin()
	ctx := context.Background()
	s := e.state(ctx, "", app.Deps{})
	defer s.Close()

	cm, err := s.AddComment(ctx, *id, *text)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("✓ Comment %s added\n", cm.ID)
}

func cmdReact(args []string) {
	fs := flag.NewFlagSet("react", flag.ExitOnError)
	id := fs.String("id", "", "Confession id (required)")
	commentID := fs.String("comment", "", "React to this comment on the confession instead")
	kind := fs.String("type", string(model.ReactionLike), "like or boo")
	fs.Parse(args)
	required("id", *id, "confessify react --id <confession-id> [--comment <comment-id>] --type like|boo")

	e := openEnv()
	defer e.close()
	e.requireLogin()
	ctx := context.Background()
	s := e.state(ctx, "", app.Deps{})
	defer s.Close()

	t := model.ReactionType(*kind)
	if *commentID != "" {
		if _, err := s.GetConfessionByID(ctx, *id); err != nil {
			fatal(err)
		}
		if err := s.ToggleCommentLike(ctx, *id, *commentID, t); err != nil {
			fatal(err)
		}
		fmt.Printf("✓ Reacted %s on comment %s\n", t, *commentID)
		return
	}
	if err := s.ToggleLike(ctx, *id, t); err != nil {
		fatal(err)
	}
	for _, c := range s.Confessions() {
		if c.ID == *id {
			fmt.Printf("✓ %d likes, %d boos\n", c.Likes, c.Boos)
			return
		}
	}
	fmt.Printf("✓ Reacted %s\n", t)
}

func cmdStar(args []string) {
	fs := flag.NewFlagSet("star", flag.ExitOnError)
	id := fs.String("id", "", "Confession id (required)")
	fs.Parse(args)
	required("id", *id, "confessify star --id <confession-id>")

	e := openEnv()
	defer e.close()
	e.requireLogin()
	ctx := context.Background()
	s := e.state(ctx, "", app.Deps{})
	defer s.Close()

	if err := s.ToggleStar(ctx, *id); err != nil {
		fatal(err)
	}
	fmt.Printf("✓ Starred %s (%d starred)\n", *id, len(s.StarredIDs()))
}

func cmdShare(args []string) {
	fs := flag.NewFlagSet("share", flag.ExitOnError)
	id := fs.String("id", "", "Confession id (required)")
	fs.Parse(args)
	required("id", *id, "confessify share --id <confession-id>")

	e := openEnv()
	defer e.close()

	res, err := e.confessions.Share(context.Background(), *id)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("✓ %s\n  %s\n", res.Message, res.URL)
}

func printConfession(c model.Confession) {
	author := "Anonymous"
	if c.Author != nil {
		author = c.Author.Username
	}
	marks := ""
	if c.IsStarred {
		marks += " ★"
	}
	if c.Trending {
		marks += " 🔥"
	}
	fmt.Printf("[%s] %s · %s%s\n", c.ID, author, c.Category, marks)
	fmt.Printf("  %s\n", c.Content)
	fmt.Printf("  %d likes · %d boos · %d stars · %d comments · %s\n\n",
		c.Likes, c.Boos, c.Stars, c.CommentsCount, c.CreatedAt.Local().Format("2006-01-02 15:04"))
}

// ============================================================================
// CONNECTIONS
// ============================================================================

func cmdConnections(args []string) {
	e := openEnv()
	defer e.close()

	list, err := e.connections.GetAll(context.Background())
	if err != nil {
		fatal(err)
	}
	if len(list) == 0 {
		fmt.Println("No connections yet.")
		return
	}
	for _, c := range list {
		fmt.Printf("[%s] %s · %s\n", c.ID, c.Title, c.Category)
		fmt.Printf("  %s\n", c.Description)
		details := []string{"by " + c.Author.Username}
		if c.Location != "" {
			details = append(details, c.Location)
		}
		if c.Age != nil {
			details = append(details, strconv.Itoa(*c.Age))
		}
		if len(c.Interests) > 0 {
			details = append(details, strings.Join(c.Interests, ", "))
		}
		fmt.Printf("  %s\n\n", strings.Join(details, " · "))
	}
}

func cmdOffer(args []string) {
	fs := flag.NewFlagSet("offer", flag.ExitOnError)
	title := fs.String("title", "", "Title (required)")
	description := fs.String("description", "", "Description (required)")
	category := fs.String("category", string(model.ConnectionFriendship), "love or friendship")
	interests := fs.String("interests", "", "Comma-separated interests")
	location := fs.String("location", "", "Location")
	age := fs.Int("age", 0, "Your age (18+)")
	fs.Parse(args)
	required("title", *title, `confessify offer --title "..." --description "..."`)

	in := model.CreateConnectionInput{
		Title:       *title,
		Description: *description,
		Category:    model.ConnectionCategory(*category),
		Interests:   splitList(*interests),
		Location:    *location,
	}
	if *age > 0 {
		in.Age = age
	}

	e := openEnv()
	defer e.close()
	e.requireLogin()
	ctx := context.Background()
	s := e.state(ctx, "", app.Deps{})
	defer s.Close()

	c, err := s.AddConnection(ctx, in)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("✓ Posted connection %s\n", c.ID)
}

func cmdConnect(args []string) {
	fs := flag.NewFlagSet("connect", flag.ExitOnError)
	id := fs.String("id", "", "Connection id (required)")
	fs.Parse(args)
	required("id", *id, "confessify connect --id <connection-id>")

	e := openEnv()
	defer e.close()
	e.requireLogin()

	res, err := e.connections.Connect(context.Background(), *id)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("✓ %s (%s)\n", res.Message, res.Status)
}

func cmdProfile(args []string) {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	id := fs.String("id", "", "Connection id (required)")
	fs.Parse(args)
	required("id", *id, "confessify profile --id <connection-id>")

	e := openEnv()
	defer e.close()

	p, err := e.connections.GetProfile(context.Background(), *id)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("%s (member since %s)\n", p.Username, p.CreatedAt.Format("2006-01-02"))
	fmt.Printf("  %d connections posted · %s\n", p.ConnectionsPosted, strings.Join(p.Categories, ", "))
	for _, r := range p.RecentConnections {
		fmt.Printf("  - [%s] %s · %s\n", r.ID, r.Title, r.Category)
	}
}

func cmdFriends(args []string) {
	e := openEnv()
	defer e.close()
	e.requireLogin()
	ctx := context.Background()
	s := e.state(ctx, "", app.Deps{})
	defer s.Close()

	ov, err := s.RefreshFriends(ctx)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Followers (%d):\n", len(ov.Friends))
	for _, f := range ov.Friends {
		fmt.Printf("  %s <%s> via %s\n", f.Username, f.Email, f.LatestConnectionTitle)
	}
	fmt.Printf("Pending (%d):\n", len(ov.Pending))
	for _, p := range ov.Pending {
		fmt.Printf("  [%s] %s wants to connect on %s\n", p.RequestID, p.Username, p.ConnectionTitle)
	}
}

func cmdRespond(args []string) {
	fs := flag.NewFlagSet("respond", flag.ExitOnError)
	id := fs.String("request", "", "Request id (required)")
	action := fs.String("action", string(model.ActionAccept), "accept or decline")
	fs.Parse(args)
	required("request", *id, "confessify respond --request <request-id> --action accept|decline")

	e := openEnv()
	defer e.close()
	e.requireLogin()
	ctx := context.Background()
	s := e.state(ctx, "", app.Deps{})
	defer s.Close()

	res, err := s.RespondToFriendRequest(ctx, *id, model.RequestAction(*action))
	if err != nil {
		fatal(err)
	}
	fmt.Printf("✓ %s\n", res.Message)
}

// ============================================================================
// OTHER
// ============================================================================

func cmdSettings(args []string) {
	fs := flag.NewFlagSet("settings", flag.ExitOnError)
	push := fs.String("push", "", "Push notifications (true/false)")
	email := fs.String("email", "", "Email notifications (true/false)")
	replies := fs.String("replies", "", "Comment reply notifications (true/false)")
	followers := fs.String("followers", "", "New follower notifications (true/false)")
	fs.Parse(args)

	var patch model.SettingsPatch
	patch.PushNotifications = optionalBool("push", *push)
	patch.EmailNotifications = optionalBool("email", *email)
	patch.CommentReplies = optionalBool("replies", *replies)
	patch.NewFollowers = optionalBool("followers", *followers)

	e := openEnv()
	defer e.close()
	e.requireLogin()
	settings := service.NewSettings(e.client)
	ctx := context.Background()

	var (
		st  model.UserSettings
		err error
	)
	if patch == (model.SettingsPatch{}) {
		st, err = settings.GetMine(ctx)
	} else {
		st, err = settings.UpdateMine(ctx, patch)
	}
	if err != nil {
		fatal(err)
	}
	fmt.Printf("push:      %t\n", st.PushNotifications)
	fmt.Printf("email:     %t\n", st.EmailNotifications)
	fmt.Printf("replies:   %t\n", st.CommentReplies)
	fmt.Printf("followers: %t\n", st.NewFollowers)
	if st.UpdatedAt != nil {
		fmt.Printf("updated:   %s\n", st.UpdatedAt.Format(time.RFC3339))
	}
}

func cmdContact(args []string) {
	fs := flag.NewFlagSet("contact", flag.ExitOnError)
	name := fs.String("name", "", "Your name (required)")
	email := fs.String("email", "", "Reply address (required)")
	subject := fs.String("subject", "", "Subject (required)")
	message := fs.String("message", "", "Message (required)")
	fs.Parse(args)

	e := openEnv()
	defer e.close()

	err := service.NewContact(e.client).Send(context.Background(), model.ContactMessage{
		Name: *name, Email: *email, Subject: *subject, Message: *message,
	})
	if err != nil {
		fatal(err)
	}
	fmt.Println("✓ Message sent")
}

func cmdStats(args []string) {
	e := openEnv()
	defer e.close()

	st, err := service.NewStats(e.client).Get(context.Background())
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Online now:     %d\n", st.CurrentOnline)
	fmt.Printf("Peak 24h:       %d\n", st.MaxVisitors24h)
	fmt.Printf("Peak 7 days:    %d\n", st.MaxVisitors7d)
	fmt.Printf("Peak 1 month:   %d\n", st.MaxVisitors1m)
	fmt.Printf("Peak 1 year:    %d\n", st.MaxVisitors1yr)
}

func cmdChannels(args []string) {
	fs := flag.NewFlagSet("channels", flag.ExitOnError)
	set := fs.String("set", "", "Comma-separated channels to notify on")
	fs.Parse(args)

	e := openEnv()
	defer e.close()
	ctx := context.Background()

	if *set != "" {
		channels := splitList(*set)
		for _, ch := range channels {
			if !knownChannel(ch) {
				fatal(fmt.Errorf("unknown channel %q", ch))
			}
		}
		if err := e.local.SetNotificationChannels(ctx, channels); err != nil {
			fatal(err)
		}
	}

	enabled, err := e.local.NotificationChannels(ctx)
	if err != nil {
		fatal(err)
	}
	for _, ch := range realtime.Channels {
		mark := " "
		for _, on := range enabled {
			if on == ch {
				mark = "✓"
			}
		}
		fmt.Printf("[%s] %s\n", mark, ch)
	}
}

func cmdDarkMode(args []string) {
	e := openEnv()
	defer e.close()
	ctx := context.Background()
	s := e.state(ctx, "", app.Deps{})
	defer s.Close()

	on, err := s.ToggleDarkMode(ctx)
	if err != nil {
		fatal(err)
	}
	if on {
		fmt.Println("✓ Dark mode on")
	} else {
		fmt.Println("✓ Dark mode off")
	}
}

func splitList(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func optionalBool(name, raw string) *bool {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: --%s must be true or false\n", name)
		os.Exit(1)
	}
	return &v
}

func knownChannel(ch string) bool {
	for _, known := range realtime.Channels {
		if known == ch {
			return true
		}
	}
	return false
}
