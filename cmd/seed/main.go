package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/Semkufu95/confessions/internal/client"
	"github.com/Semkufu95/confessions/internal/model"
	"github.com/Semkufu95/confessions/internal/service"
	"github.com/Semkufu95/confessions/internal/store"
	"github.com/Semkufu95/confessions/internal/store/sqlite"
)

var openers = []string{
	"I never told anyone that",
	"Every morning I pretend",
	"My roommate still doesn't know",
	"At work everyone thinks",
	"I secretly love",
	"Years ago I promised myself",
}

// member is one seeded account with its own credentials.
type member struct {
	name        string
	close       func() error
	auth        *service.Auth
	confessions *service.Confessions
	connections *service.Connections
}

func newMember(baseURL string) (*member, error) {
	kv, err := sqlite.Open(":memory:")
	if err != nil {
		return nil, err
	}
	local := store.NewLocal(kv)
	c := client.New(baseURL, client.WithTokens(local))
	return &member{
		name:        strings.ToLower(gofakeit.Username()),
		close:       kv.Close,
		auth:        service.NewAuth(c, local, nil, nil),
		confessions: service.NewConfessions(c),
		connections: service.NewConnections(c),
	}, nil
}

func main() {
	baseURL := flag.String("url", client.DefaultBaseURL, "Confessions API base URL")
	users := flag.Int("users", 5, "Accounts to create")
	posts := flag.Int("confessions", 12, "Confessions to post")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()
	if *users < 1 {
		log.Fatalf("--users must be at least 1")
	}

	gofakeit.Seed(*seed)
	rng := rand.New(rand.NewSource(*seed))
	ctx := context.Background()

	log.Printf("Seeding %s...\n", *baseURL)

	var members []*member
	for i := 0; i < *users; i++ {
		m, err := newMember(*baseURL)
		if err != nil {
			log.Fatalf("open member store: %v", err)
		}
		defer m.close()

		email := fmt.Sprintf("%s.%d@example.com", m.name, i)
		_, err = m.auth.Register(ctx, service.RegisterInput{
			Username:        m.name,
			Email:           email,
			Password:        "password123",
			ConfirmPassword: "password123",
		})
		if err != nil {
			log.Fatalf("register %s: %v", m.name, err)
		}
		log.Printf("✓ Registered %s <%s>", m.name, email)
		members = append(members, m)
	}

	var ids []string
	for i := 0; i < *posts; i++ {
		m := members[rng.Intn(len(members))]
		text := fmt.Sprintf("%s %s", openers[rng.Intn(len(openers))], strings.ToLower(gofakeit.Sentence(10)))
		category := model.Categories[rng.Intn(len(model.Categories))]

		c, err := m.confessions.Create(ctx, text, category, rng.Float32() < 0.7)
		if err != nil {
			log.Printf("✗ Failed to post confession: %v", err)
			continue
		}
		ids = append(ids, c.ID)
		log.Printf("✓ Confession %s (%s, by %s)", c.ID, category, m.name)
	}

	for _, id := range ids {
		for i := rng.Intn(4); i > 0; i-- {
			m := members[rng.Intn(len(members))]
			cm, err := m.confessions.Comment(ctx, id, gofakeit.Sentence(8))
			if err != nil {
				log.Printf("✗ Failed to comment: %v", err)
				continue
			}
			if rng.Float32() < 0.5 {
				other := members[rng.Intn(len(members))]
				_, _ = other.confessions.ReactComment(ctx, cm.ID, model.ReactionLike)
			}
		}
	}
	log.Printf("✓ Added comments")

	reactions := 0
	for _, m := range members {
		for _, id := range ids {
			switch r := rng.Float32(); {
			case r < 0.4:
				if _, err := m.confessions.React(ctx, id, model.ReactionLike); err == nil {
					reactions++
				}
			case r < 0.5:
				if _, err := m.confessions.React(ctx, id, model.ReactionBoo); err == nil {
					reactions++
				}
			case r < 0.6:
				if _, err := m.confessions.Star(ctx, id); err == nil {
					reactions++
				}
			}
		}
	}
	log.Printf("✓ Added %d reactions and stars", reactions)

	var connectionIDs []string
	for _, m := range members {
		age := gofakeit.Number(18, 60)
		category := model.ConnectionFriendship
		if rng.Float32() < 0.4 {
			category = model.ConnectionLove
		}
		c, err := m.connections.Create(ctx, model.CreateConnectionInput{
			Title:       gofakeit.HipsterSentence(4),
			Description: gofakeit.Sentence(14),
			Category:    category,
			Location:    gofakeit.City(),
			Age:         &age,
			Interests:   []string{gofakeit.Hobby(), gofakeit.Hobby()},
		})
		if err != nil {
			log.Printf("✗ Failed to post connection: %v", err)
			continue
		}
		connectionIDs = append(connectionIDs, c.ID)
	}

	requests := 0
	for _, m := range members {
		if len(connectionIDs) == 0 {
			break
		}
		if _, err := m.connections.Connect(ctx, connectionIDs[rng.Intn(len(connectionIDs))]); err == nil {
			requests++
		}
	}
	log.Printf("✓ Added %d connections and %d requests", len(connectionIDs), requests)

	fmt.Println("\n=== Seed Complete ===")
	fmt.Printf("Users:        %d\n", len(members))
	fmt.Printf("Confessions:  %d\n", len(ids))
	fmt.Printf("Connections:  %d\n", len(connectionIDs))
	fmt.Println("\nAPI:", *baseURL)
}
