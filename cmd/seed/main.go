// Package main provides a tool to seed the database with test users and books.
//
// This creates a handful of accounts, a varied catalog, and a few pending
// exchange requests to exercise the match engine and exchange views.
//
// Usage:
//
//	DB_PATH=~/BookSwap/data go run ./cmd/seed
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/bookswapapp/bookswap-server/internal/auth"
	"github.com/bookswapapp/bookswap-server/internal/domain"
	"github.com/bookswapapp/bookswap-server/internal/id"
	"github.com/bookswapapp/bookswap-server/internal/store"
)

var password = flag.String("password", "password123", "Password for every seeded account")

type seedBook struct {
	title  string
	author string
	genre  string
}

var catalog = map[string][]seedBook{
	"alice": {
		{"Dune", "Frank Herbert", "Science Fiction"},
		{"Foundation", "Isaac Asimov", "Science Fiction"},
		{"The Left Hand of Darkness", "Ursula K. Le Guin", "Science Fiction"},
	},
	"bob": {
		{"The Name of the Wind", "Patrick Rothfuss", "Fantasy"},
		{"Mistborn", "Brandon Sanderson", "Fantasy"},
		{"The Hobbit", "J.R.R. Tolkien", "Fantasy"},
	},
	"carol": {
		{"Gone Girl", "Gillian Flynn", "Thriller"},
		{"The Silent Patient", "Alex Michaelides", "Thriller"},
		{"Dune", "Frank Herbert", "Science Fiction"},
	},
	"dave": {
		{"Pride and Prejudice", "Jane Austen", "Classic"},
		{"Emma", "Jane Austen", "Classic"},
		{"The Martian", "Andy Weir", "Science Fiction"},
	},
}

func main() {
	flag.Parse()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/BookSwap/data")
	}

	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := store.New(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	books := make(map[string][]*domain.Book)

	for username, titles := range catalog {
		user, err := seedUser(ctx, s, username, hash)
		if err != nil {
			log.Fatalf("Failed to seed user %s: %v", username, err)
		}
		fmt.Printf("User %s (%s)\n", user.Username, user.ID)

		for _, sb := range titles {
			book, err := seedBookRecord(ctx, s, user.ID, sb)
			if err != nil {
				log.Fatalf("Failed to seed book %q: %v", sb.title, err)
			}
			books[username] = append(books[username], book)
			fmt.Printf("  %s by %s [%s]\n", book.Title, book.Author, book.Genre)
		}
	}

	// A couple of pending requests so the exchange views aren't empty.
	if err := seedExchange(ctx, s, books["bob"][0].OwnerID, books["alice"][0].ID, books["bob"][0].ID); err != nil {
		log.Fatalf("Failed to seed exchange: %v", err)
	}
	if err := seedExchange(ctx, s, books["carol"][0].OwnerID, books["bob"][1].ID, books["carol"][0].ID); err != nil {
		log.Fatalf("Failed to seed exchange: %v", err)
	}

	fmt.Println("Done.")
}

func seedUser(ctx context.Context, s *store.Store, username, passwordHash string) (*domain.User, error) {
	if existing, err := s.GetUserByUsername(ctx, username); err == nil {
		return existing, nil
	}

	user := &domain.User{
		Timestamps:   domain.Timestamps{ID: id.MustGenerate("user")},
		Username:     username,
		PasswordHash: passwordHash,
	}
	user.InitTimestamps()

	if err := s.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func seedBookRecord(ctx context.Context, s *store.Store, ownerID string, sb seedBook) (*domain.Book, error) {
	book := &domain.Book{
		Timestamps: domain.Timestamps{ID: id.MustGenerate("book")},
		Title:      sb.title,
		Author:     sb.author,
		Genre:      sb.genre,
		OwnerID:    ownerID,
	}
	book.InitTimestamps()

	if err := s.CreateBook(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func seedExchange(ctx context.Context, s *store.Store, requesterID, requestedBookID, offeredBookID string) error {
	req := &domain.ExchangeRequest{
		Timestamps:      domain.Timestamps{ID: id.MustGenerate("exchange")},
		RequesterID:     requesterID,
		RequestedBookID: requestedBookID,
		OfferedBookID:   offeredBookID,
		Status:          domain.ExchangePending,
	}
	req.InitTimestamps()

	return s.CreateExchange(ctx, req)
}
