// Package main provides a tool to load JSON sample data into the store.
//
// The source directory holds tours.json, users.json, and reviews.json, each a
// plain array of documents. Users carry a plaintext "password" field that is
// hashed on import. Review tour/user references are positional indexes into
// the other two files, so the sample data stays valid across reimports.
//
// Usage:
//
//	DATA_PATH=~/Trailhead/data go run ./cmd/seed --src ./dev-data
//	DATA_PATH=~/Trailhead/data go run ./cmd/seed --delete
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/trailheadapp/trailhead-server/internal/auth"
	"github.com/trailheadapp/trailhead-server/internal/domain"
	"github.com/trailheadapp/trailhead-server/internal/id"
	"github.com/trailheadapp/trailhead-server/internal/logger"
	"github.com/trailheadapp/trailhead-server/internal/slug"
	"github.com/trailheadapp/trailhead-server/internal/store/sqlite"
)

var (
	srcDir    = flag.String("src", "dev-data", "Directory holding the JSON sample files")
	deleteAll = flag.Bool("delete", false, "Delete the database file instead of importing")
)

// seedUser is a domain.User plus the plaintext password from the sample file.
type seedUser struct {
	domain.User
	Password string `json:"password"`
}

// seedReview references its tour and author by array index.
type seedReview struct {
	domain.Review
	TourIndex int `json:"tour_index"`
	UserIndex int `json:"user_index"`
}

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Trailhead/data")
	}
	dbPath := filepath.Join(dataPath, "trailhead.db")

	if *deleteAll {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			log.Fatalf("Failed to delete database: %v", err)
		}
		fmt.Printf("Deleted %s\n", dbPath)
		return
	}

	logg := logger.New(logger.Config{Environment: "development"})

	st, err := sqlite.Open(dbPath, logg.Logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	var tours []*domain.Tour
	loadJSON(filepath.Join(*srcDir, "tours.json"), &tours)
	for _, tour := range tours {
		tour.SetID(id.MustGenerate(id.PrefixTour))
		tour.InitTimestamps()
		tour.Slug = slug.Make(tour.Name)
		if tour.RatingsQuantity == 0 && tour.RatingsAverage == 0 {
			tour.RatingsAverage = domain.DefaultRatingsAverage
		}
		if err := st.Tours().Insert(ctx, tour); err != nil {
			log.Fatalf("Failed to insert tour %q: %v", tour.Name, err)
		}
	}
	fmt.Printf("Imported %d tours\n", len(tours))

	var users []*seedUser
	loadJSON(filepath.Join(*srcDir, "users.json"), &users)
	for _, u := range users {
		u.SetID(id.MustGenerate(id.PrefixUser))
		u.InitTimestamps()
		u.Active = true
		if u.Role == "" {
			u.Role = domain.RoleUser
		}
		if u.Photo == "" {
			u.Photo = domain.DefaultUserPhoto
		}
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			log.Fatalf("Failed to hash password for %q: %v", u.Email, err)
		}
		u.PasswordHash = hash
		if err := st.Users().Insert(ctx, &u.User); err != nil {
			log.Fatalf("Failed to insert user %q: %v", u.Email, err)
		}
	}
	fmt.Printf("Imported %d users\n", len(users))

	var reviews []*seedReview
	loadJSON(filepath.Join(*srcDir, "reviews.json"), &reviews)
	for i, r := range reviews {
		if r.TourIndex < 0 || r.TourIndex >= len(tours) || r.UserIndex < 0 || r.UserIndex >= len(users) {
			log.Fatalf("Review %d references a missing tour or user", i)
		}
		r.SetID(id.MustGenerate(id.PrefixReview))
		r.InitTimestamps()
		r.TourID = tours[r.TourIndex].ID
		r.UserID = users[r.UserIndex].ID
		if err := st.Reviews().Insert(ctx, &r.Review); err != nil {
			log.Fatalf("Failed to insert review %d: %v", i, err)
		}
	}
	fmt.Printf("Imported %d reviews\n", len(reviews))

	// Bring every tour's aggregate in line with its imported reviews.
	for _, tour := range tours {
		count, average, err := st.Reviews().RatingSummary(ctx, tour.ID)
		if err != nil {
			log.Fatalf("Failed to summarize ratings for %q: %v", tour.Name, err)
		}
		if count == 0 {
			continue
		}
		tour.SetRatings(average, count)
		tour.Touch()
		if err := st.Tours().Update(ctx, tour); err != nil {
			log.Fatalf("Failed to update ratings for %q: %v", tour.Name, err)
		}
	}

	fmt.Println("Done. The search index is rebuilt the next time the server starts.")
}

func loadJSON(path string, v any) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("Skipping %s (not found)\n", path)
			return
		}
		log.Fatalf("Failed to read %s: %v", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Fatalf("Failed to parse %s: %v", path, err)
	}
}
