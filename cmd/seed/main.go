// Command main fills the configured storage with demo forum data.
package main

import (
	"context"
	"flag"
	"log"

	"webforum/internal/bootstrap"
	"webforum/internal/config"
	"webforum/internal/seed"
	"webforum/internal/service"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	numPosts := flag.Int("posts", defaults.NumPosts, "Number of posts to create")
	randSeed := flag.Int64("seed", 0, "Random seed; 0 picks one")
	preset := flag.String("preset", "", "YAML preset file (overrides the other flags)")
	flag.Parse()

	opts := defaults
	if *preset != "" {
		loaded, err := seed.LoadPreset(*preset)
		if err != nil {
			log.Fatalf("Failed to load preset: %v", err)
		}
		opts = loaded
		log.Printf("Applying preset %s", *preset)
	} else {
		opts.NumUsers = *numUsers
		opts.NumPosts = *numPosts
		opts.Seed = *randSeed
	}

	cfg, err := config.LoadConfig(config.WithoutTokens())
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rt, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer rt.Close()

	s := seed.NewSeeder(
		service.NewPostService(rt.Posts, rt.Users, rt.Tags, cfg.PostsCacheTTL()),
		service.NewIdentityService(rt.Users, nil),
		rt.Posts,
		opts,
	)
	sum, err := s.Run(context.Background())
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d posts, %d comments, %d likes, %d tags",
		sum.Users, sum.Posts, sum.Comments, sum.Likes, sum.Tags)
	log.Printf("All seeded users have the password: %s", opts.Password)
}
