// Package main provides moderation and maintenance utilities for WebForum.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"webforum/internal/bootstrap"
	"webforum/internal/config"
	"webforum/internal/observability"
	"webforum/internal/service"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin promote <email>   - Grant the moderator role")
	fmt.Println("  go run ./cmd/admin demote <email>    - Revoke the moderator role")
	fmt.Println("  go run ./cmd/admin recount-likes     - Repair stored like counts")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig(config.WithoutTokens())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	rt, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer rt.Close()

	ctx := observability.WithCorrelationID(context.Background(), observability.GenerateCorrelationID())
	command := os.Args[1]

	switch command {
	case "promote", "demote":
		if len(os.Args) < 3 {
			usage()
		}
		setModerator(ctx, rt, os.Args[2], command == "promote")

	case "recount-likes":
		posts := service.NewPostService(rt.Posts, rt.Users, rt.Tags, cfg.PostsCacheTTL())
		corrected, err := posts.RecountLikes(ctx)
		if err != nil {
			log.Fatalf("Failed to recount likes: %v", err)
		}
		observability.LogCommand(ctx, command, map[string]interface{}{"corrected": corrected})
		fmt.Printf("Corrected like counts on %d posts\n", corrected)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
	}
}

func setModerator(ctx context.Context, rt *bootstrap.Runtime, email string, on bool) {
	identity := service.NewIdentityService(rt.Users, nil)
	if err := identity.SetModerator(ctx, email, on); err != nil {
		log.Fatalf("Failed to update %s: %v", email, err)
	}
	observability.LogCommand(ctx, "set-moderator", map[string]interface{}{"email": email, "moderator": on})
	fmt.Printf("Updated %s: moderator=%t\n", email, on)
}
