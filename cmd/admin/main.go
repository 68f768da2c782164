// Package main provides group and user management for administrators.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/repository"
	"yatube/internal/service"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin group create <slug> <title> [description]  - Create a group")
	fmt.Println("  go run ./cmd/admin group delete <slug>                        - Delete a group; its posts stay")
	fmt.Println("  go run ./cmd/admin group list                                 - List all groups")
	fmt.Println("  go run ./cmd/admin user delete <username>                     - Delete a user and their content")
	fmt.Println("  go run ./cmd/admin user list                                  - List users")
}

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	// Deletes must drop the cached index pages the server is serving.
	rdb := cache.Connect(ctx, cfg.RedisURL)
	if rdb != nil {
		defer rdb.Close()
	}
	store := cache.NewStore(rdb)
	groups := service.NewGroupService(repository.NewGroupRepository(db), store)
	users := service.NewUserService(repository.NewUserRepository(db), store)

	args := os.Args[3:]
	cmd := os.Args[1] + " " + os.Args[2]
	switch cmd {
	case "group create":
		if len(args) < 2 {
			usage()
			os.Exit(1)
		}
		in := service.CreateGroupInput{Slug: args[0], Title: args[1]}
		if len(args) > 2 {
			in.Description = args[2]
		}
		g, err := groups.CreateGroup(ctx, in)
		if err != nil {
			log.Fatalf("Failed to create group: %v", err)
		}
		fmt.Printf("✅ Created group %q (/group/%s/)\n", g.Title, g.Slug)

	case "group delete":
		if len(args) < 1 {
			usage()
			os.Exit(1)
		}
		if err := groups.DeleteGroup(ctx, args[0]); err != nil {
			log.Fatalf("Failed to delete group: %v", err)
		}
		fmt.Printf("✅ Deleted group %s\n", args[0])

	case "group list":
		list, err := groups.ListGroups(ctx)
		if err != nil {
			log.Fatalf("Failed to list groups: %v", err)
		}
		for _, g := range list {
			fmt.Printf("%-20s %s\n", g.Slug, g.Title)
		}

	case "user delete":
		if len(args) < 1 {
			usage()
			os.Exit(1)
		}
		if err := users.DeleteUser(ctx, args[0]); err != nil {
			log.Fatalf("Failed to delete user: %v", err)
		}
		fmt.Printf("✅ Deleted user %s with their posts, comments and follows\n", args[0])

	case "user list":
		list, err := users.ListUsers(ctx, 100, 0)
		if err != nil {
			log.Fatalf("Failed to list users: %v", err)
		}
		for _, u := range list {
			fmt.Printf("ID: %d | Username: %s | Name: %s\n", u.ID, u.Username, u.FullName())
		}

	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}
