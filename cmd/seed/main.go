// Command main fills the database with demo data.
package main

import (
	"context"
	"flag"
	"log"

	"yatube/internal/bootstrap"
	"yatube/internal/config"
	"yatube/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	numPosts := flag.Int("posts", defaults.NumPosts, "Number of posts to create")
	numComments := flag.Int("comments", defaults.NumComments, "Number of comments to create")
	follows := flag.Int("follows", defaults.FollowsPerUser, "Authors each user follows")
	shouldClean := flag.Bool("clean", false, "Delete users, posts, comments and follows first")
	groupsOnly := flag.Bool("groups-only", false, "Only create the built-in groups")
	dryRun := flag.Bool("dry-run", false, "Log what would be created without writing")
	fast := flag.Bool("fast", false, "Hash the shared password with the minimum bcrypt cost")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ApplySchema: true, SeedBuiltIns: true})
	if err != nil {
		log.Fatalf("❌ Runtime initialization failed: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}
	if *groupsOnly {
		log.Println("✨ Built-in groups are in place.")
		return
	}

	opts := defaults
	opts.NumUsers = *numUsers
	opts.NumPosts = *numPosts
	opts.NumComments = *numComments
	opts.FollowsPerUser = *follows
	opts.DryRun = *dryRun
	opts.FastHash = *fast
	opts.RandSeed = *randSeed
	log.Printf("Target: %d users, %d posts, %d comments, clean=%v", opts.NumUsers, opts.NumPosts, opts.NumComments, *shouldClean)

	s, err := seed.NewSeeder(db, opts)
	if err != nil {
		log.Fatalf("❌ Seeder setup failed: %v", err)
	}
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}
	res, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	log.Printf("Created %d users, %d posts, %d comments, %d follows", res.Users, res.Posts, res.Comments, res.Follows)

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Printf("📧 All test users have the password: %s", seed.DefaultPassword)
}
