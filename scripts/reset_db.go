package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"fixtrack/internal/cache"
	"fixtrack/internal/config"
	"fixtrack/internal/db"
)

func main() {
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	fmt.Println("========================================")
	fmt.Println("   Reset FixTrack Database")
	fmt.Println("========================================")
	fmt.Println()
	fmt.Println("WARNING: This will DELETE ALL SHOP DATA!")
	fmt.Println()
	fmt.Println("This will:")
	fmt.Println("  - Delete all repair records")
	fmt.Println("  - Delete all users (register with --first-admin afterwards)")
	fmt.Println("  - Clear the staff referral code")
	fmt.Println("  - Reset the user ID sequence")
	fmt.Println()

	if !*yes {
		fmt.Print("Type 'yes' to confirm: ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" {
			fmt.Println("Reset cancelled.")
			return
		}
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	fmt.Println()
	fmt.Println("Resetting database...")

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"repair_records", "users"} {
		if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			log.Fatalf("Failed to truncate %s: %v", table, err)
		}
		fmt.Printf("  - Cleared %s\n", table)
	}

	if _, err := tx.Exec(ctx, "ALTER SEQUENCE users_id_seq RESTART WITH 1"); err != nil {
		log.Printf("Warning: Failed to reset users_id_seq: %v", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO settings (id, staff_referral_code, updated_at) VALUES (1, '', NOW())
		ON CONFLICT (id) DO UPDATE SET staff_referral_code = '', updated_at = NOW()`)
	if err != nil {
		log.Fatalf("Failed to reset settings: %v", err)
	}
	fmt.Println("  - Cleared staff referral code")

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit transaction: %v", err)
	}

	if cfg.Redis.Addr != "" {
		if err := cache.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			log.Printf("Warning: Redis unavailable, cached reports expire on their own: %v", err)
		} else {
			cache.InvalidateRecordCaches(ctx)
			cache.Close()
			fmt.Println("  - Dropped cached reports")
		}
	}

	fmt.Println()
	fmt.Println("Database reset successful.")
	fmt.Println("Run `fixtrack register <username> --first-admin` to claim the shop.")
}
