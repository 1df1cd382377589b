// Command migrate creates the newsletter schema and reports what exists.
//
//	DATABASE_URL=postgres://... migrate          # apply the schema
//	DATABASE_URL=postgres://... migrate --list   # list newsletter tables
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/ignite/newsletter/internal/store"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	listOnly := len(os.Args) > 1 && os.Args[1] == "--list"

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("ping: %v", err)
	}
	log.Println("Connected to database")

	if listOnly {
		rows, err := db.QueryContext(ctx,
			"SELECT tablename FROM pg_tables WHERE schemaname='public' AND tablename IN ('subscribers','posts') ORDER BY tablename")
		if err != nil {
			log.Fatal(err)
		}
		defer rows.Close()
		n := 0
		for rows.Next() {
			var t string
			rows.Scan(&t)
			fmt.Println(" ", t)
			n++
		}
		fmt.Printf("Total: %d tables\n", n)
		return
	}

	if err := store.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	log.Println("Schema is up to date")
}
