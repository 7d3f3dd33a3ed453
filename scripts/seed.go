package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/skyvault/skyvault/pkg/favsync"
)

// Seeds a demo account with a handful of favorites against a running server.
// Useful for local frontend work: go run ./scripts -items HYPERION,TERMINATOR
func main() {
	baseURL := flag.String("url", "http://localhost:8000", "server base URL")
	username := flag.String("user", "demo", "account username")
	password := flag.String("pass", "demo-password", "account password")
	items := flag.String("items", "DIAMOND_SWORD,HYPERION,ASPECT_OF_THE_END", "comma-separated item ids to favorite")
	flag.Parse()

	ctx := context.Background()

	client, err := favsync.NewClient(*baseURL)
	if err != nil {
		log.Fatalf("create client: %v", err)
	}

	// Registration may 409 on reruns; that is fine, the account exists.
	if err := client.Register(ctx, *username, *password, ""); err != nil {
		log.Printf("register %q: %v (continuing)", *username, err)
	}

	user, err := client.Login(ctx, *username, *password)
	if err != nil {
		log.Fatalf("login %q: %v", *username, err)
	}
	fmt.Printf("logged in as %s (id %d)\n", user.Username, user.ID)

	for _, itemID := range strings.Split(*items, ",") {
		itemID = strings.TrimSpace(itemID)
		if itemID == "" {
			continue
		}
		if err := client.Add(ctx, itemID, ""); err != nil {
			log.Printf("add %s: %v", itemID, err)
			continue
		}
		fmt.Printf("favorited %s\n", itemID)
	}

	favs, err := client.List(ctx)
	if err != nil {
		log.Fatalf("list favorites: %v", err)
	}
	fmt.Printf("%s now has %d favorite(s)\n", user.Username, len(favs))
}
