// Command devtoken mints a development session token for the demo client.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/content"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/identity"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
)

func main() {
	userID := flag.String("user", "u1", "user id (token subject)")
	userName := flag.String("username", "alice", "user name")
	secret := flag.String("secret", "dev-secret", "signing secret (must match SOCIAL_SESSION_SECRET)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if err := content.ValidateUsername(*userName); err != nil {
		log.Fatalf("invalid username: %v", err)
	}

	token, err := identity.MintToken(*secret, models.Identity{
		UserID:   *userID,
		UserName: *userName,
	}, *ttl)
	if err != nil {
		log.Fatalf("mint token: %v", err)
	}

	fmt.Println(token)
}
