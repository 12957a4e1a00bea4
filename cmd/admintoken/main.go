// Command admintoken mints a bearer token for the ops API. Intended for
// operators and local development; the platform mints production tokens.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dmcallister-dev/medgate/internal/auth"
)

func main() {
	userID := flag.String("user", "", "platform user id to embed in the token")
	role := flag.String("role", auth.RoleAdmin, "role claim")
	expiry := flag.Duration("expiry", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "ADMIN_JWT_SECRET is required")
		os.Exit(1)
	}
	if *userID == "" {
		fmt.Fprintln(os.Stderr, "-user is required")
		os.Exit(1)
	}

	tm := auth.NewTokenManager(secret, *expiry)
	token, err := tm.Generate(*userID, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
