// Command devtoken mints identity tokens signed with IDENTITY_JWT_SECRET for
// local development against the history API.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/enem-practice/backend/internal/auth"
)

func main() {
	_ = godotenv.Load()

	flagSub := pflag.String("sub", "", "user id (token subject)")
	flagEmail := pflag.String("email", "", "email claim")
	flagGiven := pflag.String("given-name", "", "given_name claim")
	flagFamily := pflag.String("family-name", "", "family_name claim")
	flagPicture := pflag.String("picture", "", "picture claim")
	flagTTL := pflag.Duration("ttl", 24*time.Hour, "token lifetime")
	flagSecret := pflag.String("secret", os.Getenv("IDENTITY_JWT_SECRET"), "signing secret (default $IDENTITY_JWT_SECRET)")
	pflag.Parse()

	if *flagSub == "" || *flagSecret == "" {
		color.Red("both --sub and a signing secret are required")
		pflag.Usage()
		os.Exit(2)
	}

	verifier := auth.NewVerifier(*flagSecret, os.Getenv("IDENTITY_JWT_ISSUER"), os.Getenv("IDENTITY_JWT_AUDIENCE"))
	token, err := verifier.IssueToken(auth.Identity{
		ID:         *flagSub,
		Email:      *flagEmail,
		GivenName:  *flagGiven,
		FamilyName: *flagFamily,
		Picture:    *flagPicture,
	}, *flagTTL)
	if err != nil {
		color.Red("sign token: %v", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
