package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/noah-isme/perf-review-api/internal/models"
	"github.com/noah-isme/perf-review-api/internal/service"
	"github.com/noah-isme/perf-review-api/pkg/config"
)

func main() {
	staffID := flag.String("staff", "", "staff id placed in the token")
	email := flag.String("email", "", "staff email placed in the token")
	role := flag.String("role", string(models.RoleStaff), "ADMIN or STAFF")
	flag.Parse()

	if *staffID == "" || *email == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	tokens := service.NewTokenService(service.TokenConfig{
		Secret:     cfg.Auth.Secret,
		Issuer:     cfg.Auth.Issuer,
		Expiration: cfg.Auth.Expiration,
	})
	token, expiresAt, err := tokens.Issue(*staffID, *email, models.StaffRole(strings.ToUpper(*role)))
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format("2006-01-02T15:04:05Z07:00"))
}
