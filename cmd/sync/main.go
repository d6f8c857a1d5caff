package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/AnserBeg/rent-soft-sub001/internal/config"
	"github.com/AnserBeg/rent-soft-sub001/internal/logger"
	"github.com/AnserBeg/rent-soft-sub001/internal/quickbooks"
)

// qbo-sync is the operational entry point for checking a deployment's
// QuickBooks configuration: it resolves the OAuth endpoints the services will
// use and, when asked, prints the consent URL a tenant must visit to connect.
// The sync and billing services themselves run inside the platform process;
// this binary only exercises the configuration path.

func init() {
	time.Local = time.UTC
}

func main() {
	state := flag.String("state", "", "print the OAuth consent URL using this state value")
	flag.Parse()

	// A .env file is a development convenience; deployments use real env vars.
	_ = godotenv.Load()

	log, err := logger.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init failed:", err)
		os.Exit(1)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("configuration invalid: %v", err)
	}

	ctx := context.Background()
	resolver := quickbooks.NewEndpointResolver(cfg.QuickBooks, nil, log)
	eps := resolver.Resolve(ctx)

	log.Infow("quickbooks configuration resolved",
		"environment", cfg.QuickBooks.Environment,
		"api_host", cfg.QuickBooks.APIHost(),
		"minor_version", cfg.QuickBooks.APIMinorVersion(),
		"doc_number_mode", cfg.QuickBooks.DocNumberMode,
		"authorize_url", eps.AuthorizeURL,
		"token_url", eps.TokenURL,
		"revoke_url", eps.RevokeURL,
	)

	if *state != "" {
		httpClient := &http.Client{Timeout: 30 * time.Second}
		oauth := quickbooks.NewOAuthClient(cfg.QuickBooks, resolver, httpClient, log)
		consentURL, err := oauth.AuthorizeURL(ctx, *state)
		if err != nil {
			log.Fatalf("cannot build consent URL: %v", err)
		}
		fmt.Println(consentURL)
	}
}
