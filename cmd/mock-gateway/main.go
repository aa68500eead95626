package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/pipewise/target-intacct/internal/mockgateway"
)

// mock-gateway serves an in-memory stand-in for the Intacct XML gateway,
// for exercising the connector end to end without credentials. Reference
// lists load from a JSON fixture mapping object codes to rows, e.g.
// {"GLACCOUNT": [{"ACCOUNTNO": "4000"}]}.
func main() {
	addr := defaultString("MOCK_GATEWAY_ADDR", ":8080")

	fs := flag.NewFlagSet("mock-gateway", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	pageSize := fs.Int("page-size", 100, "Rows per readByQuery page")
	senderID := fs.String("sender-id", "", "Reject requests from any other sender id")
	entitiesPath := fs.String("entities", "", "JSON fixture of reference rows keyed by object code")
	_ = fs.Parse(os.Args[1:])

	srv := mockgateway.New(*pageSize)
	if *senderID != "" {
		srv.RequireSender(*senderID)
	}
	if *entitiesPath != "" {
		if err := loadEntities(srv, *entitiesPath); err != nil {
			fmt.Fprintf(os.Stderr, "load entities: %v\n", err)
			os.Exit(2)
		}
	}

	fmt.Fprintf(os.Stdout, "mock-gateway listening on %s (page size %d)\n", addr, *pageSize)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func loadEntities(srv *mockgateway.Server, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fixtures := make(map[string][]map[string]string)
	if err := json.Unmarshal(b, &fixtures); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for objectCode, rows := range fixtures {
		srv.SetEntities(objectCode, rows)
	}
	return nil
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
