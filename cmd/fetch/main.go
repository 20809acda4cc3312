package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"macropull/internal/di"
	"macropull/internal/domain/models"
	"macropull/pkg/config"
	"macropull/pkg/util"
)

// fetch resolves one (entity, indicator) pair from the command line and
// prints the response as JSON. Useful for smoke tests and cache warming.
func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	entity := flag.String("entity", "", "entity identifier, e.g. a country code")
	indicator := flag.String("indicator", "", "indicator name, e.g. gdp")
	from := flag.String("from", "", "range start (RFC3339, date or year)")
	to := flag.String("to", "", "range end (RFC3339, date or year)")
	fallback := flag.Float64("default", 0, "default value when all providers fail")
	hasFallback := flag.Bool("use-default", false, "enable the -default substitution value")
	flag.Parse()

	if *entity == "" || *indicator == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	service, err := di.InitializeDataService(cfg)
	if err != nil {
		log.Fatalf("service initialization failed: %v", err)
	}
	defer service.Close()

	req := models.DataRequest{
		Entity:    *entity,
		Indicator: *indicator,
	}
	if *from != "" {
		t, ok := util.ParseTime(*from)
		if !ok {
			log.Fatalf("bad -from: %q", *from)
		}
		req.From = &t
	}
	if *to != "" {
		t, ok := util.ParseTime(*to)
		if !ok {
			log.Fatalf("bad -to: %q", *to)
		}
		req.To = &t
	}
	if *hasFallback {
		req.Default = fallback
	}

	resp := service.Get(context.Background(), req)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		log.Fatalf("encode response: %v", err)
	}
	if !resp.Success {
		os.Exit(1)
	}
}
