package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/tendant/agri-advisor/pkg/advisor"
	"github.com/tendant/agri-advisor/pkg/advisor/config"
	"github.com/tendant/agri-advisor/pkg/advisor/model"
	repopg "github.com/tendant/agri-advisor/pkg/advisor/repo/postgres"
)

const usage = `Agri Advisor Admin CLI

Operator tool for the audit log and the model artifacts.

USAGE:
  admin <command> [options]

COMMANDS:
  migrate   Create the request_log table (postgres only)
  logs      List audit records, newest first
  models    Load every model artifact and report availability
  publish   Validate an artifact document and upload it to the model source

ENVIRONMENT VARIABLES:
  DATABASE_URL      "memory" or a PostgreSQL connection string
  DB_SCHEMA         PostgreSQL search_path
  MODEL_SOURCE      file://<dir>, s3://<bucket>/<prefix> or memory://
  MODEL_<DOMAIN>_KEY  Artifact key per domain (default: <domain>.yaml)

  Configuration can be loaded from a .env file in the current directory.
  Command line environment variables override .env file values.

EXAMPLES:
  admin migrate
  admin logs --module=crop --limit=20
  admin logs --json
  admin models
  admin publish --domain=yield --file=./yield.yaml

OPTIONS:
  --module=<domain>   Filter logs by domain (crop, fertilizer, dosage, yield)
  --limit=<n>         Maximum records (logs only, default: 50)
  --domain=<domain>   Domain to publish (publish only)
  --file=<path>       Artifact document to publish (publish only)
  --json              Output as JSON
`

type options struct {
	module string
	limit  int
	domain string
	file   string
	json   bool
}

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	if command == "help" || command == "--help" || command == "-h" {
		fmt.Println(usage)
		os.Exit(0)
	}

	cfg, err := config.Load(config.WithEnv(), config.WithAutoMigrate(false))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	opts := parseOptions(os.Args[2:])

	switch command {
	case "migrate":
		handleMigrate(ctx, cfg)
	case "logs":
		handleLogs(ctx, cfg, opts)
	case "models":
		handleModels(ctx, cfg, opts)
	case "publish":
		handlePublish(ctx, cfg, opts)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func parseOptions(args []string) options {
	opts := options{limit: advisor.DefaultAuditLimit}

	for _, arg := range args {
		if arg == "--json" {
			opts.json = true
			continue
		}

		key, value := parseFlag(arg)

		switch key {
		case "module":
			opts.module = value
		case "limit":
			if n, err := strconv.Atoi(value); err == nil {
				opts.limit = n
			}
		case "domain":
			opts.domain = value
		case "file":
			opts.file = value
		}
	}

	return opts
}

func parseFlag(arg string) (string, string) {
	if len(arg) > 2 && arg[:2] == "--" {
		arg = arg[2:]
		for i, c := range arg {
			if c == '=' {
				return arg[:i], arg[i+1:]
			}
		}
		return arg, "true"
	}
	return "", ""
}

func handleMigrate(ctx context.Context, cfg *config.ServerConfig) {
	if cfg.DatabaseType != "postgres" {
		fmt.Println("Nothing to migrate: DATABASE_URL is not a postgres URL")
		return
	}

	pool, err := cfg.OpenPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := repopg.NewWithPool(pool).Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}
	fmt.Println("request_log table is up to date")
}

func handleLogs(ctx context.Context, cfg *config.ServerConfig, opts options) {
	q := advisor.AuditQuery{Limit: opts.limit}
	if opts.module != "" {
		domain, err := advisor.ParseDomain(opts.module)
		if err != nil {
			log.Fatalf("Invalid module %q: %v", opts.module, err)
		}
		q.Domain = domain
	}
	if q.Limit <= 0 {
		log.Fatalf("Invalid limit %d: must be a positive integer", q.Limit)
	}

	auditLog, closeFn, err := cfg.BuildAuditLog(ctx)
	if err != nil {
		log.Fatalf("Failed to open audit log: %v", err)
	}
	defer closeFn()

	records, err := auditLog.Query(ctx, q)
	if err != nil {
		log.Fatalf("Failed to list logs: %v", err)
	}

	if opts.json {
		printJSON(records)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tMODULE\tCREATED\tINPUT\tRESULT\n")
	for _, rec := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			rec.ID,
			rec.Domain,
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
			truncate(string(rec.RequestPayload), 40),
			truncate(string(rec.ResponsePayload), 40),
		)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d\n", len(records))
}

func handleModels(ctx context.Context, cfg *config.ServerConfig, opts options) {
	registry, err := cfg.BuildRegistry(ctx, nil)
	if err != nil {
		log.Fatalf("Failed to load models: %v", err)
	}

	statuses := registry.Status()
	if opts.json {
		printJSON(statuses)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "DOMAIN\tKEY\tAVAILABLE\tKIND\tERROR\n")
	for _, st := range statuses {
		kind, errMsg := st.Kind, st.Error
		if kind == "" {
			kind = "-"
		}
		if errMsg == "" {
			errMsg = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", st.Domain, cfg.ModelKeys[st.Domain], st.Available, kind, truncate(errMsg, 60))
	}
	w.Flush()
}

func handlePublish(ctx context.Context, cfg *config.ServerConfig, opts options) {
	if opts.domain == "" || opts.file == "" {
		log.Fatalf("publish requires --domain and --file")
	}
	domain, err := advisor.ParseDomain(opts.domain)
	if err != nil {
		log.Fatalf("Invalid domain %q: %v", opts.domain, err)
	}

	data, err := os.ReadFile(opts.file)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", opts.file, err)
	}

	key := cfg.ModelKeys[domain]
	if err := validateArtifact(domain, key, opts.file, data); err != nil {
		log.Fatalf("Refusing to publish: %v", err)
	}

	store, err := cfg.BuildArtifactStore()
	if err != nil {
		log.Fatalf("Failed to open model source: %v", err)
	}

	start := time.Now()
	if err := store.Put(ctx, key, bytes.NewReader(data)); err != nil {
		log.Fatalf("Failed to publish %s: %v", key, err)
	}
	fmt.Printf("Published %s model to %s (%d bytes, %v)\n", domain, key, len(data), time.Since(start).Round(time.Millisecond))
	fmt.Println("Restart the server to load it.")
}

// validateArtifact decodes data the way the registry will read it back.
func validateArtifact(domain advisor.Domain, key, file string, data []byte) error {
	if filepath.Ext(key) != filepath.Ext(file) {
		return errors.New("file extension must match the configured key " + key)
	}
	a, err := model.Decode(key, bytes.NewReader(data))
	if err != nil {
		return err
	}
	return a.Fits(domain)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
	fmt.Println(string(data))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
