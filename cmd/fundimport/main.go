package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"fundimport/internal"
	"fundimport/internal/config"
	"fundimport/internal/connectors"
	gmailconnector "fundimport/internal/connectors/gmail"
	imapconnector "fundimport/internal/connectors/imap"
	"fundimport/internal/fetch"
	"fundimport/internal/importer"
	"fundimport/internal/listener"
	"fundimport/internal/scrape"
	"fundimport/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	files := storage.NewFileStore(cfg.StorageDir)
	svc := importer.NewService(db, files, fetch.NewClient(cfg), cfg)

	cmd := os.Args[1]
	switch cmd {
	case "import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		url := fs.String("url", "", "listing url")
		org := fs.Int("org", cfg.DefaultOrganizationID, "organization id")
		user := fs.Int("user", cfg.DefaultUserID, "user id")
		contact := fs.Int("contact", 0, "contact user id")
		searchRequest := fs.Int("search-request", 0, "search request id")
		dryRun := fs.Bool("dry-run", false, "compute payload only, no downloads or persistence")
		noThrottle := fs.Bool("no-throttle", false, "skip the courtesy delay before fetching")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*url) == "" {
			must(fmt.Errorf("--url is required"))
		}

		ictx := internal.ImportContext{OrganizationID: *org, UserID: *user}
		if *contact != 0 {
			ictx.ContactUserID = contact
		}
		if *searchRequest != 0 {
			ictx.SearchRequestID = searchRequest
		}

		result, err := svc.Import(context.Background(), *url, ictx, importer.Options{DryRun: *dryRun, Throttle: !*noThrottle})
		must(err)
		if *dryRun {
			blob, _ := json.MarshalIndent(result.Payload, "", "  ")
			fmt.Println(string(blob))
			return
		}
		fmt.Printf("imported url=%s id=%d name=%q\n", result.Property.URL, result.Property.ID, result.Property.Name)
	case "scrape:html":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "path to a saved listing page")
		url := fs.String("url", "", "original listing url, if known")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}

		blob, err := os.ReadFile(*file)
		must(err)
		res, err := svc.ScrapeFromHTML(string(blob), *url)
		must(err)
		outcome := svc.MapScrape(res, internal.ImportContext{OrganizationID: cfg.DefaultOrganizationID, UserID: cfg.DefaultUserID})
		out, _ := json.MarshalIndent(map[string]any{
			"payload":       outcome.Payload,
			"unmapped_keys": outcome.UnmappedKeys,
		}, "", "  ")
		fmt.Println(string(out))
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.ListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.ListenerLabel, "mailbox/label")
		max := fs.Int("max", cfg.ListenerFetchMax, "max messages")
		_ = fs.Parse(os.Args[2:])

		conn, err := makeConnector(cfg, *provider)
		must(err)
		lsvc := listener.NewService(db, withListener(cfg, *label, *max), svc)
		queued, err := lsvc.FetchAndQueue(conn)
		must(err)
		fmt.Printf("mail fetch done provider=%s queued=%d\n", *provider, queued)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		batch := fs.Int("batch", cfg.ListenerImportBatch, "batch size")
		_ = fs.Parse(os.Args[2:])

		lsvc := listener.NewService(db, cfg, svc)
		imported, failed, err := lsvc.ProcessQueued(context.Background(), *batch)
		must(err)
		fmt.Printf("mail process done imported=%d failed=%d\n", imported, failed)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}

		rows, err := db.ListProperties()
		must(err)
		if len(rows) == 0 {
			must(fmt.Errorf("no properties to export"))
		}
		must(importer.ExportPropertiesToXLSX(rows, *out))
		fmt.Printf("exported %d properties to %s\n", len(rows), *out)
	case "properties:list":
		rows, err := db.ListProperties()
		must(err)
		for _, row := range rows {
			fmt.Printf("%d\t%s\t%s\t%s\n", row.ID, row.City, row.Name, row.URL)
		}
	case "mappings:set":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		domain := fs.String("domain", "", "source domain")
		field := fs.String("field", "", "property field")
		selector := fs.String("selector", "", "css selector")
		_ = fs.Parse(os.Args[2:])
		if *domain == "" || *field == "" || *selector == "" {
			must(fmt.Errorf("--domain --field --selector are required"))
		}
		must(db.SetScrapeMapping(*domain, *field, *selector))
		fmt.Printf("mapping saved domain=%s field=%s\n", *domain, *field)
	case "mappings:apply":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		domain := fs.String("domain", "", "source domain")
		file := fs.String("file", "", "path to a saved page")
		_ = fs.Parse(os.Args[2:])
		if *domain == "" || *file == "" {
			must(fmt.Errorf("--domain --file are required"))
		}

		mappings, err := db.ListScrapeMappings(*domain)
		must(err)
		if len(mappings) == 0 {
			must(fmt.Errorf("no mappings configured for domain %s", *domain))
		}
		blob, err := os.ReadFile(*file)
		must(err)
		values, err := scrape.ApplyFieldSelectors(string(blob), mappings)
		must(err)
		out, _ := json.MarshalIndent(values, "", "  ")
		fmt.Println(string(out))
	default:
		usage()
		os.Exit(1)
	}
}

func makeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func withListener(cfg config.Config, label string, max int) config.Config {
	cfg.ListenerLabel = label
	cfg.ListenerFetchMax = max
	return cfg
}

func usage() {
	fmt.Println("usage: fundimport <command>")
	fmt.Println("commands:")
	fmt.Println("  import --url=... [--org=1 --user=1] [--contact=..] [--search-request=..] [--dry-run] [--no-throttle]")
	fmt.Println("  scrape:html --file=page.html [--url=...]")
	fmt.Println("  mail:fetch --provider=imap|gmail [--label=INBOX] [--max=20]")
	fmt.Println("  mail:process [--batch=10]")
	fmt.Println("  export:xlsx --out=./out/properties.xlsx")
	fmt.Println("  properties:list")
	fmt.Println("  mappings:set --domain=... --field=... --selector=...")
	fmt.Println("  mappings:apply --domain=... --file=page.html")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
