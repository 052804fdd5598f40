package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fundimport/internal/config"
	"fundimport/internal/fetch"
	"fundimport/internal/importer"
	"fundimport/internal/listener"
	"fundimport/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	files := storage.NewFileStore(cfg.StorageDir)
	imp := importer.NewService(db, files, fetch.NewClient(cfg), cfg)

	svc := listener.NewService(db, cfg, imp)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
