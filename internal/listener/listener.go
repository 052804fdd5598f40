package listener

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fundimport/internal"
	"fundimport/internal/config"
	"fundimport/internal/connectors"
	gmailconnector "fundimport/internal/connectors/gmail"
	imapconnector "fundimport/internal/connectors/imap"
	"fundimport/internal/importer"
	"fundimport/internal/intake"
	"fundimport/internal/storage"
)

// Service polls a mailbox for forwarded listing mails, queues the listing
// links it finds, and works through queued import jobs.
type Service struct {
	db       *storage.DB
	cfg      config.Config
	importer *importer.Service
}

func NewService(db *storage.DB, cfg config.Config, imp *importer.Service) *Service {
	return &Service{db: db, cfg: cfg, importer: imp}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			fmt.Printf("listener cycle error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.ListenerIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.ListenerProvider))
	conn, err := s.makeConnector(provider)
	if err != nil {
		return err
	}

	queued, err := s.FetchAndQueue(conn)
	if err != nil {
		return err
	}

	imported, failed, err := s.ProcessQueued(ctx, s.cfg.ListenerImportBatch)
	if err != nil {
		return err
	}

	fmt.Printf("listener cycle done provider=%s queued=%d imported=%d failed=%d\n", provider, queued, imported, failed)
	return nil
}

// FetchAndQueue pulls new mail and queues every allowed listing link under
// the configured default ownership ids.
func (s *Service) FetchAndQueue(conn connectors.MailConnector) (int, error) {
	messages, err := conn.FetchInbox(s.cfg.ListenerLabel, s.cfg.ListenerFetchMax)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, msg := range messages {
		mail, err := intake.FromRaw(msg.Raw, s.cfg.AllowedDomain)
		if err != nil {
			fmt.Printf("intake parse failed provider=%s messageId=%s: %v\n", msg.Provider, msg.MessageID, err)
			continue
		}
		for _, link := range mail.ListingURLs {
			if err := s.db.QueueImportJob(link, msg.Provider, msg.MessageID, s.cfg.DefaultOrganizationID, s.cfg.DefaultUserID); err != nil {
				return queued, err
			}
			queued++
		}
	}
	return queued, nil
}

// ProcessQueued imports up to limit queued jobs, recording per-job outcome.
// A failed job never stops the batch.
func (s *Service) ProcessQueued(ctx context.Context, limit int) (int, int, error) {
	jobs, err := s.db.ListJobsByStatus("queued", limit)
	if err != nil {
		return 0, 0, err
	}

	imported, failed := 0, 0
	for _, job := range jobs {
		ictx := internal.ImportContext{OrganizationID: job.OrganizationID, UserID: job.UserID}
		_, err := s.importer.Import(ctx, job.URL, ictx, importer.Options{Throttle: true})
		if err != nil {
			msg := err.Error()
			if uerr := s.db.UpdateJobStatus(job.ID, "failed", &msg); uerr != nil {
				return imported, failed, uerr
			}
			failed++
			continue
		}
		if err := s.db.UpdateJobStatus(job.ID, "imported", nil); err != nil {
			return imported, failed, err
		}
		imported++
	}
	return imported, failed, nil
}

func (s *Service) makeConnector(provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(s.cfg)
	case "imap":
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}
