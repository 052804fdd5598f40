package connectors

import "fundimport/internal"

// MailConnector pulls raw messages from a broker's mailbox. Header
// interpretation happens later, in the intake parser.
type MailConnector interface {
	FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error)
}
