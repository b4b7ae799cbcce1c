package handler

import (
	"fmt"

	"github.com/aws/aws-lambda-go/events"
)

const (
	sesEventSource  = "aws:ses"
	sesEventVersion = "1.0"
)

// Envelope identifies one inbound message: its storage id and the
// addresses it was originally sent to, in receipt order.
type Envelope struct {
	MessageID  string
	Recipients []string
}

// validateEvent confirms e is a supported SES receipt notification with
// exactly one record and extracts its envelope. It performs no I/O.
func validateEvent(e *events.SimpleEmailEvent) (*Envelope, error) {
	if len(e.Records) != 1 {
		return nil, &InvalidEventError{
			Reason: fmt.Sprintf("expected exactly one record, got %d", len(e.Records)),
		}
	}

	record := &e.Records[0]
	if record.EventSource != sesEventSource {
		return nil, &InvalidEventError{
			Reason: fmt.Sprintf("unexpected event source %q", record.EventSource),
		}
	}
	if record.EventVersion != sesEventVersion {
		return nil, &InvalidEventError{
			Reason: fmt.Sprintf("unsupported event version %q", record.EventVersion),
		}
	}

	return &Envelope{
		MessageID:  record.SES.Mail.MessageID,
		Recipients: record.SES.Receipt.Recipients,
	}, nil
}
