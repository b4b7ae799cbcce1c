// Package handler forwards mail received by SES: it validates the receipt
// event, resolves the configured destination addresses, fetches the
// original message from S3, rewrites its header block so SES will accept
// the send, and submits the result.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sesv2types "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

type S3Api interface {
	GetObject(
		context.Context, *s3.GetObjectInput, ...func(*s3.Options),
	) (*s3.GetObjectOutput, error)
}

// SesApi covers the classic SES operations SESv2 has no equivalent for.
type SesApi interface {
	SendBounce(
		context.Context, *ses.SendBounceInput, ...func(*ses.Options),
	) (*ses.SendBounceOutput, error)
}

type SesV2Api interface {
	SendEmail(
		context.Context, *sesv2.SendEmailInput, ...func(*sesv2.Options),
	) (*sesv2.SendEmailOutput, error)
}

type Handler struct {
	S3      S3Api
	Ses     SesApi
	SesV2   SesV2Api
	Options *Options
	Log     *log.Logger
}

// HandleEvent runs the forwarding pipeline for one receipt event. The
// returned error is the pipeline's first failure; the Lambda runtime's
// redelivery behavior decides what happens to the trigger afterwards.
func (h *Handler) HandleEvent(
	ctx context.Context, e *events.SimpleEmailEvent,
) (*events.SimpleEmailDisposition, error) {
	p := &pipeline{handler: h, event: e}

	if err := p.run(ctx); err != nil {
		h.Log.Printf("failed to forward message: %s", err)
		return nil, err
	}
	return &events.SimpleEmailDisposition{
		Disposition: events.SimpleEmailStopRuleSet,
	}, nil
}

// screenReceipt refuses messages SES flagged on receipt. A DMARC failure
// under a reject policy is bounced back to the sender first.
func (h *Handler) screenReceipt(
	ctx context.Context, info *events.SimpleEmailService,
) error {
	if bounceId, err := h.bounceIfDmarcFails(ctx, info); err != nil {
		return err
	} else if bounceId != "" {
		return errors.New("DMARC bounced with bounce ID: " + bounceId)
	} else if isSpam(info) {
		return errors.New("marked as spam, ignoring")
	}
	return nil
}

func (h *Handler) bounceIfDmarcFails(
	ctx context.Context, info *events.SimpleEmailService,
) (string, error) {
	receipt := &info.Receipt
	if !strings.EqualFold(receipt.DMARCVerdict.Status, "fail") ||
		!strings.EqualFold(receipt.DMARCPolicy, "reject") {
		return "", nil
	}

	bounced := make([]sestypes.BouncedRecipientInfo, len(receipt.Recipients))
	for i := range receipt.Recipients {
		bounced[i] = sestypes.BouncedRecipientInfo{
			Recipient:  &receipt.Recipients[i],
			BounceType: sestypes.BounceTypeContentRejected,
		}
	}
	input := &ses.SendBounceInput{
		BounceSender:             aws.String(bounceSender(receipt.Recipients)),
		OriginalMessageId:        &info.Mail.MessageID,
		BouncedRecipientInfoList: bounced,
	}

	output, err := h.Ses.SendBounce(ctx, input)
	if err != nil {
		return "", fmt.Errorf("DMARC bounce failed: %s", err)
	}
	return *output.MessageId, nil
}

// bounceSender derives the mailer-daemon address from the first original
// recipient's domain.
func bounceSender(recipients []string) string {
	domain := ""
	if len(recipients) != 0 {
		if i := strings.LastIndex(recipients[0], "@"); i >= 0 {
			domain = recipients[0][i+1:]
		}
	}
	return "mailer-daemon@" + domain
}

func isSpam(info *events.SimpleEmailService) bool {
	receipt := &info.Receipt
	verdicts := []events.SimpleEmailVerdict{
		receipt.SPFVerdict,
		receipt.DKIMVerdict,
		receipt.SpamVerdict,
		receipt.VirusVerdict,
	}
	for _, verdict := range verdicts {
		if strings.EqualFold(verdict.Status, "fail") {
			return true
		}
	}
	return false
}

// messageKey builds the S3 object key for an inbound message id.
func (h *Handler) messageKey(messageId string) string {
	if h.Options.IncomingPrefix == "" {
		return messageId
	}
	return h.Options.IncomingPrefix + "/" + messageId
}

func (h *Handler) getOriginalMessage(
	ctx context.Context, key string,
) ([]byte, error) {
	input := &s3.GetObjectInput{Bucket: &h.Options.BucketName, Key: &key}

	output, err := h.S3.GetObject(ctx, input)
	if err == nil {
		var msg []byte
		if msg, err = io.ReadAll(output.Body); err == nil {
			return msg, nil
		}
	}
	return nil, &FetchError{Key: key, Err: err}
}

// forwardMessage submits the rewritten raw message. The envelope sender is
// the original destination address, which stays a verified identity even
// though the From header points elsewhere.
func (h *Handler) forwardMessage(
	ctx context.Context, msg []byte, destinations []string, source string,
) (string, error) {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: &source,
		Destination:      &sesv2types.Destination{ToAddresses: destinations},
		Content: &sesv2types.EmailContent{
			Raw: &sesv2types.RawMessage{Data: msg},
		},
	}
	if h.Options.ConfigurationSet != "" {
		input.ConfigurationSetName = aws.String(h.Options.ConfigurationSet)
	}

	output, err := h.SesV2.SendEmail(ctx, input)
	if err != nil {
		return "", &SendError{Err: err}
	}
	return *output.MessageId, nil
}
