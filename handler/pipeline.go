package handler

import (
	"context"

	"github.com/aws/aws-lambda-go/events"

	"github.com/mailfwd/ses-mail-forwarder/header"
	"github.com/mailfwd/ses-mail-forwarder/mapping"
)

// pipelineState tracks the pipeline through its strictly linear stage
// sequence.
type pipelineState int

const (
	stateValidating pipelineState = iota
	stateResolving
	stateFetching
	stateTransforming
	stateSending
	stateDone
	stateFailed
)

// pipeline runs one invocation end to end. Each stage hands its results to
// the next through run's locals; the first failure aborts the remaining
// stages. The pipeline owns no business logic of its own.
type pipeline struct {
	handler *Handler
	event   *events.SimpleEmailEvent
	state   pipelineState
}

func (p *pipeline) run(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			p.state = stateFailed
		}
	}()
	h := p.handler

	p.state = stateValidating
	envelope, err := validateEvent(p.event)
	if err != nil {
		return err
	}
	if err = h.screenReceipt(ctx, &p.event.Records[0].SES); err != nil {
		return err
	}

	key := h.messageKey(envelope.MessageID)
	h.Log.Printf("forwarding message %s", key)

	p.state = stateResolving
	destinations := mapping.Resolve(
		envelope.Recipients, h.Options.ForwardMapping, h.Options.AllowPlusSign,
	)
	if len(destinations) == 0 {
		h.Log.Printf("no forwarding destinations for message %s", key)
		p.state = stateDone
		return nil
	}

	p.state = stateFetching
	original, err := h.getOriginalMessage(ctx, key)
	if err != nil {
		return err
	}

	p.state = stateTransforming
	rewrite := &header.Rewrite{
		FromEmail:     h.Options.FromEmail,
		SubjectPrefix: h.Options.SubjectPrefix,
		ToEmail:       h.Options.ToEmail,
		Recipient:     envelope.Recipients[0],
	}
	updated := rewrite.Apply(original)

	p.state = stateSending
	fwdId, err := h.forwardMessage(ctx, updated, destinations, envelope.Recipients[0])
	if err != nil {
		return err
	}

	h.Log.Printf("successfully forwarded message %s as %s", key, fwdId)
	p.state = stateDone
	return nil
}
