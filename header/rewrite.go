package header

import "strings"

// Rewrite holds the substitutions applied to a message's header block
// before forwarding. SES rejects raw sends whose From address is not a
// verified identity, so the From rewrite is unconditional.
type Rewrite struct {
	// FromEmail is a verified sender address. When set, it becomes the
	// address portion of every From header, keeping the original display
	// name. When empty, the original From text is kept with its angle
	// brackets de-activated and Recipient supplies the address instead.
	FromEmail string

	// SubjectPrefix is prepended verbatim to every Subject value when
	// non-empty.
	SubjectPrefix string

	// ToEmail replaces every To value when non-empty.
	ToEmail string

	// Recipient is the original destination address of the inbound
	// message.
	Recipient string
}

// Apply rewrites the header block of msg and returns the new message. The
// body, everything from the first blank line on, is byte for byte
// unchanged.
func (r *Rewrite) Apply(msg []byte) []byte {
	block, body := Split(msg)

	r.injectReplyTo(block)
	r.rewriteFrom(block)
	r.prefixSubject(block)
	r.overrideTo(block)
	block.Remove("Return-Path", "Sender", "Message-ID")
	block.Remove("DKIM-Signature")

	return append(block.Bytes(), body...)
}

// injectReplyTo appends a Reply-To carrying the original From value, folds
// included, unless the message already has one. Replies then reach the
// original sender even though From is rewritten.
func (r *Rewrite) injectReplyTo(b *Block) {
	if b.Has("Reply-To") {
		return
	}
	if from := b.Find("From"); from != nil {
		b.Append("Reply-To", strings.TrimLeft(from.Value(), " \t"))
	}
}

func (r *Rewrite) rewriteFrom(b *Block) {
	for i := range b.fields {
		if b.fields[i].Is("From") {
			value := strings.TrimSpace(b.fields[i].Value())
			b.set(i, "From", r.newFromValue(value))
		}
	}
}

// newFromValue synthesizes the replacement From value. With a verified
// override address, the original display name is kept and the original
// address dropped. Without one, the original text survives with "<" and
// ">" neutralized so it reads as part of the display name, and the
// original destination address takes the address slot.
func (r *Rewrite) newFromValue(orig string) string {
	if r.FromEmail != "" {
		display := orig
		if open := strings.IndexByte(display, '<'); open >= 0 {
			rest := ""
			if close := strings.IndexByte(display[open:], '>'); close >= 0 {
				rest = display[open+close+1:]
			}
			display = display[:open] + rest
		}
		return joinFrom(strings.TrimSpace(display), r.FromEmail)
	}

	display := strings.Replace(orig, "<", "at ", 1)
	display = strings.Replace(display, ">", "", 1)
	return joinFrom(strings.TrimSpace(display), r.Recipient)
}

func joinFrom(display, address string) string {
	if display == "" {
		return "<" + address + ">"
	}
	return display + " <" + address + ">"
}

func (r *Rewrite) prefixSubject(b *Block) {
	if r.SubjectPrefix == "" {
		return
	}
	for i := range b.fields {
		if b.fields[i].Is("Subject") {
			value := strings.TrimLeft(b.fields[i].Value(), " \t")
			b.set(i, "Subject", r.SubjectPrefix+value)
		}
	}
}

func (r *Rewrite) overrideTo(b *Block) {
	if r.ToEmail == "" {
		return
	}
	for i := range b.fields {
		if b.fields[i].Is("To") {
			b.set(i, "To", r.ToEmail)
		}
	}
}
