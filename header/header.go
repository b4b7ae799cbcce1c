// Package header rewrites the header block of a raw mail message without
// parsing the body. The block is tokenized into logical fields so that
// folded continuation lines travel with their owning header, edits are
// structural, and untouched fields reserialize byte for byte.
package header

import "strings"

const crlf = "\r\n"

// Field is one logical header entry: a name and the full physical text of
// the entry, including any folded continuation lines and line terminators.
type Field struct {
	name string
	raw  string
}

// Name returns the field name as it appeared in the message. It is empty
// for a malformed line carrying no colon.
func (f *Field) Name() string { return f.name }

// Is reports whether the field has the given name, ignoring case.
func (f *Field) Is(name string) bool {
	return f.name != "" && strings.EqualFold(f.name, name)
}

// Value returns the field text after the colon, folds included, without
// the final line terminator.
func (f *Field) Value() string {
	v := f.raw
	if i := strings.IndexByte(v, ':'); i >= 0 {
		v = v[i+1:]
	}
	v = strings.TrimSuffix(v, "\n")
	return strings.TrimSuffix(v, "\r")
}

// Block is the ordered sequence of logical fields in a message's header
// block.
type Block struct {
	fields []Field
	eol    string
}

// Split divides a raw message at the first blank line. Everything before
// it is the header block; everything from the blank line on is the body,
// returned unmodified. A message with no blank line is all header.
func Split(msg []byte) (*Block, []byte) {
	raw := string(msg)
	header := raw
	var body []byte

	pos := 0
	for pos < len(raw) {
		next := strings.IndexByte(raw[pos:], '\n')
		if next < 0 {
			break
		}
		if line := raw[pos : pos+next]; line == "" || line == "\r" {
			header = raw[:pos]
			body = msg[pos:]
			break
		}
		pos += next + 1
	}
	return parse(header), body
}

// parse tokenizes a header block. A physical line starting with space or
// tab continues the previous field; any other line starts a new one.
func parse(header string) *Block {
	b := &Block{eol: crlf}
	if !strings.Contains(header, crlf) && strings.Contains(header, "\n") {
		b.eol = "\n"
	}

	pos := 0
	for pos < len(header) {
		var line string
		if next := strings.IndexByte(header[pos:], '\n'); next < 0 {
			line = header[pos:]
			pos = len(header)
		} else {
			line = header[pos : pos+next+1]
			pos += next + 1
		}

		folded := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
		if folded && len(b.fields) != 0 {
			b.fields[len(b.fields)-1].raw += line
			continue
		}

		name := ""
		if i := strings.IndexByte(line, ':'); i >= 0 {
			name = line[:i]
		}
		b.fields = append(b.fields, Field{name: name, raw: line})
	}
	return b
}

// Find returns the first field with the given name, or nil.
func (b *Block) Find(name string) *Field {
	for i := range b.fields {
		if b.fields[i].Is(name) {
			return &b.fields[i]
		}
	}
	return nil
}

// Has reports whether any field has the given name.
func (b *Block) Has(name string) bool { return b.Find(name) != nil }

// Append adds a new field at the end of the block, using the block's line
// terminator style.
func (b *Block) Append(name, value string) {
	if n := len(b.fields); n != 0 && !strings.HasSuffix(b.fields[n-1].raw, "\n") {
		b.fields[n-1].raw += b.eol
	}
	b.fields = append(b.fields, Field{name: name, raw: name + ": " + value + b.eol})
}

// Remove deletes every field matching any of the given names, folded
// continuation lines included.
func (b *Block) Remove(names ...string) {
	kept := b.fields[:0]
	for _, f := range b.fields {
		drop := false
		for _, name := range names {
			if f.Is(name) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, f)
		}
	}
	b.fields = kept
}

// set replaces field i with a freshly serialized name/value line.
func (b *Block) set(i int, name, value string) {
	b.fields[i] = Field{name: name, raw: name + ": " + value + b.eol}
}

// Bytes reserializes the block. Fields that were not edited reproduce
// their original bytes exactly.
func (b *Block) Bytes() []byte {
	var sb strings.Builder
	for i := range b.fields {
		sb.WriteString(b.fields[i].raw)
	}
	return []byte(sb.String())
}
