// Package mapping resolves original recipient addresses to forwarding
// destinations using a layered precedence scheme.
package mapping

import "strings"

// Table maps a normalized address pattern to its destination addresses.
// Patterns take one of four forms, in precedence order:
//
//   - "user@domain" matches that address exactly
//   - "@domain" matches any address at the domain
//   - "user" matches that mailbox at any domain
//   - "@" matches any address
//
// Keys are expected to be lowercase; destination lists must be non-empty.
type Table map[string][]string

// Resolve computes the destination set for one inbound message. Each
// original recipient is matched independently against the highest-precedence
// pattern that applies; once a tier matches, lower tiers are not consulted
// for that address. Addresses matching no pattern contribute nothing. The
// result is deduplicated, ordered by first occurrence.
func Resolve(recipients []string, table Table, allowPlusSign bool) []string {
	var resolved []string
	seen := map[string]bool{}

	add := func(destinations []string) {
		for _, d := range destinations {
			if !seen[d] {
				seen[d] = true
				resolved = append(resolved, d)
			}
		}
	}

	for _, recipient := range recipients {
		key := normalize(recipient, allowPlusSign)
		if destinations, ok := table[key]; ok {
			add(destinations)
			continue
		}

		local, domain := key, ""
		if i := strings.LastIndex(key, "@"); i >= 0 {
			local, domain = key[:i], key[i:]
		}
		if domain != "" {
			if destinations, ok := table[domain]; ok {
				add(destinations)
				continue
			}
		}
		if local != "" {
			if destinations, ok := table[local]; ok {
				add(destinations)
				continue
			}
		}
		if destinations, ok := table["@"]; ok {
			add(destinations)
		}
	}
	return resolved
}

// normalize produces the lookup key for an address: lowercased, and with
// any "+suffix" stripped from the local part when allowPlusSign is on. The
// key is only ever used for lookup; the forwarded message is not altered.
func normalize(address string, allowPlusSign bool) string {
	key := strings.ToLower(address)
	if !allowPlusSign {
		return key
	}
	if at := strings.LastIndex(key, "@"); at >= 0 {
		if plus := strings.Index(key[:at], "+"); plus >= 0 {
			key = key[:plus] + key[at:]
		}
	}
	return key
}
