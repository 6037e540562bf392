package value

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
)

// Fingerprint returns a SHA-256 over a canonical encoding of v. Mapping
// entries are ordered by their encoded key, so two documents that differ
// only in key order share a fingerprint. Scalars are type-tagged, so the
// string "1" and the number 1 do not collide.
func Fingerprint(v Value) string {
	var buf bytes.Buffer
	canonical(&buf, v)
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// IdentityKey returns a key that matches the same item across two
// versions of a list such as automations.yaml. It prefers the item's id,
// then its alias, and falls back to the content fingerprint.
func IdentityKey(item Value) string {
	if m, ok := item.(Mapping); ok {
		for _, field := range []string{"id", "alias"} {
			if v, ok := m.Get(field); ok {
				if s, ok := Text(v); ok && s != "" {
					return field + ":" + s
				}
			}
		}
	}
	return "sha256:" + Fingerprint(item)
}

func canonical(buf *bytes.Buffer, v Value) {
	switch t := v.(type) {
	case nil, Null:
		buf.WriteString("n;")
	case String:
		writeTagged(buf, 's', string(t))
	case Number:
		writeTagged(buf, 'd', string(t))
	case Bool:
		writeTagged(buf, 'b', strconv.FormatBool(bool(t)))
	case Sequence:
		buf.WriteString("[")
		for _, item := range t {
			canonical(buf, item)
		}
		buf.WriteString("]")
	case Mapping:
		type pair struct{ k, v []byte }
		pairs := make([]pair, 0, len(t))
		for _, e := range t {
			var kb, vb bytes.Buffer
			canonical(&kb, e.Key)
			canonical(&vb, e.Value)
			pairs = append(pairs, pair{kb.Bytes(), vb.Bytes()})
		}
		sort.Slice(pairs, func(i, j int) bool {
			return bytes.Compare(pairs[i].k, pairs[j].k) < 0
		})
		buf.WriteString("{")
		for _, p := range pairs {
			buf.Write(p.k)
			buf.Write(p.v)
		}
		buf.WriteString("}")
	}
}

// writeTagged writes tag, the payload length and the payload, which keeps
// the encoding unambiguous without escaping.
func writeTagged(buf *bytes.Buffer, tag byte, s string) {
	buf.WriteByte(tag)
	buf.WriteString(strconv.Itoa(len(s)))
	buf.WriteByte(':')
	buf.WriteString(s)
}
