// Package xmlrecord renders an opaque instance document (decoded JSON,
// typically map[string]any) as an XML record, preserving two wire-format
// quirks the legacy protocol framework expects: no XML attributes are
// used (every subfield becomes an element), and a key beginning with "@"
// is rewritten to begin with "__" in both its open and close tags.
package xmlrecord

import (
	"fmt"
	"sort"

	"github.com/beevik/etree"
)

// Render builds an XML document with rootTag as its single top-level
// element, populated from doc's keys. Key ordering is lexicographic for
// determinism; the back end's own field order carries no meaning here.
//
// A null-valued key is rendered as an empty element. The source material
// this gateway is modeled on is silent on this choice; emitting an empty
// element rather than omitting the key was selected so that a client
// walking the record sees every field the back end reported.
func Render(rootTag string, doc map[string]any) (string, error) {
	document := etree.NewDocument()
	root := document.CreateElement(rewriteTag(rootTag))
	appendObject(root, doc)

	document.Indent(2)
	out, err := document.WriteToString()
	if err != nil {
		return "", fmt.Errorf("serializing xml record: %w", err)
	}
	return out, nil
}

// rewriteTag applies the "@" → "__" prefix rewrite.
func rewriteTag(tag string) string {
	if len(tag) > 0 && tag[0] == '@' {
		return "__" + tag[1:]
	}
	return tag
}

func appendObject(parent *etree.Element, obj map[string]any) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		appendField(parent, k, obj[k])
	}
}

// appendField appends one or more child elements named tag to parent,
// one per entry if value is an array (a repeated JSON field renders as
// repeated sibling elements), or a single element otherwise.
func appendField(parent *etree.Element, key string, value any) {
	tag := rewriteTag(key)
	if items, ok := value.([]any); ok {
		for _, item := range items {
			appendValue(parent, tag, item)
		}
		return
	}
	appendValue(parent, tag, value)
}

func appendValue(parent *etree.Element, tag string, value any) {
	el := parent.CreateElement(tag)
	switch v := value.(type) {
	case nil:
		// empty element
	case map[string]any:
		appendObject(el, v)
	case []any:
		// a nested array under a single field position: flatten into
		// repeated elements sharing this same tag.
		parent.RemoveChild(el)
		for _, item := range v {
			appendValue(parent, tag, item)
		}
	default:
		el.SetText(fmt.Sprint(v))
	}
}
