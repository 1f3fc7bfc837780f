// Package cql translates a Type-1 (RPN) query tree, interpreted under BIB-1
// attribute semantics, into a CQL query string. This is the densest piece
// of the gateway: it encodes the mapping between the legacy protocol's
// query language and CQL.
//
// Translate is a pure function of its arguments plus the supplied
// lookup — it holds no package-level mutable state, so translating the
// same tree twice with the same config and result-set names always
// produces identical output.
package cql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/z2folio/gateway/config"
	"github.com/z2folio/gateway/diag"
	"github.com/z2folio/gateway/rpn"
)

// Attribute type numbers from the BIB-1 attribute set.
const (
	attrUse          = 1
	attrRelation     = 2
	attrPosition     = 3
	attrStructure    = 4
	attrTruncation   = 5
	attrCompleteness = 6
)

// ResultSetLookup reports whether a named result set exists in the current
// session, for translating RSID operands.
type ResultSetLookup interface {
	HasResultSet(name string) bool
}

// relationText maps a BIB-1 relation attribute value to its CQL relation
// operator text.
var relationText = map[int]string{
	1:   "<",
	2:   "<=",
	3:   "=",
	4:   ">=",
	5:   ">",
	6:   "<>",
	100: "=/phonetic",
	101: "=/stem",
	102: "=/relevant",
}

// Translate converts root into a CQL string under cfg's index map, using rs
// to resolve RSID operands against the session's named result sets.
// defaultAttrSet is the attribute-set OID assumed for any attribute that
// does not carry its own Set.
func Translate(cfg *config.Config, rs ResultSetLookup, defaultAttrSet string, root rpn.Node) (string, *diag.Diagnostic) {
	translated, d := translate(cfg, rs, defaultAttrSet, root)
	if d != nil {
		return "", d
	}

	filter := strings.TrimSpace(cfg.QueryFilter)
	if filter == "" {
		return translated, nil
	}
	return fmt.Sprintf("(%s) and (%s)", translated, filter), nil
}

func translate(cfg *config.Config, rs ResultSetLookup, defaultAttrSet string, node rpn.Node) (string, *diag.Diagnostic) {
	switch n := node.(type) {
	case rpn.And:
		return translateBoolean(cfg, rs, defaultAttrSet, n.Left, n.Right, "and")
	case rpn.Or:
		return translateBoolean(cfg, rs, defaultAttrSet, n.Left, n.Right, "or")
	case rpn.AndNot:
		return translateBoolean(cfg, rs, defaultAttrSet, n.Left, n.Right, "not")
	case rpn.RSID:
		if !rs.HasResultSet(n.ID) {
			return "", diag.New(diag.IllegalResultSetName, n.ID)
		}
		return fmt.Sprintf(`cql.resultSetId="%s"`, n.ID), nil
	case rpn.Term:
		return translateTerm(cfg, defaultAttrSet, n)
	default:
		return "", diag.New(diag.PermanentSystemError, fmt.Sprintf("unknown RPN node type %T", node))
	}
}

func translateBoolean(cfg *config.Config, rs ResultSetLookup, defaultAttrSet string, left, right rpn.Node, op string) (string, *diag.Diagnostic) {
	l, d := translate(cfg, rs, defaultAttrSet, left)
	if d != nil {
		return "", d
	}
	r, d := translate(cfg, rs, defaultAttrSet, right)
	if d != nil {
		return "", d
	}
	return fmt.Sprintf("(%s %s %s)", l, op, r), nil
}

// termState accumulates the second-pass attribute effects before assembly.
type termState struct {
	field         string
	haveField     bool
	relation      string
	haveRelation  bool
	leftTrunc     bool
	rightTrunc    bool
	leftAnchor    bool
	rightAnchor   bool
}

func translateTerm(cfg *config.Config, defaultAttrSet string, term rpn.Term) (string, *diag.Diagnostic) {
	// First pass: verify attribute sets, resolve the use attribute (index).
	var state termState
	for _, a := range term.Attributes {
		set := a.Set
		if set == "" {
			set = defaultAttrSet
		}
		if set != rpn.BIB1OID {
			return "", diag.New(diag.UnsupportedAttrSet, set)
		}
		if a.Type != attrUse {
			continue
		}
		field, d := resolveIndex(cfg, a.Value)
		if d != nil {
			return "", d
		}
		state.field = field
		state.haveField = true
	}

	// Second pass: interpret every non-use attribute.
	value := term.Value
	for _, a := range term.Attributes {
		switch a.Type {
		case attrUse:
			continue
		case attrRelation:
			rel, ok := relationText[a.Value]
			if !ok {
				return "", diag.New(diag.UnsupportedRelation, strconv.Itoa(a.Value))
			}
			state.relation = rel
			state.haveRelation = true
		case attrPosition:
			switch a.Value {
			case 1, 2:
				state.leftAnchor = true
			case 3:
				// no effect
			default:
				return "", diag.New(diag.UnsupportedPosition, strconv.Itoa(a.Value))
			}
		case attrStructure:
			// ignored
		case attrTruncation:
			switch a.Value {
			case 1:
				state.rightTrunc = true
			case 2:
				state.leftTrunc = true
			case 3:
				state.leftTrunc = true
				state.rightTrunc = true
			case 100:
				// none
			case 101:
				value = strings.ReplaceAll(value, "#", "?")
			case 104:
				value = strings.ReplaceAll(value, "#", "?")
				value = collapseOptionalDigitWildcards(value)
			default:
				return "", diag.New(diag.UnsupportedTruncation, strconv.Itoa(a.Value))
			}
		case attrCompleteness:
			switch a.Value {
			case 1:
				// no effect: incomplete subfield
			case 2, 3:
				state.leftAnchor = true
				state.rightAnchor = true
			default:
				return "", diag.New(diag.UnsupportedCompleteness, strconv.Itoa(a.Value))
			}
		default:
			return "", diag.New(diag.UnsupportedAttrType, strconv.Itoa(a.Type))
		}
	}

	return assemble(state, value), nil
}

// collapseOptionalDigitWildcards replaces each "?" optionally followed by
// one digit with "*", per BIB-1 truncation value 104.
func collapseOptionalDigitWildcards(value string) string {
	var b strings.Builder
	runes := []rune(value)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '?' {
			b.WriteRune(runes[i])
			continue
		}
		b.WriteRune('*')
		if i+1 < len(runes) && runes[i+1] >= '0' && runes[i+1] <= '9' {
			i++
		}
	}
	return b.String()
}

func resolveIndex(cfg *config.Config, value int) (string, *diag.Diagnostic) {
	if cfg.IndexMap == nil {
		return strconv.Itoa(value), nil
	}
	field, ok := cfg.IndexMap[strconv.Itoa(value)]
	if !ok {
		return "", diag.New(diag.UnsupportedUseAttr, strconv.Itoa(value))
	}
	return field, nil
}

func needsQuoting(s string) bool {
	return strings.ContainsAny(s, " \t\n\r\"/=")
}

func assemble(s termState, value string) string {
	if s.leftTrunc {
		value = "*" + value
	}
	if s.rightTrunc {
		value = value + "*"
	}
	if s.leftAnchor {
		value = "^" + value
	}
	if s.rightAnchor {
		value = value + "^"
	}
	if needsQuoting(value) {
		value = `"` + value + `"`
	}

	switch {
	case s.haveField && s.haveRelation:
		return fmt.Sprintf("%s %s %s", s.field, s.relation, value)
	case s.haveField:
		return fmt.Sprintf("%s=%s", s.field, value)
	case s.haveRelation:
		return fmt.Sprintf("cql.serverChoice %s %s", s.relation, value)
	default:
		return value
	}
}
