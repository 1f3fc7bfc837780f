package cql

import (
	"testing"

	"github.com/z2folio/gateway/config"
	"github.com/z2folio/gateway/diag"
	"github.com/z2folio/gateway/rpn"
)

type fakeResultSets map[string]bool

func (f fakeResultSets) HasResultSet(name string) bool {
	return f[name]
}

func testConfig() *config.Config {
	return &config.Config{
		IndexMap: map[string]string{
			"1": "author",
			"4": "title",
			"7": "hrid",
		},
	}
}

func attr(typ, value int) rpn.Attr {
	return rpn.Attr{Type: typ, Value: value}
}

func TestTranslateScenarios(t *testing.T) {
	cfg := testConfig()
	rs := fakeResultSets{}

	cases := []struct {
		name string
		node rpn.Node
		want string
	}{
		{
			name: "use attribute maps to configured index",
			node: rpn.Term{Attributes: []rpn.Attr{attr(1, 4)}, Value: "cat"},
			want: "title=cat",
		},
		{
			name: "right truncation",
			node: rpn.Term{Attributes: []rpn.Attr{attr(1, 4), attr(5, 1)}, Value: "cat"},
			want: "title=cat*",
		},
		{
			name: "left anchor and both truncation",
			node: rpn.Term{Attributes: []rpn.Attr{attr(1, 4), attr(3, 1), attr(5, 3)}, Value: "cat"},
			want: "title=^*cat*",
		},
		{
			name: "and of two fielded terms, one needing quoting",
			node: rpn.And{
				Left:  rpn.Term{Attributes: []rpn.Attr{attr(1, 1)}, Value: "doe"},
				Right: rpn.Term{Attributes: []rpn.Attr{attr(1, 4)}, Value: "the cat"},
			},
			want: `(author=doe and title="the cat")`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, d := Translate(cfg, rs, rpn.BIB1OID, tc.node)
			if d != nil {
				t.Fatalf("unexpected diagnostic %d: %s", d.Code, d.AddInfo)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTranslateRSIDMiss(t *testing.T) {
	cfg := testConfig()
	rs := fakeResultSets{}

	_, d := Translate(cfg, rs, rpn.BIB1OID, rpn.RSID{ID: "s1"})
	if d == nil {
		t.Fatal("expected diagnostic, got none")
	}
	if d.Code != diag.IllegalResultSetName || d.AddInfo != "s1" {
		t.Errorf("got code=%d addinfo=%q, want code=%d addinfo=%q", d.Code, d.AddInfo, diag.IllegalResultSetName, "s1")
	}
}

func TestTranslateRSIDHit(t *testing.T) {
	cfg := testConfig()
	rs := fakeResultSets{"s1": true}

	got, d := Translate(cfg, rs, rpn.BIB1OID, rpn.RSID{ID: "s1"})
	if d != nil {
		t.Fatalf("unexpected diagnostic: %v", d)
	}
	want := `cql.resultSetId="s1"`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTranslateUnknownUseAttribute(t *testing.T) {
	cfg := testConfig()
	rs := fakeResultSets{}

	_, d := Translate(cfg, rs, rpn.BIB1OID, rpn.Term{Attributes: []rpn.Attr{attr(1, 999)}, Value: "x"})
	if d == nil {
		t.Fatal("expected diagnostic, got none")
	}
	if d.Code != diag.UnsupportedUseAttr || d.AddInfo != "999" {
		t.Errorf("got code=%d addinfo=%q, want code=%d addinfo=%q", d.Code, d.AddInfo, diag.UnsupportedUseAttr, "999")
	}
}

func TestTranslateQueryFilterWrap(t *testing.T) {
	cfg := testConfig()
	cfg.QueryFilter = "source=marc"
	rs := fakeResultSets{}

	got, d := Translate(cfg, rs, rpn.BIB1OID, rpn.Term{Attributes: []rpn.Attr{attr(1, 4)}, Value: "cat"})
	if d != nil {
		t.Fatalf("unexpected diagnostic: %v", d)
	}
	want := "(title=cat) and (source=marc)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTranslateEmptyQueryFilterIsIdentity(t *testing.T) {
	cfg := testConfig()
	cfg.QueryFilter = "   "
	rs := fakeResultSets{}

	got, d := Translate(cfg, rs, rpn.BIB1OID, rpn.Term{Attributes: []rpn.Attr{attr(1, 4)}, Value: "cat"})
	if d != nil {
		t.Fatalf("unexpected diagnostic: %v", d)
	}
	if got != "title=cat" {
		t.Errorf("got %q, want %q", got, "title=cat")
	}
}

func TestTranslateBareTermNoAttributes(t *testing.T) {
	cfg := testConfig()
	rs := fakeResultSets{}

	got, d := Translate(cfg, rs, rpn.BIB1OID, rpn.Term{Value: "cat"})
	if d != nil {
		t.Fatalf("unexpected diagnostic: %v", d)
	}
	if got != "cat" {
		t.Errorf("got %q, want %q", got, "cat")
	}
}

func TestTranslateWrongAttributeSet(t *testing.T) {
	cfg := testConfig()
	rs := fakeResultSets{}

	_, d := Translate(cfg, rs, rpn.BIB1OID, rpn.Term{
		Attributes: []rpn.Attr{{Set: "1.2.3.4", Type: 1, Value: 4}},
		Value:      "cat",
	})
	if d == nil || d.Code != diag.UnsupportedAttrSet || d.AddInfo != "1.2.3.4" {
		t.Fatalf("got %v, want code=%d addinfo=1.2.3.4", d, diag.UnsupportedAttrSet)
	}
}

func TestTranslateUnsupportedRelation(t *testing.T) {
	cfg := testConfig()
	rs := fakeResultSets{}

	_, d := Translate(cfg, rs, rpn.BIB1OID, rpn.Term{
		Attributes: []rpn.Attr{attr(1, 4), attr(2, 999)},
		Value:      "cat",
	})
	if d == nil || d.Code != diag.UnsupportedRelation || d.AddInfo != "999" {
		t.Fatalf("got %v, want code=%d addinfo=999", d, diag.UnsupportedRelation)
	}
}

func TestTranslateRelationOnlyUsesServerChoice(t *testing.T) {
	cfg := testConfig()
	rs := fakeResultSets{}

	got, d := Translate(cfg, rs, rpn.BIB1OID, rpn.Term{
		Attributes: []rpn.Attr{attr(2, 3)},
		Value:      "cat",
	})
	if d != nil {
		t.Fatalf("unexpected diagnostic: %v", d)
	}
	if got != "cql.serverChoice = cat" {
		t.Errorf("got %q", got)
	}
}

func TestTranslateNoIndexMapUsesRawValueAsIndex(t *testing.T) {
	cfg := &config.Config{}
	rs := fakeResultSets{}

	got, d := Translate(cfg, rs, rpn.BIB1OID, rpn.Term{
		Attributes: []rpn.Attr{attr(1, 4)},
		Value:      "cat",
	})
	if d != nil {
		t.Fatalf("unexpected diagnostic: %v", d)
	}
	if got != "4=cat" {
		t.Errorf("got %q, want %q", got, "4=cat")
	}
}

func TestTranslateTruncation101And104(t *testing.T) {
	cfg := testConfig()
	rs := fakeResultSets{}

	got, d := Translate(cfg, rs, rpn.BIB1OID, rpn.Term{
		Attributes: []rpn.Attr{attr(1, 4), attr(5, 101)},
		Value:      "c#t",
	})
	if d != nil {
		t.Fatalf("unexpected diagnostic: %v", d)
	}
	if got != "title=c?t" {
		t.Errorf("got %q, want %q", got, "title=c?t")
	}

	got, d = Translate(cfg, rs, rpn.BIB1OID, rpn.Term{
		Attributes: []rpn.Attr{attr(1, 4), attr(5, 104)},
		Value:      "c#3t",
	})
	if d != nil {
		t.Fatalf("unexpected diagnostic: %v", d)
	}
	if got != "title=c*t" {
		t.Errorf("got %q, want %q", got, "title=c*t")
	}
}

func TestTranslateIdempotent(t *testing.T) {
	cfg := testConfig()
	rs := fakeResultSets{}
	node := rpn.Term{Attributes: []rpn.Attr{attr(1, 4)}, Value: "cat"}

	first, d1 := Translate(cfg, rs, rpn.BIB1OID, node)
	second, d2 := Translate(cfg, rs, rpn.BIB1OID, node)
	if d1 != nil || d2 != nil {
		t.Fatalf("unexpected diagnostics: %v %v", d1, d2)
	}
	if first != second {
		t.Errorf("translation not idempotent: %q != %q", first, second)
	}
}
