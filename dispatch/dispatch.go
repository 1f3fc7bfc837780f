// Package dispatch adapts the protocol framework's four operation hooks —
// init, search, fetch, delete — onto the session, result-set, and query
// translator packages, and applies a uniform failure trap across all four.
package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/z2folio/gateway/backend"
	"github.com/z2folio/gateway/cql"
	"github.com/z2folio/gateway/diag"
	"github.com/z2folio/gateway/rpn"
	"github.com/z2folio/gateway/session"
	"github.com/z2folio/gateway/xmlrecord"
)

// implementationID and implementationName identify this gateway to the
// protocol framework's init response, per spec.
const (
	implementationID   = "81"
	implementationName = "z2folio gateway"
)

// Version is the build version reported as implementationVersion. It is
// stamped at build time via -ldflags; "dev" is the unstamped default.
var Version = "dev"

// InitResult is the init hook's success payload.
type InitResult struct {
	ImplementationID      string
	ImplementationName    string
	ImplementationVersion string
}

// SearchResult is the search hook's success payload.
type SearchResult struct {
	Hits int
}

// FetchResult is the fetch hook's success payload: a rendered record and
// its form tag.
type FetchResult struct {
	Form   string
	Record string
}

// Failure is the uniform shape every dispatched operation's error
// translates into, per the failure trap below.
type Failure struct {
	Code    int
	AddInfo string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("errorCode=%d errorString=%s", f.Code, f.AddInfo)
}

// Dispatcher holds the one association's live session across its four
// hook calls.
type Dispatcher struct {
	configPath string
	backend    *backend.Client
	logger     *zap.Logger
	session    *session.Session
}

// New creates a Dispatcher. configPath is reloaded on every Init call, per
// the session lifecycle.
func New(configPath string, backendClient *backend.Client, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{configPath: configPath, backend: backendClient, logger: logger}
}

// Guard converts err into the failure trap's two surfaced shapes: a
// *diag.Diagnostic is passed through as-is; any other non-nil error is
// mapped to code 100. It never recovers a panic — an unexpected internal
// error is expected to propagate upward and abort the association.
func Guard(err error) *Failure {
	if err == nil {
		return nil
	}
	if d, ok := err.(*diag.Diagnostic); ok {
		return &Failure{Code: d.Code, AddInfo: d.AddInfo}
	}
	return &Failure{Code: diag.NonBIB1, AddInfo: err.Error()}
}

// Init reloads configuration, resolves credentials, and logs in.
func (d *Dispatcher) Init(ctx context.Context, user, pass string) (*InitResult, *Failure) {
	sess := session.New(d.backend, d.logger)
	if err := sess.Init(ctx, d.configPath, user, pass); err != nil {
		return nil, Guard(err)
	}
	d.session = sess
	return &InitResult{
		ImplementationID:      implementationID,
		ImplementationName:    implementationName,
		ImplementationVersion: Version,
	}, nil
}

// Search translates query (unless precomputedCQL is already supplied by
// the framework) and runs it as a fresh named result set, returning the
// hit count.
func (d *Dispatcher) Search(ctx context.Context, setName string, query rpn.Node, precomputedCQL, defaultAttrSet string) (*SearchResult, *Failure) {
	cqlText := precomputedCQL
	if cqlText == "" {
		translated, diagErr := cql.Translate(d.session.Config(), d.session, defaultAttrSet, query)
		if diagErr != nil {
			return nil, Guard(diagErr)
		}
		cqlText = translated
	}

	hits, err := d.session.Search(ctx, setName, cqlText)
	if err != nil {
		return nil, Guard(err)
	}
	return &SearchResult{Hits: hits}, nil
}

// Fetch materializes and renders the record at ordinal within the named
// result set.
func (d *Dispatcher) Fetch(ctx context.Context, setName string, ordinal int) (*FetchResult, *Failure) {
	instance, err := d.session.Fetch(ctx, setName, ordinal)
	if err != nil {
		return nil, Guard(err)
	}

	rendered, err := xmlrecord.Render("record", instance)
	if err != nil {
		return nil, Guard(diag.New(diag.PermanentSystemError, err.Error()))
	}
	return &FetchResult{Form: "xml", Record: rendered}, nil
}

// Delete discards the named result set.
func (d *Dispatcher) Delete(setName string) *Failure {
	return Guard(d.session.DeleteResultSet(setName))
}
