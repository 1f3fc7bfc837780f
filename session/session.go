// Package session implements the per-association state the dispatcher
// drives: resolved credentials, the back-end token, and the named map of
// result sets a search creates and a fetch or delete later addresses.
package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/z2folio/gateway/backend"
	"github.com/z2folio/gateway/config"
	"github.com/z2folio/gateway/diag"
	"github.com/z2folio/gateway/resultset"
)

// Session is one protocol association's state. It is owned exclusively by
// the dispatch layer handling that association; nothing shares it across
// associations.
type Session struct {
	cfg        *config.Config
	backend    *backend.Client
	logger     *zap.Logger
	username   string
	password   string
	token      string
	resultSets map[string]*resultset.Set
}

// New creates a Session bound to a back-end client and logger. Call Init to
// load configuration and authenticate before using it.
func New(backendClient *backend.Client, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		backend:    backendClient,
		logger:     logger,
		resultSets: make(map[string]*resultset.Set),
	}
}

// Init reloads configuration from configPath, resolves effective
// credentials (init-supplied, falling back to configured defaults), and
// logs in against the back end. A missing username or password after
// fallback fails with diagnostic 1014, as does a back-end login failure.
func (s *Session) Init(ctx context.Context, configPath, user, pass string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return diag.New(diag.InitOrAuthFailure, err.Error())
	}
	s.cfg = cfg

	username := user
	if username == "" {
		username = cfg.Username
	}
	password := pass
	if password == "" {
		password = cfg.Password
	}
	if username == "" || password == "" {
		return diag.New(diag.InitOrAuthFailure, "missing credentials")
	}

	token, err := s.backend.Login(ctx, cfg.BaseURL, cfg.Tenant, username, password)
	if err != nil {
		return diag.New(diag.InitOrAuthFailure, err.Error())
	}

	s.username = username
	s.password = password
	s.token = token
	s.resultSets = make(map[string]*resultset.Set)

	s.logger.Info("session initialized", zap.String("tenant", cfg.Tenant), zap.String("username", username))
	return nil
}

// Config returns the session's loaded configuration. Init must have
// succeeded first.
func (s *Session) Config() *config.Config {
	return s.cfg
}

// HasResultSet reports whether a result set of the given name exists,
// satisfying cql.ResultSetLookup.
func (s *Session) HasResultSet(name string) bool {
	_, ok := s.resultSets[name]
	return ok
}

// ResultSet returns the named result set, if it exists.
func (s *Session) ResultSet(name string) (*resultset.Set, bool) {
	rs, ok := s.resultSets[name]
	return rs, ok
}

// PutResultSet installs rs under name, replacing any prior entry of the
// same name.
func (s *Session) PutResultSet(name string, rs *resultset.Set) {
	s.resultSets[name] = rs
}

// DeleteResultSet discards the named result set. It fails with diagnostic
// 30 if no such result set exists.
func (s *Session) DeleteResultSet(name string) error {
	if _, ok := s.resultSets[name]; !ok {
		return diag.New(diag.ResultSetDoesNotExist, name)
	}
	delete(s.resultSets, name)
	return nil
}

// NewFetcher builds a resultset.Fetcher that searches cql against this
// session's back end and tenant, using the held token.
func (s *Session) NewFetcher(cqlText string) resultset.Fetcher {
	return func(ctx context.Context, offset, limit int) (*backend.SearchResult, error) {
		result, err := s.backend.Search(ctx, s.cfg.SearchBaseURL(), s.cfg.Tenant, s.token, cqlText, offset, limit)
		if err != nil {
			return nil, diag.New(diag.UnsupportedSearch, err.Error())
		}
		return result, nil
	}
}

// Search creates a fresh named result set for cqlText, replacing any prior
// entry of the same name, performs the initial chunk fetch, and returns
// the total hit count.
func (s *Session) Search(ctx context.Context, name, cqlText string) (int, error) {
	chunk := config.DefaultChunkSize
	if s.cfg != nil && s.cfg.ChunkSize > 0 {
		chunk = s.cfg.ChunkSize
	}

	rs := resultset.New(name, cqlText, chunk, s.NewFetcher(cqlText))
	result, err := s.backend.Search(ctx, s.cfg.SearchBaseURL(), s.cfg.Tenant, s.token, cqlText, 0, chunk)
	if err != nil {
		return 0, diag.New(diag.UnsupportedSearch, err.Error())
	}
	if err := rs.SetTotal(result.TotalRecords); err != nil {
		return 0, err
	}
	rs.Insert(0, result.Instances)

	s.resultSets[name] = rs
	return rs.Total(), nil
}

// Fetch returns the instance at ordinal within the named result set,
// fetching a further chunk if necessary. It fails with diagnostic 30 if
// the result set doesn't exist, or 13 if ordinal is out of range.
func (s *Session) Fetch(ctx context.Context, name string, ordinal int) (backend.Instance, error) {
	rs, ok := s.resultSets[name]
	if !ok {
		return nil, diag.New(diag.ResultSetDoesNotExist, name)
	}
	if ordinal < 1 || ordinal > rs.Total() {
		return nil, diag.New(diag.PresentOutOfRange, fmt.Sprintf("ordinal %d, total %d", ordinal, rs.Total()))
	}
	return rs.EnsureFetched(ctx, ordinal)
}
