package main

import (
	"contacts-backend/internal/client"
	"contacts-backend/internal/governance"
	"contacts-backend/internal/jwt"
	"contacts-backend/internal/logger"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
)

// errReported marks a failure already shown to the user as a notice.
var errReported = errors.New("reported")

type session struct {
	client  *client.Client
	orch    *governance.Orchestrator
	out     io.Writer
	noticed atomic.Bool
}

// openSession connects to the server with the active configuration. When
// load is set the orchestrator fetches keys, columns, aggregates and the
// first contact page before returning.
func openSession(cmd *cobra.Command, load bool) (*session, error) {
	c, err := newClient()
	if err != nil {
		return nil, err
	}

	tenantID := cfg.Tenant
	if tenantID == "" {
		tenantID, err = jwt.TenantFromToken(cfg.Token)
		if err != nil {
			return nil, fmt.Errorf("cannot determine tenant, pass --tenant: %w", err)
		}
	}

	opts := governance.Options{
		TenantID: tenantID,
		PageSize: cfg.PageSize,
	}
	if dir, err := cfg.cacheDir(); err == nil {
		opts.Cache = governance.NewFileCache(dir)
	} else {
		logger.Debug("column cache disabled", "error", err)
	}

	s := &session{
		client: c,
		out:    cmd.OutOrStdout(),
	}
	stderr := cmd.ErrOrStderr()
	opts.Notifier = governance.NotifierFunc(func(n governance.Notice) {
		s.noticed.Store(true)
		fmt.Fprintf(stderr, "%s: %s\n", noticePrefix(n.Level), n.Message)
	})
	s.orch = governance.NewOrchestrator(s.client, opts)

	if load {
		if err := s.orch.Load(cmd.Context()); err != nil {
			s.Close()
			return nil, s.result(err)
		}
	}
	return s, nil
}

func newClient() (*client.Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("no access token: set token in %s or pass --token", configFileName)
	}
	d, err := cfg.timeout()
	if err != nil {
		return nil, err
	}
	return client.New(cfg.Server, cfg.Token, d), nil
}

func noticePrefix(level governance.Level) string {
	switch level {
	case governance.LevelBlocking:
		return "Blocked"
	case governance.LevelInline:
		return "Invalid"
	}
	return "Error"
}

// result maps an action error for the command's return value.
func (s *session) result(err error) error {
	if err == nil {
		return nil
	}
	if client.IsUnauthorized(err) {
		return fmt.Errorf("access token rejected: %w", err)
	}
	if s.noticed.Load() {
		return errReported
	}
	return err
}

func (s *session) Close() {
	s.orch.Close()
}

func (s *session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func parseKind(arg string) (governance.KeyKind, error) {
	switch strings.ToLower(arg) {
	case "primary":
		return governance.KeyPrimary, nil
	case "email":
		return governance.KeyEmail, nil
	}
	return "", fmt.Errorf("unknown key %q, want primary or email", arg)
}

func parseSide(arg string) (governance.Side, error) {
	side := governance.Side(strings.ToLower(arg))
	if !side.Valid() {
		return "", fmt.Errorf("unknown side %q, want old or new", arg)
	}
	return side, nil
}
