package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"NewsShell/internal/domain"
	"NewsShell/internal/ports"
	"NewsShell/internal/uiloop"
)

// DefaultSuccessCodes are the auth-check codes that mean the login is still valid.
var DefaultSuccessCodes = []string{"0000", "200", "OK", "SUCCESS"}

// AuthGate turns the member server's session check into a logout flow.
// Only an explicit non-success code logs the user out: transport errors, a
// missing response and an empty code all keep the current login.
type AuthGate struct {
	checker   ports.AuthChecker
	presenter ports.Presenter
	exec      uiloop.Executor
	success   map[string]struct{}
	logger    *slog.Logger
}

// NewAuthGate builds a gate. exec is the UI loop the logout flow is presented on.
func NewAuthGate(checker ports.AuthChecker, presenter ports.Presenter, exec uiloop.Executor, successCodes []string, logger *slog.Logger) *AuthGate {
	if len(successCodes) == 0 {
		successCodes = DefaultSuccessCodes
	}
	success := make(map[string]struct{}, len(successCodes))
	for _, code := range successCodes {
		success[strings.ToUpper(strings.TrimSpace(code))] = struct{}{}
	}
	return &AuthGate{
		checker:   checker,
		presenter: presenter,
		exec:      exec,
		success:   success,
		logger:    logger,
	}
}

// Check runs one session check and reports whether a logout flow was started.
func (g *AuthGate) Check(ctx context.Context) (bool, error) {
	if g.checker == nil {
		return false, nil
	}
	resp, err := g.checker.Check(ctx)
	if err != nil {
		return false, fmt.Errorf("auth check: %w", err)
	}
	if !g.IsFailure(resp) {
		return false, nil
	}

	if g.logger != nil {
		g.logger.Info("session rejected by member server", "code", resp.Code, "message", resp.Message)
	}
	if g.presenter != nil && g.exec != nil {
		g.exec.Post(func() { g.presenter.PresentAccountFlow(domain.AccountLogout) })
	}
	return true, nil
}

// IsFailure reports whether resp is an explicit rejection.
func (g *AuthGate) IsFailure(resp *domain.AuthCheckResponse) bool {
	if resp == nil {
		return false
	}
	code := strings.ToUpper(strings.TrimSpace(resp.Code))
	if code == "" {
		return false
	}
	_, ok := g.success[code]
	return !ok
}
