package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsShell/internal/domain"
	"NewsShell/internal/testutil"
	"NewsShell/internal/uiloop"
)

type fakeChecker struct {
	resp *domain.AuthCheckResponse
	err  error
}

func (f fakeChecker) Check(context.Context) (*domain.AuthCheckResponse, error) {
	return f.resp, f.err
}

func TestAuthGateKeepsLoginUnlessExplicitlyRejected(t *testing.T) {
	tests := []struct {
		name    string
		checker fakeChecker
		logout  bool
		wantErr bool
	}{
		{"no response", fakeChecker{}, false, false},
		{"empty code", fakeChecker{resp: &domain.AuthCheckResponse{}}, false, false},
		{"success", fakeChecker{resp: &domain.AuthCheckResponse{Code: "0000"}}, false, false},
		{"success lower case", fakeChecker{resp: &domain.AuthCheckResponse{Code: "ok"}}, false, false},
		{"transport error", fakeChecker{err: errors.New("timeout")}, false, true},
		{"explicit failure", fakeChecker{resp: &domain.AuthCheckResponse{Code: "E401", Message: "expired"}}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			presenter := &testutil.Presenter{}
			gate := NewAuthGate(tt.checker, presenter, uiloop.Inline{}, nil, nil)

			logout, err := gate.Check(context.Background())
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.logout, logout)
			if tt.logout {
				assert.Equal(t, []string{"account logout"}, presenter.Snapshot())
			} else {
				assert.Empty(t, presenter.Snapshot())
			}
		})
	}
}

func TestAuthGateCustomSuccessCodes(t *testing.T) {
	gate := NewAuthGate(nil, nil, nil, []string{"1"}, nil)
	assert.False(t, gate.IsFailure(&domain.AuthCheckResponse{Code: "1"}))
	assert.True(t, gate.IsFailure(&domain.AuthCheckResponse{Code: "0000"}))

	logout, err := gate.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, logout)
}
