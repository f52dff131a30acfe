package types

import (
	"errors"
	"testing"
)

func TestStateConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  StateConfig
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  StateConfig{Backend: "", Path: "/tmp/state.db"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  StateConfig{Backend: "postgres", Path: "/tmp/state.db"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  StateConfig{Backend: "sqlite", Path: "/tmp/state.db"},
			wantErr: nil,
		},
		{
			name:    "sqlite without path returns ErrPathRequired",
			config:  StateConfig{Backend: "sqlite"},
			wantErr: ErrPathRequired,
		},
		{
			name:    "memory with empty path is valid",
			config:  StateConfig{Backend: "memory"},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}
