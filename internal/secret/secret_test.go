package secret

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func foundOp(string) (string, error) { return "/usr/local/bin/op", nil }

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		resolver Resolver
		want     string
		wantErr  bool
	}{
		{
			name:  "plain value",
			input: "Bearer token123",
			want:  "Bearer token123",
		},
		{
			name:  "empty value",
			input: "",
			want:  "",
		},
		{
			name:  "secret reference",
			input: "op://vault/item/field",
			resolver: Resolver{
				LookPath: foundOp,
				CommandContext: func(ctx context.Context, name string, args ...string) *exec.Cmd {
					return exec.CommandContext(ctx, "echo", "secret-value")
				},
			},
			want: "secret-value",
		},
		{
			name:  "op not installed",
			input: "op://vault/item/field",
			resolver: Resolver{
				LookPath: func(string) (string, error) { return "", exec.ErrNotFound },
			},
			wantErr: true,
		},
		{
			name:  "op fails",
			input: "op://vault/item/field",
			resolver: Resolver{
				LookPath: foundOp,
				CommandContext: func(ctx context.Context, name string, args ...string) *exec.Cmd {
					return exec.CommandContext(ctx, "false")
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.resolver.Resolve(context.Background(), tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_ParseHeader(t *testing.T) {
	r := &Resolver{
		LookPath: foundOp,
		CommandContext: func(ctx context.Context, name string, args ...string) *exec.Cmd {
			return exec.CommandContext(ctx, "echo", "from-vault")
		},
	}

	tests := []struct {
		header    string
		wantName  string
		wantValue string
		wantErr   bool
	}{
		{"Authorization: Bearer abc", "Authorization", "Bearer abc", false},
		{"X-Trace:1", "X-Trace", "1", false},
		{"X-Time: 12:30", "X-Time", "12:30", false},
		{"X-Api-Key: op://vault/api/key", "X-Api-Key", "from-vault", false},
		{"no-colon", "", "", true},
		{": value", "", "", true},
	}

	for _, tt := range tests {
		name, value, err := r.ParseHeader(context.Background(), tt.header)
		if tt.wantErr {
			assert.Error(t, err, tt.header)
			continue
		}
		require.NoError(t, err, tt.header)
		assert.Equal(t, tt.wantName, name)
		assert.Equal(t, tt.wantValue, value)
	}
}
