package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacedetect/internal/auth"
	"spacedetect/internal/config"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{name: "argument", args: []string{"hash-password", "orbit"}},
		{name: "stdin", stdin: "orbit\n", args: []string{"hash-password"}},
		{name: "stdin without newline", stdin: "orbit", args: []string{"hash-password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, tt.stdin, tt.args...)
			require.NoError(t, err)

			hash := strings.TrimSpace(out)
			assert.True(t, strings.HasPrefix(hash, "$2"))
			assert.Len(t, hash, 60)

			a, err := auth.NewAuthenticator(config.AuthConfig{Enabled: true, Username: "admin", Password: hash})
			require.NoError(t, err)
			_, _, err = a.Authenticate("admin", "orbit")
			assert.NoError(t, err)
		})
	}
}

func TestHashPasswordEmpty(t *testing.T) {
	_, err := runCLI(t, "\n", "hash-password")
	assert.Error(t, err)
}
