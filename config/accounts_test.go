package config

import (
	"os"
	"path/filepath"
	"testing"

	"chat-meter/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccounts(t *testing.T) {
	raw := []byte(`
accounts:
  - name: ahong
    password: secret
    role: admin
  - name: abing
    password: "$2a$10$abcdefghijklmnopqrstuv"
    daily_cap: 0.01
    display_name: Bing
  - name: guest
    password: guest
`)
	accounts, err := ParseAccounts(raw)
	require.NoError(t, err)
	require.Len(t, accounts, 3)

	assert.True(t, accounts[0].IsAdmin())
	assert.Nil(t, accounts[0].DailyCap)

	require.NotNil(t, accounts[1].DailyCap)
	assert.Equal(t, 0.01, *accounts[1].DailyCap)
	assert.Equal(t, "Bing", accounts[1].Label())

	assert.Equal(t, models.RoleStandard, accounts[2].Role)
	assert.Nil(t, accounts[2].DailyCap, "absent cap means unlimited")
	assert.Equal(t, "guest", accounts[2].Label())
}

func TestParseAccounts_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":        "accounts: []",
		"no name":      "accounts:\n  - password: x",
		"duplicate":    "accounts:\n  - name: a\n  - name: a",
		"bad role":     "accounts:\n  - name: a\n    role: root",
		"negative cap": "accounts:\n  - name: a\n    daily_cap: -1",
		"not yaml":     "accounts: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAccounts([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadAccounts_MissingFile(t *testing.T) {
	_, err := LoadAccounts(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadAccounts_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("accounts:\n  - name: user\n    password: pass\n"), 0o600))

	accounts, err := LoadAccounts(path)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "pass", accounts[0].Password)
}
