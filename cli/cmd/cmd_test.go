package cmd

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medmarket/api/server"
	"medmarket/core/auth"
	"medmarket/core/catalog"
	"medmarket/core/ledger"
	"medmarket/core/prefs"
	"medmarket/core/random"
	"medmarket/core/session"
	"medmarket/core/storage"
	"medmarket/core/validation"
)

type node struct {
	url       string
	ledger    *ledger.Ledger
	tokenFile string
}

func startNode(t *testing.T) *node {
	t.Helper()
	db, err := storage.NewMemStorage(nil)
	require.NoError(t, err)
	sessions, err := session.Open(db, session.WithRandom(random.NewSeeded(3)))
	require.NoError(t, err)
	l := ledger.New(sessions,
		ledger.WithDelays(ledger.Delays{}),
		ledger.WithRandom(random.Fixed{Value: 0.5, Bytes: random.NewSeeded(4)}),
	)
	cat, err := catalog.Load()
	require.NoError(t, err)
	v, err := validation.NewValidator(nil)
	require.NoError(t, err)

	srv := server.NewServer(":0", server.Deps{
		Sessions:  sessions,
		Ledger:    l,
		Catalog:   cat,
		Validator: v,
		Prefs:     prefs.New(db),
		Tokens:    auth.NewTokenService([]byte("cli-test-secret-cli-test-secret!!"), time.Hour),
		Store:     db,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		l.Close()
		db.Close()
	})
	return &node{url: ts.URL, ledger: l, tokenFile: filepath.Join(t.TempDir(), "token")}
}

func (n *node) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--addr", n.url, "--token-file", n.tokenFile, "--token", ""}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestStatusCommand(t *testing.T) {
	n := startNode(t)
	out, err := n.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: healthy")
	assert.Contains(t, out, "Datasets: 8")

	out, err = n.run(t, "status", "-o", "json")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "v1", decoded["api_version"])
}

func TestHealthProbes(t *testing.T) {
	n := startNode(t)
	out, err := n.run(t, "liveness")
	require.NoError(t, err)
	assert.Equal(t, "Liveness: true\n", out)

	out, err = n.run(t, "readiness")
	require.NoError(t, err)
	assert.Equal(t, "Readiness: true\n", out)
}

func TestLoginBuyAndWallet(t *testing.T) {
	n := startNode(t)
	out, err := n.run(t, "login", "--email", "researcher@example.com", "--password", "password123")
	require.NoError(t, err)
	assert.Contains(t, out, "Role: researcher")

	saved, err := os.ReadFile(n.tokenFile)
	require.NoError(t, err)
	assert.NotEmpty(t, bytes.TrimSpace(saved))

	require.Eventually(t, func() bool {
		return n.ledger.Status() == ledger.StatusConnected
	}, time.Second, 5*time.Millisecond)

	out, err = n.run(t, "datasets", "buy", "dataset4")
	require.NoError(t, err)
	assert.Contains(t, out, "Transaction completed successfully")
	assert.Contains(t, out, "Amount: 0.02 ETH")

	out, err = n.run(t, "wallet")
	require.NoError(t, err)
	assert.Contains(t, out, "Balance: 1.23 ETH ($3690.00)")
	assert.Contains(t, out, "dataset4")

	out, err = n.run(t, "logout")
	require.NoError(t, err)
	assert.Equal(t, "Signed out\n", out)
	_, err = os.Stat(n.tokenFile)
	assert.True(t, os.IsNotExist(err))

	_, err = n.run(t, "wallet")
	assert.ErrorContains(t, err, "401")
}

func TestLoginFailureSurfacesMessage(t *testing.T) {
	n := startNode(t)
	_, err := n.run(t, "login", "--email", "researcher@example.com", "--password", "wrong")
	assert.ErrorContains(t, err, session.ErrInvalidCredentials)
}

func TestSearchAndShow(t *testing.T) {
	n := startNode(t)
	out, err := n.run(t, "datasets", "search", "--type", "Clinical Data")
	require.NoError(t, err)
	assert.Contains(t, out, "dataset3")
	assert.Contains(t, out, "dataset7")
	assert.Contains(t, out, "Page 1 of 1 (2 datasets)")

	out, err = n.run(t, "ds", "search", "nothing-matches-this")
	require.NoError(t, err)
	assert.Equal(t, "No datasets found\n", out)

	out, err = n.run(t, "datasets", "show", "dataset8")
	require.NoError(t, err)
	assert.Contains(t, out, "Type: Dietary Data")
	assert.Contains(t, out, "Data hash: 0x")

	_, err = n.run(t, "datasets", "show", "nope")
	assert.ErrorContains(t, err, "404")
}

func TestPublishFromFile(t *testing.T) {
	n := startNode(t)
	_, err := n.run(t, "login", "--email", "patient@example.com", "--password", "password123")
	require.NoError(t, err)

	listing := `{
		"files": [{"name": "sleep.json", "type": "application/json", "size": 2048}],
		"name": "Sleep cycles",
		"description": "Nightly sleep stage data",
		"category": "Wearable Data",
		"tags": ["sleep"],
		"price": 0.02,
		"agreeToTerms": true
	}`
	path := filepath.Join(t.TempDir(), "listing.json")
	require.NoError(t, os.WriteFile(path, []byte(listing), 0o600))

	out, err := n.run(t, "datasets", "publish", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Sleep cycles")
	assert.Contains(t, out, "2.0 KB")

	out, err = n.run(t, "datasets", "mine")
	require.NoError(t, err)
	assert.Contains(t, out, "Sleep cycles")
	assert.Contains(t, out, "dataset1")
}

func TestDatasetHistory(t *testing.T) {
	n := startNode(t)
	out, err := n.run(t, "datasets", "history", "dataset2")
	require.NoError(t, err)
	assert.Contains(t, out, "tx2")

	out, err = n.run(t, "datasets", "history", "dataset5")
	require.NoError(t, err)
	assert.Equal(t, "No purchases yet\n", out)
}

func TestThemeCommands(t *testing.T) {
	n := startNode(t)
	out, err := n.run(t, "theme")
	require.NoError(t, err)
	assert.Equal(t, "Theme: light\n", out)

	out, err = n.run(t, "theme", "toggle")
	require.NoError(t, err)
	assert.Equal(t, "Theme: dark\n", out)

	out, err = n.run(t, "theme", "light")
	require.NoError(t, err)
	assert.Equal(t, "Theme: light\n", out)

	_, err = n.run(t, "theme", "sepia")
	assert.Error(t, err)
}
