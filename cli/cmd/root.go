// Package cmd holds the medmarket CLI commands.
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"medmarket/cli/api"
)

type options struct {
	addr      string
	token     string
	tokenFile string
	output    string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "medmarket",
		Short:         "medmarket health-data marketplace CLI",
		Long:          "A command-line tool for browsing, buying and publishing datasets on a medmarket node.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.addr, "addr", envOr("MEDMARKET_ADDR", api.DefaultBaseURL), "node API base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("MEDMARKET_TOKEN"), "session token (defaults to the saved login)")
	root.PersistentFlags().StringVar(&opts.tokenFile, "token-file", defaultTokenFile(), "where login saves the session token")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "plain", "Output format: plain|json")

	root.AddCommand(
		newStatusCmd(opts),
		newHealthCmd(opts),
		newLivenessCmd(opts),
		newReadinessCmd(opts),
		newLoginCmd(opts),
		newRegisterCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newWalletCmd(opts),
		newDatasetsCmd(opts),
		newThemeCmd(opts),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (o *options) client() *api.Client {
	tok := o.token
	if tok == "" && o.tokenFile != "" {
		if b, err := os.ReadFile(o.tokenFile); err == nil {
			tok = strings.TrimSpace(string(b))
		}
	}
	return api.NewClient(o.addr, tok)
}

func (o *options) saveToken(tok string) error {
	if o.tokenFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(o.tokenFile), 0o700); err != nil {
		return err
	}
	return os.WriteFile(o.tokenFile, []byte(tok+"\n"), 0o600)
}

func (o *options) clearToken() error {
	if o.tokenFile == "" {
		return nil
	}
	if err := os.Remove(o.tokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// render writes v as indented JSON when -o json is set and calls plain otherwise.
func (o *options) render(w io.Writer, v any, plain func(io.Writer)) error {
	if o.output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	plain(w)
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "medmarket", "token")
}
