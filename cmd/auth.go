package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"apitap/internal/cli"
	"apitap/internal/store"
	pkgauth "apitap/pkg/auth"
)

var (
	authList  bool
	authClear string
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth [domain]",
		Short: "Inspect or clear stored credentials for a domain",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAuth,
	}
	cmd.Flags().BoolVar(&authList, "list", false, "list every domain with stored credentials")
	cmd.Flags().StringVar(&authClear, "clear", "", "remove stored credentials for a domain")
	return cmd
}

func runAuth(cmd *cobra.Command, args []string) error {
	application, err := bootstrap()
	if err != nil {
		return err
	}

	if authClear != "" {
		if err := application.Services.CredentialStore.Clear(authClear); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared credentials for %s\n", authClear)
		return nil
	}

	if authList || len(args) == 0 {
		domains, err := application.Services.CredentialStore.ListDomains()
		if err != nil {
			return err
		}
		resp := pkgauth.StatusResponse{Domains: make([]pkgauth.DomainAuthStatus, 0, len(domains))}
		for _, domain := range domains {
			resp.Domains = append(resp.Domains, domainAuthStatus(application.Services.CredentialStore, domain))
		}

		if flagJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleRounded)
		header := text.Colors{text.FgHiBlue, text.Bold}
		t.AppendHeader(table.Row{
			header.Sprint("Domain"), header.Sprint("Kind"), header.Sprint("Expired"),
			header.Sprint("OAuth"), header.Sprint("Session"),
		})
		for _, d := range resp.Domains {
			t.AppendRow(table.Row{d.Domain, d.Kind, d.Expired, d.HasOAuth, d.HasSession})
		}
		t.Render()
		return nil
	}

	domain := args[0]
	status := domainAuthStatus(application.Services.CredentialStore, domain)
	if !status.Authenticated {
		return &cli.NotFoundError{Kind: "domain", ID: domain}
	}

	if flagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	auth, _ := application.Services.CredentialStore.RetrieveWithFallback(domain)
	fmt.Fprintf(cmd.OutOrStdout(), "%s: type=%s header=%s\n", domain, auth.Type, auth.Header)
	return nil
}

// domainAuthStatus summarizes everything the credential store knows
// about domain into the shared status shape the CLI and any future
// programmatic callers both report.
func domainAuthStatus(creds *store.Store, domain string) pkgauth.DomainAuthStatus {
	status := pkgauth.DomainAuthStatus{Domain: domain, Kind: "none"}

	if auth, ok := creds.RetrieveWithFallback(domain); ok {
		status.Authenticated = true
		status.Kind = string(auth.Type)
		status.ExpiresAt = auth.ExpiresAt
		if auth.ExpiresAt != nil && auth.ExpiresAt.Before(time.Now()) {
			status.Expired = true
		}
	}

	if _, ok := creds.RetrieveOAuthCredentials(domain); ok {
		status.Authenticated = true
		status.HasOAuth = true
		if status.Kind == "none" {
			status.Kind = "oauth"
		}
	}

	if _, ok := creds.RetrieveSessionWithFallback(domain); ok {
		status.Authenticated = true
		status.HasSession = true
		if status.Kind == "none" {
			status.Kind = "cookie"
		}
	}

	if tokens, ok := creds.RetrieveTokens(domain); ok {
		status.Authenticated = true
		names := make([]string, 0, len(tokens))
		for name := range tokens {
			names = append(names, name)
		}
		sort.Strings(names)
		status.TokenNames = names
	}

	return status
}
