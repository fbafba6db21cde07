// Package common holds flags and helpers shared by subcommands of ftctl.
package common

import (
	"encoding/json"
	"errors"
	"io"
	"os"

	cerr "github.com/fairtrace/fairtrace/cmd/ftctl/errors"
	"github.com/fairtrace/fairtrace/cmd/ftctl/rest"
	"github.com/spf13/cobra"
)

const (
	EnvApiRoot = "FAIRTRACE_API"
	EnvToken   = "FAIRTRACE_TOKEN"
	EnvActAs   = "FAIRTRACE_NODE"
	EnvCA      = "FAIRTRACE_CA"
)

// Globals are flags of the root command.
type Globals struct {
	ApiRoot string
	Token   string
	ActAs   string
	CA      string
	Verbose bool
}

// Bind registers Globals as persistent flags of cmd. Defaults come from environment variables.
func (g *Globals) Bind(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&g.ApiRoot, "api", os.Getenv(EnvApiRoot), "url of fairtrace API, like https://fairtrace.example.com/api (env: "+EnvApiRoot+")")
	flags.StringVar(&g.Token, "token", os.Getenv(EnvToken), "bearer token (env: "+EnvToken+")")
	flags.StringVar(&g.ActAs, "node", os.Getenv(EnvActAs), "node to act for. platform operators only (env: "+EnvActAs+")")
	flags.StringVar(&g.CA, "ca", os.Getenv(EnvCA), "PEM file of CA certificates to be trusted (env: "+EnvCA+")")
	flags.BoolVarP(&g.Verbose, "verbose", "v", false, "print causes of errors")
}

// Client makes a REST client of the flags.
func (g *Globals) Client() (rest.FairtraceClient, error) {
	c, err := rest.NewClient(rest.Profile{ApiRoot: g.ApiRoot, Token: g.Token, ActAs: g.ActAs, CA: g.CA})
	if errors.Is(err, rest.ErrProfileInvalid) {
		return nil, cerr.New(
			"cannot connect to fairtrace",
			cerr.WithDetail(func(summary string) (string, error) {
				return summary + "\n\nset --api and --token, or " + EnvApiRoot + " and " + EnvToken + ".", nil
			}),
			cerr.WithCause(err),
		)
	}
	return c, err
}

// Describe tells err for operators. Causes are told only when verbose.
func (g *Globals) Describe(err error) string {
	if v, ok := err.(cerr.Verbose); ok && g.Verbose {
		return v.Verbose()
	}
	return err.Error()
}

// ClientProvider gives a REST client when a subcommand needs the API.
type ClientProvider func() (rest.FairtraceClient, error)

// PrintJSON writes v as indented json.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}
