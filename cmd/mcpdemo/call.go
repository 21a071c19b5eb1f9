package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mattt/mcpdemo/client"
	"github.com/mattt/mcpdemo/internal/secret"
	"github.com/mattt/mcpdemo/mcp"
	"github.com/mattt/mcpdemo/tools"
)

type callFlags struct {
	url     string
	output  string
	retries int
	timeout time.Duration
	headers []string
}

func newCallCmd() *cobra.Command {
	var flags callFlags

	callCmd := &cobra.Command{
		Use:   "call",
		Short: "Send a request to a running HTTP service",
		Long: `call sends one envelope request to the /mcp endpoint of a service
started with --mode http and prints the response.

The endpoint defaults to $MCP_API_URL, or ` + client.DefaultURL + ` when unset.`,
	}

	pf := callCmd.PersistentFlags()
	pf.StringVar(&flags.url, "url", "", "Service endpoint (env MCP_API_URL)")
	pf.StringVarP(&flags.output, "output", "o", "json", "Output format: json or yaml")
	pf.IntVar(&flags.retries, "retries", 3, "Maximum number of retries for failed requests")
	pf.DurationVar(&flags.timeout, "timeout", 60*time.Second, "HTTP request timeout")
	pf.StringArrayVarP(&flags.headers, "header", "H", nil, "Extra request header as \"Name: value\"; values may be 1Password references (op://...)")

	callCmd.AddCommand(
		&cobra.Command{
			Use:          "discover",
			Short:        "List the available tools",
			Args:         cobra.NoArgs,
			SilenceUsage: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := flags.client(cmd.Context())
				if err != nil {
					return err
				}
				resp, err := c.Discover(cmd.Context())
				if err != nil {
					return err
				}
				return printResponse(cmd.OutOrStdout(), flags.output, resp)
			},
		},
		&cobra.Command{
			Use:          "translate TEXT LANGUAGE",
			Short:        "Translate text into the target language",
			Args:         cobra.ExactArgs(2),
			SilenceUsage: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := flags.client(cmd.Context())
				if err != nil {
					return err
				}
				resp, err := c.Execute(cmd.Context(), tools.TranslateTextName, map[string]any{
					"text":           args[0],
					"targetLanguage": args[1],
				})
				if err != nil {
					return err
				}
				return printResponse(cmd.OutOrStdout(), flags.output, resp)
			},
		},
		&cobra.Command{
			Use:          "add NUMBER1 NUMBER2",
			Short:        "Add two numbers",
			Args:         cobra.ExactArgs(2),
			SilenceUsage: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				inputs := map[string]any{}
				for i, name := range []string{"number1", "number2"} {
					n, err := strconv.ParseFloat(args[i], 64)
					if err != nil {
						return fmt.Errorf("invalid %s %q: %w", name, args[i], err)
					}
					inputs[name] = n
				}

				c, err := flags.client(cmd.Context())
				if err != nil {
					return err
				}
				resp, err := c.Execute(cmd.Context(), tools.AddNumbersName, inputs)
				if err != nil {
					return err
				}
				return printResponse(cmd.OutOrStdout(), flags.output, resp)
			},
		},
	)

	return callCmd
}

func (f *callFlags) client(ctx context.Context) (*client.Client, error) {
	switch f.output {
	case "json", "yaml":
	default:
		return nil, fmt.Errorf("invalid output format %q: must be json or yaml", f.output)
	}

	url := f.url
	if url == "" {
		url = os.Getenv("MCP_API_URL")
	}
	if url == "" {
		url = client.DefaultURL
	}

	var resolver secret.Resolver
	headers := http.Header{}
	for _, h := range f.headers {
		name, value, err := resolver.ParseHeader(ctx, h)
		if err != nil {
			return nil, err
		}
		headers.Add(name, value)
	}

	return client.New(url,
		client.WithRetries(f.retries),
		client.WithTimeout(f.timeout),
		client.WithHeaders(headers),
	)
}

// printResponse writes resp in the requested format. An in-band error is
// printed too, then reported as the command's error.
func printResponse(w io.Writer, format string, resp *mcp.EnvelopeResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("error encoding response: %w", err)
	}

	switch format {
	case "yaml":
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("error encoding response: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("error encoding response: %w", err)
		}
		if err := enc.Close(); err != nil {
			return err
		}
	default:
		var out bytes.Buffer
		if err := json.Indent(&out, data, "", "  "); err != nil {
			return fmt.Errorf("error encoding response: %w", err)
		}
		out.WriteByte('\n')
		if _, err := out.WriteTo(w); err != nil {
			return err
		}
	}

	if resp.Failed() {
		return fmt.Errorf("request failed: %s", resp.Error)
	}
	return nil
}
