// Package cli implements the agnostic command line client.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kroma-labs/agnostic/restclient"
	"github.com/kroma-labs/agnostic/restclient/github"
	"github.com/kroma-labs/agnostic/restclient/services"
)

const serviceGitHub = "github"

type flagValues struct {
	configFile string
	headers    []string
	data       string
	timeout    time.Duration
}

// NewRootCommand builds the agnostic command. The decoded response body is
// written to out; status lines, logs and cURL commands go to errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	var fv flagValues

	cmd := &cobra.Command{
		Use:   "agnostic METHOD path [segments...] [key=value...]",
		Short: "Schema-less REST client",
		Long: `agnostic sends one request to a REST API and prints the decoded body.

The path may be given with slashes or as separate segments. Arguments of the
form key=value are sent as query parameters.

Examples:
  agnostic get users octocat
  agnostic get repos/octocat/hello-world/issues state=open --paginate
  agnostic --service digitalocean --token $DO_TOKEN get droplets
  agnostic --host api.example.com --prefix /v1 post items --data '{"name": "x"}'

Settings may also come from AGNOSTIC_* environment variables or ~/.agnostic.yaml.`,
		Version:       restclient.Version,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := LoadSettings(cmd.Flags(), fv.configFile)
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}

			data, err := readData(fv.data)
			if err != nil {
				return err
			}
			inv, err := ParseInvocation(args, fv.headers, data)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if fv.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, fv.timeout)
				defer cancel()
			}
			return Run(ctx, settings, inv, out, errOut)
		},
	}

	flags := cmd.Flags()
	flags.String("service", serviceGitHub, "API preset: github, "+strings.Join(services.Names(), ", ")+"; ignored when --host is set")
	flags.String("host", "", "Target host instead of a preset")
	flags.String("prefix", "", "Path prefix used with --host")
	flags.Bool("insecure", false, "Use plain HTTP with --host")
	flags.String("token", "", "API token")
	flags.String("username", "", "Username for basic authentication")
	flags.String("password", "", "Password for basic authentication")
	flags.String("query-key", "", "API key sent as a query parameter (bingmaps)")
	flags.Bool("paginate", false, "Follow GitHub pagination links and print every page")
	flags.Bool("debug", false, "Log requests and responses")
	flags.Bool("curl", false, "Print an equivalent cURL command")
	flags.StringVar(&fv.configFile, "config", "", "Config file (default ~/.agnostic.yaml)")
	flags.StringArrayVarP(&fv.headers, "header", "H", nil, "Request header 'Name: value', can be repeated")
	flags.StringVarP(&fv.data, "data", "d", "", "JSON request body, or @file")
	flags.DurationVar(&fv.timeout, "timeout", 0, "Overall deadline, including rate-limit waits")

	return cmd
}

func readData(data string) (string, error) {
	if !strings.HasPrefix(data, "@") {
		return data, nil
	}
	b, err := os.ReadFile(data[1:])
	if err != nil {
		return "", fmt.Errorf("failed to read request body: %w", err)
	}
	return string(b), nil
}

// Run sends inv with the client described by settings.
func Run(ctx context.Context, settings Settings, inv *Invocation, out, errOut io.Writer) error {
	logger := newLogger(errOut, settings.Debug)

	client, err := NewClient(settings, logger)
	if err != nil {
		return err
	}

	res, err := client.Do(ctx, &restclient.Request{
		Method: inv.Method,
		Path:   inv.Path,
		Body:   inv.Body,
		Header: restclient.NewHeader(inv.Headers),
		Query:  inv.Query,
	})
	if err != nil {
		return err
	}

	if settings.Curl && res.CurlCommand() != "" {
		fmt.Fprintln(errOut, res.CurlCommand())
	}

	event := logger.Info()
	if res.IsError() {
		event = logger.Warn()
	}
	event.Int("status", res.StatusCode).Msgf("%s %s", inv.Method, inv.Path)

	return WriteBody(out, res.Body)
}

// NewClient builds the client selected by settings: a custom host when
// Host is set, otherwise the named preset.
func NewClient(settings Settings, logger zerolog.Logger) (restclient.Doer, error) {
	opts := []restclient.Option{
		restclient.WithLogger(logger),
		restclient.WithDebug(settings.Debug),
		restclient.WithGenerateCurl(settings.Curl),
		restclient.WithCodec(restclient.MediaTypeYAML, restclient.YAMLCodec),
	}

	if settings.Host != "" {
		c, err := newHostClient(settings, opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	switch settings.Service {
	case "", serviceGitHub:
		ghOpts := []github.Option{
			github.WithPaginate(settings.Paginate),
			github.WithLogger(logger),
			github.WithClientOptions(opts...),
		}
		if settings.Token != "" {
			ghOpts = append(ghOpts, github.WithToken(settings.Token))
		}
		if settings.Username != "" || settings.Password != "" {
			ghOpts = append(ghOpts, github.WithBasicAuth(settings.Username, settings.Password))
		}
		c, err := github.New(ghOpts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		c, err := services.New(settings.Service, services.Credentials{
			Token:    settings.Token,
			QueryKey: settings.QueryKey,
		}, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func newHostClient(settings Settings, opts []restclient.Option) (*restclient.Client, error) {
	auth, err := restclient.AuthHeader(restclient.Credentials{
		Username:    settings.Username,
		Password:    settings.Password,
		Token:       settings.Token,
		TokenScheme: restclient.SchemeBearer,
	})
	if err != nil {
		return nil, err
	}

	connOpts := []restclient.ConnectionOption{restclient.PathPrefix(settings.Prefix)}
	if auth != "" {
		connOpts = append(connOpts, restclient.ExtraHeaders(map[string]string{"authorization": auth}))
	}
	if settings.Insecure {
		connOpts = append(connOpts, restclient.Insecure())
	}
	return restclient.New(restclient.Connection(settings.Host, connOpts...), opts...)
}

// WriteBody prints a decoded body: raw bytes and text as they are,
// anything else as indented JSON.
func WriteBody(w io.Writer, body any) error {
	switch b := body.(type) {
	case nil:
		return nil
	case []byte:
		_, err := w.Write(b)
		return err
	case string:
		_, err := io.WriteString(w, b)
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}
}

func newLogger(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	console := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !isTerminal(w),
		TimeFormat: time.Kitchen,
	}
	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
