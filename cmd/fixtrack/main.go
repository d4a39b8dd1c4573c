// Command fixtrack is the counter terminal client of a FixTrack backend.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fixtrack/internal/cache"
	"fixtrack/internal/client/api"
	"fixtrack/internal/client/session"
	"fixtrack/internal/client/storage"
	"fixtrack/internal/config"
	"fixtrack/internal/timeutil"
)

// app is everything a command needs, built once per invocation
type app struct {
	cfg     *config.Config
	client  *api.Client
	session *session.Manager
	in      *bufio.Reader
	out     io.Writer
}

// builder creates the app before any subcommand runs
type builder func(cmd *cobra.Command) (*app, error)

func buildApp(cmd *cobra.Command) (*app, error) {
	cfg := config.Load()
	if err := timeutil.SetZone(cfg.Shop.Zone); err != nil {
		log.Printf("[Config] Unknown zone %q, keeping %s", cfg.Shop.Zone, timeutil.DefaultZone)
	}

	if url, _ := cmd.Flags().GetString("api"); url != "" {
		cfg.Client.APIURL = url
	}

	durableDir := cfg.Client.DurableDir
	if durableDir == "" {
		durableDir = storage.DefaultDurableDir()
	}
	ephemeralDir := cfg.Client.EphemeralDir
	if ephemeralDir == "" {
		ephemeralDir = storage.DefaultEphemeralDir()
	}

	var durable storage.Store = storage.NewFileStore(durableDir)
	if cfg.Client.SharedSessions && cfg.Redis.Addr != "" {
		if err := cache.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			log.Printf("[Session] Shared sessions unavailable, using %s: %v", durableDir, err)
		} else {
			host, _ := os.Hostname()
			durable = storage.NewRedisStore(cache.GetClient(), "fixtrack:client:"+host, 0)
		}
	}
	ephemeral := storage.NewFileStore(ephemeralDir)

	client, err := api.New(cfg.Client.APIURL, api.WithTimeout(cfg.Client.Timeout()))
	if err != nil {
		return nil, err
	}

	mgr := session.New(client, durable, ephemeral)
	client.SetTokenSource(mgr)
	mgr.Initialize(cmd.Context())

	return &app{
		cfg:     cfg,
		client:  client,
		session: mgr,
		in:      bufio.NewReader(cmd.InOrStdin()),
		out:     cmd.OutOrStdout(),
	}, nil
}

func newRootCmd(build builder) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "fixtrack",
		Short:         "Repair shop records from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			built, err := build(cmd)
			if err != nil {
				return err
			}
			*a = *built
			return nil
		},
	}
	root.PersistentFlags().String("api", "", "backend API URL (overrides client.api_url)")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newRecordsCmd(a),
		newSummaryCmd(a),
		newAnalysisCmd(a),
		newUsersCmd(a),
		newSettingsCmd(a),
	)
	return root
}

// protected gates a command on a live session. Admin-only commands pass
// the roles they need.
func (a *app) protected(ctx context.Context, roles ...string) (*session.Session, error) {
	if len(roles) > 0 {
		return a.session.RequireRole(ctx, roles...)
	}
	return a.session.RequireSession(ctx)
}

// apiErr turns a backend failure into what the user sees. A 401 logs the
// terminal out.
func (a *app) apiErr(ctx context.Context, err error, fallback string) error {
	if a.session.Observe(ctx, err) {
		return session.ErrSessionExpired
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return errors.New(api.MessageOf(err, fallback))
	}
	return fmt.Errorf("%s: %w", fallback, err)
}

// prompt reads one line from stdin after printing label
func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func main() {
	root := newRootCmd(buildApp)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
