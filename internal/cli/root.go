// Package cli implements the pagedraft command line tool.
package cli

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/debemdeboas/pagedraft/internal/app"
	"github.com/debemdeboas/pagedraft/internal/config"
	"github.com/debemdeboas/pagedraft/internal/i18n"
)

// env is what every command that touches storage needs.
type env struct {
	secrets *config.Secrets
	lang    language.Tag
	app     *app.App
}

type rootOptions struct {
	configPath string
	logLevel   string
	lang       string

	env *env
}

func Execute() error {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("Error: "+err.Error()))
		return err
	}
	return nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "pagedraft",
		Short: "Manage draft pages from the terminal",
		Long: `pagedraft talks to the same storage as the web server.

Environment Variables:
  ARCHIVE_CONFIG    Path of the configuration file (default config.yaml)
  ARCHIVE_ADMIN_ID  User that owns records created here (default admin)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "configuration file (overrides ARCHIVE_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")
	cmd.PersistentFlags().StringVar(&opts.lang, "lang", "", "language for messages (e.g. pt-BR)")

	cmd.AddCommand(
		newPageCmd(opts),
		newTypesCmd(opts),
		newSignCmd(),
	)
	return cmd
}

// load reads configuration and opens storage. Commands reach it through
// withApp.
func (o *rootOptions) load(ctx context.Context, cmd *cobra.Command) (*env, error) {
	if o.env != nil {
		return o.env, nil
	}

	_ = godotenv.Load()

	l := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(o.logLevel); err == nil {
		l = l.Level(level)
	}
	app.SetLoggers(l)

	secrets, err := config.LoadSecrets()
	if err != nil {
		return nil, err
	}
	path := secrets.ConfigPath
	if o.configPath != "" {
		path = o.configPath
	}
	if err := config.LoadConfig(path); err != nil {
		return nil, err
	}

	if err := i18n.Init(); err != nil {
		return nil, err
	}
	i18n.SetDefault(config.AppConfig.I18n.DefaultLocale)

	lang := i18n.Default()
	if o.lang != "" {
		tag, ok := i18n.ParseTag(o.lang)
		if !ok {
			return nil, fmt.Errorf("unsupported language %q", o.lang)
		}
		lang = tag
	}

	a, err := app.New(ctx, config.AppConfig, secrets)
	if err != nil {
		return nil, err
	}

	o.env = &env{secrets: secrets, lang: lang, app: a}
	return o.env, nil
}

// withApp loads the environment for run and closes it afterwards, whether or
// not run fails.
func (o *rootOptions) withApp(run func(cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := o.load(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer o.close()
		return run(cmd, args, e)
	}
}

func (o *rootOptions) close() {
	if o.env != nil {
		o.env.app.Close()
		o.env = nil
	}
}
