package cli

import (
	"bufio"
	"context"
	"io"

	"github.com/dmitrijs2005/thriftmarket/internal/client/client"
	"github.com/dmitrijs2005/thriftmarket/internal/client/config"
	"github.com/dmitrijs2005/thriftmarket/internal/client/services"
	"github.com/spf13/cobra"
)

// newClient is a test seam for the API client constructor.
var newClient = func(cfg *config.Config) (client.Client, error) {
	return client.NewHTTPClient(cfg.ServerURL, cfg.RequestTimeout, cfg.CookieJarPath)
}

// App is the state one shopctl invocation works with.
type App struct {
	config   *config.Config
	client   client.Client
	auth     services.AuthService
	checkout services.CheckoutService
	reader   *bufio.Reader
	out      io.Writer
	root     *cobra.Command
}

// NewApp builds the shopctl command tree. cfg already holds defaults and the
// JSON file; flags are bound on top of it.
func NewApp(cfg *config.Config) *App {
	app := &App{config: cfg}

	root := &cobra.Command{
		Use:           "shopctl",
		Short:         "ThriftMarket command-line client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.open(cmd)
		},
	}
	config.BindFlags(root.PersistentFlags(), cfg)

	root.AddCommand(
		app.loginCmd(),
		app.logoutCmd(),
		app.registerCmd(),
		app.whoamiCmd(),
		app.checkoutCmd(),
		app.confirmCmd(),
		app.ordersCmd(),
		app.mfaCmd(),
	)
	app.root = root
	return app
}

// Command exposes the root command, mainly so callers can set its streams
// and arguments.
func (a *App) Command() *cobra.Command {
	return a.root
}

// Run executes one command and then persists the cookie jar, whether or not
// the command succeeded.
func (a *App) Run(ctx context.Context) error {
	err := a.root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func (a *App) open(cmd *cobra.Command) error {
	c, err := newClient(a.config)
	if err != nil {
		return err
	}
	a.client = c
	a.auth = services.NewAuthService(c)
	a.checkout = services.NewCheckoutService(c)
	a.reader = bufio.NewReader(cmd.InOrStdin())
	a.out = cmd.OutOrStdout()
	return nil
}

// close persists the cookie jar.
func (a *App) close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}
