package cli

import (
	"fmt"

	"github.com/dmitrijs2005/thriftmarket/internal/client/models"
	"github.com/spf13/cobra"
)

func (a *App) loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email, password and captcha",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			if email == "" {
				var err error
				if email, err = GetSimpleText(a.reader, "Email", a.out); err != nil {
					return err
				}
			}
			password, err := GetPassword(a.out)
			if err != nil {
				return err
			}

			u, err := a.auth.Login(cmd.Context(), email, password, &terminalPrompter{reader: a.reader, out: a.out})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s (%s)\n", u.Email, u.Role)
			return nil
		},
	}
	cmd.Flags().StringP("email", "e", "", "account email")
	return cmd
}

func (a *App) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func (a *App) registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			role, _ := cmd.Flags().GetString("role")
			name, err := GetSimpleText(a.reader, "Name", a.out)
			if err != nil {
				return err
			}
			email, err := GetSimpleText(a.reader, "Email", a.out)
			if err != nil {
				return err
			}
			password, err := GetPassword(a.out)
			if err != nil {
				return err
			}

			u, err := a.auth.Register(cmd.Context(), models.Registration{Name: name, Email: email, Password: password, Role: role})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Registered %s, now run 'shopctl login'\n", u.Email)
			return nil
		},
	}
	cmd.Flags().String("role", "buyer", "buyer or seller")
	return cmd
}

func (a *App) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.auth.WhoAmI(cmd.Context())
			if err != nil {
				return err
			}
			mfa := "off"
			if u.MFAEnabled {
				mfa = "on"
			}
			fmt.Fprintf(a.out, "%s <%s> role=%s mfa=%s\n", u.Name, u.Email, u.Role, mfa)
			return nil
		},
	}
}

func (a *App) checkoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <productID>...",
		Short: "Pay for products",
		Long: `Creates a payment intent for the products. In simulation mode the order is
confirmed straight away. Against a live provider the client secret is printed;
pay in the browser, then run 'shopctl confirm'.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.checkout.Checkout(cmd.Context(), args)
			if res != nil {
				fmt.Fprintf(a.out, "Intent created, amount %.2f\n", res.Intent.Amount)
			}
			if err != nil {
				return err
			}
			if res.Order == nil {
				fmt.Fprintf(a.out, "Client secret: %s\n", res.Intent.ClientSecret)
				return nil
			}
			printOrder(a, res.Order)
			return nil
		},
	}
}

func (a *App) confirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <intentID> <productID>...",
		Short: "Turn a paid intent into an order",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.checkout.Confirm(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			printOrder(a, o)
			return nil
		},
	}
}

func (a *App) ordersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List your orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, err := a.checkout.Orders(cmd.Context())
			if err != nil {
				return err
			}
			if len(orders) == 0 {
				fmt.Fprintln(a.out, "No orders yet")
				return nil
			}
			for _, o := range orders {
				fmt.Fprintf(a.out, "%s  %s  %8.2f  %d item(s)  %s\n",
					o.CreatedAt.Format("2006-01-02"), o.ID, o.TotalAmount, len(o.Items), o.Status)
			}
			return nil
		},
	}
}

func (a *App) mfaCmd() *cobra.Command {
	mfa := &cobra.Command{
		Use:   "mfa",
		Short: "Manage two-factor authentication",
	}

	setup := &cobra.Command{
		Use:   "setup",
		Short: "Generate a new authenticator secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enr, err := a.auth.SetupMFA(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Secret: %s\nURL:    %s\n", enr.Secret, enr.OtpauthURL)
			if img, err := decodeDataURL(enr.QRCode); err == nil {
				if path, err := writeTempPNG("shopctl-mfa-*.png", img); err == nil {
					fmt.Fprintf(a.out, "QR code saved to %s\n", path)
				}
			}
			fmt.Fprintln(a.out, "Scan it, then run 'shopctl mfa enable <code>'")
			return nil
		},
	}

	enable := &cobra.Command{
		Use:   "enable <code>",
		Short: "Turn MFA on with a code from the authenticator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.auth.EnableMFA(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "MFA enabled")
			return nil
		},
	}

	disable := &cobra.Command{
		Use:   "disable <code>",
		Short: "Turn MFA off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.auth.DisableMFA(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "MFA disabled")
			return nil
		},
	}

	mfa.AddCommand(setup, enable, disable)
	return mfa
}

func printOrder(a *App, o *models.Order) {
	fmt.Fprintf(a.out, "Order %s %s, total %.2f\n", o.ID, o.Status, o.TotalAmount)
	for _, it := range o.Items {
		fmt.Fprintf(a.out, "  %s  %.2f\n", it.Product, it.Price)
	}
}
