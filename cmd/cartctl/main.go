// cartctl drives a running cart service from the command line.
// Each command performs a single operation, making it composable for scripts.
//
// Examples:
//
//	cartctl login --email reader@example.com
//	cartctl add 42 --qty 2
//	cartctl set 42 3
//	cartctl show
//	cartctl checkout
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd(newCLI(os.Stdout)).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s✗ %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
}

func rootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cartctl",
		Short:         "Bookworm cart command-line client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.noColor || os.Getenv("NO_COLOR") != "" {
				disableColors()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&c.serverURL, "server", envOr("CARTCTL_SERVER", "http://localhost:8080"), "cart service base URL")
	cmd.PersistentFlags().BoolVarP(&c.quiet, "quiet", "q", false, "print results only")
	cmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "show full request and response bodies")
	cmd.PersistentFlags().BoolVar(&c.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		showCmd(c),
		addCmd(c),
		setCmd(c),
		removeCmd(c),
		clearCmd(c),
		loginCmd(c),
		logoutCmd(c),
		checkoutCmd(c),
	)
	return cmd
}

func showCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var state cartState
			if err := c.do("GET", "/cart", nil, &state); err != nil {
				return err
			}
			c.printCart(state)
			return nil
		},
	}
}

func addCmd(c *cli) *cobra.Command {
	var qty int
	cmd := &cobra.Command{
		Use:   "add <book-id>",
		Short: "Add a book to the cart (details are fetched from the catalog)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var resp struct {
				Cart  cartState `json:"cart"`
				Added struct {
					Requested int `json:"requested"`
					Applied   int `json:"applied"`
					Dropped   int `json:"dropped"`
				} `json:"added"`
			}
			if err := c.do("POST", "/cart/items", map[string]any{"id": id, "quantity": qty}, &resp); err != nil {
				return err
			}
			if resp.Added.Dropped > 0 {
				c.warning("only %d of %d added: each book is limited to 8 per order", resp.Added.Applied, resp.Added.Requested)
			} else {
				c.success("added %d × book %d", resp.Added.Applied, id)
			}
			c.printCart(resp.Cart)
			return nil
		},
	}
	cmd.Flags().IntVar(&qty, "qty", 1, "quantity to add")
	return cmd
}

func setCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "set <book-id> <quantity>",
		Short: "Set a line's quantity (0 removes it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			var state cartState
			if err := c.do("PUT", fmt.Sprintf("/cart/items/%d", id), map[string]int{"quantity": qty}, &state); err != nil {
				return err
			}
			c.printCart(state)
			return nil
		},
	}
}

func removeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <book-id>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var state cartState
			if err := c.do("DELETE", fmt.Sprintf("/cart/items/%d", id), nil, &state); err != nil {
				return err
			}
			c.printCart(state)
			return nil
		},
	}
}

func clearCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.do("DELETE", "/cart", nil, nil); err != nil {
				return err
			}
			c.success("cart cleared")
			return nil
		},
	}
}

func loginCmd(c *cli) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign the service in to the Bookworm backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("CARTCTL_PASSWORD")
			}
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password (or CARTCTL_PASSWORD) are required")
			}
			body := map[string]string{"email": email, "password": password}
			if err := c.do("POST", "/session", body, nil); err != nil {
				return err
			}
			c.success("signed in as %s", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func logoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the service's tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.do("DELETE", "/session", nil, nil); err != nil {
				return err
			}
			c.success("signed out")
			return nil
		},
	}
}

func checkoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Verify the cart against the catalog and place the order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp checkoutResult
			status, err := c.doStatus("POST", "/checkout", nil, &resp, 409)
			if err != nil {
				return err
			}
			if status == 409 {
				for _, m := range resp.Messages {
					c.warning("%s", m)
				}
				if resp.Cart != nil {
					c.printCart(*resp.Cart)
				}
				return fmt.Errorf("checkout blocked: review the changes and check out again")
			}
			if resp.Order == nil {
				return fmt.Errorf("unexpected checkout response")
			}
			c.success("order %d placed, total %s", resp.Order.OrderID, formatCents(resp.Order.Amount))
			if c.quiet {
				fmt.Fprintln(c.out, resp.Order.OrderID)
			}
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid book id %q", s)
	}
	return id, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
