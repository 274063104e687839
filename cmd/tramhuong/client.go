package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dukerupert/tramhuong/internal/cart"
	"github.com/dukerupert/tramhuong/internal/client"
	"github.com/dukerupert/tramhuong/internal/domain"
	"github.com/dukerupert/tramhuong/internal/money"
)

var (
	sessionFlag string
	sizeFlag    string
	qtyFlag     int
	methodFlag  string
	customer    domain.CustomerInfo
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Work with a session cart through a running API",
	Long: `Reads and changes the server-held cart of a session.

Without --session a new session ID is generated and printed.`,
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *client.Session) error {
			snap, err := s.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			printCart(snap)
			return nil
		})
	},
}

var cartAddCmd = &cobra.Command{
	Use:   "add <product-id>",
	Short: "Add a product to the cart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *client.Session) error {
			snap, err := s.Add(cmd.Context(), args[0], sizeFlag, qtyFlag)
			if err != nil {
				return err
			}
			printCart(snap)
			return nil
		})
	},
}

var cartUpdateCmd = &cobra.Command{
	Use:   "update <product-id>",
	Short: "Set the quantity of a line; 0 removes it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *client.Session) error {
			snap, err := s.Update(cmd.Context(), args[0], sizeFlag, qtyFlag)
			if err != nil {
				return err
			}
			printCart(snap)
			return nil
		})
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <product-id>",
	Short: "Remove a line from the cart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *client.Session) error {
			snap, err := s.Remove(cmd.Context(), args[0], sizeFlag)
			if err != nil {
				return err
			}
			printCart(snap)
			return nil
		})
	},
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *client.Session) error {
			snap, err := s.Clear(cmd.Context())
			if err != nil {
				return err
			}
			printCart(snap)
			return nil
		})
	},
}

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Place or look up orders through a running API",
}

var orderPlaceCmd = &cobra.Command{
	Use:   "place",
	Short: "Check out the cart of --session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if sessionFlag == "" {
			return fmt.Errorf("--session is required")
		}
		return withSession(cmd, func(s *client.Session) error {
			if _, err := s.Refresh(cmd.Context()); err != nil {
				return err
			}
			order, err := s.Checkout(cmd.Context(), customer, domain.PaymentMethod(methodFlag))
			if err != nil {
				if fields := domain.GetValidationFields(err); fields != nil {
					for f, msg := range fields {
						fmt.Fprintf(os.Stderr, "  %s: %s\n", f, msg)
					}
				}
				return err
			}
			return printJSON(order)
		})
	},
}

var orderGetCmd = &cobra.Command{
	Use:   "get <order-id|order-number>",
	Short: "Look up an order by ID or number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAPIClient()
		if err != nil {
			return err
		}
		defer c.Close()

		var order *domain.Order
		if _, perr := uuid.Parse(args[0]); perr == nil {
			order, err = c.GetOrder(cmd.Context(), args[0])
		} else {
			order, err = c.GetOrderByNumber(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}
		return printJSON(order)
	},
}

func init() {
	cartCmd.PersistentFlags().StringVar(&sessionFlag, "session", "", "Session ID (default: a new one)")
	for _, c := range []*cobra.Command{cartAddCmd, cartUpdateCmd, cartRemoveCmd} {
		c.Flags().StringVar(&sizeFlag, "size", "", `Size option, e.g. "Vừa (10g)"`)
	}
	cartAddCmd.Flags().IntVarP(&qtyFlag, "quantity", "q", 1, "Quantity to add")
	cartUpdateCmd.Flags().IntVarP(&qtyFlag, "quantity", "q", 1, "New quantity")
	cartCmd.AddCommand(cartShowCmd, cartAddCmd, cartUpdateCmd, cartRemoveCmd, cartClearCmd)

	f := orderPlaceCmd.Flags()
	f.StringVar(&sessionFlag, "session", "", "Session ID whose cart is ordered")
	f.StringVar(&methodFlag, "payment", string(domain.PaymentCOD), "Payment method: cod or bank_transfer")
	f.StringVar(&customer.FullName, "name", "", "Full name")
	f.StringVar(&customer.Phone, "phone", "", "Phone number")
	f.StringVar(&customer.Email, "email", "", "Email")
	f.StringVar(&customer.Address, "address", "", "Street address")
	f.StringVar(&customer.City, "city", "", "Province or city")
	f.StringVar(&customer.District, "district", "", "District")
	f.StringVar(&customer.Ward, "ward", "", "Ward")
	f.StringVar(&customer.Notes, "notes", "", "Delivery notes")
	orderCmd.AddCommand(orderPlaceCmd, orderGetCmd)
}

func newAPIClient() (*client.Client, error) {
	return client.New(client.Config{
		BaseURL: cfg.Client.BaseURL,
		Timeout: cfg.Client.Timeout,
		Logger:  logger,
	})
}

func withSession(cmd *cobra.Command, fn func(s *client.Session) error) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	defer c.Close()

	id := cart.SessionID(sessionFlag)
	if id == "" {
		id = client.NewSessionID()
		fmt.Fprintf(os.Stderr, "session: %s\n", id)
	}
	return fn(client.NewSession(c, id, nil))
}

func printCart(snap cart.Snapshot) {
	if snap.Empty() {
		fmt.Println("Giỏ hàng trống")
		return
	}
	for _, it := range snap.Items {
		label := it.ProductName
		if it.Size != "" {
			label += " - " + it.Size
		}
		fmt.Printf("%-45s x%-3d %s\n", label, it.Quantity, money.FormatVND(it.LineTotal))
	}
	fmt.Printf("%d sản phẩm, tổng %s\n", snap.TotalItems, money.FormatVND(snap.TotalAmount))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
