package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/civica/ventanilla/internal/billing"
	"github.com/civica/ventanilla/internal/httpx"
)

// newCuentaCmd exposes the legacy account-lookup backend for support staff.
func newCuentaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cuenta",
		Short: "Query the utility account backend",
	}

	cmd.AddCommand(newCuentaOpCmd("adeudo", "Outstanding balance for an account",
		func(c *billing.Client) func(cmd *cobra.Command, account string) (any, error) {
			return func(cmd *cobra.Command, account string) (any, error) {
				return c.Debt(cmd.Context(), account), nil
			}
		}))
	cmd.AddCommand(newCuentaOpCmd("consumos", "Consumption history for an account",
		func(c *billing.Client) func(cmd *cobra.Command, account string) (any, error) {
			return func(cmd *cobra.Command, account string) (any, error) {
				return c.Consumption(cmd.Context(), account), nil
			}
		}))
	cmd.AddCommand(newCuentaOpCmd("contrato", "Contract details for an account",
		func(c *billing.Client) func(cmd *cobra.Command, account string) (any, error) {
			return func(cmd *cobra.Command, account string) (any, error) {
				return c.Contract(cmd.Context(), account), nil
			}
		}))
	return cmd
}

func newCuentaOpCmd(
	use, short string,
	op func(*billing.Client) func(cmd *cobra.Command, account string) (any, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " CUENTA",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := billingClient()
			if err != nil {
				return err
			}
			result, err := op(client)(cmd, args[0])
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

// billingClient builds the account-lookup client from the loaded config.
func billingClient() (*billing.Client, error) {
	if cfg.Billing.Endpoint == "" {
		return nil, fmt.Errorf("billing.endpoint is not configured")
	}
	hc, err := httpx.New(httpx.Config{
		MaxRetries:    cfg.Billing.MaxRetries,
		BaseDelay:     time.Duration(cfg.Billing.BaseDelayMS) * time.Millisecond,
		Timeout:       time.Duration(cfg.Billing.TimeoutSecs) * time.Second,
		PartnerDomain: cfg.Billing.PartnerDomain,
		ProxyURL:      cfg.Billing.ProxyURL,
	}, log)
	if err != nil {
		return nil, err
	}
	return billing.New(cfg.Billing.Endpoint, hc, log), nil
}
