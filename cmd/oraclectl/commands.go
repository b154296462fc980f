package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"oracle-aggregator/internal/decimals"
	"oracle-aggregator/internal/domain"

	"github.com/spf13/cobra"
)

type oracle interface {
	LastPrice(ctx context.Context, asset domain.Asset) (*domain.PriceData, error)
	Price(ctx context.Context, asset domain.Asset, timestamp uint64) (*domain.PriceData, error)
	LivePrice(ctx context.Context, caller string, asset domain.Asset) (*domain.PriceData, error)
	Decimals(ctx context.Context) (uint32, error)
	Base(ctx context.Context) (domain.Asset, error)
	Assets(ctx context.Context) ([]domain.Asset, error)
	IsBlocked(ctx context.Context, asset domain.Asset) (bool, error)
	AssetConfig(ctx context.Context, asset domain.Asset) (domain.OracleConfig, error)
	BreakerStatus(ctx context.Context, asset domain.Asset) (domain.BreakerState, error)
	Block(ctx context.Context, caller string, asset domain.Asset) error
	Unblock(ctx context.Context, caller string, asset domain.Asset) error
	AddAsset(ctx context.Context, caller string, asset domain.Asset, cfg domain.OracleConfig) error
}

type session struct {
	oracle oracle
	admin  string
	close  func() error
}

type opener func(ctx context.Context) (*session, error)

type cli struct {
	open opener
	sess *session
	as   string
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}
	root := &cobra.Command{
		Use:           "oraclectl",
		Short:         "Inspect and administer the oracle aggregator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			c.sess = sess
			if c.as == "" {
				c.as = sess.admin
			}
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if c.sess == nil || c.sess.close == nil {
				return nil
			}
			return c.sess.close()
		},
	}
	root.PersistentFlags().StringVar(&c.as, "as", "", "caller address for admin commands (defaults to the settings file admin)")

	root.AddCommand(
		c.statusCmd(),
		c.assetsCmd(),
		c.lastPriceCmd(),
		c.priceCmd(),
		c.livePriceCmd(),
		c.blockCmd(true),
		c.blockCmd(false),
		c.addAssetCmd(),
	)
	return root
}

func (c *cli) printPrice(cmd *cobra.Command, asset domain.Asset, p *domain.PriceData) error {
	if p == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\tno price\n", asset)
		return nil
	}
	dec, err := c.sess.oracle.Decimals(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", asset, decimals.Format(p.Price, dec),
		time.Unix(int64(p.Timestamp), 0).UTC().Format(time.RFC3339))
	return nil
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show base asset, precision and breaker state per asset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			base, err := c.sess.oracle.Base(ctx)
			if err != nil {
				return err
			}
			dec, err := c.sess.oracle.Decimals(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "base: %s\ndecimals: %d\n", base, dec)

			assets, err := c.sess.oracle.Assets(ctx)
			if err != nil {
				return err
			}
			for _, asset := range assets {
				st, err := c.sess.oracle.BreakerStatus(ctx, asset)
				if err != nil {
					return err
				}
				state := "closed"
				if st.Tripped {
					state = "tripped until " + time.Unix(int64(st.Until), 0).UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tbreaker %s\n", asset, state)
			}
			return nil
		},
	}
}

func (c *cli) assetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assets",
		Short: "List registered assets with their source configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			assets, err := c.sess.oracle.Assets(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ASSET\tSOURCE\tDECIMALS\tRESOLUTION\tBLOCKED")
			for _, asset := range assets {
				cfg, err := c.sess.oracle.AssetConfig(ctx, asset)
				if err != nil {
					return err
				}
				blocked, err := c.sess.oracle.IsBlocked(ctx, asset)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%t\n", asset, cfg.SourceID, cfg.Decimals, cfg.Resolution, blocked)
			}
			return w.Flush()
		},
	}
}

func (c *cli) lastPriceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lastprice ASSET",
		Short: "Resolve the most recent price of an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asset, err := domain.ParseAsset(args[0])
			if err != nil {
				return err
			}
			p, err := c.sess.oracle.LastPrice(cmd.Context(), asset)
			if err != nil {
				return err
			}
			return c.printPrice(cmd, asset, p)
		},
	}
}

func (c *cli) priceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "price ASSET TIMESTAMP",
		Short: "Resolve the price of an asset at a unix timestamp",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			asset, err := domain.ParseAsset(args[0])
			if err != nil {
				return err
			}
			ts, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid timestamp %q", args[1])
			}
			p, err := c.sess.oracle.Price(cmd.Context(), asset, ts)
			if err != nil {
				return err
			}
			return c.printPrice(cmd, asset, p)
		},
	}
}

func (c *cli) livePriceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "liveprice ASSET",
		Short: "Resolve a live price without cache fallback (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asset, err := domain.ParseAsset(args[0])
			if err != nil {
				return err
			}
			p, err := c.sess.oracle.LivePrice(cmd.Context(), c.as, asset)
			if err != nil {
				return err
			}
			return c.printPrice(cmd, asset, p)
		},
	}
}

func (c *cli) blockCmd(block bool) *cobra.Command {
	use, short := "unblock ASSET", "Allow an asset to be priced again (admin)"
	if block {
		use, short = "block ASSET", "Stop an asset from being priced (admin)"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asset, err := domain.ParseAsset(args[0])
			if err != nil {
				return err
			}
			fn := c.sess.oracle.Unblock
			if block {
				fn = c.sess.oracle.Block
			}
			if err := fn(cmd.Context(), c.as, asset); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s blocked=%t\n", asset, block)
			return nil
		},
	}
}

func (c *cli) addAssetCmd() *cobra.Command {
	var cfg domain.OracleConfig
	cmd := &cobra.Command{
		Use:   "add-asset ASSET",
		Short: "Register an asset or replace its source configuration (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asset, err := domain.ParseAsset(args[0])
			if err != nil {
				return err
			}
			if err := c.sess.oracle.AddAsset(cmd.Context(), c.as, asset, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s registered with source %s\n", asset, cfg.SourceID)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.SourceID, "source", "", "upstream source id")
	cmd.Flags().Uint32Var(&cfg.Decimals, "decimals", 0, "precision of the source's prices")
	cmd.Flags().Uint32Var(&cfg.Resolution, "resolution", 300, "source sampling interval in seconds")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}
