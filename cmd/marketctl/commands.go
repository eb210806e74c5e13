package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	listingengine "bazaar/contexts/marketplace/listing-engine"
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

const (
	flagCurrency = "currency"
	flagCaller   = "caller"
	flagRate     = "rate"
	flagOwner    = "owner"
	flagAmount   = "amount"
)

type session struct {
	engine       listingengine.Engine
	provisioning ports.Provisioning
	migrate      func(ctx context.Context) error
	close        func() error
}

type opener func(ctx context.Context) (*session, error)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "marketctl",
		Short:         "Inspect and administer the marketplace listing engine",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newMigrateCmd(open),
		newSellersCmd(open),
		newListingsCmd(open),
		newListingCmd(open),
		newPriceCmd(open),
		newSetFeeRecipientCmd(open),
		newRegisterAssetCmd(open),
		newCreditCmd(open),
	)
	return root
}

// withSession opens a session for one command run and closes it afterwards.
func withSession(cmd *cobra.Command, open opener, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if s.close != nil {
			_ = s.close()
		}
	}()
	return fn(ctx, s)
}

func newMigrateCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the listing engine tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, open, func(ctx context.Context, s *session) error {
				if s.migrate == nil {
					return nil
				}
				if err := s.migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			})
		},
	}
}

func newSellersCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "sellers",
		Short: "List every account with at least one active listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, open, func(ctx context.Context, s *session) error {
				sellers, err := s.engine.Sellers(ctx)
				if err != nil {
					return err
				}
				for _, seller := range sellers {
					fmt.Fprintln(cmd.OutOrStdout(), seller)
				}
				return nil
			})
		},
	}
}

func newListingsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "listings <seller>",
		Short: "List the listing ids indexed under a seller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, open, func(ctx context.Context, s *session) error {
				ids, err := s.engine.SellerListings(ctx, entities.AccountID(args[0]))
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
}

func newListingCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "listing <listing-id>",
		Short: "Show the asset and seller of a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, open, func(ctx context.Context, s *session) error {
				asset, seller, err := s.engine.Listing(ctx, entities.ListingID(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "asset=%s seller=%s\n", asset, seller)
				return nil
			})
		},
	}
}

func newPriceCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price <listing-id>",
		Short: "Show the asking price of a listing in a currency",
		Args:  cobra.ExactArgs(1),
	}
	currency := cmd.Flags().String(flagCurrency, "", "currency tag of the price entry")
	_ = cmd.MarkFlagRequired(flagCurrency)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, open, func(ctx context.Context, s *session) error {
			amount, found, err := s.engine.Price(ctx, entities.ListingID(args[0]), entities.CurrencyTag(strings.TrimSpace(*currency)))
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintln(cmd.OutOrStdout(), "absent")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), uint64(amount))
			return nil
		})
	}
	return cmd
}

func newSetFeeRecipientCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-fee-recipient <recipient>",
		Short: "Record the fee recipient and fee rate (percent) for the admin account",
		Args:  cobra.ExactArgs(1),
	}
	caller := cmd.Flags().String(flagCaller, "", "account id issuing the change; must be the administrator")
	rate := cmd.Flags().Uint64(flagRate, 0, "fee rate in percent, 0-100")
	_ = cmd.MarkFlagRequired(flagCaller)
	_ = cmd.MarkFlagRequired(flagRate)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, open, func(ctx context.Context, s *session) error {
			if err := s.engine.SetFeeRecipient(ctx, entities.AccountID(*caller), entities.AccountID(args[0]), *rate); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fee recipient %s at %d%%\n", args[0], *rate)
			return nil
		})
	}
	return cmd
}

var errNoProvisioning = errors.New("store backend does not support provisioning")

func newRegisterAssetCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register-asset <asset>",
		Short: "Place an asset in custody under an owner account",
		Args:  cobra.ExactArgs(1),
	}
	owner := cmd.Flags().String(flagOwner, "", "account that will own the asset")
	_ = cmd.MarkFlagRequired(flagOwner)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, open, func(ctx context.Context, s *session) error {
			if s.provisioning == nil {
				return errNoProvisioning
			}
			if err := s.provisioning.RegisterAsset(ctx, entities.AssetHandle(args[0]), entities.AccountID(strings.TrimSpace(*owner))); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "asset %s owned by %s\n", args[0], strings.TrimSpace(*owner))
			return nil
		})
	}
	return cmd
}

func newCreditCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credit <account>",
		Short: "Credit an account balance in a currency",
		Args:  cobra.ExactArgs(1),
	}
	currency := cmd.Flags().String(flagCurrency, "", "currency tag to credit")
	amount := cmd.Flags().Uint64(flagAmount, 0, "amount in the smallest currency unit")
	_ = cmd.MarkFlagRequired(flagCurrency)
	_ = cmd.MarkFlagRequired(flagAmount)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, open, func(ctx context.Context, s *session) error {
			if s.provisioning == nil {
				return errNoProvisioning
			}
			tag := entities.CurrencyTag(strings.TrimSpace(*currency))
			if err := s.provisioning.Credit(ctx, entities.AccountID(args[0]), tag, entities.Amount(*amount)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "credited %d %s to %s\n", *amount, tag, args[0])
			return nil
		})
	}
	return cmd
}
