package cmd

import (
	"context"
	"fmt"
	"math"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yourorg/productproxy/internal/models"
	"github.com/yourorg/productproxy/internal/service"
	"github.com/yourorg/productproxy/internal/upstream"
)

var upstreamCmd = &cobra.Command{
	Use:   "upstream",
	Short: "Upstream store commands",
}

var upstreamCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "List the upstream collection once and report the product count",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runUpstreamCheck(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(upstreamCmd)
	upstreamCmd.AddCommand(upstreamCheckCmd)
}

func runUpstreamCheck(ctx context.Context) error {
	setupLogger()

	client, err := newUpstreamClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if ctx == nil {
		ctx = context.Background()
	}

	svc := service.NewProductService(upstream.NewProductGateway(client), service.Options{})
	products, err := svc.ListProducts(ctx, models.ListProductsFilter{Page: 1, PageSize: math.MaxInt})
	if err != nil {
		return fmt.Errorf("upstream check failed: %w", err)
	}

	fmt.Printf("Upstream %s reachable: %d products\n", viper.GetString("UPSTREAM_BASE_URL"), len(products))
	return nil
}
