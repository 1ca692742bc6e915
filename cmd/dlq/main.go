// dlq inspects and drains the dead letter queue of the order e-mail jobs.
// Uso:
//
//	go run ./cmd/dlq stats
//	go run ./cmd/dlq list --limit 50
//	go run ./cmd/dlq requeue --max 10
//	go run ./cmd/dlq purge --yes
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gianlucacontedesign/terpenitos/internal/config"
	"github.com/gianlucacontedesign/terpenitos/internal/infra"
	"github.com/gianlucacontedesign/terpenitos/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	var (
		queue string
		rdb   *redis.Client
	)

	root := &cobra.Command{
		Use:           "dlq",
		Short:         "Cola de jobs fallidos de Terpenitos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			infra.SetupLogger(cfg)
			rdb, err = infra.NewRedis(cfg.RedisURL)
			if err != nil {
				return err
			}
			if rdb == nil {
				return errors.New("REDIS_URL no configurada")
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if rdb != nil {
				_ = rdb.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&queue, "queue", worker.QueuePedidos, "Cola de origen")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Cantidad de jobs pendientes y fallidos",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			pendientes, err := rdb.LLen(ctx, queue).Result()
			if err != nil {
				return err
			}
			fallidos, err := worker.DLQLength(ctx, rdb, queue)
			if err != nil {
				return err
			}
			reintentos, err := rdb.ZCard(ctx, worker.RetrySet).Result()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cola=%s pendientes=%d reintentos=%d fallidos=%d\n", queue, pendientes, reintentos, fallidos)
			return nil
		},
	}

	var limit int64
	list := &cobra.Command{
		Use:   "list",
		Short: "Lista los jobs fallidos, más recientes primero",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entradas, err := worker.ListDLQ(cmd.Context(), rdb, queue, limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entradas)
		},
	}
	list.Flags().Int64Var(&limit, "limit", 20, "Máximo de entradas")

	var maxJobs int
	requeue := &cobra.Command{
		Use:   "requeue",
		Short: "Devuelve los jobs fallidos más antiguos a su cola",
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := worker.RequeueDLQ(cmd.Context(), rdb, queue, maxJobs)
			fmt.Fprintf(cmd.OutOrStdout(), "%d job(s) reencolados\n", n)
			return err
		},
	}
	requeue.Flags().IntVar(&maxJobs, "max", 0, "Máximo de jobs (0 = todos)")

	var yes bool
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Descarta todos los jobs fallidos",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("purge descarta los jobs para siempre; confirmá con --yes")
			}
			n, err := worker.PurgeDLQ(cmd.Context(), rdb, queue)
			fmt.Fprintf(cmd.OutOrStdout(), "%d job(s) descartados\n", n)
			return err
		},
	}
	purge.Flags().BoolVar(&yes, "yes", false, "Confirmar")

	root.AddCommand(stats, list, requeue, purge)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := root.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("dlq")
		cancel()
		os.Exit(1)
	}
}
