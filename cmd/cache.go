package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"f1replaybot/log"
	"f1replaybot/pkg/cache"
	"f1replaybot/pkg/config"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "inspects and prunes the payload cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "lists the cached lookup keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *cache.Store) error {
				return listCache(cmd.OutOrStdout(), s)
			})
		},
	})

	var olderThan time.Duration
	purge := &cobra.Command{
		Use:   "purge",
		Short: "removes cached payloads older than --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *cache.Store) error {
				n, err := s.Purge(time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				log.Info("cache purged", log.Int64("entries", n))
				return nil
			})
		},
	}
	purge.Flags().DurationVar(&olderThan, "older-than", 0,
		"only remove payloads fetched longer ago than this")
	cmd.AddCommand(purge)
	return cmd
}

func withStore(f func(s *cache.Store) error) error {
	if config.CachePath == "" {
		return errors.New("no cache configured (set --cache-path)")
	}
	s, err := cache.Open(config.CachePath)
	if err != nil {
		return err
	}
	defer s.Close()
	return f(s)
}

func listCache(w io.Writer, s *cache.Store) error {
	keys, err := s.Keys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if _, err := fmt.Fprintln(w, k); err != nil {
			return err
		}
	}
	return nil
}
