// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/persona-digest/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the extraction cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the number of cached documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(path string, s *cache.Store) error {
			n, err := s.Len()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d cached documents\n", path, n)
			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached extraction",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(path string, s *cache.Store) error {
			n, err := s.Len()
			if err != nil {
				return err
			}
			if err := s.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: removed %d cached documents\n", path, n)
			return nil
		})
	},
}

// withCache opens the configured cache file for fn. Unlike the processing
// commands, an unusable cache is an error here.
func withCache(fn func(path string, s *cache.Store) error) error {
	path := viper.GetString("cache.path")
	if path == "" {
		return errors.New("extraction cache is disabled (--cache is empty)")
	}
	s, err := cache.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(path, s)
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
