package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lrc-engine/internal/app"
)

var cacheConfirm bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "manage the lyrics cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "clear all cached entries",
	Long:  `remove all cached lyrics from the configured backend. use --confirm to skip confirmation prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if !cacheConfirm {
			fmt.Printf("are you sure you want to clear the %s cache? (y/n): ", cfg.Cache.Backend)
			var response string
			fmt.Scanln(&response)
			if strings.ToLower(response) != "y" && strings.ToLower(response) != "yes" {
				fmt.Println("cancelled")
				return nil
			}
		}

		cache, closer, err := app.NewCache(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		n, err := cache.Clear(context.Background())
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Printf("removed %d cached entries\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheClearCmd.Flags().BoolVar(&cacheConfirm, "confirm", false, "skip confirmation prompt")
}
