package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"lrc-engine/internal/player"
)

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "list available mpris players",
	Long:  `list all mpris-compatible music players on the session bus with what they are playing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bus, err := dbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		defer bus.Close()

		services, err := player.ListServices(bus)
		if err != nil {
			return err
		}
		if len(services) == 0 {
			fmt.Println("no mpris players found")
			return nil
		}

		for _, service := range services {
			fmt.Println(colorText(service, color.FgHiGreen))
			m, err := player.NewMPRIS(service)
			if err != nil {
				continue
			}
			if track, err := m.CurrentTrack(); err == nil {
				fmt.Printf("  %s - %s [%s]\n", track.Artist, track.Title, track.Duration.Round(time.Second))
			}
			m.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(playersCmd)
}
