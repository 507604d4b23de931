package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lrc-engine/internal/app"
	"lrc-engine/internal/lrc"
	"lrc-engine/internal/lyrics"
	"lrc-engine/internal/sidecar"
)

var (
	fetchAlbum    string
	fetchDuration time.Duration
	fetchAudio    string
	fetchRaw      bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <artist> <title>",
	Short: "resolve lyrics once and print them",
	Long: `resolve lyrics through the same source chain the daemon uses (sidecar, embedded tags,
remote providers with cache) and print the result.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		cache, closer, err := app.NewCache(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		engine, err := app.NewEngine(cfg, cache)
		if err != nil {
			return err
		}

		req := sidecar.FillFromTags(lyrics.Request{
			AudioPath: fetchAudio,
			Artist:    args[0],
			Title:     args[1],
			Album:     fetchAlbum,
			Duration:  fetchDuration,
		})

		st := engine.Load(context.Background(), req)
		switch st.Status {
		case lyrics.Loaded:
		case lyrics.NotFound:
			return fmt.Errorf("no lyrics found for %s - %s", req.Artist, req.Title)
		default:
			return fmt.Errorf("failed to load lyrics: %s", st.Err)
		}

		if fetchRaw {
			fmt.Print(lrc.Format(st.Lines, st.Meta))
			return nil
		}

		fmt.Printf("%s: %s\n", "Source", colorText(st.Source, color.FgHiGreen))
		fmt.Printf("%s: %s\n\n", "Lines", colorText(fmt.Sprint(len(st.Lines)), color.FgCyan))
		for i, line := range st.Lines {
			printLine(i, line, false)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchAlbum, "album", "", "album name")
	fetchCmd.Flags().DurationVar(&fetchDuration, "duration", 0, "track duration, e.g. 3m35s")
	fetchCmd.Flags().StringVar(&fetchAudio, "audio", "", "local audio file; enables sidecar and embedded lyrics")
	fetchCmd.Flags().BoolVar(&fetchRaw, "raw", false, "print normalized LRC instead of a table")
}
