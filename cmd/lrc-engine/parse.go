package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lrc-engine/internal/lrc"
	"lrc-engine/internal/tracker"
)

var (
	parseAt    string
	parseWords bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <file.lrc>",
	Short: "parse an LRC file and print its timeline",
	Long: `parse an LRC file and print metadata and every line with its resolved start and end time.
use --at to highlight the line shown at a given position.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		current := -1
		lines, meta := lrc.Parse(string(data))
		if parseAt != "" {
			pos, ok := lrc.ParseTimestamp(parseAt)
			if !ok {
				return fmt.Errorf("invalid position %q, expected mm:ss.xx", parseAt)
			}
			current = tracker.IndexAt(lines, pos)
		}

		printMeta(meta)
		fmt.Printf("%s: %s\n\n", "Lines", colorText(fmt.Sprint(len(lines)), color.FgCyan))
		for i, line := range lines {
			printLine(i, line, i == current)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().StringVar(&parseAt, "at", "", "highlight the line at this position (mm:ss.xx)")
	parseCmd.Flags().BoolVarP(&parseWords, "words", "w", false, "print word timings")
}

func printMeta(meta lrc.Meta) {
	fields := []struct{ name, value string }{
		{"Title", meta.Title},
		{"Artist", meta.Artist},
		{"Album", meta.Album},
		{"By", meta.By},
		{"Editor", meta.Editor},
	}
	for _, f := range fields {
		if f.value != "" {
			fmt.Printf("%s: %s\n", f.name, colorText(f.value, color.FgHiGreen))
		}
	}
	if meta.OffsetMs != 0 {
		fmt.Printf("%s: %s\n", "Offset", colorText(fmt.Sprintf("%dms", meta.OffsetMs), color.FgYellow))
	}
	if meta.HasLength {
		fmt.Printf("%s: %s\n", "Length", colorText(lrc.FormatTimestamp(meta.LengthMs), color.FgYellow))
	}
}

func printLine(i int, line lrc.Line, current bool) {
	end := "∞"
	if line.EndTimeMs >= 0 {
		end = lrc.FormatTimestamp(line.EndTimeMs)
	}
	span := colorText(fmt.Sprintf("[%s → %s]", lrc.FormatTimestamp(line.TimeMs), end), color.FgYellow)

	text := line.Content
	marker := "  "
	if current {
		marker = colorText("▶ ", color.FgHiMagenta)
		text = colorText(text, color.Bold)
	}
	fmt.Printf("%s%3d %s %s\n", marker, i, span, text)

	if !parseWords || len(line.Words) == 0 {
		return
	}
	var b strings.Builder
	for _, w := range line.Words {
		fmt.Fprintf(&b, "%s%s ", colorText("<"+lrc.FormatTimestamp(w.StartMs)+">", color.FgCyan), w.Text)
	}
	fmt.Printf("        %s\n", strings.TrimSpace(b.String()))
}

func colorText(text string, c color.Attribute) string { // 返回带有颜色的文本
	return color.New(c).SprintFunc()(text)
}
