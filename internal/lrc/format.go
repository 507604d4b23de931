package lrc

import (
	"fmt"
	"strings"
)

// FormatTimestamp renders ms as "mm:ss.xx".
func FormatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("%02d:%02d.%02d", ms/60000, (ms/1000)%60, (ms%1000)/10)
}

// SynthesizeFromPlain turns unsynced lyrics into LRC text with one line per
// second so plain lyrics can go through the same parser and tracker.
func SynthesizeFromPlain(plain string) string {
	var b strings.Builder
	idx := int64(0)
	for _, line := range strings.Split(plain, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s]%s\n", FormatTimestamp(idx*1000), line)
		idx++
	}
	return b.String()
}

// IsSynced reports whether text contains at least one timestamp tag.
func IsSynced(text string) bool {
	return timeTagRe.MatchString(text)
}

// Format serialises lines back to LRC. Offsets are already folded into the
// line times, so no [offset:] tag is written.
func Format(lines []Line, meta Meta) string {
	var b strings.Builder

	writeTag := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&b, "[%s:%s]\n", key, value)
		}
	}
	writeTag("ti", meta.Title)
	writeTag("ar", meta.Artist)
	writeTag("al", meta.Album)
	writeTag("by", meta.By)
	writeTag("re", meta.Editor)
	if meta.HasLength {
		writeTag("length", FormatTimestamp(meta.LengthMs))
	}

	for _, line := range lines {
		fmt.Fprintf(&b, "[%s]", FormatTimestamp(line.TimeMs))
		if len(line.Words) == 0 {
			b.WriteString(line.Content)
		} else {
			for _, w := range line.Words {
				fmt.Fprintf(&b, "<%s>%s", FormatTimestamp(w.StartMs), w.Text)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
