// Package lrc parses and formats timed lyrics in the LRC format.
package lrc

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	metaTagRe = regexp.MustCompile(`\[([A-Za-z]+):([^\]]*)\]`)
	timeTagRe = regexp.MustCompile(`\[(\d+):(\d{2})\.(\d{2,3})\]`)
	wordTagRe = regexp.MustCompile(`<(\d+):(\d{2})\.(\d{2,3})>`)
	lengthRe  = regexp.MustCompile(`^(\d+):(\d{1,2})(?:\.(\d{1,3}))?$`)
)

// Parse converts LRC text into lines sorted by start time plus the document
// metadata. Malformed lines are skipped; it never fails.
//
// Tags are applied in a single top-to-bottom pass, so an [offset:] tag only
// shifts timestamps that appear after it.
func Parse(text string) ([]Line, Meta) {
	var (
		meta  Meta
		lines []Line
	)

	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		for _, m := range metaTagRe.FindAllStringSubmatch(raw, -1) {
			applyMeta(&meta, m[1], m[2])
		}

		times, content, ok := splitTimeTags(raw)
		if !ok {
			continue
		}

		words, plain := parseWords(content, meta.OffsetMs)
		plain = strings.TrimSpace(plain)
		if plain == "" {
			continue
		}

		first := clamp(times[0] + meta.OffsetMs)
		for _, t := range times {
			line := Line{
				TimeMs:    clamp(t + meta.OffsetMs),
				EndTimeMs: Unbounded,
				Content:   plain,
			}
			if len(words) > 0 {
				// word tags are written against the first time tag; later
				// copies move with their own line
				shift := line.TimeMs - first
				line.Words = make([]Word, len(words))
				for i, w := range words {
					line.Words[i] = Word{StartMs: clamp(w.StartMs + shift), EndMs: clamp(w.EndMs + shift), Text: w.Text}
				}
			}
			lines = append(lines, line)
		}
	}

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].TimeMs < lines[j].TimeMs })
	ResolveEndTimes(lines)

	return lines, meta
}

// ResolveEndTimes sets each line's end to the next line's start and gives
// the last line DefaultLastLineMs. lines must already be sorted.
func ResolveEndTimes(lines []Line) {
	for i := range lines {
		if i+1 < len(lines) {
			lines[i].EndTimeMs = lines[i+1].TimeMs
		} else {
			lines[i].EndTimeMs = lines[i].TimeMs + DefaultLastLineMs
		}
	}
}

// ParseTimestamp parses "mm:ss.xx" or "mm:ss.xxx" (brackets optional) into
// milliseconds.
func ParseTimestamp(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	m := timeTagRe.FindStringSubmatch("[" + s + "]")
	if m == nil || m[0] != "["+s+"]" {
		return 0, false
	}
	return tagMillis(m[1], m[2], m[3]), true
}

// splitTimeTags finds the first timestamp tag and any tags that directly
// follow it. It returns their times (without offset) and the remaining text.
func splitTimeTags(raw string) ([]int64, string, bool) {
	loc := timeTagRe.FindStringSubmatchIndex(raw)
	if loc == nil {
		return nil, "", false
	}

	var times []int64
	rest := raw[loc[0]:]
	for {
		m := timeTagRe.FindStringSubmatchIndex(rest)
		if m == nil || m[0] != 0 {
			break
		}
		times = append(times, tagMillis(rest[m[2]:m[3]], rest[m[4]:m[5]], rest[m[6]:m[7]]))
		rest = rest[m[1]:]
	}
	return times, rest, true
}

// parseWords extracts <mm:ss.xx> word timings from content and returns the
// words together with the content stripped of markup.
func parseWords(content string, offset int64) ([]Word, string) {
	locs := wordTagRe.FindAllStringSubmatchIndex(content, -1)
	if len(locs) == 0 {
		return nil, content
	}

	type token struct {
		start int64
		text  string
	}
	tokens := make([]token, 0, len(locs))
	for i, loc := range locs {
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		tokens = append(tokens, token{
			start: clamp(tagMillis(content[loc[2]:loc[3]], content[loc[4]:loc[5]], content[loc[6]:loc[7]]) + offset),
			text:  content[loc[1]:end],
		})
	}

	// A tag followed by no text only closes the previous word.
	var words []Word
	for i, tok := range tokens {
		if tok.text == "" {
			continue
		}
		w := Word{StartMs: tok.start, EndMs: tok.start + DefaultWordMs, Text: tok.text}
		if i+1 < len(tokens) {
			w.EndMs = tokens[i+1].start
		}
		words = append(words, w)
	}

	return words, wordTagRe.ReplaceAllString(content, "")
}

func applyMeta(meta *Meta, key, value string) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(key) {
	case "ti", "title":
		meta.Title = value
	case "ar", "artist":
		meta.Artist = value
	case "al", "album":
		meta.Album = value
	case "by":
		meta.By = value
	case "re":
		meta.Editor = value
	case "offset":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			meta.OffsetMs = v
		}
	case "length":
		if v, ok := parseLength(value); ok {
			meta.LengthMs = v
			meta.HasLength = true
		}
	}
}

func parseLength(value string) (int64, bool) {
	m := lengthRe.FindStringSubmatch(value)
	if m == nil {
		return 0, false
	}
	min, _ := strconv.ParseInt(m[1], 10, 64)
	sec, _ := strconv.ParseInt(m[2], 10, 64)
	return min*60000 + sec*1000 + fraction(m[3]), true
}

func tagMillis(min, sec, frac string) int64 {
	m, _ := strconv.ParseInt(min, 10, 64)
	s, _ := strconv.ParseInt(sec, 10, 64)
	return m*60000 + s*1000 + fraction(frac)
}

// fraction normalises a 1-3 digit fractional second to milliseconds.
func fraction(frac string) int64 {
	if frac == "" {
		return 0
	}
	v, _ := strconv.ParseInt(frac, 10, 64)
	switch len(frac) {
	case 1:
		return v * 100
	case 2:
		return v * 10
	default:
		return v
	}
}

func clamp(ms int64) int64 {
	if ms < 0 {
		return 0
	}
	return ms
}
