package sleepy

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hako/durafmt"
)

var shortNumberSuffixes = []string{"", "K", "M", "B", "T", "P", "E", "Z", "Y"}

// Emojis used for humanized booleans and the progress bar.
const (
	emojiCheck = "<:check:821284209401921557>"
	emojiX     = "<:x_:821284209792516096>"
	emojiSlash = "<:slash:821284209763024896>"

	pbFilledRight = "<:pb_r_f:786093987336421376>"
	pbEmptyRight  = "<:pb_r_e:786093986838347836>"
	pbFilledLeft  = "<:pb_l_f:786093987076374548>"
	pbEmptyLeft   = "<:pb_l_e:786093986745942037>"
	pbFilledBody  = "<:pb_b_f:786093986703605830>"
	pbEmptyBody   = "<:pb_b_e:786093986233188363>"
)

// HumanJoin returns a human-readable, comma-separated sequence, with
// the last element joined with the given joiner. Uses an Oxford comma.
//
//	HumanJoin([]string{"one"}, "and")                  // "one"
//	HumanJoin([]string{"one", "two"}, "and")           // "one and two"
//	HumanJoin([]string{"one", "two", "three"}, "or")   // "one, two, or three"
func HumanJoin(items []string, joiner string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return fmt.Sprintf("%s %s %s", items[0], joiner, items[1])
	default:
		return fmt.Sprintf(
			"%s, %s %s",
			strings.Join(items[:len(items)-1], ", "),
			joiner,
			items[len(items)-1],
		)
	}
}

// Plural formats a count with a pluralized noun. If plural is empty,
// an "s" is appended to singular for counts other than 1.
//
//	Plural(1, "tree", "")      // "1 tree"
//	Plural(10, "car", "")      // "10 cars"
//	Plural(4, "goose", "geese") // "4 geese"
func Plural(count int, singular string, plural string) string {
	if count == 1 || count == -1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	if plural == "" {
		plural = singular + "s"
	}
	return fmt.Sprintf("%d %s", count, plural)
}

// HumanNumber shortens a number using a base-1000 scale, rounded to
// the given number of significant figures, with trailing zeroes
// stripped.
//
//	HumanNumber(1201.56, 3)    // "1.2K"
//	HumanNumber(-543210, 3)    // "-543K"
//	HumanNumber(123456789, 4)  // "123.5M"
func HumanNumber(number float64, sigfigs int) string {
	if number == 0 {
		return "0"
	}
	if sigfigs < 1 {
		sigfigs = 1
	}

	shift := sigfigs - 1 - int(math.Floor(math.Log10(math.Abs(number))))
	scale := math.Pow(10, float64(shift))
	number = math.Round(number*scale) / scale

	magnitude := 0
	if abs := math.Abs(number); abs >= 1000 {
		magnitude = int(math.Log10(abs) / 3)
		if max := len(shortNumberSuffixes) - 1; magnitude > max {
			magnitude = max
		}
		number /= math.Pow(1000, float64(magnitude))
	}

	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", number), "0"), ".")
	return s + shortNumberSuffixes[magnitude]
}

// HumanDelta humanizes the delta between two times, indicating whether
// the first time is in the past or future relative to the second.
// If brief is true, only the largest component is kept.
//
//	HumanDelta(earlier, later, false)  // "1 year ago"
//	HumanDelta(later, earlier, false)  // "In 1 year"
func HumanDelta(t1, t2 time.Time, brief bool) string {
	t1 = t1.Truncate(time.Second)
	t2 = t2.Truncate(time.Second)

	if t1.Equal(t2) {
		return "Just now"
	}

	delta := durafmt.Parse(t1.Sub(t2).Abs())
	if brief {
		delta = delta.LimitFirstN(1)
	}

	if t1.After(t2) {
		return "In " + delta.String()
	}
	return delta.String() + " ago"
}

// HumanTimestamp formats a time using Discord's timestamp markdown.
// The style is one of Discord's timestamp styles (t, T, d, D, f, F, R);
// an empty style uses the client default.
func HumanTimestamp(ts time.Time, style string) string {
	if style == "" {
		return fmt.Sprintf("<t:%d>", ts.Unix())
	}
	return fmt.Sprintf("<t:%d:%s>", ts.Unix(), style)
}

// BoolToEmoji returns a check, cross, or slash emoji for a given
// boolean-like value, where nil means "not applicable".
func BoolToEmoji(value *bool) string {
	switch {
	case value == nil:
		return emojiSlash
	case *value:
		return emojiCheck
	default:
		return emojiX
	}
}

// Truncate shortens text to the given width, appending "..." if
// anything was removed. The placeholder counts toward the width.
func Truncate(text string, width int) string {
	return TruncateWith(text, width, "...")
}

// TruncateWith is Truncate with a custom placeholder.
func TruncateWith(text string, width int, placeholder string) string {
	if len(placeholder) > width {
		panic("sleepy: placeholder is too large for maximum width")
	}
	if len(text) <= width {
		return text
	}
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	cut := strings.TrimRight(string(runes[:width-len(placeholder)]), " ")
	return cut + placeholder
}

// TChart renders a two-column chart from ordered key/value rows, with
// the left column padded to the widest key.
func TChart(rows [][2]string) string {
	if len(rows) == 0 {
		return ""
	}

	var width int
	for _, row := range rows {
		if n := len(row[0]); n > width {
			width = n
		}
	}

	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = fmt.Sprintf("%-*s | %s", width, row[0], row[1])
	}
	return strings.Join(lines, "\n")
}

// ProgressBar constructs a progress bar out of custom emoji, where
// each body piece represents per units of progress.
func ProgressBar(progress, maximum, per int) (string, error) {
	if maximum <= 0 {
		return "", fmt.Errorf("invalid maximum %d (must be > 0)", maximum)
	}
	if per <= 0 || per > maximum {
		return "", fmt.Errorf("invalid per %d (must be > 0 and <= maximum)", per)
	}
	if progress < 0 || progress > maximum {
		return "", fmt.Errorf(
			"invalid progress %d (must be >= 0 and <= maximum)", progress,
		)
	}

	total := maximum / per
	filled := progress / per

	// The edge pieces have to be accounted for separately since only
	// the body is being calculated here. A bar of a single segment has
	// no body at all, so the repeat counts clamp at zero.
	body := func(piece string, count int) string {
		if count < 1 {
			return ""
		}
		return strings.Repeat(piece, count)
	}

	switch {
	case filled == total:
		return pbFilledRight + body(pbFilledBody, total-2) + pbFilledLeft, nil
	case filled == 0:
		return pbEmptyRight + body(pbEmptyBody, total-2) + pbEmptyLeft, nil
	default:
		return pbFilledRight +
			body(pbFilledBody, filled-1) +
			body(pbEmptyBody, total-filled-1) +
			pbEmptyLeft, nil
	}
}

// chunkItems splits the input items into chunks of at most size.
func chunkItems[T any](size int, items ...T) [][]T {
	var result [][]T
	for len(items) > 0 {
		end := size
		if len(items) < size {
			end = len(items)
		}
		result = append(result, items[:end])
		items = items[end:]
	}
	return result
}

// permissionName converts a discordgo permission flag name like
// "manage_guild" into a display name like "Manage Server".
func permissionName(perm string) string {
	perm = strings.ReplaceAll(perm, "_", " ")
	perm = strings.ReplaceAll(perm, "guild", "server")
	return titleCase(perm)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
