// Package paginator computes the daily installment of a document from a subscription cursor.
//
// Offsets are counted in characters (runes), not bytes, so a page never splits a multi-byte
// character. The returned page starts buffer characters before the cursor so the reader sees a
// little of the previous installment again.
package paginator

// DefaultBuffer is the continuity overlap prepended to every page.
const DefaultBuffer = 50

// Page is one computed installment. Start and End are 0-indexed rune offsets, End exclusive.
type Page struct {
	Text  string
	Start int
	End   int
	// Exhausted reports that the cursor has passed the end of the text: there is nothing
	// new to send, even if Text still holds part of the continuity buffer.
	Exhausted bool
}

// Empty reports whether the page holds no characters at all.
func (p Page) Empty() bool { return p.End <= p.Start }

// Len returns the number of characters in the page.
func (p Page) Len() int { return p.End - p.Start }

// Paginate returns the slice [max(cursor-buffer, 0), start+pageLength+buffer) of text, clamped to
// the text bounds. It never fails: out-of-range cursors yield an empty, exhausted page.
func Paginate(text string, cursor, pageLength, buffer int) Page {
	return paginate([]rune(text), cursor, pageLength, buffer)
}

func paginate(runes []rune, cursor, pageLength, buffer int) Page {
	total := len(runes)
	if cursor < 0 {
		cursor = 0
	}
	if pageLength < 0 {
		pageLength = 0
	}
	if buffer < 0 {
		buffer = 0
	}

	start := max(cursor-buffer, 0)
	start = min(start, total)
	end := min(start+pageLength+buffer, total)

	return Page{
		Text:      string(runes[start:end]),
		Start:     start,
		End:       end,
		Exhausted: cursor > total,
	}
}

// Length returns the number of characters in text, matching the offsets used by Paginate.
func Length(text string) int {
	n := 0
	for range text {
		n++
	}
	return n
}
