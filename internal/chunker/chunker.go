// Package chunker splits scraped page text into overlapping, bounded chunks.
//
// Text is split on the coarsest separator that occurs in it (paragraphs, then
// lines, then sentences, then words). Pieces that still exceed the chunk size are
// split again with the next finer separator; pieces that fit are merged back into
// chunks as large as the limit allows, carrying up to overlap characters from the
// end of one chunk into the start of the next. Sizes are counted in runes.
package chunker

import (
	"strings"
	"unicode/utf8"

	"rag-worker/internal/models"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

type separator struct {
	join  string
	split func(string) []string
}

var (
	paragraphSeparator = separator{join: "\n\n", split: func(s string) []string { return strings.Split(s, "\n\n") }}
	lineSeparator      = separator{join: "\n", split: func(s string) []string { return strings.Split(s, "\n") }}
	sentenceSeparator  = separator{join: " ", split: splitSentences}
	wordSeparator      = separator{join: " ", split: strings.Fields}
	runeSeparator      = separator{join: "", split: splitRunes}
)

// Splitter is safe for concurrent use; it holds no state between calls.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []separator
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithCharacterFallback lets the splitter cut single words longer than the chunk
// size at rune boundaries. By default such words are emitted whole.
func WithCharacterFallback() Option {
	return func(s *Splitter) {
		s.separators = append(s.separators, runeSeparator)
	}
}

// NewSplitter creates a splitter. Non-positive sizes fall back to the defaults and
// an overlap that would not fit inside a chunk is halved.
func NewSplitter(chunkSize, overlap int, opts ...Option) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}

	s := &Splitter{
		chunkSize: chunkSize,
		overlap:   overlap,
		separators: []separator{
			paragraphSeparator,
			lineSeparator,
			sentenceSeparator,
			wordSeparator,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewDefaultSplitter uses 1000 character chunks with 200 characters of overlap.
func NewDefaultSplitter() *Splitter {
	return NewSplitter(DefaultChunkSize, DefaultChunkOverlap)
}

func (s *Splitter) ChunkSize() int { return s.chunkSize }
func (s *Splitter) Overlap() int   { return s.overlap }

// Split returns the ordered chunks of text. Blank input yields no chunks.
func (s *Splitter) Split(text string) []models.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []models.Chunk
	for _, segment := range s.splitText(text, s.separators) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{Index: len(chunks), Text: segment})
	}
	return chunks
}

func (s *Splitter) splitText(text string, separators []separator) []string {
	var (
		sep    separator
		pieces []string
		finer  []separator
		found  bool
	)
	for i, candidate := range separators {
		if p := nonBlank(candidate.split(text)); len(p) > 1 {
			sep, pieces, finer, found = candidate, p, separators[i+1:], true
			break
		}
	}
	if !found {
		// indivisible with the separators we are allowed to use
		return []string{text}
	}

	var out, fitting []string
	for _, piece := range pieces {
		if runeLen(piece) <= s.chunkSize {
			fitting = append(fitting, piece)
			continue
		}
		if len(fitting) > 0 {
			out = append(out, s.merge(fitting, sep.join)...)
			fitting = nil
		}
		out = append(out, s.splitText(piece, finer)...)
	}
	if len(fitting) > 0 {
		out = append(out, s.merge(fitting, sep.join)...)
	}
	return out
}

// merge packs pieces (each no longer than chunkSize) into chunks. After a chunk is
// emitted, leading pieces are dropped until what remains fits in the overlap and
// leaves room for the next piece.
func (s *Splitter) merge(pieces []string, join string) []string {
	joinLen := runeLen(join)

	var (
		docs    []string
		current []string
		total   int
	)
	for _, piece := range pieces {
		n := runeLen(piece)
		if len(current) > 0 && total+joinLen+n > s.chunkSize {
			docs = append(docs, strings.Join(current, join))
			for len(current) > 0 && (total > s.overlap || total+joinLen+n > s.chunkSize) {
				total -= runeLen(current[0])
				if len(current) > 1 {
					total -= joinLen
				}
				current = current[1:]
			}
		}
		if len(current) > 0 {
			total += joinLen
		}
		total += n
		current = append(current, piece)
	}
	if len(current) > 0 {
		docs = append(docs, strings.Join(current, join))
	}
	return docs
}

// splitSentences cuts after '.', '!' or '?' when followed by a space. The space is
// consumed so joining with " " restores the text.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' {
				out = append(out, text[start:i+1])
				start = i + 2
				i++
			}
		}
	}
	return append(out, text[start:])
}

func splitRunes(text string) []string {
	out := make([]string, 0, len(text))
	for _, r := range text {
		out = append(out, string(r))
	}
	return out
}

func nonBlank(parts []string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
