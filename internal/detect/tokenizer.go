package detect

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

// wordPieceTokenizer is a minimal BERT-compatible tokenizer. The NER path
// needs byte offsets back into the source document, so encoding always
// tracks where each piece came from.
type wordPieceTokenizer struct {
	vocab        map[string]int64
	lowerCase    bool
	clsID        int64
	sepID        int64
	padID        int64
	unkID        int64
	continuation string
}

type tokenOffset struct {
	Start int
	End   int
}

func loadWordPieceTokenizer(path string) (*wordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()

	vocab := make(map[string]int64)
	sc := bufio.NewScanner(f)
	var idx int64
	for sc.Scan() {
		token := strings.TrimSpace(sc.Text())
		if token == "" {
			continue
		}
		vocab[token] = idx
		idx++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan vocab: %w", err)
	}

	return &wordPieceTokenizer{
		vocab:        vocab,
		lowerCase:    true,
		continuation: "##",
		clsID:        vocab["[CLS]"],
		sepID:        vocab["[SEP]"],
		padID:        vocab["[PAD]"],
		unkID:        vocab["[UNK]"],
	}, nil
}

// encode converts text into padded token IDs, attention mask, and per-token
// byte offsets into text. Special and padding tokens carry {-1, -1}.
func (t *wordPieceTokenizer) encode(text string, seqLen int) ([]int64, []int64, []tokenOffset) {
	if seqLen <= 0 {
		return nil, nil, nil
	}

	tokens := []int64{t.clsID}
	offsets := []tokenOffset{{Start: -1, End: -1}}

	for _, w := range splitWords(text) {
		token := w.text
		var back []int
		if t.lowerCase {
			token, back = foldWord(w.text)
		}
		for _, p := range t.wordPiece(token) {
			start, end := p.start, p.end
			if back != nil {
				start, end = back[start], back[end]
			}
			tokens = append(tokens, p.id)
			offsets = append(offsets, tokenOffset{Start: w.start + start, End: w.start + end})
			if len(tokens) >= seqLen-1 {
				break
			}
		}
		if len(tokens) >= seqLen-1 {
			break
		}
	}

	tokens = append(tokens, t.sepID)
	offsets = append(offsets, tokenOffset{Start: -1, End: -1})

	attn := make([]int64, seqLen)
	for i := 0; i < len(tokens) && i < seqLen; i++ {
		attn[i] = 1
	}
	for len(tokens) < seqLen {
		tokens = append(tokens, t.padID)
		offsets = append(offsets, tokenOffset{Start: -1, End: -1})
	}

	return tokens, attn, offsets
}

// foldWord lowercases one word rune by rune and returns, for every byte
// boundary of the folded form, the byte offset it came from in the
// original word. Lowercasing can change a rune's encoded length, so
// piece offsets computed on the folded bytes must go through this table
// before they index the source text.
func foldWord(orig string) (string, []int) {
	var folded strings.Builder
	back := make([]int, 0, len(orig)+1)
	for oi, r := range orig {
		lr := unicode.ToLower(r)
		for i := 0; i < utf8.RuneLen(lr); i++ {
			back = append(back, oi)
		}
		folded.WriteRune(lr)
	}
	back = append(back, len(orig))
	return folded.String(), back
}

type piece struct {
	id    int64
	start int
	end   int
}

// wordPiece splits one whitespace-delimited word using greedy
// longest-match-first lookup. An unmatchable word collapses to [UNK]
// spanning the whole word.
func (t *wordPieceTokenizer) wordPiece(token string) []piece {
	if id, ok := t.vocab[token]; ok {
		return []piece{{id: id, start: 0, end: len(token)}}
	}

	var pieces []piece
	start := 0
	for start < len(token) {
		end := len(token)
		matched := false
		for end > start {
			sub := token[start:end]
			if start > 0 {
				sub = t.continuation + sub
			}
			if id, ok := t.vocab[sub]; ok {
				pieces = append(pieces, piece{id: id, start: start, end: end})
				start = end
				matched = true
				break
			}
			end--
		}
		if !matched {
			return []piece{{id: t.unkID, start: 0, end: len(token)}}
		}
	}
	if len(pieces) == 0 {
		return []piece{{id: t.unkID, start: 0, end: len(token)}}
	}
	return pieces
}

type word struct {
	text  string
	start int
	end   int
}

func splitWords(text string) []word {
	var words []word
	start := -1
	for idx, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, word{text: text[start:idx], start: start, end: idx})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = idx
		}
	}
	if start >= 0 {
		words = append(words, word{text: text[start:], start: start, end: len(text)})
	}
	return words
}
