package detect

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXRecognizer runs a token-classification NER model through ONNX
// Runtime. The model bundle directory must hold ner.onnx, label_map.json
// (BIO tags, e.g. "B-PERSON"), and tokenizer/vocab.txt.
//
// Tensors are allocated once and reused; the mutex serializes inference
// since the session shares those buffers.
type ONNXRecognizer struct {
	session   *ort.AdvancedSession
	tokenizer *wordPieceTokenizer
	labels    []string
	seqLen    int

	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	output        *ort.Tensor[float32]

	mu sync.Mutex
}

// LoadONNXRecognizer initializes the ONNX session and tokenizer from a
// model bundle directory.
func LoadONNXRecognizer(bundleDir string, seqLen int) (*ONNXRecognizer, error) {
	if bundleDir == "" {
		return nil, errors.New("bundleDir is empty")
	}
	if seqLen <= 0 {
		seqLen = 256
	}

	libPath := resolveSharedLibraryPath(bundleDir)
	if libPath == "" {
		return nil, fmt.Errorf("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	modelPath := filepath.Join(bundleDir, "ner.onnx")
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", modelPath, err)
	}

	labels, err := loadLabelMap(filepath.Join(bundleDir, "label_map.json"))
	if err != nil {
		return nil, fmt.Errorf("load label map: %w", err)
	}

	tokenizer, err := loadWordPieceTokenizer(filepath.Join(bundleDir, "tokenizer", "vocab.txt"))
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	inputShape := ort.NewShape(1, int64(seqLen))
	inputIDs, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate input_ids tensor: %w", err)
	}
	attnMask, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate attention_mask tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(seqLen), int64(len(labels))))
	if err != nil {
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		[]ort.Value{inputIDs, attnMask},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &ONNXRecognizer{
		session:       session,
		tokenizer:     tokenizer,
		labels:        labels,
		seqLen:        seqLen,
		inputIDs:      inputIDs,
		attentionMask: attnMask,
		output:        output,
	}, nil
}

// Recognize runs inference and merges BIO token tags into character-level
// candidates.
func (r *ONNXRecognizer) Recognize(text string) ([]Labeled, error) {
	if r == nil || r.session == nil || r.tokenizer == nil {
		return nil, errors.New("ner model not initialized")
	}

	ids, attn, offsets := r.tokenizer.encode(text, r.seqLen)

	r.mu.Lock()
	defer r.mu.Unlock()

	copy(r.inputIDs.GetData(), ids)
	copy(r.attentionMask.GetData(), attn)

	if err := r.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	logits := r.output.GetData()
	tags := make([]string, r.seqLen)
	for i := 0; i < r.seqLen; i++ {
		if attn[i] == 0 {
			tags[i] = "O"
			continue
		}
		tags[i] = r.labels[argmax(logits[i*len(r.labels):(i+1)*len(r.labels)])]
	}

	return mergeBIO(text, tags, offsets), nil
}

func argmax(scores []float32) int {
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	return best
}

// mergeBIO folds per-token BIO tags into contiguous character spans. A
// B- tag opens a span; I- with the same type extends it; anything else
// closes it. Tokens with no source offset (specials, padding) are skipped.
func mergeBIO(text string, tags []string, offsets []tokenOffset) []Labeled {
	var out []Labeled
	cur := -1
	curLabel := ""
	var curStart, curEnd int

	flush := func() {
		if cur < 0 {
			return
		}
		out = append(out, Labeled{
			Start: curStart,
			End:   curEnd,
			Text:  text[curStart:curEnd],
			Label: curLabel,
		})
		cur = -1
	}

	for i, tag := range tags {
		if i >= len(offsets) || offsets[i].Start < 0 {
			continue
		}
		switch {
		case strings.HasPrefix(tag, "B-"):
			flush()
			cur = i
			curLabel = tag[2:]
			curStart = offsets[i].Start
			curEnd = offsets[i].End
		case strings.HasPrefix(tag, "I-") && cur >= 0 && tag[2:] == curLabel:
			curEnd = offsets[i].End
		default:
			flush()
		}
	}
	flush()
	return out
}

func loadLabelMap(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) > 0 {
		return arr, nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	out := make([]string, len(m))
	for k, v := range m {
		idx, convErr := strconv.Atoi(k)
		if convErr != nil {
			return nil, fmt.Errorf("invalid label index %q: %w", k, convErr)
		}
		if idx < 0 || idx >= len(m) {
			return nil, fmt.Errorf("label index %d out of range", idx)
		}
		out[idx] = v
	}
	return out, nil
}

// resolveSharedLibraryPath locates the platform onnxruntime shared library.
// ONNXRUNTIME_SHARED_LIBRARY_PATH wins when set.
func resolveSharedLibraryPath(bundleDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"libonnxruntime.so",
		"onnxruntime.so",
		"onnxruntime.dll",
	}
	dirs := []string{
		bundleDir,
		filepath.Join(bundleDir, "lib"),
		".",
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
	}
	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
