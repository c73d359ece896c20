// Package guardmodel runs an optional ONNX classifier over claim content as
// a second detection layer on top of the static rule set. When no model
// bundle is configured or loading fails, the scanner runs rules-only.
package guardmodel

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"gopkg.in/yaml.v3"

	"github.com/edgeguard-ai/edgeguard/internal/claim"
)

// LabelThresholds holds the warn/block score cutoffs for one label.
type LabelThresholds struct {
	Warn  *float32 `yaml:"warn"`
	Block *float32 `yaml:"block"`
}

// Model wraps the ONNX session, tokenizer, and per-label thresholds.
type Model struct {
	session    *ort.AdvancedSession
	tokenizer  *wordPieceTokenizer
	labels     []string
	thresholds map[string]LabelThresholds
	seqLen     int

	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	output        *ort.Tensor[float32]

	mu sync.Mutex
}

// Load initializes the ONNX session from a bundle directory containing
// claimguard.onnx, labels.yaml-style thresholds, and a tokenizer vocab.
func Load(bundleDir string, seqLen int) (*Model, error) {
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

	modelPath := filepath.Join(bundleDir, "claimguard.onnx")
	thresholdsPath := filepath.Join(bundleDir, "thresholds.yaml")
	vocabPath := filepath.Join(bundleDir, "tokenizer", "vocab.txt")

	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", modelPath, err)
	}

	labels, th, err := loadThresholds(thresholdsPath)
	if err != nil {
		return nil, fmt.Errorf("load thresholds: %w", err)
	}

	tokenizer, err := loadTokenizer(vocabPath)
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
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(labels))))
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

	return &Model{
		session:       session,
		tokenizer:     tokenizer,
		labels:        labels,
		thresholds:    th,
		seqLen:        seqLen,
		inputIDs:      inputIDs,
		attentionMask: attnMask,
		output:        output,
	}, nil
}

// Evaluate scores the text and returns a suspicious-pattern flag for each
// label whose sigmoid score crosses its warn or block threshold. A nil
// model evaluates to no flags.
func (m *Model) Evaluate(text string) []claim.SecurityFlag {
	if m == nil || m.session == nil {
		return nil
	}

	inputIDs, attn := m.tokenizer.encode(text, m.seqLen)

	m.mu.Lock()
	defer m.mu.Unlock()

	copy(m.inputIDs.GetData(), inputIDs)
	copy(m.attentionMask.GetData(), attn)

	if err := m.session.Run(); err != nil {
		// Scoring failure degrades to rules-only for this scan.
		return nil
	}

	raw := m.output.GetData()
	var flags []claim.SecurityFlag
	for i, logit := range raw {
		if i >= len(m.labels) {
			break
		}
		label := m.labels[i]
		score := float32(1.0 / (1.0 + math.Exp(-float64(logit))))
		th, ok := m.thresholds[label]
		if !ok {
			continue
		}
		switch {
		case th.Block != nil && score >= *th.Block:
			flags = append(flags, claim.SecurityFlag{
				Type:        claim.FlagSuspiciousPattern,
				Severity:    claim.SeverityHigh,
				Description: fmt.Sprintf("Classifier signal %s (score %.2f)", label, score),
			})
		case th.Warn != nil && score >= *th.Warn:
			flags = append(flags, claim.SecurityFlag{
				Type:        claim.FlagSuspiciousPattern,
				Severity:    claim.SeverityMedium,
				Description: fmt.Sprintf("Classifier signal %s (score %.2f)", label, score),
			})
		}
	}
	return flags
}

func loadThresholds(path string) ([]string, map[string]LabelThresholds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var wrapper struct {
		Thresholds map[string]LabelThresholds `yaml:"thresholds"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, nil, err
	}
	if len(wrapper.Thresholds) == 0 {
		return nil, nil, errors.New("no thresholds defined")
	}

	labels := make([]string, 0, len(wrapper.Thresholds))
	for label := range wrapper.Thresholds {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels, wrapper.Thresholds, nil
}

// resolveSharedLibraryPath locates a platform-specific onnxruntime shared
// library. ONNXRUNTIME_SHARED_LIBRARY_PATH wins when set.
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
