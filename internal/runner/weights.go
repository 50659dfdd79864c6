package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// WeightsFileName is the canonical name of a run's serialized weights.
const WeightsFileName = "final_weights.gob"

// ErrNoPretrainedModel is returned by predict-without-train when no run
// under the model root has ever written weights.
var ErrNoPretrainedModel = errors.New(
	"no pre-trained model exists: train a model before running inference")

// findLatestWeights searches every run directory under root for weights
// files and returns the lexicographically greatest path. With the
// timestamp-named run directories this is the most recent run; runs
// sharing a timestamp minute, or coordinators with skewed clocks, are not
// disambiguated beyond the path ordering.
func findLatestWeights(root string) (string, error) {
	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasPrefix(d.Name(), "final_weights") {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("weights lookup under %s failed: %w", root, err)
	}

	if len(matches) == 0 {
		return "", ErrNoPretrainedModel
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// modelRoot returns the directory holding every benchmark's run
// directories, given one run's output directory
// (<model_dir>/<benchmark>/<timestamp>).
func modelRoot(outputDir string) string {
	return filepath.Dir(filepath.Dir(outputDir))
}
