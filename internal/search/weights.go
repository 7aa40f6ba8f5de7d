package search

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/pikestaff/cartridge/internal/game"
)

// Weights are the multipliers applied to the three scored dimensions when
// composing a total score. They sum to at most 1 before the additive recency
// bonus and platform penalty.
type Weights struct {
	Relevance  float64 `yaml:"relevance" json:"relevance"`
	Quality    float64 `yaml:"quality" json:"quality"`
	Popularity float64 `yaml:"popularity" json:"popularity"`
}

// Calibration bundles every tunable the ranking pipeline exposes: per-intent
// weight presets, the relevance cutoff, recency bonus shape, and the
// content-filter category and name-pattern lists. Values ship with defaults
// and can be overridden from a YAML file.
type Calibration struct {
	Default         Weights `yaml:"default"`
	SpecificTitle   Weights `yaml:"specific_title"`
	FranchiseBrowse Weights `yaml:"franchise_browse"`

	// RelevanceThreshold drops results whose relevance lands below it.
	RelevanceThreshold float64 `yaml:"relevance_threshold"`

	// RecencyMaxBonus is the additive boost for a release dated today; it
	// decays linearly to zero across RecencyWindowDays.
	RecencyMaxBonus   float64 `yaml:"recency_max_bonus"`
	RecencyWindowDays int     `yaml:"recency_window_days"`

	// RemoveCategories names the game categories the content filter removes
	// unless strong quality signals override. Unknown names are dropped at
	// load time with a warning, since the upstream enum shifts occasionally.
	RemoveCategories []string `yaml:"remove_categories"`

	// SuspectNamePatterns are whole words in a game name that mark low-effort
	// repackagings, removed unless good quality signals override.
	SuspectNamePatterns []string `yaml:"suspect_name_patterns"`
}

// DefaultCalibration returns the shipped tuning.
func DefaultCalibration() Calibration {
	return Calibration{
		Default:            Weights{Relevance: 0.4, Quality: 0.3, Popularity: 0.2},
		SpecificTitle:      Weights{Relevance: 0.65, Quality: 0.20, Popularity: 0.05},
		FranchiseBrowse:    Weights{Relevance: 0.30, Quality: 0.35, Popularity: 0.25},
		RelevanceThreshold: 0.12,
		RecencyMaxBonus:    0.08,
		RecencyWindowDays:  730,
		RemoveCategories:   []string{"bundle", "mod", "port", "pack", "update"},
		SuspectNamePatterns: []string{
			"collection", "remaster", "remastered", "anthology", "compilation", "bundle",
		},
	}
}

// WeightsFor returns the preset for an intent.
func (c Calibration) WeightsFor(intent Intent) Weights {
	switch intent {
	case IntentSpecificTitle:
		return c.SpecificTitle
	case IntentFranchiseBrowse:
		return c.FranchiseBrowse
	default:
		return c.Default
	}
}

// removalSet resolves RemoveCategories to enum values, skipping anything the
// enum does not know.
func (c Calibration) removalSet() map[game.Category]struct{} {
	set := make(map[game.Category]struct{}, len(c.RemoveCategories))
	for _, name := range c.RemoveCategories {
		if cat, ok := game.CategoryByName(name); ok {
			set[cat] = struct{}{}
		}
	}
	return set
}

// LoadCalibration reads a YAML calibration file and merges it over the
// defaults: only non-zero fields override, so partial files work. A missing
// or unreadable file degrades to defaults with a warning and the error is
// returned for callers that care. Overridden values are logged so a running
// instance's tuning is visible.
func LoadCalibration(path string, logger *slog.Logger) (Calibration, error) {
	defaults := DefaultCalibration()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("calibration file unreadable, using defaults",
			slog.String("path", path),
			slog.Any("error", err))
		return defaults, fmt.Errorf("reading calibration file: %w", err)
	}

	var override Calibration
	if err := yaml.Unmarshal(data, &override); err != nil {
		logger.Warn("calibration file unparseable, using defaults",
			slog.String("path", path),
			slog.Any("error", err))
		return defaults, fmt.Errorf("parsing calibration file: %w", err)
	}

	merged := mergeCalibration(defaults, override)
	merged.RemoveCategories = validCategories(merged.RemoveCategories, logger)
	logCalibrationOverrides(defaults, merged, logger)
	return merged, nil
}

// mergeCalibration overlays non-zero override fields on the base.
func mergeCalibration(base, override Calibration) Calibration {
	out := base
	out.Default = mergeWeights(base.Default, override.Default)
	out.SpecificTitle = mergeWeights(base.SpecificTitle, override.SpecificTitle)
	out.FranchiseBrowse = mergeWeights(base.FranchiseBrowse, override.FranchiseBrowse)
	if override.RelevanceThreshold != 0 {
		out.RelevanceThreshold = override.RelevanceThreshold
	}
	if override.RecencyMaxBonus != 0 {
		out.RecencyMaxBonus = override.RecencyMaxBonus
	}
	if override.RecencyWindowDays > 0 {
		out.RecencyWindowDays = override.RecencyWindowDays
	}
	if len(override.RemoveCategories) > 0 {
		out.RemoveCategories = override.RemoveCategories
	}
	if len(override.SuspectNamePatterns) > 0 {
		out.SuspectNamePatterns = override.SuspectNamePatterns
	}
	return out
}

func mergeWeights(base, override Weights) Weights {
	out := base
	if override.Relevance != 0 {
		out.Relevance = override.Relevance
	}
	if override.Quality != 0 {
		out.Quality = override.Quality
	}
	if override.Popularity != 0 {
		out.Popularity = override.Popularity
	}
	return out
}

func validCategories(names []string, logger *slog.Logger) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := game.CategoryByName(name); !ok {
			logger.Warn("unknown category in calibration, skipping", slog.String("category", name))
			continue
		}
		out = append(out, name)
	}
	return out
}

func logCalibrationOverrides(defaults, loaded Calibration, logger *slog.Logger) {
	var overrides []string

	add := func(field string, def, got float64) {
		if def != got {
			overrides = append(overrides, fmt.Sprintf("%s: %.2f -> %.2f", field, def, got))
		}
	}
	addWeights := func(prefix string, def, got Weights) {
		add(prefix+".relevance", def.Relevance, got.Relevance)
		add(prefix+".quality", def.Quality, got.Quality)
		add(prefix+".popularity", def.Popularity, got.Popularity)
	}

	addWeights("default", defaults.Default, loaded.Default)
	addWeights("specific_title", defaults.SpecificTitle, loaded.SpecificTitle)
	addWeights("franchise_browse", defaults.FranchiseBrowse, loaded.FranchiseBrowse)
	add("relevance_threshold", defaults.RelevanceThreshold, loaded.RelevanceThreshold)
	add("recency_max_bonus", defaults.RecencyMaxBonus, loaded.RecencyMaxBonus)
	add("recency_window_days", float64(defaults.RecencyWindowDays), float64(loaded.RecencyWindowDays))
	if !slices.Equal(defaults.RemoveCategories, loaded.RemoveCategories) {
		overrides = append(overrides, fmt.Sprintf("remove_categories: %v", loaded.RemoveCategories))
	}
	if !slices.Equal(defaults.SuspectNamePatterns, loaded.SuspectNamePatterns) {
		overrides = append(overrides, fmt.Sprintf("suspect_name_patterns: %v", loaded.SuspectNamePatterns))
	}

	if len(overrides) > 0 {
		logger.Info("loaded ranking calibration with overrides", slog.Any("overrides", overrides))
	} else {
		logger.Info("loaded ranking calibration, all defaults")
	}
}
