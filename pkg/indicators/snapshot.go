package indicators

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mercator-hq/ddsguard/pkg/rules"
	"mercator-hq/ddsguard/pkg/scoring"
)

// versionLength is the number of hex characters kept from the content hash.
const versionLength = 12

// Snapshot is an immutable, validated configuration. Callers must not modify
// the embedded Config.
type Snapshot struct {
	// Config is the validated configuration with normalised codes.
	Config *Config

	// Version is a short content hash identifying this configuration.
	Version string

	// Source is the file path, or "builtin".
	Source string

	// LoadedAt is when the snapshot was created.
	LoadedAt time.Time

	highRiskCountries   rules.Set[string]
	highRiskCommodities rules.Set[string]
	mitigationTypes     rules.Set[string]
}

// NewSnapshot validates cfg and wraps a normalised copy of it. content is the
// serialised form used for the version hash; when nil, cfg is marshalled.
func NewSnapshot(cfg *Config, source string, content []byte) (*Snapshot, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	normalised := normalise(cfg)
	if content == nil {
		var err error
		content, err = yaml.Marshal(normalised)
		if err != nil {
			return nil, fmt.Errorf("failed to serialise risk indicators: %w", err)
		}
	}
	sum := sha256.Sum256(content)

	return &Snapshot{
		Config:              normalised,
		Version:             hex.EncodeToString(sum[:])[:versionLength],
		Source:              source,
		LoadedAt:            time.Now().UTC(),
		highRiskCountries:   rules.NewSet(normalised.HighRiskCountries...),
		highRiskCommodities: rules.NewSet(normalised.HighRiskCommodities...),
		mitigationTypes:     rules.NewSet(normalised.MitigationMeasureTypes...),
	}, nil
}

// Parse decodes YAML configuration, validates it and returns a snapshot.
func Parse(data []byte, source string) (*Snapshot, error) {
	cfg := baseConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse risk indicators %s: %w", source, err)
	}
	return NewSnapshot(cfg, source, data)
}

// Load reads, validates and snapshots the configuration file at path.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read risk indicators: %w", err)
	}
	return Parse(data, path)
}

// DefaultSnapshot returns a snapshot of the built-in configuration.
func DefaultSnapshot() *Snapshot {
	s, err := NewSnapshot(Default(), "builtin", nil)
	if err != nil {
		panic(fmt.Sprintf("built-in risk indicators are invalid: %v", err))
	}
	return s
}

// IsHighRiskCountry reports whether the country code is in the high-risk
// set. Codes are compared case-insensitively.
func (s *Snapshot) IsHighRiskCountry(code string) bool {
	return s.highRiskCountries.Has(normaliseCountry(code))
}

// IsHighRiskCommodity reports whether the commodity is in the high-risk set.
func (s *Snapshot) IsHighRiskCommodity(commodity string) bool {
	return s.highRiskCommodities.Has(normaliseCommodity(commodity))
}

// IsMitigationType reports whether t is a recognised mitigation measure.
func (s *Snapshot) IsMitigationType(t string) bool {
	return s.mitigationTypes.Has(normaliseCommodity(t))
}

// RequiredFields returns the required keys for a document type.
func (s *Snapshot) RequiredFields(docType string) []string {
	return s.Config.RequiredFields[docType]
}

// RiskLevel maps score onto the configured bands.
func (s *Snapshot) RiskLevel(score float64) string {
	return scoring.Level(score, s.Config.RiskLevels, s.Config.FallbackRiskLevel)
}

func normalise(cfg *Config) *Config {
	out := *cfg
	out.RequiredFields = make(map[string][]string, len(cfg.RequiredFields))
	for k, v := range cfg.RequiredFields {
		out.RequiredFields[k] = trimAll(v, strings.TrimSpace)
	}
	out.HighRiskCountries = trimAll(cfg.HighRiskCountries, normaliseCountry)
	out.HighRiskCommodities = trimAll(cfg.HighRiskCommodities, normaliseCommodity)
	out.MitigationMeasureTypes = trimAll(cfg.MitigationMeasureTypes, normaliseCommodity)
	out.TransparencyIndicators = trimAll(cfg.TransparencyIndicators, strings.TrimSpace)
	out.RiskLevels = append(out.RiskLevels[:0:0], cfg.RiskLevels...)
	return &out
}

func trimAll(values []string, f func(string) string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = f(v)
	}
	return out
}

func normaliseCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func normaliseCommodity(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}
