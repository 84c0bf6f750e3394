package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bundle is one named set of procedure codes expected to appear together.
type Bundle struct {
	Name  string
	Codes []string
}

// ruleFile is the on-disk YAML structure. Any section left empty keeps the
// compiled-in default for that section.
type ruleFile struct {
	Bundles             map[string][]string `yaml:"bundles"`
	AllowedUnits        map[string]int      `yaml:"allowed_units"`
	EMGStudyCodes       []string            `yaml:"emg_study_codes"`
	EMGNeedleCodes      []string            `yaml:"emg_needle_codes"`
	UnitExemptCodes     []string            `yaml:"unit_exempt_codes"`
	DisallowedModifiers []string            `yaml:"disallowed_modifiers"`
	ExcludedCPTs        []string            `yaml:"excluded_cpts"`
}

// Rules is the immutable adjudication rule set injected into each
// validator at construction. Build one with DefaultRules or LoadRules and
// do not mutate it afterwards; it is shared across worker goroutines.
type Rules struct {
	bundles             []Bundle
	allowedUnits        map[string]int
	studyCodes          map[string]bool
	needleCodes         map[string]bool
	unitExempt          map[string]bool
	disallowedModifiers []string
	excludedCPTs        map[string]bool
}

// DefaultRules returns the compiled-in rule set.
func DefaultRules() *Rules {
	return compile(defaultRuleFile())
}

// LoadRules reads a YAML rule file and merges it over the defaults.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	merged := defaultRuleFile()
	if len(rf.Bundles) > 0 {
		merged.Bundles = rf.Bundles
	}
	if len(rf.AllowedUnits) > 0 {
		merged.AllowedUnits = rf.AllowedUnits
	}
	if len(rf.EMGStudyCodes) > 0 {
		merged.EMGStudyCodes = rf.EMGStudyCodes
	}
	if len(rf.EMGNeedleCodes) > 0 {
		merged.EMGNeedleCodes = rf.EMGNeedleCodes
	}
	if len(rf.UnitExemptCodes) > 0 {
		merged.UnitExemptCodes = rf.UnitExemptCodes
	}
	if len(rf.DisallowedModifiers) > 0 {
		merged.DisallowedModifiers = rf.DisallowedModifiers
	}
	if len(rf.ExcludedCPTs) > 0 {
		merged.ExcludedCPTs = rf.ExcludedCPTs
	}

	for name, codes := range merged.Bundles {
		if len(codes) == 0 {
			return nil, fmt.Errorf("bundle %q has no codes", name)
		}
	}
	return compile(merged), nil
}

func defaultRuleFile() ruleFile {
	return ruleFile{
		Bundles: map[string][]string{
			"EMG Visit":     {"95910", "95886"},
			"EMG Visit - 2": {"95910", "95885"},
			"EMG Visit - 3": {"95913", "95886"},
			"EMG Visit - 4": {"95913", "95885"},
			"EMG Visit - 5": {"95910", "99203", "95885"},
			"EMG Visit - 6": {"95910", "99203", "95886"},
			"EMG Visit - 7": {"95909", "95885"},
		},
		AllowedUnits: map[string]int{
			// NCS study codes, always a single unit
			"95907": 1,
			"95908": 1,
			"95909": 1,
			"95910": 1,
			"95911": 1,
			"95912": 1,
			"95913": 1,
			// Needle EMG codes
			"95885": 4,
			"95886": 4,
			"95887": 1,
			// Evaluation
			"99203": 1,
		},
		EMGStudyCodes:  []string{"95907", "95908", "95909", "95910", "95911", "95912", "95913"},
		EMGNeedleCodes: []string{"95885", "95886", "95887"},
		// Time-based / per-increment therapy codes billed in multiples
		UnitExemptCodes:     []string{"97110", "97112", "97140", "97530"},
		DisallowedModifiers: []string{"26", "TC"},
		ExcludedCPTs:        []string{"51655"},
	}
}

// compile builds lookup structures from the raw rule file. Bundles are
// ordered most-specific-first (largest code set, then name) so that when
// more than one bundle could match, the most specific one wins
// deterministically rather than by map iteration order.
func compile(rf ruleFile) *Rules {
	r := &Rules{
		allowedUnits:        make(map[string]int, len(rf.AllowedUnits)),
		studyCodes:          toSet(rf.EMGStudyCodes),
		needleCodes:         toSet(rf.EMGNeedleCodes),
		unitExempt:          toSet(rf.UnitExemptCodes),
		disallowedModifiers: append([]string(nil), rf.DisallowedModifiers...),
		excludedCPTs:        toSet(rf.ExcludedCPTs),
	}
	for cpt, units := range rf.AllowedUnits {
		r.allowedUnits[cpt] = units
	}
	for name, codes := range rf.Bundles {
		r.bundles = append(r.bundles, Bundle{Name: name, Codes: append([]string(nil), codes...)})
	}
	sort.Slice(r.bundles, func(i, j int) bool {
		if len(r.bundles[i].Codes) != len(r.bundles[j].Codes) {
			return len(r.bundles[i].Codes) > len(r.bundles[j].Codes)
		}
		return r.bundles[i].Name < r.bundles[j].Name
	})
	return r
}

func toSet(codes []string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}

// Bundles returns the bundle definitions in match-priority order.
func (r *Rules) Bundles() []Bundle {
	return r.bundles
}

// AllowedUnits returns the EMG per-code unit ceiling override for a code.
func (r *Rules) AllowedUnits(cpt string) (int, bool) {
	units, ok := r.allowedUnits[cpt]
	return units, ok
}

// IsStudyCode reports whether the code is an EMG study (NCS) code.
func (r *Rules) IsStudyCode(cpt string) bool { return r.studyCodes[cpt] }

// IsNeedleCode reports whether the code is a needle EMG code.
func (r *Rules) IsNeedleCode(cpt string) bool { return r.needleCodes[cpt] }

// IsUnitExempt reports whether the code is exempt from the generic
// one-unit ceiling.
func (r *Rules) IsUnitExempt(cpt string) bool { return r.unitExempt[cpt] }

// IsExcluded reports whether the code is on the fixed policy denylist.
func (r *Rules) IsExcluded(cpt string) bool { return r.excludedCPTs[cpt] }

// DisallowedModifier returns the first disallowed modifier found in the
// given modifier value by case-insensitive substring match, or "".
func (r *Rules) DisallowedModifier(modifier string) string {
	upper := strings.ToUpper(modifier)
	for _, bad := range r.disallowedModifiers {
		if strings.Contains(upper, strings.ToUpper(bad)) {
			return bad
		}
	}
	return ""
}

// ContainedBundle returns the highest-priority bundle whose required codes
// are all present in the given code set, for informational annotation.
func (r *Rules) ContainedBundle(codes map[string]bool) (Bundle, bool) {
	for _, b := range r.bundles {
		all := true
		for _, c := range b.Codes {
			if !codes[c] {
				all = false
				break
			}
		}
		if all {
			return b, true
		}
	}
	return Bundle{}, false
}
