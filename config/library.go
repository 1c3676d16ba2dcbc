package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/cloudx-io/lotbid/core"
)

// Library is the reference data a scenario is resolved against: per-house
// fee schedules, the default assumptions and the named profiles.
type Library struct {
	Defaults  core.Assumptions
	Schedules map[string]core.FeeSchedule // keyed by lower-case source
	Profiles  map[string]core.AssumptionsProfile
}

// libraryFile mirrors the on-disk layout. Fields decode through the core json tags.
type libraryFile struct {
	Defaults     *core.AssumptionsProfile           `json:"defaults"`
	FeeSchedules []core.FeeSchedule                 `json:"fee_schedules"`
	Profiles     map[string]core.AssumptionsProfile `json:"profiles"`
}

// DefaultLibrary holds the stock assumptions and built-in profiles and no schedules.
func DefaultLibrary() *Library {
	return &Library{
		Defaults:  core.DefaultAssumptions(),
		Schedules: map[string]core.FeeSchedule{},
		Profiles:  core.BuiltinProfiles(),
	}
}

// LoadLibrary reads a library file. Configured profiles replace built-ins of the same name.
func LoadLibrary(path string) (*Library, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read library: %w", err)
	}

	var file libraryFile
	err := v.Unmarshal(&file, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "json"
		dc.ErrorUnused = true
	})
	if err != nil {
		return nil, fmt.Errorf("decode library: %w", err)
	}

	return newLibrary(file)
}

func newLibrary(file libraryFile) (*Library, error) {
	lib := DefaultLibrary()

	if file.Defaults != nil {
		lib.Defaults = core.MergeProfile(lib.Defaults, *file.Defaults)
	}
	if err := lib.Defaults.Validate(); err != nil {
		return nil, fmt.Errorf("library defaults: %w", err)
	}

	for i, schedule := range file.FeeSchedules {
		key := normalizeName(schedule.Source)
		if key == "" {
			return nil, fmt.Errorf("fee schedule %d: source is required", i)
		}
		if _, exists := lib.Schedules[key]; exists {
			return nil, fmt.Errorf("fee schedule %q defined more than once", schedule.Source)
		}
		if err := core.ValidateFeeSchedule(schedule); err != nil {
			return nil, fmt.Errorf("fee schedule %q: %w", schedule.Source, err)
		}
		lib.Schedules[key] = schedule
	}

	for name, profile := range file.Profiles {
		key := normalizeName(name)
		if err := core.MergeProfile(lib.Defaults, profile).Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		lib.Profiles[key] = profile
	}

	return lib, nil
}

// Schedule returns the fee schedule of source, matched case-insensitively.
func (l *Library) Schedule(source string) (core.FeeSchedule, bool) {
	schedule, ok := l.Schedules[normalizeName(source)]
	return schedule, ok
}

// Sources lists the configured schedule sources in sorted order.
func (l *Library) Sources() []string {
	sources := make([]string, 0, len(l.Schedules))
	for _, schedule := range l.Schedules {
		sources = append(sources, schedule.Source)
	}
	sort.Strings(sources)
	return sources
}

// Assumptions returns base with the named profile applied. An empty base uses the library defaults.
func (l *Library) Assumptions(base *core.Assumptions, profile string) core.Assumptions {
	scenario := l.Defaults
	if base != nil {
		scenario = *base
	}
	return core.ApplyProfileFrom(scenario, l.Profiles, profile)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
