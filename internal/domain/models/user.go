package models

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// UserPreferences is the scorer's input: the user's stated (not learned)
// preferences. Profile management lives outside this subsystem; the engine
// only reads rows.
type UserPreferences struct {
	UserID             string `gorm:"primaryKey"`
	Keywords           string
	SearchLocation     string
	DesiredTitles      string
	Locations          string
	RemoteOnly         bool
	MinSalary          *int
	Skills             string
	Seniority          string
	CompanySizes       string
	ExcludedCompanies  string
	ExcludedIndustries string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return lo.FilterMap(strings.Split(s, ","), func(item string, _ int) (string, bool) {
		item = strings.TrimSpace(item)
		return item, item != ""
	})
}

func (p *UserPreferences) DesiredTitlesAsArray() []string { return splitList(p.DesiredTitles) }

func (p *UserPreferences) LocationsAsArray() []string { return splitList(p.Locations) }

func (p *UserPreferences) SkillsAsArray() []string { return splitList(p.Skills) }

func (p *UserPreferences) CompanySizesAsArray() []string { return splitList(p.CompanySizes) }

func (p *UserPreferences) ExcludedCompaniesAsArray() []string { return splitList(p.ExcludedCompanies) }

func (p *UserPreferences) ExcludedIndustriesAsArray() []string {
	return splitList(p.ExcludedIndustries)
}
