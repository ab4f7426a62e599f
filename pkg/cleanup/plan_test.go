package cleanup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cperrin88/coupler-launcher/pkg/model"
)

func pkg(name, ver string, deps ...string) model.PackageVersion {
	p := model.PackageVersion{Name: name, Version: ver}
	for _, d := range deps {
		p.Dependencies = append(p.Dependencies, model.Dependency{Name: d})
	}
	return p
}

func unitIDsOf(plan model.CleanupPlan) [][]string {
	out := make([][]string, 0, len(plan.Units))
	for _, u := range plan.Units {
		out = append(out, unitIDs(u))
	}
	return out
}

func TestPlan_ChainRemovesDependentsFirst(t *testing.T) {
	a := pkg("a", "1", "b")
	b := pkg("b", "1", "c")
	c := pkg("c", "1")

	plan := Plan([]model.PackageVersion{c, a, b}, nil)
	assert.Equal(t, [][]string{{"a@1"}, {"b@1"}, {"c@1"}}, unitIDsOf(plan))
	assert.Equal(t, []string{"a@1", "b@1", "c@1"}, plan.IDs())
}

func TestPlan_CycleIsOneUnit(t *testing.T) {
	a := pkg("a", "1", "b")
	b := pkg("b", "1", "a")
	top := pkg("top", "1", "a")

	plan := Plan([]model.PackageVersion{a, b, top}, nil)
	assert.Equal(t, [][]string{{"top@1"}, {"a@1", "b@1"}}, unitIDsOf(plan))
}

func TestPlan_KeepIsNeverRemoved(t *testing.T) {
	jre17 := pkg("jre", "17.0.2")
	jre21 := pkg("jre", "21.0.1")
	app := model.PackageVersion{
		Name:         "app",
		Version:      "1.0.0",
		Dependencies: []model.Dependency{{Name: "jre", VersionConstraint: ">= 21"}},
	}

	plan := Plan([]model.PackageVersion{jre17, jre21, app}, []model.PackageVersion{jre21, app})
	assert.Equal(t, [][]string{{"jre@17.0.2"}}, unitIDsOf(plan))
}

func TestPlan_CycleThroughKeptPackage(t *testing.T) {
	a := pkg("a", "1", "b")
	b := pkg("b", "1", "a")

	plan := Plan([]model.PackageVersion{a, b}, []model.PackageVersion{b})
	assert.Equal(t, [][]string{{"a@1"}}, unitIDsOf(plan))
}

func TestPlan_NothingToRemove(t *testing.T) {
	a := pkg("a", "1")
	assert.True(t, Plan([]model.PackageVersion{a}, []model.PackageVersion{a}).Empty())
	assert.True(t, Plan(nil, nil).Empty())
}

func TestPlan_DuplicatesCollapse(t *testing.T) {
	a := pkg("a", "1")
	plan := Plan([]model.PackageVersion{a, a}, nil)
	assert.Equal(t, [][]string{{"a@1"}}, unitIDsOf(plan))
}
