package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestWeekdaySet(t *testing.T) {
	t.Run("nil column yields empty set", func(t *testing.T) {
		rule := &AutoAssignRule{}
		assert.Empty(t, rule.WeekdaySet())
	})

	t.Run("empty column yields empty set", func(t *testing.T) {
		rule := &AutoAssignRule{DaysOfWeek: strPtr("")}
		assert.Empty(t, rule.WeekdaySet())
	})

	t.Run("parses csv with spaces", func(t *testing.T) {
		rule := &AutoAssignRule{DaysOfWeek: strPtr("1, 3 ,5")}
		set := rule.WeekdaySet()
		assert.Equal(t, map[int]bool{1: true, 3: true, 5: true}, set)
	})

	t.Run("blank and junk entries are skipped", func(t *testing.T) {
		rule := &AutoAssignRule{DaysOfWeek: strPtr("1,,x,7")}
		set := rule.WeekdaySet()
		assert.Equal(t, map[int]bool{1: true, 7: true}, set)
	})
}

func TestAssignStrategy(t *testing.T) {
	assert.True(t, StrategyRoundRobin.Valid())
	assert.True(t, StrategyLeastLoaded.Valid())
	assert.True(t, StrategyFixedUser.Valid())
	assert.False(t, AssignStrategy("banana").Valid())
	assert.False(t, AssignStrategy("").Valid())

	assert.Equal(t, "round_robin", StrategyRoundRobin.String())

	_, err := AssignStrategy("banana").Value()
	assert.Error(t, err)

	var s AssignStrategy
	assert.NoError(t, s.Scan("least_loaded"))
	assert.Equal(t, StrategyLeastLoaded, s)
}
