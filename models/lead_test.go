package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLeadStatus(t *testing.T) {
	cases := []struct {
		in   string
		want LeadStatus
		ok   bool
	}{
		{"new", LeadStatusNew, true},
		{"NEW", LeadStatusNew, true},
		{"in_progress", LeadStatusInProgress, true},
		{"IN_PROGRESS", LeadStatusInProgress, true},
		{"done", LeadStatusDone, true},
		{"cancelled", LeadStatusCancelled, true},
		{"bogus", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := ParseLeadStatus(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestLeadStatusIsActive(t *testing.T) {
	assert.True(t, LeadStatusNew.IsActive())
	assert.True(t, LeadStatusInProgress.IsActive())
	assert.False(t, LeadStatusDone.IsActive())
	assert.False(t, LeadStatusCancelled.IsActive())
}

func TestLeadIsAssigned(t *testing.T) {
	lead := &Lead{}
	assert.False(t, lead.IsAssigned())

	userID := uint(7)
	lead.AssignedUserID = &userID
	assert.True(t, lead.IsAssigned())
}
