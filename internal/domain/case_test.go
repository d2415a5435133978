package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorityLabel(t *testing.T) {
	assert.Equal(t, "UNSCORED", PriorityLabel(nil))
	for score, want := range map[float64]string{
		8000: "CRITICAL",
		7000: "CRITICAL",
		5500: "HIGH",
		3000: "MEDIUM",
		100:  "LOW",
		-50:  "LOW",
	} {
		s := score
		assert.Equal(t, want, PriorityLabel(&s), "score %v", score)
	}
}

func TestAgeingBucket(t *testing.T) {
	assert.Equal(t, "0-30", AgeingBucket(0))
	assert.Equal(t, "0-30", AgeingBucket(30))
	assert.Equal(t, "31-60", AgeingBucket(31))
	assert.Equal(t, "61-90", AgeingBucket(90))
	assert.Equal(t, "90+", AgeingBucket(91))
}

func TestRoleSides(t *testing.T) {
	assert.True(t, RoleDCAAgent.IsDCA())
	assert.True(t, RoleDCAAdmin.IsDCA())
	assert.False(t, RoleFedExAgent.IsDCA())
	assert.True(t, RoleFedExAdmin.IsFedEx())
	assert.False(t, RoleDCAAdmin.IsFedEx())
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, CaseStatusClosed.IsTerminal())
	assert.True(t, CaseStatusRecovered.IsTerminal())
	assert.False(t, CaseStatusEscalated.IsTerminal())
	assert.False(t, CaseStatusNew.IsTerminal())
}

func TestValidClosureReason(t *testing.T) {
	for _, reason := range []ClosureReason{ClosureRecovered, ClosureWriteOff, ClosureInvalid, ClosureDuplicate, ClosureOther} {
		assert.True(t, ValidClosureReason(reason))
	}
	assert.False(t, ValidClosureReason("GONE"))
	assert.False(t, ValidClosureReason(""))
}
