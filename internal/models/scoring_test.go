package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectBestBackup_PicksHighestComposite(t *testing.T) {
	members := []Member{
		{ID: "active", IsActive: true, IsBackup: false},
		{ID: "weak-backup", IsBackup: true, Domain: DomainGeneral, ExpertiseLevel: 0.4, Weight: 1.0},
		{ID: "strong-backup", IsBackup: true, Domain: DomainSecurity, ExpertiseLevel: 0.9, Weight: 1.2},
		{ID: "already-active-backup", IsBackup: true, IsActive: true, Domain: DomainSecurity, ExpertiseLevel: 1.0},
	}

	idx := SelectBestBackup(members, DomainSecurity)

	assert.Equal(t, "strong-backup", members[idx].ID)
}

func TestSelectBestBackup_NoneEligible(t *testing.T) {
	members := []Member{
		{ID: "m1", IsActive: true},
		{ID: "m2", IsBackup: true, IsActive: true},
	}

	assert.Equal(t, -1, SelectBestBackup(members, DomainGeneral))
}

func TestCompositeScore_DomainMatchOutranksGenericExpertise(t *testing.T) {
	matched := Member{Domain: DomainSecurity, ExpertiseLevel: 0.6, Weight: 1.0}
	mismatched := Member{Domain: DomainCode, ExpertiseLevel: 0.6, Weight: 1.0}

	assert.Greater(t, CompositeScore(matched, DomainSecurity), CompositeScore(mismatched, DomainSecurity))
}
