package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEligibilityRecordValidate(t *testing.T) {
	valid := EligibilityRecord{Status: EligibilityLikely, Score: 1.0}
	assert.NoError(t, valid.Validate())

	boundary := EligibilityRecord{Status: EligibilityUnlikely, Score: 0.0}
	assert.NoError(t, boundary.Validate())

	badStatus := EligibilityRecord{Status: "pending", Score: 0.5}
	assert.Error(t, badStatus.Validate())

	negative := EligibilityRecord{Status: EligibilityMaybe, Score: -0.1}
	assert.Error(t, negative.Validate())

	above := EligibilityRecord{Status: EligibilityMaybe, Score: 1.1}
	assert.Error(t, above.Validate())
}

func TestEligibilityStatusValid(t *testing.T) {
	for _, s := range []EligibilityStatus{EligibilityLikely, EligibilityMaybe, EligibilityUnlikely} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, EligibilityStatus("").Valid())
	assert.False(t, EligibilityStatus("eligible").Valid())
}
