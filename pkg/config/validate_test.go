package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateCronSchedule(t *testing.T) {
	valid := []string{"* * * * *", "*/5 * * * *", "0 */6 * * *", "30 9 * * 1-5", "15,45 */2 * * 1,3,5"}
	for _, schedule := range valid {
		assert.NoError(t, ValidateCronSchedule(schedule), schedule)
	}

	invalid := []string{"", "0 0", "0 0 * * * * *", "60 0 * * *", "0 24 * * *", "every minute"}
	for _, schedule := range invalid {
		err := ValidateCronSchedule(schedule)
		if assert.Error(t, err, schedule) {
			assert.Contains(t, err.Error(), "invalid cron schedule")
		}
	}
}

func TestValidateTimezone(t *testing.T) {
	assert.NoError(t, ValidateTimezone("UTC"))
	assert.NoError(t, ValidateTimezone("Europe/Berlin"))

	assert.ErrorContains(t, ValidateTimezone(""), "cannot be empty")
	assert.ErrorContains(t, ValidateTimezone("Mars/Olympus_Mons"), "invalid timezone")
}

func TestValidateIntRange(t *testing.T) {
	assert.NoError(t, ValidateIntRange(1, 1, 100))
	assert.NoError(t, ValidateIntRange(100, 1, 100))
	assert.ErrorContains(t, ValidateIntRange(0, 1, 100), "below minimum")
	assert.ErrorContains(t, ValidateIntRange(101, 1, 100), "exceeds maximum")
	assert.ErrorContains(t, ValidateIntRange(5, 10, 1), "invalid range")
}

func TestValidateDurations(t *testing.T) {
	assert.NoError(t, ValidatePositiveDuration(time.Millisecond))
	assert.Error(t, ValidatePositiveDuration(0))
	assert.Error(t, ValidatePositiveDuration(-time.Second))

	assert.NoError(t, ValidateNonNegativeDuration(0))
	assert.Error(t, ValidateNonNegativeDuration(-time.Nanosecond))

	assert.NoError(t, ValidateDurationRange(time.Minute, time.Second, time.Hour))
	assert.ErrorContains(t, ValidateDurationRange(time.Millisecond, time.Second, time.Hour), "below minimum")
	assert.ErrorContains(t, ValidateDurationRange(2*time.Hour, time.Second, time.Hour), "exceeds maximum")
	assert.ErrorContains(t, ValidateDurationRange(time.Minute, time.Hour, time.Second), "invalid range")
}
