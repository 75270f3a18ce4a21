package tenancy

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOfflineTenancy(t *testing.T) {
	landlordID := uuid.New()

	t.Run("creates offline tenancy", func(t *testing.T) {
		ten, err := NewOfflineTenancy(landlordID, "Ram Bahadur", 1000)
		require.NoError(t, err)

		assert.Equal(t, KindOffline, ten.Kind)
		assert.Equal(t, landlordID, ten.LandlordID)
		assert.Equal(t, "Ram Bahadur", ten.DisplayName())
		assert.Nil(t, ten.TenantUserID)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewOfflineTenancy(landlordID, "", 1000)
		assert.Error(t, err)
	})

	t.Run("rejects negative rent", func(t *testing.T) {
		_, err := NewOfflineTenancy(landlordID, "Ram", -1)
		assert.Error(t, err)
	})
}

func TestNewOnlineTenancy(t *testing.T) {
	landlordID := uuid.New()
	tenantUserID := uuid.New()

	t.Run("creates online tenancy", func(t *testing.T) {
		ten, err := NewOnlineTenancy(landlordID, tenantUserID, 1500)
		require.NoError(t, err)

		assert.Equal(t, KindOnline, ten.Kind)
		require.NotNil(t, ten.TenantUserID)
		assert.Equal(t, tenantUserID, *ten.TenantUserID)
	})

	t.Run("rejects empty tenant user", func(t *testing.T) {
		_, err := NewOnlineTenancy(landlordID, uuid.Nil, 1500)
		assert.Error(t, err)
	})
}

func TestTenancy_BillingReady(t *testing.T) {
	ten, err := NewOfflineTenancy(uuid.New(), "Ram", 1000)
	require.NoError(t, err)

	t.Run("missing meter rate", func(t *testing.T) {
		assert.Error(t, ten.BillingReady())
	})

	t.Run("ready once rate is set", func(t *testing.T) {
		ten.MeterRate = 10
		assert.NoError(t, ten.BillingReady())
	})

	t.Run("missing rent", func(t *testing.T) {
		ten.Rent = 0
		assert.Error(t, ten.BillingReady())
	})
}

func TestTenancy_IsActive(t *testing.T) {
	ten, err := NewOfflineTenancy(uuid.New(), "Ram", 1000)
	require.NoError(t, err)

	today := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("open ended tenancy is active", func(t *testing.T) {
		assert.True(t, ten.IsActive(today))
	})

	t.Run("ended tenancy is inactive", func(t *testing.T) {
		end := today.AddDate(0, 0, -1)
		ten.EndDate = &end
		assert.False(t, ten.IsActive(today))
	})

	t.Run("tenancy ending today is still active", func(t *testing.T) {
		ten.EndDate = &today
		assert.True(t, ten.IsActive(today))
	})
}

func TestTenancy_EffectiveStartDate(t *testing.T) {
	ten, err := NewOfflineTenancy(uuid.New(), "Ram", 1000)
	require.NoError(t, err)

	fallback := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, fallback, ten.EffectiveStartDate(fallback))

	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	ten.StartDate = &start
	assert.Equal(t, start, ten.EffectiveStartDate(fallback))
}

func TestKind_IsValid(t *testing.T) {
	assert.True(t, KindOnline.IsValid())
	assert.True(t, KindOffline.IsValid())
	assert.False(t, Kind("hybrid").IsValid())
}
