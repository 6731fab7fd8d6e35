package repository

import (
	"fmt"
	"testing"

	"pushboard-backend/internal/dispatch/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeliveryLog_NewestFirst(t *testing.T) {
	repo := NewMemoryDeliveryLog(10)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Save(&domain.DeliveryRecord{EndpointHost: fmt.Sprintf("host-%d", i), StatusCode: 201}))
	}

	records, err := repo.Recent(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "host-2", records[0].EndpointHost)
	assert.Equal(t, "host-1", records[1].EndpointHost)
	assert.NotEmpty(t, records[0].ID)
	assert.False(t, records[0].CreatedAt.IsZero())
}

func TestMemoryDeliveryLog_Bounded(t *testing.T) {
	repo := NewMemoryDeliveryLog(2)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Save(&domain.DeliveryRecord{EndpointHost: fmt.Sprintf("host-%d", i)}))
	}

	records, err := repo.Recent(0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "host-4", records[0].EndpointHost)
	assert.Equal(t, "host-3", records[1].EndpointHost)
}
