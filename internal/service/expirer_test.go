package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestExpirerService_EvictsIdleModels(t *testing.T) {
	ctx := context.Background()
	models, _, snapshots, agentID := newMockedService(t)

	_, err := models.Observe(ctx, agentID, "door", "")
	assert.NoError(t, err)
	assert.Equal(t, 1, models.Loaded())

	exp := NewExpirerService(models, zap.NewNop())
	exp.SetTTL(time.Nanosecond)
	exp.run(ctx)

	assert.Equal(t, 0, models.Loaded())
	// The dirty model was checkpointed on its way out.
	snapshots.AssertCalled(t, "Save", mock.Anything, mock.AnythingOfType("*domain.Snapshot"))
}

func TestExpirerService_KeepsActiveModels(t *testing.T) {
	ctx := context.Background()
	models, _, _, agentID := newMockedService(t)

	_, err := models.Observe(ctx, agentID, "door", "")
	assert.NoError(t, err)

	exp := NewExpirerService(models, zap.NewNop())
	exp.SetTTL(time.Hour)
	exp.run(ctx)

	assert.Equal(t, 1, models.Loaded())
}

func TestExpirerService_StartStop(t *testing.T) {
	ctx := context.Background()
	models, _, _, agentID := newMockedService(t)

	_, err := models.Observe(ctx, agentID, "door", "")
	assert.NoError(t, err)

	exp := NewExpirerService(models, zap.NewNop())
	exp.SetInterval(10 * time.Millisecond)
	exp.SetTTL(time.Nanosecond)
	exp.Start()

	assert.Eventually(t, func() bool {
		return models.Loaded() == 0
	}, 2*time.Second, 10*time.Millisecond)

	exp.Stop()
}
