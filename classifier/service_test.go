package classifier

import (
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/neurolink/config"
	"github.com/lixenwraith/neurolink/mindwave"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestService_Disabled(t *testing.T) {
	cfg := config.Default()
	cfg.Classifier.Enabled = false

	headset := mindwave.NewService(discardLogger(), nil)
	svc := NewService(headset, discardLogger())
	require.NoError(t, svc.Init(cfg))
	require.NoError(t, svc.Start())
	assert.Nil(t, svc.Assessor())
	assert.Zero(t, headset.Events().Len())
	require.NoError(t, svc.Stop())
}

func TestService_SubscribesOnStart(t *testing.T) {
	cfg := config.Default()
	headset := mindwave.NewService(discardLogger(), nil)
	require.NoError(t, headset.Init(cfg))
	base := headset.Events().Len()

	svc := NewService(headset, discardLogger())
	assert.Equal(t, "assessor", svc.Name())
	assert.Equal(t, []string{"mindwave"}, svc.Dependencies())

	require.NoError(t, svc.Init(cfg))
	require.NotNil(t, svc.Assessor())

	require.NoError(t, svc.Start())
	assert.Equal(t, base+1, headset.Events().Len())

	// Records are ignored while the session is not connected
	headset.Events().EmitRecord(mindwave.Record{})
	_, _, ok := svc.Assessor().State()
	assert.False(t, ok)

	require.NoError(t, svc.Stop())
	assert.Equal(t, base, headset.Events().Len())
}

func TestService_BadParameters(t *testing.T) {
	cfg := config.Default()
	cfg.Classifier.Weights = []float64{1, 2}

	svc := NewService(mindwave.NewService(discardLogger(), nil), discardLogger())
	assert.Error(t, svc.Init(cfg))
	assert.Error(t, svc.Init())

	cfg = config.Default()
	cfg.Classifier.ScalerFile = "does-not-exist.json"
	assert.Error(t, svc.Init(cfg))
}
