package indicator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCueSamplesPresent(t *testing.T) {
	for _, kind := range []cueKind{cueStart, cueStop, cueSkip, cueComplete} {
		require.NotEmpty(t, cuePCM[kind], kind.String())
	}
}

func TestSynthesizeCueIncludesGaps(t *testing.T) {
	tone := toneSpec{frequencyHz: 440, duration: 50 * time.Millisecond, volume: 0.2}
	got := synthesizeCue([]toneSpec{tone, tone})
	require.Len(t, got, 2*samplesForDuration(50*time.Millisecond)+samplesForDuration(22*time.Millisecond))
}

func TestSynthesizeToneDuration(t *testing.T) {
	got := synthesizeTone(toneSpec{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0.2})
	require.Len(t, got, samplesForDuration(100*time.Millisecond))
	require.Zero(t, got[0])
}

func TestSynthesizeToneInvalidSpecReturnsEmpty(t *testing.T) {
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 0, duration: 100 * time.Millisecond, volume: 0.2}))
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 440, duration: 0, volume: 0.2}))
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0}))
}

func TestSamplesForDuration(t *testing.T) {
	require.Equal(t, 0, samplesForDuration(0))
	require.Equal(t, 400, samplesForDuration(25*time.Millisecond))
}

func TestEmitCueRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, emitCue(ctx, cueStart), context.Canceled)
}
