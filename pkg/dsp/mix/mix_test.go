package mix_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/justyntemme/vst3host/pkg/dsp/mix"
)

func TestDryWet(t *testing.T) {
	for _, tc := range []struct {
		name          string
		dry, wet, amt float32
		want          float32
	}{
		{"dry", 1, 0.5, 0, 1},
		{"wet", 1, 0.5, 1, 0.5},
		{"half", 1, 0.5, 0.5, 0.75},
		{"silent wet", 0.8, 0, 0.25, 0.6},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, mix.DryWet(tc.dry, tc.wet, tc.amt), 1e-6)
		})
	}
}
