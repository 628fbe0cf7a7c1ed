package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/paymentdispatch/intermediary/internal/model"
)

func TestChoosePrefersFastDefault(t *testing.T) {
	def := model.HealthSnapshot{Failing: false, MinResponseTime: 20 * time.Millisecond}
	fb := model.HealthSnapshot{Failing: false, MinResponseTime: 10 * time.Millisecond}
	assert.Equal(t, model.ProcessorDefault, choose(def, fb))
}

func TestChooseFallsBackWhenDefaultFailing(t *testing.T) {
	def := model.HealthSnapshot{Failing: true}
	fb := model.HealthSnapshot{Failing: false, MinResponseTime: 30 * time.Millisecond}
	assert.Equal(t, model.ProcessorFallback, choose(def, fb))
}

func TestChoosePrefersCheaperDefaultWhenNotSubstantiallySlower(t *testing.T) {
	def := model.HealthSnapshot{Failing: false, MinResponseTime: 150 * time.Millisecond}
	fb := model.HealthSnapshot{Failing: false, MinResponseTime: 100 * time.Millisecond}
	assert.Equal(t, model.ProcessorDefault, choose(def, fb))
}

func TestChooseSwitchesWhenDefaultDramaticallySlower(t *testing.T) {
	def := model.HealthSnapshot{Failing: false, MinResponseTime: 500 * time.Millisecond}
	fb := model.HealthSnapshot{Failing: false, MinResponseTime: 100 * time.Millisecond}
	assert.Equal(t, model.ProcessorFallback, choose(def, fb))
}

func TestChooseBothFailingTiesBreakToDefault(t *testing.T) {
	def := model.HealthSnapshot{Failing: true}
	fb := model.HealthSnapshot{Failing: true}
	assert.Equal(t, model.ProcessorDefault, choose(def, fb))
}
