package probe

import (
	"context"
	"sync"
)

// ScriptedProber replays a scripted sequence of probe outcomes. Once the
// script runs out, the last step repeats. It exists so hysteresis and
// debounce logic can be tested without a network.
type ScriptedProber struct {
	mu    sync.Mutex
	steps []ScriptedStep
	index int
}

// ScriptedStep is one check cycle's worth of outcomes.
type ScriptedStep struct {
	Network Result
	Service Result
}

// NewScriptedProber creates a prober that replays the given steps in order.
func NewScriptedProber(steps ...ScriptedStep) *ScriptedProber {
	return &ScriptedProber{steps: steps}
}

// Append adds further steps to the script.
func (p *ScriptedProber) Append(steps ...ScriptedStep) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, steps...)
}

// CheckNetwork returns the current step's network outcome.
func (p *ScriptedProber) CheckNetwork(ctx context.Context) Result {
	return p.current().Network
}

// CheckService returns the current step's service outcome and advances the
// script. The detector always probes the network first, so advancing here
// keeps one step per check cycle.
func (p *ScriptedProber) CheckService(ctx context.Context) Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	step := p.step()
	if p.index < len(p.steps)-1 {
		p.index++
	}
	return step.Service
}

func (p *ScriptedProber) current() ScriptedStep {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.step()
}

func (p *ScriptedProber) step() ScriptedStep {
	if len(p.steps) == 0 {
		return ScriptedStep{}
	}
	return p.steps[p.index]
}
