package host

import (
	"github.com/justyntemme/vst3host/pkg/hosterr"
	"github.com/justyntemme/vst3host/pkg/midi"
)

// ProcessAudio renders one block. inputs may be nil for silence. The first
// non-empty block after Initialize starts processing; a zero-sample call
// only validates its arguments.
//
// The call never blocks: if a control operation holds the instance it fails
// with a retryable busy error. Errors are shared sentinels; on failure the
// output buffers are undefined.
func (i *Instance) ProcessAudio(inputs, outputs [][]float32, numChannels, numSamples int32) (bool, error) {
	if !i.ctrl.TryLock() {
		return false, i.busy()
	}
	defer i.ctrl.Unlock()

	switch i.State() {
	case StateReleased:
		return false, hosterr.ErrDisposed
	case StateCreated, StateLoaded:
		return false, hosterr.ErrNotInitialized
	case StateInitialized:
		if numSamples == 0 {
			break
		}
		if err := i.start(); err != nil {
			return false, hosterr.ErrPluginRejected
		}
	}

	if err := i.eng.Load().Process(inputs, outputs, numChannels, numSamples); err != nil {
		return false, err
	}
	return true, nil
}

// ProcessMidi queues events for the next block. An empty batch is a no-op
// that reports false. A batch is validated as a whole: on any error nothing
// is queued.
func (i *Instance) ProcessMidi(events []midi.Event) (bool, error) {
	if !i.ctrl.TryLock() {
		return false, i.busy()
	}
	defer i.ctrl.Unlock()

	s := i.State()
	if s == StateReleased {
		return false, hosterr.ErrDisposed
	}
	if len(events) == 0 {
		return false, nil
	}
	if s < StateInitialized {
		return false, hosterr.ErrNotInitialized
	}

	if err := i.eng.Load().QueueMidi(events); err != nil {
		return false, err
	}
	return true, nil
}

func (i *Instance) busy() error {
	if i.State() == StateReleased {
		return hosterr.ErrDisposed
	}
	if eng := i.eng.Load(); eng != nil {
		eng.NoteBusy()
	}
	return hosterr.ErrBusy
}
