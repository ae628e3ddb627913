package hosterr

// Realtime sentinels. These are shared values: never call With* on them.
var (
	ErrNotInitialized = InvalidState("process", "not initialized")
	ErrDisposed       = Disposed("process")
	ErrInvalidHandle  = InvalidHandle("instance")

	ErrNegativeSamples  = InvalidArgument("numSamples", "Sample count must not be negative")
	ErrBlockTooLarge    = InvalidArgument("numSamples", "Sample count exceeds the negotiated maximum block size")
	ErrTooManyChannels  = InvalidArgument("numChannels", "Channel count exceeds the negotiated bus layout")
	ErrNegativeChannels = InvalidArgument("numChannels", "Channel count must not be negative")
	ErrShortOutputs     = InvalidArgument("outputs", "Fewer output channels than numChannels")
	ErrShortInputs      = InvalidArgument("inputs", "Fewer input channels than numChannels")
	ErrShortBuffer      = InvalidArgument("buffer", "Channel buffer shorter than numSamples")
	ErrAliasedBuffers   = InvalidArgument("buffer", "Input and output buffers share memory")
	ErrUnorderedMidi    = InvalidArgument("events", "MIDI events are not in ascending sample-offset order")
	ErrMidiOffset       = InvalidArgument("events", "MIDI sample offset outside the block")
	ErrMidiStatus       = InvalidArgument("events", "Unsupported MIDI status byte")
	ErrMidiData         = InvalidArgument("events", "MIDI data byte out of range")
	ErrBusy             = ProcessingFailure("Instance busy with a control operation", nil)
	ErrQueueFull        = ProcessingFailure("MIDI event queue is full", nil)
	ErrPluginRejected   = ProcessingFailure("Plugin rejected the process call", nil)
	ErrPluginPanic      = ProcessingFailure("Plugin panicked during processing", nil)
)
