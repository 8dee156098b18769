package main

// StatusSink abstracts the display layer so the terminal UI and the
// tray receive the same session events.
type StatusSink interface {
	RecordingStart(mode string)
	RecordingStop()
	RecordingTick(duration float64)
	AudioLevel(level float64)
	NoVoiceWarning(active bool)
	Transcription(text string, rtf float64, noSpeech bool)
	ModeLine(text string)
	DeviceLine(text string)
	EngineError(msg string)
}

// multiSink fans every event out to all members.
type multiSink []StatusSink

func (m multiSink) RecordingStart(mode string) {
	for _, s := range m {
		s.RecordingStart(mode)
	}
}

func (m multiSink) RecordingStop() {
	for _, s := range m {
		s.RecordingStop()
	}
}

func (m multiSink) RecordingTick(duration float64) {
	for _, s := range m {
		s.RecordingTick(duration)
	}
}

func (m multiSink) AudioLevel(level float64) {
	for _, s := range m {
		s.AudioLevel(level)
	}
}

func (m multiSink) NoVoiceWarning(active bool) {
	for _, s := range m {
		s.NoVoiceWarning(active)
	}
}

func (m multiSink) Transcription(text string, rtf float64, noSpeech bool) {
	for _, s := range m {
		s.Transcription(text, rtf, noSpeech)
	}
}

func (m multiSink) ModeLine(text string) {
	for _, s := range m {
		s.ModeLine(text)
	}
}

func (m multiSink) DeviceLine(text string) {
	for _, s := range m {
		s.DeviceLine(text)
	}
}

func (m multiSink) EngineError(msg string) {
	for _, s := range m {
		s.EngineError(msg)
	}
}

// nopSink discards all events. Used when running headless.
type nopSink struct{}

func (nopSink) RecordingStart(string)                 {}
func (nopSink) RecordingStop()                        {}
func (nopSink) RecordingTick(float64)                 {}
func (nopSink) AudioLevel(float64)                    {}
func (nopSink) NoVoiceWarning(bool)                   {}
func (nopSink) Transcription(string, float64, bool)   {}
func (nopSink) ModeLine(string)                       {}
func (nopSink) DeviceLine(string)                     {}
func (nopSink) EngineError(string)                    {}
