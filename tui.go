package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUI message types
type RecordingStartMsg struct{ Mode string }
type RecordingStopMsg struct{}
type RecordingTickMsg struct{ Duration float64 }
type AudioLevelMsg struct{ Level float64 }
type NoVoiceMsg struct{ Active bool }
type LogMsg struct{ Text string }
type TranscriptionMsg struct {
	Text     string
	RTF      float64
	NoSpeech bool // true when no speech was detected
}
type ModeLineMsg struct{ Text string }   // mode and engine info
type DeviceLineMsg struct{ Text string } // microphone device name
type ErrorMsg struct{ Text string }
type tickMsg time.Time

type tuiState int

const (
	tuiStateIdle tuiState = iota
	tuiStateRecording
)

type tuiModel struct {
	state             tuiState
	frame             int
	recordingDuration float64
	audioLevel        float64
	peakLevel         float64 // peak audio level during current recording
	noVoice           bool
	msgCount          int
	width, height     int
	modeLine          string // "[continuous | whisper-server]"
	deviceLine        string // microphone device name
	errLine           string
	lastText          string // last transcribed text
	lastRTF           float64
	noSpeech          bool // last transcription had no speech
	logs              []string
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

func NewTUIProgram() *tea.Program {
	m := tuiModel{}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case RecordingStartMsg:
		m.state = tuiStateRecording
		m.recordingDuration = 0
		m.audioLevel = 0
		m.peakLevel = 0
		m.noVoice = false
		m.errLine = ""

	case RecordingStopMsg:
		m.state = tuiStateIdle
		m.audioLevel = 0
		m.noVoice = false

	case RecordingTickMsg:
		m.recordingDuration = msg.Duration

	case AudioLevelMsg:
		if m.state == tuiStateRecording {
			m.audioLevel = m.audioLevel*0.6 + msg.Level*0.4
			if msg.Level > m.peakLevel {
				m.peakLevel = msg.Level
			}
		}

	case NoVoiceMsg:
		m.noVoice = msg.Active

	case LogMsg:
		m.logs = append(m.logs, msg.Text)
		if len(m.logs) > 8 {
			m.logs = m.logs[len(m.logs)-8:]
		}

	case TranscriptionMsg:
		if !msg.NoSpeech {
			m.msgCount++
			m.lastText = msg.Text
			m.lastRTF = msg.RTF
		}
		m.noSpeech = msg.NoSpeech

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text

	case ErrorMsg:
		m.errLine = msg.Text
	}
	return m, nil
}

var (
	recStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	faintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	textStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	meterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	meterHot    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	meterLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var lines []string

	if m.state == tuiStateRecording {
		dot := "●"
		if m.frame%8 >= 4 {
			dot = "○"
		}
		lines = append(lines, recStyle.Render(fmt.Sprintf("%s REC %.1fs", dot, m.recordingDuration)))
		lines = append(lines, renderLevelMeter(m.audioLevel, m.width-4))
		if m.noVoice {
			lines = append(lines, warnStyle.Render("⚠ no voice detected"))
		}
	} else {
		lines = append(lines, idleStyle.Render("○ STANDBY"))
		lines = append(lines, "")
	}

	if m.modeLine != "" {
		lines = append(lines, dimStyle.Render(m.modeLine))
	}
	if m.deviceLine != "" {
		lines = append(lines, idleStyle.Render(m.deviceLine))
	}
	if m.errLine != "" {
		lines = append(lines, errStyle.Render("✗ "+m.errLine))
	}
	lines = append(lines, "")

	wrapWidth := m.width - 4
	if wrapWidth < 10 {
		wrapWidth = 10
	}
	if m.lastText != "" {
		lines = append(lines, titleStyle.Render(fmt.Sprintf("Last transcription (#%d)", m.msgCount)))
		for _, l := range wrapText(m.lastText, wrapWidth) {
			lines = append(lines, textStyle.Render(l))
		}
		if m.lastRTF > 0 {
			lines = append(lines, faintStyle.Render(fmt.Sprintf("rtf %.2fx", m.lastRTF)))
		}
	} else if m.noSpeech {
		lines = append(lines, warnStyle.Render("(no speech detected)"))
	} else {
		lines = append(lines, idleStyle.Render("No transcriptions yet"))
	}
	lines = append(lines, "")

	for _, l := range m.logs {
		lines = append(lines, faintStyle.Render(l))
	}
	lines = append(lines, "")
	lines = append(lines, faintStyle.Bold(true).Render(hotkeyLabel)+faintStyle.Render(" to dictate, q to quit"))
	lines = append(lines, faintStyle.Render("murmur "+version))

	body := strings.Join(lines, "\n")
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Padding(1, 2).
		Render(body)
}

// renderLevelMeter draws a horizontal bar for the smoothed input level.
func renderLevelMeter(level float64, width int) string {
	if width < 10 {
		width = 10
	}
	if width > 40 {
		width = 40
	}
	lit := int(level * float64(width) * 4) // quiet speech still registers
	if lit > width {
		lit = width
	}
	var b strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i >= lit:
			b.WriteString(meterLow.Render("─"))
		case i > width*3/4:
			b.WriteString(meterHot.Render("█"))
		default:
			b.WriteString(meterStyle.Render("█"))
		}
	}
	return b.String()
}

// hotkeyLabel is set from the configured shortcut before the TUI starts.
var hotkeyLabel = "F16"

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func logToTUI(format string, args ...interface{}) {
	tuiSend(LogMsg{Text: fmt.Sprintf(format, args...)})
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}

// tuiSink forwards pipeline status events to the running TUI program.
type tuiSink struct{}

func (tuiSink) RecordingStart(mode string)  { tuiSend(RecordingStartMsg{Mode: mode}) }
func (tuiSink) RecordingStop()              { tuiSend(RecordingStopMsg{}) }
func (tuiSink) RecordingTick(d float64)     { tuiSend(RecordingTickMsg{Duration: d}) }
func (tuiSink) AudioLevel(level float64)    { tuiSend(AudioLevelMsg{Level: level}) }
func (tuiSink) NoVoiceWarning(active bool)  { tuiSend(NoVoiceMsg{Active: active}) }
func (tuiSink) ModeLine(text string)        { tuiSend(ModeLineMsg{Text: text}) }
func (tuiSink) DeviceLine(text string)      { tuiSend(DeviceLineMsg{Text: text}) }
func (tuiSink) EngineError(msg string)      { tuiSend(ErrorMsg{Text: msg}) }
func (tuiSink) Transcription(text string, rtf float64, noSpeech bool) {
	tuiSend(TranscriptionMsg{Text: text, RTF: rtf, NoSpeech: noSpeech})
}
