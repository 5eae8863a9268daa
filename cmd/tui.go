// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/feigstat/pkg/feig"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Error log entry
type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for warnings
}

// Latest keepalive seen from the reader
type keepaliveStatus struct {
	timestamp time.Time
	comAdr    uint8
	status    uint8
	alarms    []string
}

const maxTagRows = 50

// TUI model
type model struct {
	connInfo      string
	statsInterval int
	showAll       bool
	started       time.Time
	stats         *feig.Statistics
	errorLog      []errorLogEntry
	maxLogEntries int
	tags          table.Model
	tagRows       []table.Row
	synchronized  bool
	skipped       uint64
	width         int
	height        int
	quitting      bool
	streamErr     error
	streamEnded   bool
	lastKeepalive *keepaliveStatus
}

// Messages
type tickMsg time.Time
type frameMsg struct {
	inspection inspection
	skipped    uint64
}
type syncMsg struct {
	skipped uint64
}
type streamEndMsg struct {
	err     error
	skipped uint64
}

// formatUptime formats a duration in milliseconds to human-friendly string
func formatUptime(ms uint64) string {
	if ms == 0 {
		return "0 seconds"
	}

	seconds := ms / 1000
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	plural := func(n uint64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func newTagTable() table.Model {
	columns := []table.Column{
		{Title: "Time", Width: 12},
		{Title: "Adr", Width: 3},
		{Title: "Transponder", Width: 14},
		{Title: "IDD", Width: 12},
		{Title: "Serial", Width: 32},
		{Title: "MAC", Width: 17},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(8),
		table.WithFocused(true),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(styles)

	return t
}

func initialModel(connInfo string, statsInterval int, showAll bool) model {
	return model{
		connInfo:      connInfo,
		statsInterval: statsInterval,
		showAll:       showAll,
		started:       time.Now(),
		stats:         feig.NewStatistics(),
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		tags:          newTagTable(),
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.tags, cmd = m.tags.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case syncMsg:
		m.synchronized = true
		m.stats.AddSkipped(msg.skipped - m.skipped)
		m.skipped = msg.skipped
		if msg.skipped > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d invalid bytes", msg.skipped), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}

	case frameMsg:
		m.recordFrame(msg)

	case streamEndMsg:
		m.stats.AddSkipped(msg.skipped - m.skipped)
		m.skipped = msg.skipped
		m.streamEnded = true
		m.streamErr = msg.err
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Stream stopped: %v", msg.err), true)
		} else {
			m.addLogEntry("Connection closed", false)
		}
	}

	return m, nil
}

// recordFrame updates statistics, the tag table and the event log
func (m *model) recordFrame(msg frameMsg) {
	in := msg.inspection
	m.stats.AddSkipped(msg.skipped - m.skipped)
	m.skipped = msg.skipped
	m.stats.Update(in.message, in.anomalies)

	kind := feig.FormatKind(in.message.Kind())

	switch v := in.message.(type) {
	case *feig.Data:
		m.addTagRows(in.received, v)
	case *feig.Keepalive:
		m.lastKeepalive = &keepaliveStatus{
			timestamp: in.received,
			comAdr:    v.ComAdr,
			status:    v.Status,
			alarms:    v.Alarms(),
		}
	}

	if len(in.anomalies) > 0 {
		for _, a := range in.anomalies {
			m.addLogEntry(fmt.Sprintf("%s: %s", kind, a.Message), a.Type != feig.AnomalyAlarm)
		}
	} else if m.showAll {
		m.addLogEntry(fmt.Sprintf("%s (valid)", kind), false)
	}
}

func (m *model) addTagRows(at time.Time, d *feig.Data) {
	// Newest first
	rows := make([]table.Row, 0, len(d.Tags)+len(m.tagRows))
	for i := len(d.Tags) - 1; i >= 0; i-- {
		t := d.Tags[i]
		rows = append(rows, table.Row{
			at.Format("15:04:05.000"),
			fmt.Sprintf("%d", d.ComAdr),
			t.TransponderType.String(),
			t.IDDType.String(),
			hex.EncodeToString(t.SerialNumber),
			t.MAC,
		})
	}
	rows = append(rows, m.tagRows...)
	if len(rows) > maxTagRows {
		rows = rows[:maxTagRows]
	}
	m.tagRows = rows
	m.tags.SetRows(rows)
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	// Keep only last N entries
	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	mode := "Errors only"
	if m.showAll {
		mode = "All frames"
	}

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("FEIGSTAT - ERROR DETECTION"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | Running: %s | Press 'q' to quit",
		m.connInfo, mode, formatUptime(uint64(time.Since(m.started).Milliseconds())))))
	s.WriteString("\n\n")

	// Sync status
	switch {
	case m.streamEnded:
		s.WriteString(errorStyle.Render("✗ Stream ended"))
		s.WriteString("\n\n")
	case !m.synchronized:
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
		s.WriteString("\n\n")
	default:
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
		if m.skipped > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (skipped %d invalid bytes)", m.skipped)))
		}
		s.WriteString("\n\n")
	}

	// Statistics
	m.stats.CalculateRates()
	var validPercent, errorPercent float64
	if m.stats.TotalFrames > 0 {
		validPercent = float64(m.stats.ValidFrames) * 100.0 / float64(m.stats.TotalFrames)
		errorPercent = float64(m.stats.ErrorCount()) * 100.0 / float64(m.stats.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.ValidFrames, validPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.ErrorCount(), errorPercent)),
	))

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Data:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.DataFrames)),
		statsLabelStyle.Render("Keepalive:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.KeepaliveFrames)),
		statsLabelStyle.Render("Tags:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TagReads)),
	))

	if m.stats.CRCErrors > 0 || m.stats.GenericFrames > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("CRC Errors:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.CRCErrors)),
			statsLabelStyle.Render("Unrecognized:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.GenericFrames)),
		))
	}

	if m.stats.LengthMismatches > 0 || m.stats.RecordLengths > 0 || m.stats.UnknownTypes > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s (%s: %d, %s: %d, %s: %d)\n",
			statsLabelStyle.Render("Malformed:"),
			errorStyle.Render(fmt.Sprintf("%d", m.stats.LengthMismatches+m.stats.RecordLengths+m.stats.UnknownTypes)),
			headerStyle.Render("length"), m.stats.LengthMismatches,
			headerStyle.Render("record length"), m.stats.RecordLengths,
			headerStyle.Render("unknown types"), m.stats.UnknownTypes,
		))
	}

	if m.stats.Alarms > 0 || m.stats.StatusErrors > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Alarms:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.Alarms)),
			statsLabelStyle.Render("Status Errors:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.StatusErrors)),
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", m.stats.FrameRate)),
		statsLabelStyle.Render("Tag Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f tags/s", m.stats.TagRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if m.stats.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Reader section (only shown once a keepalive arrived)
	if k := m.lastKeepalive; k != nil {
		s.WriteString(statsLabelStyle.Render("Reader:"))
		s.WriteString("\n")

		alarms := statsValueStyle.Render("none")
		if len(k.alarms) > 0 {
			alarms = errorStyle.Render(strings.Join(k.alarms, ", "))
		}
		readerContent := fmt.Sprintf("%s %d   %s %s   %s %s ago\n%s %s",
			statsLabelStyle.Render("Address:"), k.comAdr,
			statsLabelStyle.Render("Status:"), statsValueStyle.Render(feig.FormatStatus(k.status)),
			statsLabelStyle.Render("Last keepalive:"), formatUptime(uint64(time.Since(k.timestamp).Milliseconds())),
			statsLabelStyle.Render("Alarms:"), alarms,
		)

		s.WriteString(boxStyle.Render(readerContent))
		s.WriteString("\n\n")
	}

	// Recent tags
	s.WriteString(statsLabelStyle.Render("Recent Tags:"))
	s.WriteString("\n")
	if len(m.tagRows) == 0 {
		s.WriteString(boxStyle.Render(headerStyle.Render("(no tags yet)")))
	} else {
		s.WriteString(boxStyle.Render(m.tags.View()))
	}
	s.WriteString("\n\n")

	// Error log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	// Reserve space for header, stats and tag table
	logHeight := m.height - 30
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.errorLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.errorLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			entry := m.errorLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	width := m.width - 4
	if width < 20 {
		width = 20
	}
	s.WriteString(boxStyle.Width(width).Render(logContent.String()))

	return s.String()
}
