package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/emperornerd/GhostWalk/internal/core/services/scheduler"
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	bandStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	frameStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model renders the live traffic metrics panel, the host-side stand-in
// for the firmware's little TFT.
type Model struct {
	snapshot func() scheduler.Snapshot
	snap     scheduler.Snapshot
}

func NewModel(snapshot func() scheduler.Snapshot) Model {
	return Model{snapshot: snapshot, snap: snapshot()}
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tickMsg:
		m.snap = m.snapshot()
		return m, tick()
	}
	return m, nil
}

func (m Model) View() string {
	s := m.snap

	ramLine := fmt.Sprintf("Free RAM: %d KB", s.FreeHeap/1024)
	ramStyled := okStyle.Render(ramLine)
	if s.LowMemory {
		ramStyled = warnStyle.Render(ramLine + " [LOW]")
	}

	total := s.Packets2G + s.Packets5G
	p2, p5 := 0, 0
	if total > 0 {
		p2 = int(s.Packets2G * 100 / total)
		p5 = int(s.Packets5G * 100 / total)
	}

	last := s.LastLearnedSSID
	if last == "" {
		last = "None"
	}
	if len(last) > 22 {
		last = last[:22] + "..."
	}

	radio := fmt.Sprintf("RADIO: 2.4GHz ch %d", s.Channel)
	if s.Is5GHz {
		radio = fmt.Sprintf("RADIO: 5GHz ch %d", s.Channel)
	}

	mesh := "quiet"
	if s.MeshDetected {
		mesh = "DETECTED"
	}

	up := int64(s.Uptime.Seconds())
	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("GHOST WALK"),
		headerStyle.Render("--- TRAFFIC METRICS ---"),
		ramStyled,
		okStyle.Render(fmt.Sprintf("Active: %d | Dormant: %d", s.Active, s.Dormant)),
		fmt.Sprintf("Total Packets: %d", s.TotalPackets),
		fmt.Sprintf("Noise/Junk: %d", s.JunkPackets),
		bandStyle.Render(fmt.Sprintf("Band: 2.4G[%d%%] 5G[%d%%]", p2, p5)),
		fmt.Sprintf("Found SSIDs: %d", s.LearnedSSIDs),
		dimStyle.Render("Last: "+last),
		fmt.Sprintf("Interactions: %d | Mesh: %s", s.Interactions, mesh),
		dimStyle.Render(fmt.Sprintf("Uptime: %02d:%02d:%02d", up/3600, (up%3600)/60, up%60)),
		bandStyle.Render(radio),
		dimStyle.Render("press q to quit"),
	)
	return frameStyle.Render(body)
}

// Run drives the panel until the user quits or ctx is done.
func Run(ctx context.Context, snapshot func() scheduler.Snapshot) error {
	p := tea.NewProgram(NewModel(snapshot))
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}
