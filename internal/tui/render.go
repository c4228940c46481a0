package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const meterWidth = 20

var (
	garbageColor = "245"

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("15")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("15"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("51"))

	readyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46"))

	notReadyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// RoomView is everything RenderRoom needs.
type RoomView struct {
	RoomID    string
	Player    int
	Occupants int
	Started   bool
	Incoming  int
	Received  int
	Sent      int
	Events    []string
}

func RenderRoomEntry(input, status string) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("G O T R I S   V E R S U S"))
	sb.WriteString("\n\n")
	sb.WriteString("Room code: ")
	sb.WriteString(panelStyle.Render(fmt.Sprintf("%-24s", input+"_")))
	sb.WriteString("\n\n")
	if status != "" {
		sb.WriteString(warnStyle.Render(status))
		sb.WriteString("\n\n")
	}
	sb.WriteString(dimStyle.Render("ENTER join • ESC quit"))
	return sb.String()
}

func RenderRoom(v RoomView) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("ROOM " + v.RoomID))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("You are player %d\n", v.Player))
	sb.WriteString(fmt.Sprintf("Players: %d/2  ", v.Occupants))
	if v.Started {
		sb.WriteString(readyStyle.Render("● MATCH ON"))
	} else {
		sb.WriteString(notReadyStyle.Render("○ waiting for opponent"))
	}
	sb.WriteString("\n\n")

	stats := fmt.Sprintf("Incoming %s %d\nReceived %d  Sent %d",
		RenderGarbageMeter(v.Incoming, meterWidth), v.Incoming, v.Received, v.Sent)
	sb.WriteString(infoStyle.Render(stats))
	sb.WriteString("\n\n")

	if len(v.Events) > 0 {
		sb.WriteString(panelStyle.Render(strings.Join(v.Events, "\n")))
		sb.WriteString("\n\n")
	}

	if v.Started {
		sb.WriteString(dimStyle.Render("1-4 send lines • f flush • l leave • q quit"))
	} else {
		sb.WriteString(dimStyle.Render("l leave • q quit"))
	}
	return sb.String()
}

// RenderGarbageMeter draws pending garbage as a bar, clipped to width cells.
func RenderGarbageMeter(lines, width int) string {
	filled := min(max(lines, 0), width)
	bar := lipgloss.NewStyle().
		Foreground(lipgloss.Color(garbageColor)).
		Render(strings.Repeat("█", filled))
	return "[" + bar + strings.Repeat("·", width-filled) + "]"
}
