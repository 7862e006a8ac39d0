// SPDX-License-Identifier: GPL-2.0-or-later

package commandline

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"qvis/vis"
)

var (
	colorCyan  = lipgloss.Color("36")
	colorWhite = lipgloss.Color("255")
	colorGray  = lipgloss.Color("245")

	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleKey   = lipgloss.NewStyle().Foreground(colorGray).Width(14)
	styleValue = lipgloss.NewStyle().Foreground(colorWhite)
)

type table struct {
	sb strings.Builder
}

func (t *table) title(s string) {
	t.sb.WriteString(styleTitle.Render(s))
	t.sb.WriteByte('\n')
}

func (t *table) row(key, format string, args ...any) {
	t.sb.WriteString(styleKey.Render(key))
	t.sb.WriteByte(' ')
	t.sb.WriteString(styleValue.Render(fmt.Sprintf(format, args...)))
	t.sb.WriteByte('\n')
}

func (t *table) String() string {
	return strings.TrimSuffix(t.sb.String(), "\n")
}

func summary(input, output string, st vis.Stats) string {
	var t table
	t.title(input)
	t.row("leafs", "%d", st.Leafs)
	t.row("portals", "%d", st.Portals)
	t.row("mightsee", "%.1f", st.AvgMightSee)
	t.row("visible", "%.1f per portal, %.1f per leaf", st.AvgVisible, st.AvgLeafVisible)
	t.row("compressed", "%d of %d bytes", st.Compressed, st.Uncompressed)
	t.row("time", "%s base, %s flow, %s leafs",
		st.BaseTime.Round(time.Millisecond),
		st.FlowTime.Round(time.Millisecond),
		st.LeafTime.Round(time.Millisecond))
	t.row("output", "%s", output)
	return t.String()
}
