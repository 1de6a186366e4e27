package tui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pulsemon/internal/models"
)

var metricTitles = map[string]string{
	models.CPUUsage:          "CPU",
	models.MemoryUsage:       "Memory",
	models.ResponseTime:      "Response time",
	models.Throughput:        "Throughput",
	models.ErrorRate:         "Error rate",
	models.ActiveConnections: "Connections",
}

var trendArrows = map[string]string{"up": "↑", "down": "↓", "stable": "→"}

const sparkChars = "▁▂▃▄▅▆▇█"

func (m Model) View() string {
	sections := []string{m.renderHeader(), m.renderCards(), m.renderSparklines(), m.renderAlerts(), m.renderFooter()}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	st := m.mon.Status()
	state := styleStopped.Render("STOPPED")
	if st.Running {
		state = styleRunning.Render("RUNNING")
	}
	line := fmt.Sprintf("pulsemon  %s  every %dms  samples %d/%d  alerts %d/%d",
		state, st.Settings.RefreshIntervalMs, st.Samples, st.Settings.MaxDataPoints, st.Alerts, st.Settings.MaxAlerts)
	if st.Current != nil && st.Current.Source != models.SourceRemote {
		line += "  source " + string(st.Current.Source)
	}
	return styleHeader.Render(line)
}

func (m Model) renderCards() string {
	cur, ok := m.mon.Current()
	th := m.mon.Thresholds()
	cards := make([]string, 0, len(models.MetricNames))
	for _, name := range models.MetricNames {
		value := "--"
		hot := false
		if ok {
			v := cur.Get(name)
			value = formatValue(name, v)
			if limit, set := th[name]; set && v > limit {
				hot = true
			}
		}
		body := styleLabel.Render(metricTitles[name]) + "\n" +
			styleValue.Render(value) + " " + trendArrows[m.mon.Trend(name)]
		if limit, set := th[name]; set {
			body += "\n" + styleLabel.Render("limit "+formatValue(name, limit))
		}
		style := styleCard
		if hot {
			style = styleCardHot
		}
		cards = append(cards, style.Render(body))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, cards[:3]...),
		lipgloss.JoinHorizontal(lipgloss.Top, cards[3:]...),
	)
}

func (m Model) renderSparklines() string {
	hist := m.mon.History()
	lines := []string{styleTitle.Render("History")}
	for _, name := range []string{models.CPUUsage, models.ResponseTime} {
		vals := make([]float64, 0, len(hist))
		for _, s := range hist {
			vals = append(vals, s.Get(name))
		}
		lines = append(lines, fmt.Sprintf("%-14s %s", metricTitles[name], styleSpark.Render(Sparkline(vals))))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderAlerts() string {
	items := m.mon.Alerts()
	lines := []string{styleTitle.Render(fmt.Sprintf("Alerts (%d)", len(items)))}
	if len(items) == 0 {
		lines = append(lines, styleLabel.Render("no alerts"))
	}
	for _, a := range items {
		sev := severityStyles[string(a.Severity)].Render(strings.ToUpper(string(a.Severity)))
		lines = append(lines, fmt.Sprintf("%s %-7s %s", a.Timestamp.Local().Format("15:04:05"), sev, a.Message))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	parts := make([]string, 0, len(keys.ShortHelp()))
	for _, b := range keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	line := strings.Join(parts, " | ")
	if m.status != "" {
		line += "\n" + m.status
	}
	if !m.lastEvent.IsZero() {
		line += "  updated " + m.lastEvent.Local().Format("15:04:05")
	}
	return styleFooter.Render(line)
}

func formatValue(metric string, v float64) string {
	if metric == models.ActiveConnections {
		return strconv.Itoa(int(math.Round(v)))
	}
	unit := models.MetricUnits[metric]
	if unit != "%" && unit != "" {
		unit = " " + unit
	}
	return strconv.FormatFloat(v, 'f', 1, 64) + unit
}

// Sparkline scales vals between their min and max onto block characters.
func Sparkline(vals []float64) string {
	if len(vals) == 0 {
		return ""
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	ticks := []rune(sparkChars)
	var b strings.Builder
	for _, v := range vals {
		i := 0
		if hi > lo {
			i = int(math.Round((v - lo) / (hi - lo) * float64(len(ticks)-1)))
		}
		b.WriteRune(ticks[i])
	}
	return b.String()
}
