package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/yitech/harbinger/oracle"
)

var (
	upStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#26a641"))
	downStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e05c5c"))
	axisStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#555555"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#aaaaaa"))
	selStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e0c05c"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#e05c5c"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#555555"))
)

type snapshotMsg snapshot

// point is one signed midpoint price.
type point struct {
	timestamp int64
	price     float64
}

type model struct {
	info    *oracle.Info
	nPoints int
	ch      <-chan snapshot

	selected int
	history  map[string][]point
	last     *oracle.Response
	lastAt   time.Time
	err      error
	width    int
	height   int
}

func newModel(info *oracle.Info, nPoints int, ch <-chan snapshot) model {
	return model{
		info:    info,
		nPoints: nPoints,
		ch:      ch,
		history: make(map[string][]point),
	}
}

func (m model) Init() tea.Cmd {
	return waitForSnapshot(m.ch)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "right", "l":
			if n := len(m.info.AssetNames); n > 0 {
				m.selected = (m.selected + 1) % n
			}
		case "shift+tab", "left", "h":
			if n := len(m.info.AssetNames); n > 0 {
				m.selected = (m.selected + n - 1) % n
			}
		}

	case snapshotMsg:
		m.lastAt = msg.at
		m.err = msg.err
		if msg.err == nil {
			m.last = msg.resp
			m.record(msg.resp)
		}
		return m, waitForSnapshot(m.ch)
	}

	return m, nil
}

func (m model) View() string {
	if m.width == 0 {
		return "connecting…"
	}
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteByte('\n')
	b.WriteString(m.renderChart())
	b.WriteString(m.renderTable())
	b.WriteString(footerStyle.Render("[tab/←/→] asset  [q] quit"))
	return b.String()
}

func waitForSnapshot(ch <-chan snapshot) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(<-ch)
	}
}

// record appends each asset's price, replacing the last point when the
// candle timestamp has not moved.
func (m *model) record(resp *oracle.Response) {
	for asset, s := range resp.Prices {
		d, err := decimal.NewFromString(s)
		if err != nil {
			continue
		}
		p := point{timestamp: resp.Timestamp, price: d.InexactFloat64()}
		pts := m.history[asset]
		if n := len(pts); n > 0 && pts[n-1].timestamp == p.timestamp {
			pts[n-1] = p
		} else {
			pts = append(pts, p)
			if len(pts) > m.nPoints {
				pts = pts[len(pts)-m.nPoints:]
			}
		}
		m.history[asset] = pts
	}
}

func (m model) asset() string {
	if len(m.info.AssetNames) == 0 {
		return ""
	}
	return m.info.AssetNames[m.selected]
}

func (m model) renderHeader() string {
	line := fmt.Sprintf("%s  feed:%s  key:%s", m.asset(), m.info.DataFeed, shorten(m.info.PublicKey, 20))
	if m.last != nil && m.last.Timestamp > 0 {
		line += "  candle:" + time.Unix(m.last.Timestamp, 0).UTC().Format("15:04:05")
	}
	if !m.lastAt.IsZero() {
		line += "  polled:" + m.lastAt.Format("15:04:05")
	}
	out := headerStyle.Render(line)
	if m.err != nil {
		out += "\n" + errStyle.Render("error: "+m.err.Error())
	}
	return out
}

const yAxisWidth = 13 // "  12345.6789 │"

func (m model) renderChart() string {
	// Reserve: header, x-axis, one table row per asset plus its header, footer.
	chartH := m.height - 5 - len(m.info.AssetNames)
	if chartH < 3 {
		chartH = 3
	}

	pts := m.history[m.asset()]
	maxCols := m.width - yAxisWidth
	if maxCols < 1 {
		maxCols = 1
	}
	if len(pts) > maxCols {
		pts = pts[len(pts)-maxCols:]
	}

	hi, lo := priceRange(pts)
	if hi == lo {
		hi = lo + 1
	}

	grid := make([][]string, chartH)
	for r := range grid {
		grid[r] = make([]string, len(pts))
		for c := range grid[r] {
			grid[r][c] = " "
		}
	}
	for i, p := range pts {
		style := upStyle
		if i > 0 && p.price < pts[i-1].price {
			style = downStyle
		}
		grid[priceToRow(p.price, float64(chartH), hi, lo)][i] = style.Render("●")
	}

	var b strings.Builder
	for row := 0; row < chartH; row++ {
		label := fmt.Sprintf("%11.4f │", rowToPrice(row, chartH, hi, lo))
		b.WriteString(axisStyle.Render(label))
		b.WriteString(strings.Join(grid[row], ""))
		b.WriteByte('\n')
	}
	b.WriteString(axisStyle.Render(strings.Repeat("─", yAxisWidth+len(pts))))
	b.WriteByte('\n')
	return b.String()
}

func (m model) renderTable() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-12s %16s  %s", "ASSET", "PRICE", "SIGNATURE")))
	b.WriteByte('\n')

	sigs := make(map[string]string)
	if m.last != nil {
		// Signatures are aligned with messages, which follow the asset list
		// minus any asset whose candle could not be fetched.
		i := 0
		for _, a := range m.info.AssetNames {
			if _, ok := m.last.Prices[a]; ok && i < len(m.last.Signatures) {
				sigs[a] = m.last.Signatures[i]
				i++
			}
		}
	}

	for i, a := range m.info.AssetNames {
		price := "-"
		if m.last != nil {
			if p, ok := m.last.Prices[a]; ok {
				price = p
			}
		}
		row := fmt.Sprintf("%-12s %16s  %s", a, price, shorten(sigs[a], m.width-32))
		if i == m.selected {
			row = selStyle.Render(row)
		}
		b.WriteString(row)
		b.WriteByte('\n')
	}
	return b.String()
}

func shorten(s string, n int) string {
	if n < 4 || len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

// priceToRow converts a price to a grid row (0 = top = high).
func priceToRow(price, chartH float64, hi, lo float64) int {
	if hi == lo {
		return int(chartH) / 2
	}
	r := int(math.Round((hi - price) / (hi - lo) * (chartH - 1)))
	return min(max(r, 0), int(chartH)-1)
}

// rowToPrice is the inverse of priceToRow.
func rowToPrice(row, chartH int, hi, lo float64) float64 {
	if chartH <= 1 {
		return hi
	}
	return hi - float64(row)/float64(chartH-1)*(hi-lo)
}

func priceRange(pts []point) (hi, lo float64) {
	if len(pts) == 0 {
		return 0, 0
	}
	hi, lo = pts[0].price, pts[0].price
	for _, p := range pts[1:] {
		hi = math.Max(hi, p.price)
		lo = math.Min(lo, p.price)
	}
	return hi, lo
}
