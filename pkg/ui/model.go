// Package ui is a terminal browser for the pages of heap files. It reads
// pages straight from disk, so it shows committed state only.
package ui

import (
	"fmt"
	"heapstore/pkg/database"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/heap"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model represents the application state
type Model struct {
	database *database.Database
	pageView viewport.Model
	help     help.Model
	keys     keyMap

	tables   []string
	tableIdx int
	pages    []heap.PageSummary
	pageIdx  int
	page     *heap.HeapPage

	width    int
	height   int
	showHelp bool
	lastErr  error
	loadTime time.Duration
}

// NewModel starts on table, or on the first table when table is empty or unknown.
func NewModel(db *database.Database, table string) Model {
	vp := viewport.New(80, 20)
	vp.Style = pageStyle

	tables := db.Catalog().TableNames()
	idx := max(slices.Index(tables, table), 0)

	return Model{
		database: db,
		pageView: vp,
		help:     help.New(),
		keys:     keys,
		tables:   tables,
		tableIdx: idx,
	}
}

func (m Model) Init() tea.Cmd {
	return m.loadTable()
}

func (m Model) currentTable() string {
	if len(m.tables) == 0 {
		return ""
	}
	return m.tables[m.tableIdx]
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil

	case tableLoadedMsg:
		if msg.table != m.currentTable() {
			return m, nil
		}
		m.lastErr = msg.err
		m.pages = msg.pages
		m.loadTime = msg.duration
		m.pageIdx = min(m.pageIdx, max(len(m.pages)-1, 0))
		m.page = nil
		m.pageView.SetContent("")
		if msg.err == nil && len(m.pages) > 0 {
			return m, m.loadPage()
		}
		return m, nil

	case pageLoadedMsg:
		if msg.table != m.currentTable() || msg.pageIdx != m.pageIdx {
			return m, nil
		}
		m.lastErr = msg.err
		m.page = msg.page
		if msg.err == nil {
			m.pageView.SetContent(renderPage(msg.page, m.pages[m.pageIdx]))
			m.pageView.GotoTop()
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keys.NextTable):
			return m.selectTable(m.tableIdx + 1)

		case key.Matches(msg, m.keys.PrevTable):
			return m.selectTable(m.tableIdx - 1)

		case key.Matches(msg, m.keys.NextPage):
			return m.selectPage(m.pageIdx + 1)

		case key.Matches(msg, m.keys.PrevPage):
			return m.selectPage(m.pageIdx - 1)

		case key.Matches(msg, m.keys.FirstPage):
			return m.selectPage(0)

		case key.Matches(msg, m.keys.LastPage):
			return m.selectPage(len(m.pages) - 1)

		case key.Matches(msg, m.keys.Reload):
			return m, m.loadTable()
		}
	}

	var cmd tea.Cmd
	m.pageView, cmd = m.pageView.Update(msg)
	return m, cmd
}

func (m Model) selectTable(idx int) (tea.Model, tea.Cmd) {
	if len(m.tables) == 0 {
		return m, nil
	}
	m.tableIdx = (idx + len(m.tables)) % len(m.tables)
	m.pageIdx = 0
	m.pages = nil
	m.page = nil
	m.pageView.SetContent("")
	return m, m.loadTable()
}

func (m Model) selectPage(idx int) (tea.Model, tea.Cmd) {
	if idx < 0 || idx >= len(m.pages) || idx == m.pageIdx && m.page != nil {
		return m, nil
	}
	m.pageIdx = idx
	return m, m.loadPage()
}

func (m Model) View() string {
	sections := []string{m.renderHeader(), m.renderTabs()}

	switch {
	case m.lastErr != nil:
		sections = append(sections, errorStyle.Render(" ERROR ")+" "+m.lastErr.Error())
	case len(m.tables) == 0:
		sections = append(sections, mutedStyle.Render("no tables in catalog"))
	case len(m.pages) == 0:
		sections = append(sections, mutedStyle.Render("table has no pages on disk"))
	default:
		sections = append(sections, m.pageView.View())
	}

	sections = append(sections, m.renderStatusBar())
	if m.showHelp {
		sections = append(sections, m.help.FullHelpView([][]key.Binding{
			{m.keys.NextTable, m.keys.PrevTable, m.keys.Reload},
			{m.keys.NextPage, m.keys.PrevPage, m.keys.FirstPage, m.keys.LastPage},
			{m.keys.ScrollUp, m.keys.ScrollDown, m.keys.Help, m.keys.Quit},
		}))
	}
	return appStyle.Render(strings.Join(sections, "\n"))
}

func (m Model) renderHeader() string {
	info := m.database.GetInfo()
	title := titleStyle.Render("heapreader")
	badge := tableBadgeStyle.Render(info.DataDir)
	return lipgloss.JoinHorizontal(lipgloss.Left, title, "  ", badge)
}

func (m Model) renderTabs() string {
	tabs := make([]string, len(m.tables))
	for i, name := range m.tables {
		if i == m.tableIdx {
			tabs[i] = activeTabStyle.Render(name)
		} else {
			tabs[i] = tabStyle.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderStatusBar() string {
	pos := "page -/-"
	if len(m.pages) > 0 {
		pos = fmt.Sprintf("page %d/%d", m.pageIdx+1, len(m.pages))
	}
	used := 0
	for _, p := range m.pages {
		used += p.UsedSlots
	}
	content := fmt.Sprintf("%s | %d tuples | page size %d | loaded in %v | ? for help",
		pos, used, m.database.Config().PageSize, m.loadTime.Round(time.Microsecond))
	return statusBarStyle.Width(max(m.width-4, 0)).Render(content)
}

func (m *Model) updateLayout() {
	m.pageView.Width = max(m.width-6, 20)
	m.pageView.Height = max(m.height-10, 5)
}

type tableLoadedMsg struct {
	table    string
	pages    []heap.PageSummary
	err      error
	duration time.Duration
}

type pageLoadedMsg struct {
	table   string
	pageIdx int
	page    *heap.HeapPage
	err     error
}

func (m Model) loadTable() tea.Cmd {
	table := m.currentTable()
	if table == "" {
		return nil
	}
	db := m.database
	return func() tea.Msg {
		start := time.Now()
		pages, err := db.Inspect(table)
		return tableLoadedMsg{table: table, pages: pages, err: err, duration: time.Since(start)}
	}
}

func (m Model) loadPage() tea.Cmd {
	table, idx := m.currentTable(), m.pageIdx
	pageNo := m.pages[idx].PageNo
	db := m.database
	return func() tea.Msg {
		hf, err := db.HeapFile(table)
		if err != nil {
			return pageLoadedMsg{table: table, pageIdx: idx, err: err}
		}
		hp, err := hf.ReadHeapPage(primitives.NewPageID(hf.GetID(), pageNo))
		return pageLoadedMsg{table: table, pageIdx: idx, page: hp, err: err}
	}
}
