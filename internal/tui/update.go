package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case formsLoadedMsg:
		m.loading = false
		m.err = nil
		m.forms = m.markChanges(msg.forms)
		if m.selected >= len(m.forms) {
			m.selected = max(len(m.forms)-1, 0)
		}
		if m.current != nil {
			for i := range m.forms {
				if m.forms[i].Form.ID == m.current.Form.ID {
					m.current = &m.forms[i]
					break
				}
			}
		}
		return m, nil

	case submissionsLoadedMsg:
		if m.current == nil || m.current.Form.ID != msg.formID {
			return m, nil
		}
		m.loading = false
		m.err = nil
		m.submissions = msg.submissions
		m.current.DataETag = msg.dataETag
		return m, nil

	case errorMsg:
		m.loading = false
		m.err = msg.err
		return m, nil

	case tickMsg:
		if m.view == ViewFormDetail && m.current != nil {
			return m, tea.Batch(m.loadForms(), m.loadSubmissions(m.current.Form.ID), m.tickCmd())
		}
		return m, tea.Batch(m.loadForms(), m.tickCmd())
	}

	return m, nil
}

// markChanges 对比上一轮的标签；首次出现的表单不算变化。
func (m Model) markChanges(rows []FormRow) []FormRow {
	for i := range rows {
		id := rows[i].Form.ID
		tag := rows[i].ETag + rows[i].DataETag
		if prev, ok := m.lastTags[id]; ok && prev != tag {
			rows[i].Changed = true
		}
		m.lastTags[id] = tag
	}
	return rows
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		return m.handleUp()

	case key.Matches(msg, m.keys.Down):
		return m.handleDown()

	case key.Matches(msg, m.keys.Enter):
		return m.handleEnter()

	case key.Matches(msg, m.keys.Back):
		return m.handleBack()

	case key.Matches(msg, m.keys.Refresh):
		return m.handleRefresh()
	}

	return m, nil
}

func (m Model) handleUp() (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewFormList:
		if len(m.forms) > 0 {
			m.selected--
			if m.selected < 0 {
				m.selected = len(m.forms) - 1
			}
		}
	case ViewFormDetail:
		if m.scroll > 0 {
			m.scroll--
		}
	}
	return m, nil
}

func (m Model) handleDown() (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewFormList:
		if len(m.forms) > 0 {
			m.selected++
			if m.selected >= len(m.forms) {
				m.selected = 0
			}
		}
	case ViewFormDetail:
		if m.scroll < len(m.submissions)-1 {
			m.scroll++
		}
	}
	return m, nil
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	if m.view != ViewFormList || len(m.forms) == 0 {
		return m, nil
	}
	m.current = &m.forms[m.selected]
	m.view = ViewFormDetail
	m.submissions = nil
	m.scroll = 0
	m.loading = true
	return m, m.loadSubmissions(m.current.Form.ID)
}

func (m Model) handleBack() (tea.Model, tea.Cmd) {
	if m.view == ViewFormDetail {
		m.view = ViewFormList
		m.current = nil
		m.submissions = nil
		m.scroll = 0
	}
	return m, nil
}

func (m Model) handleRefresh() (tea.Model, tea.Cmd) {
	m.loading = true
	if m.view == ViewFormDetail && m.current != nil {
		return m, tea.Batch(m.loadForms(), m.loadSubmissions(m.current.Form.ID))
	}
	return m, m.loadForms()
}
