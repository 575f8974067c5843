package tui

import (
	"fmt"
	"strings"

	"github.com/creamcroissant/formboard/internal/etag"
)

// View 实现 tea.Model
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.view == ViewFormDetail && m.current != nil {
		return m.renderFormDetailView()
	}
	return m.renderFormListView()
}

func (m Model) renderStatus(b *strings.Builder) {
	if m.err != nil {
		b.WriteString(styleError.Render(fmt.Sprintf("  Error: %v", m.err)))
		b.WriteString("\n\n")
	}
	if m.loading {
		b.WriteString(styleMuted().Render("  Loading..."))
		b.WriteString("\n\n")
	}
}

func (m Model) visibleRows(reserved int) int {
	rows := m.height - reserved
	if rows < 5 {
		rows = 5
	}
	return rows
}

func (m Model) renderFormListView() string {
	var b strings.Builder

	b.WriteString(styleHeader.Width(m.width).Render("  formboard ETag monitor"))
	b.WriteString("\n\n")
	m.renderStatus(&b)

	tableHeader := fmt.Sprintf("  %-2s %-5s │ %-20s │ %-6s │ %-25s │ %-38s │ %s",
		"", "ID", "Form", "Subs", "Modified", "ETag", "Data ETag")
	b.WriteString(styleTableHeader.Width(m.width).Render(tableHeader))
	b.WriteString("\n")
	b.WriteString(styleMuted().Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")

	if len(m.forms) == 0 {
		b.WriteString(styleMuted().Render("  No forms yet."))
		b.WriteString("\n")
	} else {
		visible := m.visibleRows(12)
		start := 0
		if m.selected >= visible {
			start = m.selected - visible + 1
		}
		end := min(start+visible, len(m.forms))
		for i := start; i < end; i++ {
			b.WriteString(m.renderFormRow(m.forms[i], i == m.selected))
			b.WriteString("\n")
		}
		if len(m.forms) > visible {
			b.WriteString(styleMuted().Render(fmt.Sprintf("  Showing %d-%d of %d forms", start+1, end, len(m.forms))))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.renderSummary())
	b.WriteString("\n\n")
	b.WriteString(styleHelp.Render("  [↑/↓] Navigate  [Enter] Submissions  [r] Refresh  [q] Quit"))
	return b.String()
}

func (m Model) renderFormRow(row FormRow, selected bool) string {
	line := fmt.Sprintf("%s %-5d │ %-20s │ %-6d │ %-25s │ %-38s │ %s",
		ChangeIcon(row.Changed),
		row.Form.ID,
		truncate(row.Form.Title, 20),
		row.Form.NumOfSubmissions,
		etag.FormatTimestamp(row.Form.Modified),
		row.ETag,
		orNone(row.DataETag),
	)
	if selected {
		return styleTableRowSelected.Width(m.width).Render("▶ " + line)
	}
	return styleTableRow.Width(m.width).Render("  " + line)
}

func (m Model) renderSummary() string {
	changed := 0
	for _, row := range m.forms {
		if row.Changed {
			changed++
		}
	}
	return fmt.Sprintf("  %s %d forms   %s %d changed since last refresh",
		styleSteady.Render("○"), len(m.forms), styleChanged.Render("●"), changed)
}

func (m Model) renderFormDetailView() string {
	var b strings.Builder
	form := m.current.Form

	b.WriteString(styleHeader.Width(m.width).Render(fmt.Sprintf("  %s (%s)", form.Title, form.IDString)))
	b.WriteString("\n\n")
	m.renderStatus(&b)

	field := func(label, value string) string {
		return styleLabel.Render(label) + styleValue.Render(value)
	}
	info := strings.Join([]string{
		field("Form ID", fmt.Sprintf("%d", form.ID)),
		field("Submissions", fmt.Sprintf("%d", form.NumOfSubmissions)),
		field("Modified", etag.FormatTimestamp(form.Modified)),
		field("Form ETag", m.current.ETag),
		field("Data ETag", orNone(m.current.DataETag)),
	}, "\n")
	b.WriteString(styleDetailBox.Render(info))
	b.WriteString("\n\n")

	b.WriteString(styleTableHeader.Width(m.width).Render(fmt.Sprintf("  %-6s │ %-36s │ %-18s │ %s", "ID", "UUID", "Status", "Modified")))
	b.WriteString("\n")

	if len(m.submissions) == 0 {
		b.WriteString(styleMuted().Render("  No submissions."))
		b.WriteString("\n")
	} else {
		visible := m.visibleRows(16)
		end := min(m.scroll+visible, len(m.submissions))
		for _, inst := range m.submissions[m.scroll:end] {
			line := fmt.Sprintf("%-6d │ %-36s │ %-18s │ %s", inst.ID, inst.UUID, truncate(inst.Status, 18), etag.FormatTimestamp(inst.Modified))
			b.WriteString(styleTableRow.Render("  " + line))
			b.WriteString("\n")
		}
		if len(m.submissions) > visible {
			b.WriteString(styleMuted().Render(fmt.Sprintf("  Showing %d-%d of %d", m.scroll+1, end, len(m.submissions))))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styleHelp.Render("  [↑/↓] Scroll  [Esc] Back  [r] Refresh  [q] Quit"))
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func orNone(tag string) string {
	if tag == "" {
		return "-"
	}
	return tag
}
