// 文件路径: internal/tui/model.go
// 模块说明: ETag 监视器的数据模型，定时重新推导表单与提交列表的 ETag 并标记变化。
package tui

import (
	"context"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/creamcroissant/formboard/internal/etag"
	"github.com/creamcroissant/formboard/internal/repository"
)

// ViewType 表示当前视图
type ViewType int

const (
	ViewFormList   ViewType = iota // 表单列表
	ViewFormDetail                 // 单个表单的提交列表
)

const detailPageSize = 200

// FormRow 封装表单及其当前 ETag
type FormRow struct {
	Form *repository.XForm
	// ETag is what GET /forms/{id} returns.
	ETag string
	// DataETag is what GET /data?xform={id} returns; empty when the form has no submissions.
	DataETag string
	Changed  bool
}

// Options 配置监视器
type Options struct {
	Resolver *etag.Resolver
	Interval time.Duration
}

// Model 是主 TUI 模型
type Model struct {
	forms    []FormRow
	selected int

	// ViewFormDetail 时使用
	view        ViewType
	current     *FormRow
	submissions []*repository.Instance
	scroll      int

	store    repository.Store
	resolver *etag.Resolver
	interval time.Duration

	// 上一轮的标签，用于判断是否变化
	lastTags map[int64]string

	width  int
	height int

	loading bool
	err     error

	keys keyMap
}

// keyMap 定义全部按键绑定
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Enter   key.Binding
	Back    key.Binding
	Quit    key.Binding
	Refresh key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submissions"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
	}
}

// NewModel 创建新的 TUI 模型
func NewModel(store repository.Store, opts Options) Model {
	if opts.Resolver == nil {
		opts.Resolver = etag.NewResolver(nil)
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	return Model{
		store:    store,
		resolver: opts.Resolver,
		interval: opts.Interval,
		view:     ViewFormList,
		lastTags: make(map[int64]string),
		keys:     defaultKeyMap(),
		loading:  true,
	}
}

// Init 实现 tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadForms(),
		m.tickCmd(),
	)
}

// 消息类型

type formsLoadedMsg struct {
	forms []FormRow
}

type submissionsLoadedMsg struct {
	formID      int64
	submissions []*repository.Instance
	dataETag    string
}

type errorMsg struct {
	err error
}

type tickMsg time.Time

// 命令

func (m Model) loadForms() tea.Cmd {
	return func() tea.Msg {
		rows, err := loadFormRows(context.Background(), m.store, m.resolver)
		if err != nil {
			return errorMsg{err: err}
		}
		return formsLoadedMsg{forms: rows}
	}
}

func (m Model) loadSubmissions(formID int64) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		parent := formID
		list := m.store.Instances().List(repository.ListFilter{ParentID: &parent})
		dataTag, err := resolveTag(ctx, m.resolver, func(ctx context.Context) { etag.SetCollection(ctx, list) })
		if err != nil {
			return errorMsg{err: err}
		}
		page, err := list.Fetch(ctx)
		if err != nil {
			return errorMsg{err: err}
		}
		sort.SliceStable(page, func(i, j int) bool { return page[i].Modified.After(page[j].Modified) })
		if len(page) > detailPageSize {
			page = page[:detailPageSize]
		}
		return submissionsLoadedMsg{formID: formID, submissions: page, dataETag: dataTag}
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// 辅助函数

// loadFormRows 为每个表单推导详情与提交列表两个 ETag。
func loadFormRows(ctx context.Context, store repository.Store, resolver *etag.Resolver) ([]FormRow, error) {
	forms, err := store.XForms().List(repository.ListFilter{}).Fetch(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(forms, func(i, j int) bool { return forms[i].Modified.After(forms[j].Modified) })
	rows := make([]FormRow, 0, len(forms))
	for _, form := range forms {
		form := form
		formTag, err := resolveTag(ctx, resolver, func(ctx context.Context) { etag.SetObject(ctx, form) })
		if err != nil {
			return nil, err
		}
		parent := form.ID
		submissions := store.Instances().List(repository.ListFilter{ParentID: &parent})
		dataTag, err := resolveTag(ctx, resolver, func(ctx context.Context) { etag.SetCollection(ctx, submissions) })
		if err != nil {
			return nil, err
		}
		rows = append(rows, FormRow{Form: form, ETag: formTag, DataETag: dataTag})
	}
	return rows, nil
}

// resolveTag 运行 publish 后像 ETag 中间件一样解析，空集合返回空字符串。
func resolveTag(ctx context.Context, resolver *etag.Resolver, publish func(context.Context)) (string, error) {
	ctx, src := etag.WithSource(ctx)
	publish(ctx)
	result, ok, err := src.Resolve(ctx, resolver)
	if err != nil || !ok {
		return "", err
	}
	return result.Header, nil
}
