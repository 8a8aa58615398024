package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tasktracker/internal/core/domain"
)

// TaskAPI is the subset of the HTTP client the terminal UI drives.
type TaskAPI interface {
	ListTasks(ctx context.Context, query domain.TaskQuery) ([]domain.Task, error)
	CreateTask(ctx context.Context, title string) (domain.Task, error)
	MarkDone(ctx context.Context, id int64) (domain.Task, error)
	RenameTask(ctx context.Context, id int64, title string) (domain.Task, error)
}

type doneFilter int

const (
	showAll doneFilter = iota
	showPending
	showDone
)

func (f doneFilter) next() doneFilter {
	return (f + 1) % 3
}

func (f doneFilter) String() string {
	switch f {
	case showPending:
		return "pending"
	case showDone:
		return "done"
	default:
		return "all"
	}
}

// sortCycle is the order the sort key walks through; "" means server order.
var sortCycle = append([]domain.SortField{""}, domain.SortFields...)

type inputMode int

const (
	modeList inputMode = iota
	modeAdd
	modeRename
)

type tasksLoadedMsg struct {
	tasks []domain.Task
	err   error
}

type taskSavedMsg struct {
	action string
	task   domain.Task
	err    error
}

type listItem struct {
	task domain.Task
}

func (i listItem) Title() string       { return i.task.Title }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.task.Title }

type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}

	box := mutedStyle.Render(boxUnchecked)
	text := it.task.Title

	if it.task.Done {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}

	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}

	fmt.Fprintf(w, "%s%s %s %s", prefix, box, text, mutedStyle.Render(fmt.Sprintf("#%d", it.task.ID)))
}

// Model is the Bubble Tea model of the task list.
type Model struct {
	ctx  context.Context
	api  TaskAPI
	keys keyMap

	list  list.Model
	input textinput.Model
	mode  inputMode

	renameID int64
	sortIdx  int
	desc     bool
	filter   doneFilter

	tasks  []domain.Task
	status string
	err    error

	width, height int
}

func NewModel(ctx context.Context, api TaskAPI) Model {
	keys := newKeyMap()

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetStatusBarItemName("task", "tasks")
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.KeyMap.NextPage = key.NewBinding(key.WithKeys("right", "l", "pgdown"), key.WithHelp("→/l", "next page"))
	l.KeyMap.Quit = key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit"))
	l.AdditionalShortHelpKeys = keys.short
	l.AdditionalFullHelpKeys = keys.full

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	m := Model{
		ctx:    ctx,
		api:    api,
		keys:   keys,
		list:   l,
		input:  ti,
		width:  80,
		height: 24,
	}
	m.list.Title = m.header()

	return m
}

// Query is what the next reload asks the server for.
func (m Model) Query() domain.TaskQuery {
	var query domain.TaskQuery

	switch m.filter {
	case showPending:
		done := false
		query.Filters = &domain.TaskFilters{Done: &done}
	case showDone:
		done := true
		query.Filters = &domain.TaskFilters{Done: &done}
	}

	if field := sortCycle[m.sortIdx]; field != "" {
		direction := domain.SortAsc
		if m.desc {
			direction = domain.SortDesc
		}
		query.Sort = &domain.TaskSort{Field: field, Direction: direction}
	}

	return query
}

func (m Model) Tasks() []domain.Task {
	return m.tasks
}

func (m Model) Err() error {
	return m.err
}

func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	ctx, api, query := m.ctx, m.api, m.Query()

	return func() tea.Msg {
		tasks, err := api.ListTasks(ctx, query)
		return tasksLoadedMsg{tasks: tasks, err: err}
	}
}

func (m Model) save(action string, call func(context.Context) (domain.Task, error)) tea.Cmd {
	ctx := m.ctx

	return func() tea.Msg {
		task, err := call(ctx)
		return taskSavedMsg{action: action, task: task, err: err}
	}
}

func (m Model) selected() (domain.Task, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return domain.Task{}, false
	}

	return it.task, true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tasksLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.tasks = msg.tasks

		items := make([]list.Item, len(msg.tasks))
		for i, task := range msg.tasks {
			items[i] = listItem{task: task}
		}

		m.list.Title = m.header()
		return m, m.list.SetItems(items)

	case taskSavedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, domain.ErrTaskNotFound) {
				m.err = fmt.Errorf("%s: task no longer exists", msg.action)
			} else {
				m.err = msg.err
			}
			return m, m.load()
		}

		m.err = nil
		m.status = fmt.Sprintf("%s #%d", msg.action, msg.task.ID)
		return m, m.load()

	case tea.KeyMsg:
		if m.mode != modeList {
			return m.updateInput(msg)
		}

		if m.list.FilterState() == list.Filtering {
			break
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Add):
			m.mode = modeAdd
			m.input.SetValue("")
			m.input.Placeholder = "New task title..."
			m.resize()
			return m, m.input.Focus()

		case key.Matches(msg, m.keys.Rename):
			task, ok := m.selected()
			if !ok {
				return m, nil
			}

			m.mode = modeRename
			m.renameID = task.ID
			m.input.SetValue(task.Title)
			m.input.CursorEnd()
			m.input.Placeholder = "Task title..."
			m.resize()
			return m, m.input.Focus()

		case key.Matches(msg, m.keys.Done):
			task, ok := m.selected()
			if !ok {
				return m, nil
			}

			api, id := m.api, task.ID
			return m, m.save("done", func(ctx context.Context) (domain.Task, error) {
				return api.MarkDone(ctx, id)
			})

		case key.Matches(msg, m.keys.Sort):
			m.sortIdx = (m.sortIdx + 1) % len(sortCycle)
			m.list.Title = m.header()
			return m, m.load()

		case key.Matches(msg, m.keys.Reverse):
			m.desc = !m.desc
			m.list.Title = m.header()
			return m, m.load()

		case key.Matches(msg, m.keys.Filter):
			m.filter = m.filter.next()
			m.list.Title = m.header()
			return m, m.load()

		case key.Matches(msg, m.keys.Refresh):
			return m, m.load()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeInput()
		return m, nil

	case tea.KeyEnter:
		title := strings.TrimSpace(m.input.Value())
		mode, id, api := m.mode, m.renameID, m.api
		m.closeInput()

		if mode == modeAdd {
			return m, m.save("created", func(ctx context.Context) (domain.Task, error) {
				return api.CreateTask(ctx, title)
			})
		}

		return m, m.save("renamed", func(ctx context.Context) (domain.Task, error) {
			return api.RenameTask(ctx, id, title)
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) closeInput() {
	m.mode = modeList
	m.renameID = 0
	m.input.SetValue("")
	m.input.Blur()
	m.resize()
}

func (m *Model) resize() {
	listHeight := m.height - 4
	if m.mode != modeList {
		listHeight -= 3
	}
	if m.err != nil || m.status != "" {
		listHeight--
	}
	if listHeight < 1 {
		listHeight = 1
	}

	m.list.SetSize(m.width-4, listHeight)
}

func (m Model) header() string {
	done, pending := stats(m.tasks)

	sortLabel := "id"
	if field := sortCycle[m.sortIdx]; field != "" {
		sortLabel = string(field)
		if m.desc {
			sortLabel += " ↓"
		} else {
			sortLabel += " ↑"
		}
	}

	return fmt.Sprintf("%s   %s %d  %s %d  %s %s  %s %s",
		titleStyle.Render("Tasks"),
		successStyle.Render("✔"), done,
		pendingStyle.Render("•"), pending,
		accentStyle.Render("sort"), sortLabel,
		accentStyle.Render("show"), m.filter,
	)
}

func (m Model) View() string {
	content := m.list.View()

	if m.mode != modeList {
		label := "Add task"
		if m.mode == modeRename {
			label = fmt.Sprintf("Rename task #%d", m.renameID)
		}

		bar := panelStyle.Render(label + "\n" + m.input.View())
		content = lipgloss.JoinVertical(lipgloss.Left, content, bar)
	}

	switch {
	case m.err != nil:
		content += "\n" + errorStyle.Render("✖ "+m.err.Error())
	case m.status != "":
		content += "\n" + successStyle.Render("✔ "+m.status)
	}

	return panelStyle.Render(content)
}

func stats(tasks []domain.Task) (done, pending int) {
	for _, task := range tasks {
		if task.Done {
			done++
		} else {
			pending++
		}
	}
	return
}

// Run starts the full-screen program and blocks until the user quits.
func Run(ctx context.Context, api TaskAPI) error {
	p := tea.NewProgram(NewModel(ctx, api), tea.WithAltScreen(), tea.WithContext(ctx))

	_, err := p.Run()
	return err
}
