package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/prscore/internal/infrastructure/logging"
	"github.com/felixgeelhaar/prscore/internal/infrastructure/watch"
	"github.com/felixgeelhaar/prscore/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/prscore/pkg/application"
	"github.com/felixgeelhaar/prscore/pkg/domain/analysis"
	"github.com/felixgeelhaar/prscore/pkg/domain/dispatch"
	"github.com/felixgeelhaar/prscore/pkg/domain/rubric"
	"github.com/felixgeelhaar/prscore/pkg/report"
	"github.com/felixgeelhaar/prscore/pkg/storage"
)

var (
	tuiPRURL    string
	tuiFilePath string
	tuiStudent  string
)

var (
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	blurredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	noStyle      = lipgloss.NewStyle()

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
)

// Form fields above the rubric.
const (
	fieldStudent = iota
	fieldPRURL
	fieldFilePath
	fixedFields
)

var cellFields = [3]rubric.Field{rubric.FieldCriterion, rubric.FieldWeight, rubric.FieldDescription}

type (
	analysisDoneMsg struct {
		slot     dispatch.Slot
		result   *analysis.Result
		err      error
		prURL    string
		filePath string
		student  string
		rubric   rubric.Rubric
	}
	rubricChangedMsg  struct{}
	rubricReloadedMsg struct {
		rubric rubric.Rubric
		err    error
	}
)

type formModel struct {
	ctx        context.Context
	services   *wiring.AppServices
	rubricPath string
	rubric     rubric.Rubric

	fields     []textinput.Model
	cells      []textinput.Model
	focusIndex int
	editRef    rubric.Ref

	spinner  spinner.Model
	loading  bool
	state    dispatch.State
	notice   string
	err      error
	fieldErr error
	dirty    bool
}

func newFormModel(ctx context.Context, services *wiring.AppServices, r rubric.Rubric, rubricPath string) formModel {
	m := formModel{
		ctx:        ctx,
		services:   services,
		rubricPath: rubricPath,
		rubric:     r,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
	}

	placeholders := []string{"Student name", "https://github.com/owner/repo/pull/123", "path/to/file.js"}
	for _, p := range placeholders {
		input := textinput.New()
		input.Placeholder = p
		input.CharLimit = 300
		input.Width = 50
		m.fields = append(m.fields, input)
	}

	m.rebuildCells()
	m.focusIndex = fieldPRURL
	m.updateFocus()
	return m
}

func (m *formModel) rebuildCells() {
	m.cells = m.cells[:0]
	for _, it := range m.rubric.Items() {
		for col, value := range []string{it.Criterion, rubric.FormatWeight(it.Weight), it.Description} {
			input := textinput.New()
			input.CharLimit = 300
			switch col {
			case 0:
				input.Placeholder = "Criterion"
				input.Width = 20
			case 1:
				input.Placeholder = "Weight"
				input.Width = 6
			default:
				input.Placeholder = "Description"
				input.Width = 40
			}
			input.SetValue(value)
			m.cells = append(m.cells, input)
		}
	}
	if m.focusIndex >= m.inputCount() {
		m.focusIndex = m.inputCount() - 1
	}
}

func (m formModel) inputCount() int {
	return len(m.fields) + len(m.cells)
}

func (m *formModel) input(i int) *textinput.Model {
	if i < len(m.fields) {
		return &m.fields[i]
	}
	return &m.cells[i-len(m.fields)]
}

// cellPos maps a focus index to a rubric row and column.
func (m formModel) cellPos(i int) (row, col int, ok bool) {
	if i < fixedFields || i >= m.inputCount() {
		return 0, 0, false
	}
	i -= fixedFields
	return i / 3, i % 3, true
}

func (m formModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m formModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.services.Analysis.Cancel()
			return m, tea.Quit

		case "tab", "down":
			m.focusIndex = (m.focusIndex + 1) % m.inputCount()
			return m, m.updateFocus()

		case "shift+tab", "up":
			m.focusIndex--
			if m.focusIndex < 0 {
				m.focusIndex = m.inputCount() - 1
			}
			return m, m.updateFocus()

		case "ctrl+r":
			return m.startAnalysis(dispatch.SlotPR)

		case "ctrl+f":
			return m.startAnalysis(dispatch.SlotFile)

		case "ctrl+x":
			m.services.Analysis.Cancel()
			return m, nil

		case "ctrl+a":
			m.rubric = m.rubric.Add()
			m.dirty = true
			m.rebuildCells()
			m.focusIndex = fixedFields + (m.rubric.Len()-1)*3
			return m, m.updateFocus()

		case "ctrl+d":
			if row, _, ok := m.cellPos(m.focusIndex); ok {
				next, err := m.rubric.Remove(row)
				if err != nil {
					m.fieldErr = err
					return m, nil
				}
				m.rubric = next
				m.dirty = true
				m.rebuildCells()
				return m, m.updateFocus()
			}
			return m, nil

		case "ctrl+s":
			if err := m.services.Workspace.SaveRubric(m.rubricPath, m.rubric); err != nil {
				m.err = err
				return m, nil
			}
			m.dirty = false
			m.notice = "Rubric saved to " + m.rubricPath
			return m, nil

		case "ctrl+y":
			m.copyResult()
			return m, nil
		}

	case analysisDoneMsg:
		if errors.Is(msg.err, application.ErrSuperseded) {
			return m, nil
		}
		m.state = m.services.Analysis.Snapshot()
		m.loading = m.state.Loading
		if m.state.Error != "" {
			m.err = errors.New(m.state.Error)
		}
		if msg.err != nil {
			return m, nil
		}
		return m, m.publish(msg)

	case rubricChangedMsg:
		return m, m.reloadRubric()

	case rubricReloadedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("reload rubric: %w", msg.err)
			return m, nil
		}
		if sameItems(msg.rubric, m.rubric) {
			return m, nil
		}
		m.rubric = msg.rubric
		m.dirty = false
		m.rebuildCells()
		m.notice = "Rubric reloaded from " + m.rubricPath
		return m, m.updateFocus()

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	cmd := m.updateInputs(msg)
	m.syncCell()
	return m, cmd
}

func (m *formModel) updateFocus() tea.Cmd {
	cmds := make([]tea.Cmd, m.inputCount())
	for i := 0; i < m.inputCount(); i++ {
		in := m.input(i)
		if i == m.focusIndex {
			cmds[i] = in.Focus()
			in.PromptStyle = focusedStyle
			in.TextStyle = focusedStyle
		} else {
			in.Blur()
			in.PromptStyle = noStyle
			in.TextStyle = noStyle
		}
	}
	if row, _, ok := m.cellPos(m.focusIndex); ok {
		m.editRef = m.rubric.Ref(row)
	}
	m.fieldErr = nil
	return tea.Batch(cmds...)
}

func (m *formModel) updateInputs(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(tea.KeyMsg); !ok {
		return nil
	}
	var cmd tea.Cmd
	in := m.input(m.focusIndex)
	*in, cmd = in.Update(msg)
	return cmd
}

// syncCell copies the focused rubric cell into the rubric. A weight that is
// not a number, or an edit made against a layout that has since changed, is
// reported and not applied.
func (m *formModel) syncCell() {
	row, col, ok := m.cellPos(m.focusIndex)
	if !ok {
		return
	}
	item, err := m.rubric.At(row)
	if err != nil {
		return
	}
	value := m.input(m.focusIndex).Value()
	switch col {
	case 0:
		if value == item.Criterion {
			return
		}
	case 2:
		if value == item.Description {
			return
		}
	}

	next, err := m.rubric.Update(m.editRef, cellFields[col], value)
	if err != nil {
		m.fieldErr = err
		return
	}
	m.fieldErr = nil
	if !sameItems(next, m.rubric) {
		m.rubric = next
		m.dirty = true
	}
}

func (m formModel) canAnalyze(slot dispatch.Slot) bool {
	if m.loading {
		return false
	}
	prURL := strings.TrimSpace(m.fields[fieldPRURL].Value())
	if slot == dispatch.SlotFile {
		return analysis.FileRequest{PRURL: prURL, FilePath: m.fields[fieldFilePath].Value()}.Ready()
	}
	return prURL != ""
}

func (m formModel) startAnalysis(slot dispatch.Slot) (tea.Model, tea.Cmd) {
	if !m.canAnalyze(slot) {
		return m, nil
	}
	if err := m.rubric.Validate(); err != nil {
		m.err = err
		return m, nil
	}
	m.loading = true
	m.err = nil
	m.notice = ""
	return m, tea.Batch(m.spinner.Tick, m.dispatch(slot))
}

// dispatch returns the command that runs one analysis on a goroutine.
func (m formModel) dispatch(slot dispatch.Slot) tea.Cmd {
	ctx := m.ctx
	svc := m.services.Analysis
	r := m.rubric
	prURL := strings.TrimSpace(m.fields[fieldPRURL].Value())
	filePath := strings.TrimSpace(m.fields[fieldFilePath].Value())
	student := strings.TrimSpace(m.fields[fieldStudent].Value())

	return func() tea.Msg {
		var (
			res *analysis.Result
			err error
		)
		if slot == dispatch.SlotFile {
			res, err = svc.AnalyzeFileInPR(ctx, prURL, filePath, r)
		} else {
			res, err = svc.AnalyzeWholePR(ctx, prURL, r)
			filePath = ""
		}
		return analysisDoneMsg{
			slot:     slot,
			result:   res,
			err:      err,
			prURL:    prURL,
			filePath: filePath,
			student:  student,
			rubric:   r,
		}
	}
}

// publish sends the finished analysis to the webhooks on its own command so
// slow endpoints never hold back the result.
func (m formModel) publish(done analysisDoneMsg) tea.Cmd {
	services := m.services
	ctx := context.WithoutCancel(m.ctx)
	return func() tea.Msg {
		services.Publish(ctx, done.prURL, done.filePath, done.student, done.result, done.rubric)
		return nil
	}
}

func (m *formModel) copyResult() {
	res := m.state.Analysis
	if res == nil {
		res = m.state.FileAnalysis
	}
	if res == nil {
		return
	}
	ack, err := report.Copy(res, m.services.Clipboard)
	if err != nil && ack == "" {
		return
	}
	if err != nil {
		m.services.Logger.Warn().Err(err).Msg("copy failed")
		m.err = errors.New(ack)
		return
	}
	m.notice = ack
}

func (m formModel) reloadRubric() tea.Cmd {
	ws := m.services.Workspace
	path := m.rubricPath
	return func() tea.Msg {
		r, err := ws.LoadRubric(path)
		return rubricReloadedMsg{rubric: r, err: err}
	}
}

func sameItems(a, b rubric.Rubric) bool {
	if a.Len() != b.Len() {
		return false
	}
	ai, bi := a.Items(), b.Items()
	for i := range ai {
		if ai[i] != bi[i] {
			return false
		}
	}
	return true
}

func (m formModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("PR Analyzer"))
	b.WriteString("\n")

	labels := []string{"Student Name", "GitHub PR URL", "File Path"}
	for i, label := range labels {
		b.WriteString(m.label(i, label))
		b.WriteString("\n  ")
		b.WriteString(m.fields[i].View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	rubricTitle := fmt.Sprintf("Rubric (total weight %s)", rubric.FormatWeight(m.rubric.TotalWeight()))
	if m.dirty {
		rubricTitle += " *"
	}
	b.WriteString(sectionStyle.Render(rubricTitle))
	b.WriteString("\n")
	for row := 0; row < m.rubric.Len(); row++ {
		base := fixedFields + row*3
		marker := "  "
		if r, _, ok := m.cellPos(m.focusIndex); ok && r == row {
			marker = focusedStyle.Render("› ")
		}
		fmt.Fprintf(&b, "%s%d. %s %s %s\n", marker, row+1,
			m.input(base).View(), m.input(base+1).View(), m.input(base+2).View())
	}
	if m.fieldErr != nil {
		b.WriteString(errorStyle.Render(m.fieldErr.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.loading:
		b.WriteString(m.spinner.View() + " Analyzing...")
	case m.err != nil:
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	case m.notice != "":
		b.WriteString(noticeStyle.Render(m.notice))
	}
	b.WriteString("\n")

	if res := m.state.Analysis; res != nil {
		b.WriteString(resultView("Analysis Results", res, m.rubric))
	}
	if res := m.state.FileAnalysis; res != nil {
		title := "File Analysis Results"
		if res.FilePath != "" {
			title += ": " + res.FilePath
		}
		b.WriteString(resultView(title, res, m.rubric))
	}

	help := "[Tab] Next • [Ctrl+R] Analyze PR • [Ctrl+F] Analyze file • [Ctrl+A] Add criterion • [Ctrl+D] Remove criterion • [Ctrl+S] Save rubric • [Ctrl+Y] Copy • [Ctrl+X] Cancel • [Esc] Quit"
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func (m formModel) label(i int, text string) string {
	if i == m.focusIndex {
		return focusedStyle.Render("› " + text + ":")
	}
	return blurredStyle.Render("  " + text + ":")
}

func resultView(title string, res *analysis.Result, r rubric.Rubric) string {
	summary := analysis.Summarize(res, r)

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(sectionStyle.Render(title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Files changed: %d  Additions: %d  Deletions: %d\n", res.TotalFiles, res.Additions, res.Deletions)
	if fa := res.FunctionAnalysis; fa != nil {
		fmt.Fprintf(&b, "Functions: %d of %d implemented (%s%%)\n",
			fa.ImplementedFunctions, fa.TotalFunctions, analysis.FormatScore(fa.CompletionPercentage))
	}
	fmt.Fprintf(&b, "Overall Score: %s\n", summary.ScoreText())

	if len(summary.Criteria) > 0 {
		rows := make([]table.Row, 0, len(summary.Criteria))
		for _, c := range summary.Criteria {
			rows = append(rows, table.Row{c.Criterion, c.ScoreText()})
		}
		t := table.New(
			table.WithColumns([]table.Column{
				{Title: "Criterion", Width: 28},
				{Title: "Score", Width: 12},
			}),
			table.WithRows(rows),
			table.WithHeight(len(rows)+1),
		)
		s := table.DefaultStyles()
		s.Header = s.Header.
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))
		s.Selected = lipgloss.NewStyle()
		t.SetStyles(s)
		b.WriteString(t.View())
		b.WriteString("\n")

		for _, c := range summary.Criteria {
			if c.Justification == "" {
				continue
			}
			fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(c.Criterion+":"), c.Justification)
			for _, rec := range c.Recommendations {
				fmt.Fprintf(&b, "  %s %s\n", bulletStyle.Render("•"), rec)
			}
		}
	}

	if text := strings.TrimSpace(res.ClaudeResponse.OverallAnalysis); text != "" {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Overall Analysis"))
		b.WriteString("\n")
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive analysis form",
	Long: `Open an interactive form to edit the rubric, enter a pull request and
run analyses. The rubric reloads when its file changes on disk. Logs go
to .prscore/prscore.log while the form owns the terminal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Getenv("PRSCORE_SKIP_TUI_RUN") == "true" {
			return nil
		}
		root, err := getProjectRoot()
		if err != nil {
			return err
		}

		logFile, err := logging.OpenLogFile(filepath.Join(root, storage.WorkspaceDir, storage.LogFile))
		if err != nil {
			return err
		}
		defer logFile.Close()

		services, err := loadServices(root, logFile)
		if err != nil {
			return err
		}
		rubricPath := services.Workspace.RubricPath()
		r, err := services.Workspace.LoadRubric(rubricPath)
		if err != nil {
			return MapError(err)
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		m := newFormModel(ctx, services, r, rubricPath)
		m.fields[fieldPRURL].SetValue(tuiPRURL)
		m.fields[fieldFilePath].SetValue(tuiFilePath)
		m.fields[fieldStudent].SetValue(tuiStudent)

		p := tea.NewProgram(m)

		w, err := watch.NewFileWatcher(rubricPath, 0, func(watch.ChangeEvent) {
			p.Send(rubricChangedMsg{})
		})
		if err != nil {
			services.Logger.Warn().Err(err).Str("rubric", rubricPath).Msg("rubric watch disabled")
		} else {
			go func() {
				if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					services.Logger.Warn().Err(err).Msg("rubric watch stopped")
				}
			}()
		}

		if _, err := p.Run(); err != nil {
			return fmt.Errorf("tui run failed: %w", err)
		}
		return nil
	},
}

func init() {
	tuiCmd.Flags().StringVar(&tuiPRURL, "pr", "", "Prefill the pull request URL")
	tuiCmd.Flags().StringVar(&tuiFilePath, "file-path", "", "Prefill the file path")
	tuiCmd.Flags().StringVar(&tuiStudent, "student", "", "Prefill the student name")
	RootCmd.AddCommand(tuiCmd)
}
