// Package shell implements the interactive menu loop around a task store.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"taskman/backend"
	"taskman/internal/store"
	"taskman/internal/utils"
)

// Menu choices as typed by the user.
const (
	ChoiceAdd      = "1"
	ChoiceView     = "2"
	ChoiceRemove   = "3"
	ChoiceEdit     = "4"
	ChoiceComplete = "5"
	ChoiceExit     = "6"
)

var menuItems = []string{
	"1. Add Task",
	"2. View Tasks",
	"3. Remove Task",
	"4. Edit Task",
	"5. Mark Task as Complete",
	"6. Exit",
}

type styles struct {
	title   lipgloss.Style
	done    lipgloss.Style
	pending lipgloss.Style
	due     lipgloss.Style
	err     lipgloss.Style
}

// newStyles binds styles to w, so output is plain text when w is not a terminal.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		done:    r.NewStyle().Foreground(lipgloss.Color("42")),
		pending: r.NewStyle().Foreground(lipgloss.Color("241")),
		due:     r.NewStyle().Foreground(lipgloss.Color("214")),
		err:     r.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// Shell reads menu choices and drives a store.
type Shell struct {
	store  *store.Store
	in     *utils.LineReader
	out    io.Writer
	styles styles
}

// New creates a shell reading from r and writing to w.
func New(s *store.Store, r io.Reader, w io.Writer) *Shell {
	return &Shell{
		store:  s,
		in:     utils.NewLineReader(r, w),
		out:    w,
		styles: newStyles(w),
	}
}

// Run loops over the menu until the user exits or input ends.
// Operation errors are printed and never stop the loop; only a failure to
// read input is returned.
func (sh *Shell) Run(ctx context.Context) error {
	for {
		sh.printMenu()

		choice, err := sh.in.Prompt("Choose an option: ")
		if errors.Is(err, utils.ErrNoInput) {
			sh.println()
			choice = ChoiceExit
		} else if err != nil {
			return err
		}

		switch choice {
		case ChoiceAdd:
			err = sh.add(ctx)
		case ChoiceView:
			sh.view()
		case ChoiceRemove:
			err = sh.remove(ctx)
		case ChoiceEdit:
			err = sh.edit(ctx)
		case ChoiceComplete:
			err = sh.complete(ctx)
		case ChoiceExit:
			sh.println("Exiting Task Manager.")
			return nil
		default:
			sh.printError("Invalid choice. Please try again.")
		}

		// End of input inside an operation aborts it; the next prompt exits.
		if err != nil && !errors.Is(err, utils.ErrNoInput) {
			return err
		}
	}
}

func (sh *Shell) printMenu() {
	sh.println()
	sh.println(sh.styles.title.Render("Task Manager"))
	for _, item := range menuItems {
		sh.println(item)
	}
}

func (sh *Shell) add(ctx context.Context) error {
	name, err := sh.in.Prompt("Enter a new task: ")
	if err != nil {
		return err
	}
	due, err := sh.in.Prompt("Enter due date (YYYY-MM-DD) or leave blank: ")
	if err != nil {
		return err
	}

	task, err := sh.store.Add(ctx, name, due)
	switch {
	case err == nil:
		sh.println(fmt.Sprintf("Task '%s' added.", task.Name))
	case errors.Is(err, utils.ErrValidation) && utils.ValidateName(name) != nil:
		sh.printError("Task name cannot be empty. Task not added.")
	case errors.Is(err, utils.ErrValidation):
		sh.printError("Invalid date format. Task not added.")
	default:
		sh.reportFailure(err)
	}
	return nil
}

func (sh *Shell) view() {
	entries := sh.store.List()
	if len(entries) == 0 {
		sh.println("No tasks available.")
		return
	}

	sh.println("Tasks:")
	for _, e := range entries {
		sh.println(sh.formatEntry(e))
	}
}

func (sh *Shell) formatEntry(e backend.Entry) string {
	status := sh.styles.pending.Render("✗")
	if e.Task.Completed {
		status = sh.styles.done.Render("✓")
	}
	line := fmt.Sprintf("%d. [%s] %s", e.Position, status, e.Task.Name)
	if e.Task.DueDate != nil {
		line += " " + sh.styles.due.Render(fmt.Sprintf("(Due: %s)", e.Task.Due()))
	}
	return line
}

// selectTask lists the tasks and asks for a position. ok is false when
// there is nothing to select or the input was rejected.
func (sh *Shell) selectTask(prompt string) (position int, ok bool, err error) {
	sh.view()
	if sh.store.Len() == 0 {
		return 0, false, nil
	}

	position, err = sh.in.PromptPosition(prompt)
	if errors.Is(err, utils.ErrInput) {
		sh.printError("Please enter a valid number.")
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if err := utils.CheckPosition(position, sh.store.Len()); err != nil {
		sh.printError("Invalid task number.")
		return 0, false, nil
	}
	return position, true, nil
}

func (sh *Shell) remove(ctx context.Context) error {
	position, ok, err := sh.selectTask("Enter the task number to remove: ")
	if !ok || err != nil {
		return err
	}

	removed, err := sh.store.Remove(ctx, position)
	if err != nil {
		sh.reportFailure(err)
		return nil
	}
	sh.println(fmt.Sprintf("Task '%s' removed.", removed.Name))
	return nil
}

func (sh *Shell) edit(ctx context.Context) error {
	position, ok, err := sh.selectTask("Enter the task number to edit: ")
	if !ok || err != nil {
		return err
	}

	current := sh.store.List()[position-1].Task
	currentDue := current.Due()
	if currentDue == "" {
		currentDue = "none"
	}

	name, err := sh.in.Prompt(fmt.Sprintf("Enter new name (leave blank to keep '%s'): ", current.Name))
	if err != nil {
		return err
	}
	due, err := sh.in.Prompt(fmt.Sprintf("Enter new due date (YYYY-MM-DD, leave blank to keep '%s'): ", currentDue))
	if err != nil {
		return err
	}

	task, err := sh.store.Edit(ctx, position, name, due)
	switch {
	case err == nil:
		sh.println("Task updated.")
	case errors.Is(err, utils.ErrValidation) && task.Name != "":
		// Name change kept, due date rejected
		sh.printError("Invalid date format. Due date not changed.")
		sh.println("Task updated.")
	case errors.Is(err, utils.ErrValidation):
		sh.printError("Invalid date format. Task not updated.")
	default:
		sh.reportFailure(err)
	}
	return nil
}

func (sh *Shell) complete(ctx context.Context) error {
	position, ok, err := sh.selectTask("Enter the task number to mark as complete: ")
	if !ok || err != nil {
		return err
	}

	task, err := sh.store.Complete(ctx, position)
	if err != nil {
		sh.reportFailure(err)
		return nil
	}
	sh.println(fmt.Sprintf("Task '%s' marked as complete.", task.Name))
	return nil
}

// reportFailure prints an unexpected operation error, e.g. a failed save.
func (sh *Shell) reportFailure(err error) {
	utils.Errorf("%v", err)
	if errors.Is(err, utils.ErrPersistence) {
		sh.printError("Could not save tasks. No changes were made.")
		return
	}
	sh.printError(fmt.Sprintf("Error: %v", err))
}

func (sh *Shell) printError(msg string) {
	sh.println(sh.styles.err.Render(msg))
}

func (sh *Shell) println(lines ...string) {
	if len(lines) == 0 {
		_, _ = fmt.Fprintln(sh.out)
		return
	}
	for _, l := range lines {
		_, _ = fmt.Fprintln(sh.out, l)
	}
}
