package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/14tweny/Gottwood-Review-sub000/internal/filter"
	"github.com/14tweny/Gottwood-Review-sub000/internal/printer"
	"github.com/14tweny/Gottwood-Review-sub000/internal/report"
	"github.com/14tweny/Gottwood-Review-sub000/internal/resolver"
	"github.com/14tweny/Gottwood-Review-sub000/internal/timespec"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

var (
	taskAssignees []string
	taskTags      []string
	taskDue       string
	taskNotes     string

	listStatus    string
	listTag       string
	listPerson    string
	listDueBefore string
	listWhere     string
	listOutput    string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Work with an area's task checklist",
	Long: `Work with the task checklist of an area in a tracker period.

Task ids can be abbreviated to any unique prefix, as shown by 'task list'.`,
}

var taskAddCmd = &cobra.Command{
	Use:   "add <area> <label>",
	Short: "Add a task to an area",
	Example: `  gottwood --dept lighting task add Stage "Focus front wash" --due 3d --assign Sam
  gottwood --dept sound task add Foyer "Test radio mics" --tag rehearsal`,
	Args: cobra.ExactArgs(2),
	RunE: runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list <area>",
	Short: "List an area's tasks in display order",
	Long: `List an area's tasks, open work first.

Filters combine with AND. --where takes an expression evaluated per task
with the fields id, label, status, assignees, notes, due, tags, order,
edited_by, overdue and today, for example:

  gottwood --dept lighting task list Stage --where 'overdue && len(assignees) == 0'`,
	Args: cobra.ExactArgs(1),
	RunE: runTaskList,
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <area> <task-id> <status>",
	Short: "Change a task's status (not-started, in-progress, done, blocked)",
	Args:  cobra.ExactArgs(3),
	RunE:  runTaskStatus,
}

var taskMoveCmd = &cobra.Command{
	Use:   "move <area> <task-id> <position>",
	Short: "Move a task to a 1-based position in the list",
	Args:  cobra.ExactArgs(3),
	RunE:  runTaskMove,
}

var taskEditCmd = &cobra.Command{
	Use:   "edit <area> <task-id>",
	Short: "Change a task's assignees, due date, notes or tags",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskEdit,
}

func init() {
	taskAddCmd.Flags().StringSliceVarP(&taskAssignees, "assign", "a", nil, "Assignee (repeatable)")
	taskAddCmd.Flags().StringSliceVarP(&taskTags, "tag", "t", nil, "Tag (repeatable)")
	taskAddCmd.Flags().StringVar(&taskDue, "due", "", "Due date: YYYY-MM-DD, today, tomorrow, 3d or a duration like 72h")
	taskAddCmd.Flags().StringVar(&taskNotes, "notes", "", "Free-form notes")

	taskEditCmd.Flags().StringSliceVarP(&taskAssignees, "assign", "a", nil, "Replace the assignees")
	taskEditCmd.Flags().StringSliceVarP(&taskTags, "tag", "t", nil, "Replace the tags")
	taskEditCmd.Flags().StringVar(&taskDue, "due", "", "Due date, or 'none' to clear it")
	taskEditCmd.Flags().StringVar(&taskNotes, "notes", "", "Replace the notes")

	taskListCmd.Flags().StringVar(&listStatus, "status", "", "Only tasks with this status")
	taskListCmd.Flags().StringVar(&listTag, "tag", "", "Only tasks with this tag")
	taskListCmd.Flags().StringVar(&listPerson, "person", "", "Only tasks assigned to this person")
	taskListCmd.Flags().StringVar(&listDueBefore, "due-before", "", "Only tasks due on or before this date")
	taskListCmd.Flags().StringVar(&listWhere, "where", "", "Filter expression")
	taskListCmd.Flags().StringVarP(&listOutput, "output", "o", "default", "Output format (default or jsonl)")

	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskStatusCmd, taskMoveCmd, taskEditCmd)
	rootCmd.AddCommand(taskCmd)
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ws, err := openWorkspace(ctx, true)
	if err != nil {
		return err
	}
	defer ws.close()
	if err := requireIdentity(ws.sess); err != nil {
		return err
	}

	draft := model.Task{
		Label:     args[1],
		Assignees: taskAssignees,
		Notes:     taskNotes,
		Tags:      taskTags,
	}
	if taskDue != "" {
		if draft.Due, err = timespec.ParseDue(taskDue, time.Now()); err != nil {
			return printer.Error("invalid due date", err.Error(), nil)
		}
	}

	task, err := ws.sess.AddTask(args[0], draft)
	if err != nil {
		return taskError(err)
	}
	printer.Success("Added task %s to %s\n", shortID(task.ID), args[0])
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	if listOutput != "default" && listOutput != "jsonl" {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", listOutput),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	ctx := context.Background()
	ws, err := openWorkspace(ctx, true)
	if err != nil {
		return err
	}
	defer ws.close()

	now := time.Now()
	criteria := filter.Criteria{
		Status: model.TaskStatus(listStatus),
		Tag:    listTag,
		Person: listPerson,
	}
	if listStatus != "" {
		if err := criteria.Status.Validate(); err != nil {
			return printer.Error("invalid status", err.Error(), nil)
		}
	}
	if listDueBefore != "" {
		if criteria.DueBefore, err = timespec.ParseDue(listDueBefore, now); err != nil {
			return printer.Error("invalid due date", err.Error(), nil)
		}
	}
	if listWhere != "" {
		if criteria.Where, err = filter.Compile(listWhere); err != nil {
			return printer.Error("invalid filter expression", err.Error(), nil)
		}
	}
	if criteria.Person != "" {
		criteria.Resolver = ws.sess.Resolver()
	}

	tasks, err := criteria.Apply(ws.sess.Tasks(args[0]), now)
	if err != nil {
		return printer.Error("filter failed", err.Error(), nil)
	}

	if listOutput == "jsonl" {
		return report.FormatTasksJSONL(printer.Stdout, tasks)
	}
	report.FormatTasks(printer.Stdout, tasks, args[0])
	return nil
}

func runTaskStatus(cmd *cobra.Command, args []string) error {
	status := model.TaskStatus(args[2])
	if err := status.Validate(); err != nil {
		return printer.Error("invalid status", err.Error(), []string{"Valid statuses: not-started, in-progress, done, blocked"})
	}

	ctx := context.Background()
	ws, err := openWorkspace(ctx, true)
	if err != nil {
		return err
	}
	defer ws.close()

	id, err := resolveTaskID(ws.sess.Tasks(args[0]), args[1])
	if err != nil {
		return err
	}
	if err := ws.sess.SetTaskStatus(args[0], id, status); err != nil {
		return taskError(err)
	}
	printer.Success("Task %s is now %s\n", shortID(id), status)
	return nil
}

func runTaskMove(cmd *cobra.Command, args []string) error {
	var pos int
	if _, err := fmt.Sscanf(args[2], "%d", &pos); err != nil || pos < 1 {
		return printer.Error("invalid position", fmt.Sprintf("%q is not a position (1, 2, ...)", args[2]), nil)
	}

	ctx := context.Background()
	ws, err := openWorkspace(ctx, true)
	if err != nil {
		return err
	}
	defer ws.close()

	id, err := resolveTaskID(ws.sess.Tasks(args[0]), args[1])
	if err != nil {
		return err
	}
	if err := ws.sess.MoveTask(args[0], id, pos-1); err != nil {
		return taskError(err)
	}
	printer.Success("Moved task %s to position %d\n", shortID(id), pos)
	return nil
}

func runTaskEdit(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if !flags.Changed("assign") && !flags.Changed("tag") && !flags.Changed("due") && !flags.Changed("notes") {
		return printer.Error("nothing to change", "No field flags were given.", []string{"Use --assign, --tag, --due or --notes"})
	}

	ctx := context.Background()
	ws, err := openWorkspace(ctx, true)
	if err != nil {
		return err
	}
	defer ws.close()

	id, err := resolveTaskID(ws.sess.Tasks(args[0]), args[1])
	if err != nil {
		return err
	}

	now := time.Now()
	task, err := ws.sess.EditTask(args[0], id, func(t *model.Task) error {
		if flags.Changed("assign") {
			t.Assignees = taskAssignees
		}
		if flags.Changed("tag") {
			t.Tags = taskTags
		}
		if flags.Changed("notes") {
			t.Notes = taskNotes
		}
		if flags.Changed("due") {
			if taskDue == "" || strings.EqualFold(taskDue, "none") {
				t.Due = ""
				return nil
			}
			due, err := timespec.ParseDue(taskDue, now)
			if err != nil {
				return err
			}
			t.Due = due
		}
		return nil
	})
	if err != nil {
		return taskError(err)
	}
	printer.Success("Updated task %s\n", shortID(task.ID))
	return nil
}

// resolveTaskID expands a short id to the full task id.
func resolveTaskID(tasks []model.Task, shortID string) (string, error) {
	id, err := resolver.ResolveTaskID(tasks, shortID)
	if err == nil {
		return id, nil
	}
	var ambiguous *resolver.AmbiguousError
	if errors.As(err, &ambiguous) {
		return "", printer.ErrorWithContext(
			"ambiguous task id",
			fmt.Sprintf("%d tasks start with %q:\n%s", len(ambiguous.Matches), shortID, resolver.FormatMatches(ambiguous)),
			nil,
			[]string{"Use a longer prefix"},
		)
	}
	return "", printer.Error("task not found", err.Error(), []string{"List tasks:\n  gottwood task list <area>"})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func taskError(err error) error {
	return printer.Error("task update failed", err.Error(), periodHint(err))
}
