// Package url implements the command-line interface for managing the
// URL submission queue. This file contains the implementation of the
// list command that displays tracked URLs in a formatted table with
// their status and attempt counts.
package url

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	cmdcommon "github.com/jonesrussell/goindexer/cmd/common"
	"github.com/jonesrussell/goindexer/internal/logger"
	"github.com/jonesrussell/goindexer/internal/queue"
	"github.com/spf13/cobra"
)

// timeLayout is the display format for record timestamps
const timeLayout = "2006-01-02 15:04"

// maxErrorDisplayLength bounds the last-error column width
const maxErrorDisplayLength = 40

// TableRenderer handles the display of queue records in a table format
type TableRenderer struct {
	logger logger.Interface
}

// NewTableRenderer creates a new TableRenderer instance
func NewTableRenderer(log logger.Interface) *TableRenderer {
	return &TableRenderer{
		logger: log,
	}
}

// RenderTable formats and displays the records in a table format
func (r *TableRenderer) RenderTable(records []*queue.Record) error {
	// Initialize table writer with stdout as output
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)

	// Plain text output:
	// - No borders or separators
	// - Tab padding between columns
	noBorderStyle := table.Style{
		Box: table.BoxStyle{
			BottomLeft:       "",
			BottomRight:      "",
			BottomSeparator:  "",
			Left:             "",
			LeftSeparator:    "",
			MiddleHorizontal: "",
			MiddleSeparator:  "",
			MiddleVertical:   "",
			PaddingLeft:      "\t",
			PaddingRight:     "\t",
			Right:            "",
			RightSeparator:   "",
			TopLeft:          "",
			TopRight:         "",
			TopSeparator:     "",
			UnfinishedRow:    "",
		},
		Options: table.Options{
			DrawBorder:      false,
			SeparateColumns: false,
			SeparateHeader:  false,
			SeparateRows:    false,
		},
	}
	t.SetStyle(noBorderStyle)

	// Add table headers
	t.AppendHeader(table.Row{"URL", "Status", "Priority", "Attempts", "Source", "Added", "Last Error"})

	// Add rows
	for _, rec := range records {
		t.AppendRow(table.Row{
			rec.URL,
			string(rec.Status),
			strconv.Itoa(rec.Priority),
			strconv.Itoa(rec.Attempts),
			rec.Source,
			rec.AddedAt.Format(timeLayout),
			truncateMessage(rec.LastError),
		})
	}

	// Render the table
	t.Render()
	return nil
}

// Lister handles listing queue records
type Lister struct {
	queue    *queue.Queue
	logger   logger.Interface
	renderer *TableRenderer
	status   queue.Status
}

// NewLister creates a new Lister instance
func NewLister(q *queue.Queue, log logger.Interface, renderer *TableRenderer, status queue.Status) *Lister {
	return &Lister{
		queue:    q,
		logger:   log,
		renderer: renderer,
		status:   status,
	}
}

// Start begins the list operation
func (l *Lister) Start() error {
	records := l.queue.List(l.status)
	if len(records) == 0 {
		if l.status != "" {
			l.logger.Info("No URLs with the requested status", "status", string(l.status))
		} else {
			l.logger.Info("No URLs tracked. Use 'url add' to queue one.")
		}
		return nil
	}

	// Render the table
	return l.renderer.RenderTable(records)
}

// truncateMessage shortens an error message for table display
func truncateMessage(msg string) string {
	if len(msg) > maxErrorDisplayLength {
		return msg[:maxErrorDisplayLength] + "..."
	}
	return msg
}

// runListCmd executes the list command
func runListCmd(cmd *cobra.Command, args []string) error {
	// Get dependencies
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	status := queue.Status(listStatus)
	if listStatus != "" && !status.Valid() {
		return fmt.Errorf("unknown status %q (expected pending, submitted, failed, or permanently_failed)", listStatus)
	}

	q, err := cmdcommon.OpenQueue(deps.Config, deps.Logger)
	if err != nil {
		return err
	}

	renderer := NewTableRenderer(deps.Logger)
	lister := NewLister(q, deps.Logger, renderer, status)

	return lister.Start()
}
