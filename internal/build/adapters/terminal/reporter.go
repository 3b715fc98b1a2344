package terminal

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/cochaviz/cloudbuild/internal/build"
)

// Ensure Reporter satisfies the build reporter interface.
var _ build.Reporter = (*Reporter)(nil)

const queuedMessage = "Concurrency limit reached: build will start as soon as other builds finish."

// Reporter renders build progress for a terminal. Log chunks are written as
// received; everything else is styled when Out supports colors.
type Reporter struct {
	out      io.Writer
	renderer *lipgloss.Renderer

	mu sync.Mutex
}

// NewReporter returns a reporter writing to out.
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{
		out:      out,
		renderer: lipgloss.NewRenderer(out),
	}
}

func (r *Reporter) JobSummary(job build.Job) {
	rows := [][]string{
		{"Build ID", strconv.FormatInt(job.ID, 10)},
		{"Platform", job.Platform.String()},
		{"Build Type", job.BuildType.String()},
		{"Commit", valueOrDash(job.CommitSHA)},
		{"Target Platform", valueOrDash(job.StackName)},
	}
	if job.ProfileName != "" {
		rows = append(rows, []string{"Security Profile", job.ProfileName})
	}
	if job.EnvironmentName != "" {
		rows = append(rows, []string{"Environment", job.EnvironmentName})
	}
	if job.NativeConfigName != "" {
		rows = append(rows, []string{"Native Config", job.NativeConfigName})
	}

	keyStyle := r.renderer.NewStyle().Bold(true).Padding(0, 1)
	valueStyle := r.renderer.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.renderer.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return keyStyle
			}
			return valueStyle
		}).
		Rows(rows...)

	r.write(t.Render() + "\n")
}

func (r *Reporter) QueuedNotice(build.Job) {
	style := r.renderer.NewStyle().Foreground(lipgloss.Color("3"))
	r.write(style.Render(queuedMessage) + "\n")
}

func (r *Reporter) LogChunk(chunk string) {
	r.write(chunk)
}

func (r *Reporter) Completed(job build.Job, artifactName string) {
	style := r.renderer.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	msg := fmt.Sprintf("Build %d completed successfully.", job.ID)
	if artifactName != "" {
		msg = fmt.Sprintf("Build %d completed successfully. Artifact saved as %s", job.ID, artifactName)
	}
	r.write("\n" + style.Render(msg) + "\n")
}

func (r *Reporter) write(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = io.WriteString(r.out, s)
}

func valueOrDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
