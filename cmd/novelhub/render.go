package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"novelhub/internal/pipeline"
	"novelhub/pkg/models"
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	labelStyle  = lipgloss.NewStyle().Width(12)
)

func field(label, value string) string {
	return labelStyle.Render(label) + value
}

func renderReport(rep *pipeline.Report) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(rep.Publication.Title))
	if rep.Publication.Author != "" {
		b.WriteString(detailStyle.Render(" · " + rep.Publication.Author))
	}
	b.WriteString("\n")
	b.WriteString(field("chapters", fmt.Sprintf("%s of %d", rep.Range, rep.Publication.TotalChapters)) + "\n")
	b.WriteString(field("fetch", summarize(rep.Fetch)) + "\n")
	b.WriteString(field("extract", summarize(rep.Extract)) + "\n")

	if len(rep.Missing) == 0 {
		b.WriteString(field("result", okStyle.Render(fmt.Sprintf("%d chapters included", rep.Chapters))) + "\n")
	} else {
		b.WriteString(field("result", warnStyle.Render(fmt.Sprintf("%d chapters included, %d missing", rep.Chapters, len(rep.Missing)))) + "\n")
		b.WriteString(field("missing", fmt.Sprint(rep.Missing)) + "\n")
		for _, o := range rep.Fetch {
			if o.Status == models.ChapterFailed {
				b.WriteString(detailStyle.Render(fmt.Sprintf("  %d: %s", o.Number(), o.Detail)) + "\n")
			}
		}
		b.WriteString(detailStyle.Render("run the same command again to retry the missing chapters") + "\n")
	}
	b.WriteString(field("file", rep.Path) + "\n")
	b.WriteString(field("blake2b", detailStyle.Render(rep.Checksum)))
	return b.String()
}

// summarize counts outcomes per status in a fixed order.
func summarize(outcomes []models.ChapterOutcome) string {
	counts := map[models.ChapterStatus]int{}
	for _, o := range outcomes {
		counts[o.Status]++
	}
	order := []models.ChapterStatus{
		models.ChapterFetched, models.ChapterExtracted, models.ChapterCached,
		models.ChapterFailed, models.ChapterMissing,
	}
	var parts []string
	for _, st := range order {
		n := counts[st]
		if n == 0 {
			continue
		}
		s := fmt.Sprintf("%d %s", n, st)
		if st == models.ChapterFailed || st == models.ChapterMissing {
			s = failStyle.Render(s)
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return detailStyle.Render("nothing to do")
	}
	return strings.Join(parts, ", ")
}

func renderMetadata(meta *models.PublicationMetadata) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(meta.Name) + "\n")
	b.WriteString(field("id", meta.ID) + "\n")
	if meta.Author != "" {
		b.WriteString(field("author", meta.Author) + "\n")
	}
	b.WriteString(field("chapters", fmt.Sprint(meta.ChapterCount())) + "\n")
	if n := meta.ChapterCount(); n > 0 {
		b.WriteString(field("first", meta.Titles[0]) + "\n")
		b.WriteString(field("last", meta.Titles[n-1]) + "\n")
	}
	if meta.Description != "" {
		b.WriteString(detailStyle.Width(72).Render(meta.Description))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderPublications(items []models.Publication) string {
	if len(items) == 0 {
		return detailStyle.Render("no publications cataloged yet")
	}
	var b strings.Builder
	for _, p := range items {
		fmt.Fprintf(&b, "%s  %s %s\n",
			titleStyle.Render(p.Title),
			detailStyle.Render(p.ID),
			detailStyle.Render(fmt.Sprintf("(%d chapters)", p.TotalChapters)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderBuilds(builds []models.Build) string {
	if len(builds) == 0 {
		return detailStyle.Render("no builds yet")
	}
	var b strings.Builder
	for _, bd := range builds {
		status := okStyle.Render("complete")
		if len(bd.Missing) > 0 {
			status = warnStyle.Render(fmt.Sprintf("missing %v", bd.Missing))
		}
		fmt.Fprintf(&b, "[%d, %d]  %s  %s\n  %s\n",
			bd.Start, bd.End, status,
			detailStyle.Render(bd.CreatedAt.Format("2006-01-02 15:04")),
			bd.Path)
	}
	return strings.TrimRight(b.String(), "\n")
}
