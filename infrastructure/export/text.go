// Package export renders documents for download. PDF rendering lives with
// an external collaborator; the plain-text renderer here is the built-in
// fallback format.
package export

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"jdbuilder/domain/jd"
)

// TextRenderer renders a document as a plain-text report.
type TextRenderer struct{}

// NewTextRenderer creates the renderer.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// Render implements ports.Exporter.
func (r *TextRenderer) Render(doc *jd.Document) ([]byte, string, error) {
	if doc == nil {
		return nil, "", fmt.Errorf("nil document")
	}

	var b bytes.Buffer
	writeHeading(&b, "Job Description Package")

	if doc.Summary != "" {
		writeHeading(&b, "Summary")
		fmt.Fprintln(&b, doc.Summary)
	}

	for i, role := range doc.Roles {
		writeHeading(&b, fmt.Sprintf("Role %d: %s", i+1, role.Title))
		writeField(&b, "Craft family", role.CraftFamily)
		writeField(&b, "Service type", role.ServiceType)
		if role.WeeklyHours > 0 {
			writeField(&b, "Weekly hours", fmt.Sprintf("%d", role.WeeklyHours))
		}
		writeField(&b, "Purpose", role.Purpose)
		writeList(&b, "Core outcomes", role.CoreOutcomes)
		writeList(&b, "Responsibilities", role.Responsibilities)
		writeList(&b, "Skills", role.Skills)
		writeList(&b, "Tools", role.Tools)
		writeList(&b, "KPIs", role.KPIs)
		writeList(&b, "Personality", role.Personality)
		writeField(&b, "Reporting line", role.ReportingLine)
		writeSampleWeek(&b, role.SampleWeek)
		writeField(&b, "Overlap requirements", role.OverlapRequirements)
		writeField(&b, "Communication norms", role.CommunicationNorms)
	}

	if len(doc.SplitAllocation) > 0 {
		writeHeading(&b, "Split Allocation")
		for _, row := range doc.SplitAllocation {
			fmt.Fprintf(&b, "- %s", row.Area)
			if row.Owner != "" {
				fmt.Fprintf(&b, " (%s)", row.Owner)
			}
			if row.ShareHours > 0 {
				fmt.Fprintf(&b, ", %dh/week", row.ShareHours)
			}
			if row.Notes != "" {
				fmt.Fprintf(&b, " - %s", row.Notes)
			}
			fmt.Fprintln(&b)
		}
	}

	if rec := doc.ServiceRecommendation; rec != nil {
		writeHeading(&b, "Service Recommendation")
		writeField(&b, "Best fit", rec.BestFit)
		writeField(&b, "Reasoning", rec.Reasoning)
		writeList(&b, "Alternatives", rec.Alternatives)
	}

	if plan := doc.Onboarding2W; plan != nil {
		writeHeading(&b, "Two-Week Onboarding")
		writeList(&b, "Week 1", plan.WeekOne)
		writeList(&b, "Week 2", plan.WeekTwo)
	}

	writeList(&b, "Risks", doc.Risks)
	writeList(&b, "Assumptions", doc.Assumptions)

	return b.Bytes(), "text/plain; charset=utf-8", nil
}

func writeHeading(b *bytes.Buffer, title string) {
	fmt.Fprintf(b, "\n%s\n%s\n", title, strings.Repeat("=", len(title)))
}

func writeField(b *bytes.Buffer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

func writeList(b *bytes.Buffer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", label)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

var weekdayOrder = map[string]int{
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
	"friday": 4, "saturday": 5, "sunday": 6,
}

func writeSampleWeek(b *bytes.Buffer, week map[string]string) {
	if len(week) == 0 {
		return
	}
	days := make([]string, 0, len(week))
	for day := range week {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool {
		oi, iOK := weekdayOrder[strings.ToLower(days[i])]
		oj, jOK := weekdayOrder[strings.ToLower(days[j])]
		if iOK && jOK {
			return oi < oj
		}
		if iOK != jOK {
			return iOK
		}
		return days[i] < days[j]
	})
	fmt.Fprintln(b, "Sample week:")
	for _, day := range days {
		fmt.Fprintf(b, "- %s: %s\n", day, week[day])
	}
}
