package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const barWidth = 40

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")) // pink

	labelStyle = lipgloss.NewStyle().
			Width(12).
			Foreground(lipgloss.Color("212")) // purple

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	statStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// expected returns each outcome's share of the total weight.
func expected(weights []float64) []float64 {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	shares := make([]float64, len(weights))
	for i, w := range weights {
		shares[i] = w / sum
	}
	return shares
}

// chiSquared compares counts with the expected shares. Outcomes with no
// weight are left out, so df is one less than the number of weighted outcomes.
func chiSquared(counts []int, shares []float64) (stat float64, df int) {
	total := 0
	for _, c := range counts {
		total += c
	}
	for i, c := range counts {
		if shares[i] == 0 {
			continue
		}
		exp := shares[i] * float64(total)
		d := float64(c) - exp
		stat += d * d / exp
		df++
	}
	return stat, max(df-1, 0)
}

func label(labels []string, i int) string {
	if i < len(labels) && labels[i] != "" {
		return labels[i]
	}
	return fmt.Sprintf("outcome %d", i)
}

func render(sim *Simulation, width int) string {
	title := cases.Title(language.English)
	shares := expected(sim.Weights)

	total := 0
	for _, c := range sim.Counts {
		total += c
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title.String(sim.Title)))
	b.WriteString("\n")
	if sim.Note != "" {
		b.WriteString(noteStyle.Render(wordwrap.String(sim.Note, width)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for i, c := range sim.Counts {
		observed := float64(c) / float64(total)
		bar := strings.Repeat("█", int(observed*barWidth+0.5))
		fmt.Fprintf(&b, "%s %s %6.2f%% (expected %6.2f%%)\n",
			labelStyle.Render(title.String(label(sim.Labels, i))),
			barStyle.Render(fmt.Sprintf("%-*s", barWidth, bar)),
			observed*100, shares[i]*100)
	}

	stat, df := chiSquared(sim.Counts, shares)
	seed := "time"
	if sim.Seed != 0 {
		seed = fmt.Sprintf("%d", sim.Seed)
	}
	b.WriteString("\n")
	b.WriteString(statStyle.Render(fmt.Sprintf("draws %d  seed %s  chi-squared %.3f  df %d", total, seed, stat, df)))
	b.WriteString("\n")
	return b.String()
}
