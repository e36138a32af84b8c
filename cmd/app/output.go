package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/igormartsekha/saas-starter-kit/internal/domain"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	navStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	secretStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// toastPrinter shows screen notifications on the terminal.
type toastPrinter struct{}

func (toastPrinter) Success(message string) {
	fmt.Println(successStyle.Render("✓ " + message))
}

func (toastPrinter) Error(message string) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("✗ "+message))
}

// navPrinter reports where the web app would go next.
type navPrinter struct{}

func (navPrinter) Navigate(path string) {
	fmt.Println(navStyle.Render("→ " + path))
}

func printSecret(label, value string) {
	fmt.Println(label)
	fmt.Println(secretStyle.Render(value))
}

func printJSON(v any) error {
	b, err := jsonMarshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func jsonMarshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func formatMaybeUint(v *uint) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatUint(uint64(*v), 10)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatMaybeTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return formatTime(*t)
}

func printUser(u domain.ClientUser) {
	image := "-"
	if u.Image != "" {
		image = "set"
	}
	printKV([][2]string{{"id", uintToString(u.ID)}, {"name", u.Name}, {"email", u.Email}, {"avatar", image}})
}

func printTeam(t domain.Team) {
	domainName := t.Domain
	if domainName == "" {
		domainName = "-"
	}
	printKV([][2]string{
		{"id", uintToString(t.ID)},
		{"name", t.Name},
		{"slug", t.Slug},
		{"domain", domainName},
		{"created_at", formatTime(t.CreatedAt)},
	})
}

func printTeams(items []domain.Team) {
	rows := make([][]string, 0, len(items))
	for _, t := range items {
		rows = append(rows, []string{t.Slug, t.Name, strconv.Itoa(t.MemberCount), formatTime(t.CreatedAt)})
	}
	printTable([]string{"SLUG", "NAME", "MEMBERS", "CREATED_AT"}, rows)
}

func printMembers(items []domain.TeamMember) {
	rows := make([][]string, 0, len(items))
	for _, m := range items {
		rows = append(rows, []string{uintToString(m.UserID), m.User.Name, m.User.Email, string(m.Role), formatTime(m.CreatedAt)})
	}
	printTable([]string{"USER_ID", "NAME", "EMAIL", "ROLE", "JOINED_AT"}, rows)
}

func printInvitations(items []domain.Invitation) {
	rows := make([][]string, 0, len(items))
	for _, inv := range items {
		rows = append(rows, []string{inv.ID, inv.Email, string(inv.Role), strconv.FormatBool(inv.SentViaEmail), formatTime(inv.ExpiresAt)})
	}
	printTable([]string{"ID", "EMAIL", "ROLE", "VIA_EMAIL", "EXPIRES_AT"}, rows)
}

func printAPIKeys(items []domain.APIKey) {
	rows := make([][]string, 0, len(items))
	for _, k := range items {
		rows = append(rows, []string{k.ID, k.Name, formatTime(k.CreatedAt), formatMaybeTime(k.LastUsedAt), formatMaybeTime(k.ExpiresAt)})
	}
	printTable([]string{"ID", "NAME", "CREATED_AT", "LAST_USED", "EXPIRES_AT"}, rows)
}

func printAuditRecords(items []domain.AuditRecord) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		actor := item.ActorUserEmail
		if actor == "" {
			actor = formatMaybeUint(item.ActorUserID)
		}
		rows = append(rows, []string{
			uintToString(item.ID),
			formatTime(item.CreatedAt),
			actor,
			formatMaybeUint(item.TeamID),
			item.Action,
			item.TargetType + ":" + item.TargetID,
		})
	}
	printTable([]string{"ID", "AT", "ACTOR", "TEAM", "ACTION", "TARGET"}, rows)
}
