package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"fixtrack/internal/models"
	"fixtrack/internal/timeutil"
)

func money(v float64) string {
	return fmt.Sprintf("Rs. %.2f", v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printRecordPage(w io.Writer, page *models.RecordPage) {
	if len(page.Items) == 0 {
		fmt.Fprintln(w, "No records found")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tMODEL\tCUSTOMER\tCOMPLAINT\tTOTAL\tSTATUS")
	for _, r := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(r.ID), timeutil.FormatDate(r.Date), r.MobileModel, r.CustomerName,
			truncate(r.Complaint, 32), money(r.TotalPrice), r.PaymentStatus)
	}
	tw.Flush()
	fmt.Fprintf(w, "Page %d of %d\n", page.CurrentPage, max(page.TotalPages, 1))
}

func printRecord(w io.Writer, r *models.RepairRecord) {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%s\n", r.ID)
	fmt.Fprintf(tw, "Date:\t%s\n", timeutil.FormatDate(r.Date))
	fmt.Fprintf(tw, "Model:\t%s\n", r.MobileModel)
	fmt.Fprintf(tw, "Customer:\t%s\n", r.CustomerName)
	if r.CustomerPhone != "" {
		fmt.Fprintf(tw, "Phone:\t%s\n", r.CustomerPhone)
	}
	fmt.Fprintf(tw, "Complaint:\t%s\n", r.Complaint)
	for i, p := range r.SpareParts {
		label := ""
		if i == 0 {
			label = "Parts:"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", label, p.DisplayName(), money(p.Price))
	}
	fmt.Fprintf(tw, "Service charge:\t%s\n", money(r.ServiceCharge))
	fmt.Fprintf(tw, "Total:\t%s\n", money(r.TotalPrice))
	fmt.Fprintf(tw, "Status:\t%s\n", r.PaymentStatus)
	if r.BeforePhotoURL != "" {
		fmt.Fprintf(tw, "Before photo:\t%s\n", r.BeforePhotoURL)
	}
	if r.AfterPhotoURL != "" {
		fmt.Fprintf(tw, "After photo:\t%s\n", r.AfterPhotoURL)
	}
	tw.Flush()
}

func printSummary(w io.Writer, s *models.Summary) {
	tw := newTable(w)
	fmt.Fprintf(tw, "Today's collection:\t%s\n", money(s.TodayCollection))
	fmt.Fprintf(tw, "This month:\t%s\n", money(s.MonthCollection))
	fmt.Fprintf(tw, "All time:\t%s\n", money(s.TotalCollection))
	fmt.Fprintf(tw, "Pending:\t%s\n", money(s.PendingAmount))
	fmt.Fprintf(tw, "Today's profit:\t%s\n", money(s.TodayProfit))
	fmt.Fprintf(tw, "Month's profit:\t%s\n", money(s.MonthProfit))
	tw.Flush()

	if len(s.MonthlyEarnings) == 0 {
		return
	}
	peak := 0.0
	for _, m := range s.MonthlyEarnings {
		peak = max(peak, m.Total)
	}
	fmt.Fprintln(w, "\nMonthly earnings")
	tw = newTable(w)
	for _, m := range s.MonthlyEarnings {
		bar := 0
		if peak > 0 {
			bar = int(m.Total / peak * 30)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Month, money(m.Total), strings.Repeat("#", bar))
	}
	tw.Flush()
}

func printAnalysis(w io.Writer, a *models.Analysis) {
	from, to := a.StartDate, a.EndDate
	if from == "" {
		from = "beginning"
	}
	if to == "" {
		to = "today"
	}
	fmt.Fprintf(w, "Service analysis from %s to %s\n", from, to)

	tw := newTable(w)
	fmt.Fprintf(tw, "Repairs:\t%d (%d paid, %d pending)\n", a.TotalRepairs, a.PaidRepairs, a.PendingRepairs)
	fmt.Fprintf(tw, "Revenue:\t%s\n", money(a.TotalRevenue))
	fmt.Fprintf(tw, "Parts:\t%s\n", money(a.PartsRevenue))
	fmt.Fprintf(tw, "Service:\t%s\n", money(a.ServiceRevenue))
	fmt.Fprintf(tw, "Pending:\t%s\n", money(a.PendingAmount))
	tw.Flush()

	printRanking(w, "Top models", a.TopModels)
	printRanking(w, "Top parts", a.TopParts)
}

func printRanking(w io.Writer, title string, items []models.NameCount) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
	tw := newTable(w)
	for i, it := range items {
		fmt.Fprintf(tw, "%d.\t%s\t%d\n", i+1, it.Name, it.Count)
	}
	tw.Flush()
}

func printUsers(w io.Writer, users []*models.User) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tUSERNAME\tROLE\tCREATED")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Username, u.Role, timeutil.FormatDate(u.CreatedAt))
	}
	tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
