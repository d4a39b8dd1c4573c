package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"fixtrack/internal/client/api"
	"fixtrack/internal/client/records"
	"fixtrack/internal/models"
	"fixtrack/internal/timeutil"
)

func newRecordsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"r"},
		Short:   "Repair records",
	}
	cmd.AddCommand(
		newRecordsListCmd(a),
		newRecordsShowCmd(a),
		newRecordsSaveCmd(a, false),
		newRecordsSaveCmd(a, true),
		newRecordsDeleteCmd(a),
		newRecordsInvoiceCmd(a),
		newRecordsExportCmd(a),
		newRecordsBrowseCmd(a),
	)
	return cmd
}

func (a *app) newComposer(opts ...records.Option) *records.Composer {
	base := []records.Option{
		records.WithPageSize(a.cfg.Client.PageSize),
		records.WithDebounce(a.cfg.Client.Debounce()),
	}
	return records.New(a.client, append(base, opts...)...)
}

type listFlags struct {
	search, status, from, to, quick, sort, dir string
	page, limit                                int
}

// apply feeds the flags to c in the order the records screen would: range
// first, explicit dates after it, page last since every other field resets it
func (f *listFlags) apply(cmd *cobra.Command, c *records.Composer) error {
	if f.quick != "" {
		if err := c.ApplyQuickRange(f.quick); err != nil {
			return err
		}
	}
	steps := []struct {
		flag  string
		field records.Field
		value string
	}{
		{"from", records.FieldStartDate, f.from},
		{"to", records.FieldEndDate, f.to},
		{"status", records.FieldStatus, f.status},
		{"sort", records.FieldSortKey, f.sort},
		{"dir", records.FieldSortDirection, f.dir},
	}
	for _, s := range steps {
		if !cmd.Flags().Changed(s.flag) {
			continue
		}
		if err := c.SetFilter(s.field, s.value); err != nil {
			return err
		}
	}
	if f.search != "" {
		c.SetSearch(f.search)
		c.FlushSearch()
	}
	if f.page > 1 {
		return c.SetPage(f.page)
	}
	return nil
}

func newRecordsListCmd(a *app) *cobra.Command {
	var f listFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records with filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := a.protected(ctx); err != nil {
				return err
			}

			var opts []records.Option
			if f.limit > 0 {
				opts = append(opts, records.WithPageSize(f.limit))
			}
			c := a.newComposer(opts...)
			defer c.Close()

			if err := f.apply(cmd, c); err != nil {
				return err
			}
			page, err := c.FetchPage(ctx)
			if err != nil {
				return a.apiErr(ctx, err, "could not load records")
			}
			printRecordPage(a.out, page)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.search, "search", "s", "", "match model, customer, phone or complaint")
	fl.StringVar(&f.status, "status", "", "Paid or Pending")
	fl.StringVar(&f.from, "from", "", "start date (YYYY-MM-DD)")
	fl.StringVar(&f.to, "to", "", "end date (YYYY-MM-DD)")
	fl.StringVar(&f.quick, "range", "", "quick range: "+strings.Join(records.QuickRanges, ", "))
	fl.StringVar(&f.sort, "sort", "date", "sort column")
	fl.StringVar(&f.dir, "dir", "desc", "sort direction (asc or desc)")
	fl.IntVar(&f.page, "page", 1, "page number")
	fl.IntVar(&f.limit, "limit", 0, "records per page (default from config)")
	return cmd
}

func newRecordsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.protected(ctx); err != nil {
				return err
			}
			rec, err := a.client.GetRecord(ctx, args[0])
			if err != nil {
				return a.apiErr(ctx, err, "could not load record")
			}
			printRecord(a.out, rec)
			return nil
		},
	}
}

// parsePart reads NAME=PRICE. Names outside the catalogue become custom
// parts; "Custom:Back glass=250" names one explicitly.
func parsePart(s string) (models.SparePart, error) {
	i := strings.LastIndex(s, "=")
	if i <= 0 {
		return models.SparePart{}, fmt.Errorf("part %q: want NAME=PRICE", s)
	}
	name := strings.TrimSpace(s[:i])
	price, err := strconv.ParseFloat(strings.TrimSpace(s[i+1:]), 64)
	if err != nil {
		return models.SparePart{}, fmt.Errorf("part %q: bad price", s)
	}

	if rest, ok := strings.CutPrefix(name, models.CustomPartName+":"); ok {
		return models.SparePart{Name: models.CustomPartName, CustomName: strings.TrimSpace(rest), Price: price}, nil
	}
	for _, known := range models.SparePartCatalogue {
		if strings.EqualFold(known, name) && known != models.CustomPartName {
			return models.SparePart{Name: known, Price: price}, nil
		}
	}
	return models.SparePart{Name: models.CustomPartName, CustomName: name, Price: price}, nil
}

type recordFlags struct {
	date, model, customer, phone, complaint, status string
	parts                                           []string
	charge                                          float64
	before, after                                   string
}

func (f *recordFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.date, "date", "", "repair date (YYYY-MM-DD, default today)")
	fl.StringVar(&f.model, "model", "", "mobile model")
	fl.StringVar(&f.customer, "customer", "", "customer name")
	fl.StringVar(&f.phone, "phone", "", "customer phone")
	fl.StringVar(&f.complaint, "complaint", "", "what is wrong with the phone")
	fl.StringVar(&f.status, "status", "", "Paid or Pending")
	fl.StringArrayVar(&f.parts, "part", nil, "spare part as NAME=PRICE (repeatable)")
	fl.Float64Var(&f.charge, "charge", 0, "service charge")
	fl.StringVar(&f.before, "before", "", "before photo (jpg, png or webp)")
	fl.StringVar(&f.after, "after", "", "after photo (jpg, png or webp)")
}

// overlay writes the changed flags onto req
func (f *recordFlags) overlay(cmd *cobra.Command, req *models.RecordRequest) error {
	fl := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if fl.Changed(name) {
			*dst = v
		}
	}
	set("date", &req.Date, f.date)
	set("model", &req.MobileModel, f.model)
	set("customer", &req.CustomerName, f.customer)
	set("phone", &req.CustomerPhone, f.phone)
	set("complaint", &req.Complaint, f.complaint)
	set("status", &req.PaymentStatus, f.status)
	if fl.Changed("charge") {
		req.ServiceCharge = f.charge
	}
	if fl.Changed("part") {
		req.SpareParts = req.SpareParts[:0]
		for _, s := range f.parts {
			p, err := parsePart(s)
			if err != nil {
				return err
			}
			req.SpareParts = append(req.SpareParts, p)
		}
	}
	return nil
}

// photos opens the photo files; the caller closes them
func (f *recordFlags) photos() ([]api.Photo, func(), error) {
	var out []api.Photo
	var files []*os.File
	closeAll := func() {
		for _, fh := range files {
			fh.Close()
		}
	}
	for field, path := range map[string]string{api.BeforePhoto: f.before, api.AfterPhoto: f.after} {
		if path == "" {
			continue
		}
		fh, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		files = append(files, fh)
		out = append(out, api.Photo{Field: field, Filename: fh.Name(), Body: fh})
	}
	return out, closeAll, nil
}

func requestFrom(r *models.RepairRecord) *models.RecordRequest {
	return &models.RecordRequest{
		Date:          timeutil.FormatDate(r.Date),
		MobileModel:   r.MobileModel,
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		Complaint:     r.Complaint,
		SpareParts:    append([]models.SparePart(nil), r.SpareParts...),
		ServiceCharge: r.ServiceCharge,
		PaymentStatus: r.PaymentStatus,
	}
}

// newRecordsSaveCmd builds "add" or, with update set, "update <id>"
func newRecordsSaveCmd(a *app, update bool) *cobra.Command {
	var f recordFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a repair record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.protected(ctx); err != nil {
				return err
			}

			id := ""
			req := &models.RecordRequest{}
			if update {
				id = args[0]
				existing, err := a.client.GetRecord(ctx, id)
				if err != nil {
					return a.apiErr(ctx, err, "could not load record")
				}
				req = requestFrom(existing)
			}
			if err := f.overlay(cmd, req); err != nil {
				return err
			}

			photos, closePhotos, err := f.photos()
			if err != nil {
				return err
			}
			defer closePhotos()

			var rec *models.RepairRecord
			switch {
			case len(photos) > 0:
				rec, err = a.client.SaveRecordWithPhotos(ctx, id, req, photos)
			case update:
				rec, err = a.client.UpdateRecord(ctx, id, req)
			default:
				rec, err = a.client.CreateRecord(ctx, req)
			}
			if err != nil {
				return a.apiErr(ctx, err, "could not save record")
			}
			printRecord(a.out, rec)
			return nil
		},
	}
	if update {
		cmd.Use = "update <id>"
		cmd.Short = "Change a repair record"
		cmd.Args = cobra.ExactArgs(1)
	}
	f.register(cmd)
	return cmd
}

func newRecordsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.protected(ctx, models.RoleAdmin); err != nil {
				return err
			}
			c := a.newComposer()
			defer c.Close()
			if err := c.DeleteRecord(ctx, args[0]); err != nil {
				return a.apiErr(ctx, err, "could not delete record")
			}
			fmt.Fprintln(a.out, "Record deleted")
			return nil
		},
	}
}

// download writes a backend file into dir, named as the server suggests
func (a *app) download(ctx context.Context, dir, fallback string, fetch func(*os.File) (string, error)) error {
	tmp, err := os.CreateTemp(dir, ".fixtrack-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	name, err := fetch(tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return a.apiErr(ctx, err, "download failed")
	}
	if name == "" {
		name = fallback
	}
	dest := filepath.Join(dir, filepath.Base(name))
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %s\n", dest)
	return nil
}

func newRecordsInvoiceCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "invoice <id>",
		Short: "Download the PDF invoice of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.protected(ctx); err != nil {
				return err
			}
			return a.download(ctx, dir, "invoice.pdf", func(f *os.File) (string, error) {
				return a.client.DownloadInvoice(ctx, args[0], f)
			})
		},
	}
	cmd.Flags().StringVarP(&dir, "out", "o", ".", "directory to save into")
	return cmd
}

func newRecordsExportCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:       "export <excel|pdf>",
		Short:     "Export every record",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{api.ExportExcel, api.ExportPDF},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.protected(ctx); err != nil {
				return err
			}
			ext := ".xlsx"
			if args[0] == api.ExportPDF {
				ext = ".pdf"
			}
			return a.download(ctx, dir, "repair_records"+ext, func(f *os.File) (string, error) {
				return a.client.Export(ctx, args[0], f)
			})
		},
	}
	cmd.Flags().StringVarP(&dir, "out", "o", ".", "directory to save into")
	return cmd
}

const browseHelp = `Commands:
  s TEXT          search (empty clears)
  status STATUS   Paid, Pending or empty
  range TAG       ` + "today, yesterday, last7, thisMonth, allTime, custom" + `
  from DATE       start date (YYYY-MM-DD)
  to DATE         end date
  sort KEY [DIR]  sort column and direction
  n / p           next / previous page
  del ID          delete a record (admin)
  q               quit`

func newRecordsBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Interactive records screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if _, err := a.protected(ctx); err != nil {
				return err
			}

			var mu sync.Mutex
			c := a.newComposer(
				records.WithAutoFetch(ctx),
				records.WithOnChange(func(page *models.RecordPage, err error) {
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						fmt.Fprintln(a.out, "Error:", a.apiErr(ctx, err, "could not load records"))
						return
					}
					printRecordPage(a.out, page)
				}),
			)
			defer c.Close()

			fmt.Fprintln(a.out, browseHelp)
			if _, err := c.FetchPage(ctx); err != nil {
				return a.apiErr(ctx, err, "could not load records")
			}

			for {
				line, err := a.prompt("> ")
				if err != nil {
					return nil
				}
				if quit, err := browseStep(ctx, a, c, line); quit {
					return nil
				} else if err != nil {
					mu.Lock()
					fmt.Fprintln(a.out, "Error:", err)
					mu.Unlock()
				}
			}
		},
	}
}

// browseStep applies one line typed on the browse screen
func browseStep(ctx context.Context, a *app, c *records.Composer, line string) (bool, error) {
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch verb {
	case "":
		return false, nil
	case "q", "quit", "exit":
		return true, nil
	case "?", "help":
		fmt.Fprintln(a.out, browseHelp)
		return false, nil
	case "s", "search":
		c.SetSearch(arg)
		return false, nil
	case "status":
		return false, c.SetFilter(records.FieldStatus, arg)
	case "range":
		return false, c.ApplyQuickRange(arg)
	case "from":
		return false, c.SetFilter(records.FieldStartDate, arg)
	case "to":
		return false, c.SetFilter(records.FieldEndDate, arg)
	case "sort":
		key, dir, _ := strings.Cut(arg, " ")
		if err := c.SetFilter(records.FieldSortKey, key); err != nil {
			return false, err
		}
		if dir = strings.TrimSpace(dir); dir != "" {
			return false, c.SetFilter(records.FieldSortDirection, dir)
		}
		return false, nil
	case "n", "next":
		page := c.Page()
		if page.TotalPages > 0 && page.CurrentPage >= page.TotalPages {
			return false, errors.New("already on the last page")
		}
		return false, c.SetPage(c.State().PageNumber + 1)
	case "p", "prev":
		n := c.State().PageNumber
		if n <= 1 {
			return false, errors.New("already on the first page")
		}
		return false, c.SetPage(n - 1)
	case "del":
		if _, err := a.protected(ctx, models.RoleAdmin); err != nil {
			return false, err
		}
		if err := c.DeleteRecord(ctx, arg); err != nil {
			return false, a.apiErr(ctx, err, "could not delete record")
		}
		fmt.Fprintln(a.out, "Record deleted")
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %q, type ? for help", verb)
	}
}
