// Copyright 2021 Tamas Gulacsi. All rights reserved.

// Command xlsmap imports spreadsheets into JSON records and generates
// templates, driven by a YAML settings file.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/UNO-SOFT/zlog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/UNO-SOFT/sheetmap"
	"github.com/UNO-SOFT/sheetmap/report"
	"github.com/UNO-SOFT/sheetmap/xlsx"
)

var verbose zlog.VerboseVar
var logger = zlog.NewLogger(zlog.MaybeConsoleHandler(&verbose, os.Stderr)).SLog()

// errIncomplete is returned when the ledger holds errors.
var errIncomplete = errors.New("finished with errors")

func main() {
	if err := Main(); err != nil {
		logger.Error("MAIN", "error", err)
		os.Exit(1)
	}
}

func Main() error {
	fs := flag.NewFlagSet("xlsmap", flag.ContinueOnError)
	fs.Var(&verbose, "v", "logging verbosity")
	flagSettings := fs.String("settings", "sheetmap.yaml", "settings file")
	flagConcurrency := fs.Int("concurrency", 0, "number of sheets/rows processed concurrently (default: GOMAXPROCS)")

	opts := func() sheetmap.Options {
		return sheetmap.Options{Logger: logger, Concurrency: *flagConcurrency}
	}

	importFS := flag.NewFlagSet("import", flag.ContinueOnError)
	flagEnc := importFS.String("charset", sheetmap.EncName, "csv charset name")
	flagSheet := importFS.String("sheet", "", "sheet name for csv input (default: the first sheet of the settings)")
	flagReport := importFS.String("report", "", "write the error ledger to this file (.csv, .html, .pdf, optionally .gz)")
	flagOut := importFS.String("o", "-", "output file of the JSON records")
	flagValidate := importFS.Bool("validate", false, "validate struct records")
	pdfOpts := report.DefaultPDFOptions
	importFS.Var(&pdfOpts.AlternateColor, "alternate-color", "alternate color of the PDF report")
	importFS.BoolVar(&pdfOpts.PrintPageNum, "print-pagenum", false, "print page numbers in the PDF report")
	importCmd := ffcli.Command{Name: "import", FlagSet: importFS,
		ShortUsage: "import [flags] <input.xlsx|input.csv>",
		ShortHelp:  "import the tables of a workbook (or csv) as JSON lines",
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return flag.ErrHelp
			}
			specs, err := sheetmap.LoadSettingsFile(*flagSettings)
			if err != nil {
				return err
			}
			book, err := openInput(args[0], *flagEnc, *flagSheet, specs)
			if err != nil {
				return err
			}
			defer book.Close()
			o := opts()
			if *flagValidate {
				o.Validator = validator.New(validator.WithRequiredStructEnabled())
			}
			res, err := sheetmap.ImportBook(ctx, book, specs, o)
			if rErr := writeReport(*flagReport, args[0], res.Ledger, *flagEnc, pdfOpts); rErr != nil && err == nil {
				err = rErr
			}
			if err != nil {
				return err
			}
			if err := writeRecords(*flagOut, specs, res); err != nil {
				return err
			}
			return summary(res.Ledger)
		},
	}

	templateFS := flag.NewFlagSet("template", flag.ContinueOnError)
	flagTemplateOut := templateFS.String("o", "", "output xlsx file (default: settings file + .xlsx)")
	flagData := templateFS.String("data", "", "JSON object of records per table name to fill in")
	flagRows := templateFS.Int("rows", 0, "template rows of tables without rows (default 100)")
	templateCmd := ffcli.Command{Name: "template", FlagSet: templateFS,
		ShortUsage: "template [flags]",
		ShortHelp:  "export an xlsx template with dropdowns and formulas",
		Exec: func(ctx context.Context, args []string) error {
			specs, err := sheetmap.LoadSettingsFile(*flagSettings)
			if err != nil {
				return err
			}
			data, err := readData(*flagData)
			if err != nil {
				return err
			}
			o := opts()
			o.DefaultRows = *flagRows
			res, err := sheetmap.Export(ctx, specs, data, o)
			if err != nil {
				return err
			}
			defer res.Book.Close()
			out := *flagTemplateOut
			if out == "" {
				out = strings.TrimSuffix(*flagSettings, ".yaml") + ".xlsx"
			}
			if err := writeBook(out, res.Book); err != nil {
				return err
			}
			logger.Info("written", "file", out)
			return summary(res.Ledger)
		},
	}

	checkCmd := ffcli.Command{Name: "check",
		ShortUsage: "check",
		ShortHelp:  "check the settings and print the column layout",
		Exec: func(ctx context.Context, args []string) error {
			specs, err := sheetmap.LoadSettingsFile(*flagSettings)
			if err != nil {
				return err
			}
			layout, err := sheetmap.Resolve(specs)
			if err != nil {
				return err
			}
			return printLayout(os.Stdout, layout)
		},
	}

	app := ffcli.Command{Name: "xlsmap", FlagSet: fs,
		ShortUsage:  "xlsmap [flags] <import|template|check>",
		Options:     []ff.Option{ff.WithEnvVarPrefix("XLSMAP")},
		Subcommands: []*ffcli.Command{&importCmd, &templateCmd, &checkCmd},
		Exec: func(ctx context.Context, args []string) error {
			fs.Usage()
			return nil
		},
	}
	if err := app.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return app.Run(ctx)
}

// openInput opens fn as a workbook, or loads it into a new one when it is a csv.
func openInput(fn, encName, sheet string, specs []*sheetmap.SheetSpec) (*xlsx.Book, error) {
	if !strings.HasSuffix(strings.ToLower(fn), ".csv") && fn != "-" {
		fh, err := os.Open(fn)
		if err != nil {
			return nil, err
		}
		defer fh.Close()
		book, err := xlsx.OpenBook(bufio.NewReader(fh))
		if err != nil {
			return nil, &sheetmap.StructuralError{Err: fmt.Errorf("%s: %w", fn, err)}
		}
		return book, nil
	}
	cr, err := sheetmap.OpenCSV(fn, encName)
	if err != nil {
		return nil, err
	}
	defer cr.Close()
	if sheet == "" {
		sheet = specs[0].Name
	}
	book := xlsx.NewBook()
	n, err := sheetmap.LoadCSV(book, sheet, cr.Reader)
	if err != nil {
		book.Close()
		return nil, err
	}
	logger.Debug("csv loaded", "file", fn, "sheet", sheet, "rows", n)
	return book, nil
}

func writeRecords(fn string, specs []*sheetmap.SheetSpec, res *sheetmap.ImportResult) error {
	w := io.Writer(os.Stdout)
	if fn != "" && fn != "-" {
		fh, err := os.Create(fn)
		if err != nil {
			return err
		}
		defer fh.Close()
		w = fh
	}
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, spec := range specs {
		for _, rec := range res.Records(spec.Name) {
			if err := enc.Encode(struct {
				Sheet  string `json:"sheet"`
				Row    int    `json:"row"`
				Record any    `json:"record"`
			}{spec.Name, rec.Row, rec.Value}); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func writeReport(fn, input string, l *sheetmap.Ledger, encName string, pdfOpts report.PDFOptions) error {
	if fn == "" {
		return nil
	}
	return report.WriteFile(fn, report.Entries(l), report.Options{
		Title: input, Charset: encName, PDF: pdfOpts,
	})
}

func readData(fn string) (map[string][]any, error) {
	if fn == "" {
		return nil, nil
	}
	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	var m map[string][]map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	data := make(map[string][]any, len(m))
	for k, recs := range m {
		data[k] = sheetmap.Slice(recs)
	}
	return data, nil
}

func writeBook(fn string, book *xlsx.Book) error {
	fh, err := os.Create(fn)
	if err != nil {
		return err
	}
	if _, err := book.WriteTo(fh); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

func printLayout(w io.Writer, layout *sheetmap.Layout) error {
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	fmt.Fprintln(tw, "SHEET\tTABLE\tSKIP\tCOL\tKEY\tTYPE\tLABEL")
	for _, sh := range layout.Sheets {
		for _, t := range sh.Tables {
			for _, col := range t.Columns {
				label := col.Cell.Label
				if col.Parent != nil {
					label = col.Parent.Label + " / " + label
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
					sh.Name, t.Name, t.SkipRows, col.Letter, col.Key(), col.Cell.Type, label)
			}
		}
	}
	return tw.Flush()
}

func summary(l *sheetmap.Ledger) error {
	errs, warns := l.Errors(), l.Warnings()
	for _, e := range errs {
		logger.Warn("error", "sheet", e.Sheet, "cell", e.Address, "key", e.Key(), "msg", e.Message, "action", e.Action, "code", e.CodeError)
	}
	for _, e := range warns {
		logger.Debug("warning", "sheet", e.Sheet, "row", e.Row, "msg", e.Message)
	}
	logger.Info("done", "errors", len(errs), "warnings", len(warns))
	if !l.Completed() {
		return errIncomplete
	}
	return nil
}
