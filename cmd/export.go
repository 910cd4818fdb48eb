package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/export"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

// maxExportLeads caps how many leads one export reads.
const maxExportLeads = 10000

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export leads to files or push them to a CRM",
}

// newFileExportCmd builds the export subcommand for one file format.
func newFileExportCmd(ext, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   ext,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			filter, err := leadFilterFrom(ctx, cmd, st)
			if err != nil {
				return err
			}
			filter.Limit = maxExportLeads
			leads, _, err := st.ListLeads(ctx, filter)
			if err != nil {
				return eris.Wrapf(err, "export %s", ext)
			}

			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = export.Filename(exportName(filter), time.Now(), ext)
				if ext == "docx" {
					out = export.ReportFilename(time.Now())
				}
			}
			if err := writeLeadsFile(out, filter.Query, leads); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "wrote %d leads to %s\n", len(leads), out)
			return nil
		},
	}
	leadFilterFlags(cmd)
	cmd.Flags().String("out", "", "output path (default LeadGenius_<query>_<date>."+ext+")")
	return cmd
}

// newCRMExportCmd builds the export subcommand that pushes to one CRM.
func newCRMExportCmd(target, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   target,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			pusher, err := pusherNamed(target)
			if err != nil {
				return err
			}

			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			filter, err := leadFilterFrom(ctx, cmd, st)
			if err != nil {
				return err
			}
			filter.Limit = maxExportLeads
			leads, _, err := st.ListLeads(ctx, filter)
			if err != nil {
				return eris.Wrapf(err, "export %s", target)
			}
			if len(leads) == 0 {
				fmt.Fprintln(os.Stderr, "No leads to export.")
				return nil
			}

			results, err := export.PushAll(ctx, leads, pusher)
			formatPushResults(os.Stdout, results)
			return err
		},
	}
	leadFilterFlags(cmd)
	return cmd
}

func exportName(f model.LeadFilter) string {
	if f.Query != "" {
		return f.Query
	}
	return "leads"
}

// writeLeadsFile writes leads to path in the format its extension names.
func writeLeadsFile(path, query string, leads []model.Lead) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer f.Close() //nolint:errcheck

	switch ext {
	case "csv":
		err = export.WriteCSV(f, leads)
	case "xlsx":
		err = export.WriteXLSX(f, leads)
	case "docx":
		err = export.WriteDOCX(f, query, leads, time.Now())
	case "geojson", "json":
		err = export.WriteGeoJSON(f, leads)
	default:
		_ = os.Remove(path)
		return eris.Errorf("unsupported export format %q (want csv, xlsx, docx or geojson)", ext)
	}
	if err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	return f.Close()
}

func init() {
	exportCmd.AddCommand(newFileExportCmd("csv", "Export leads to CSV"))
	exportCmd.AddCommand(newFileExportCmd("xlsx", "Export leads to an Excel workbook"))
	exportCmd.AddCommand(newFileExportCmd("docx", "Export a Word lead report"))
	exportCmd.AddCommand(newFileExportCmd("geojson", "Export lead locations as GeoJSON"))
	exportCmd.AddCommand(newCRMExportCmd("salesforce", "Push leads to Salesforce"))
	exportCmd.AddCommand(newCRMExportCmd("notion", "Push leads to a Notion lead database"))
	rootCmd.AddCommand(exportCmd)
}
