package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sumika/estimator/internal/model"
	"github.com/sumika/estimator/internal/records"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect and manage stored estimate records",
}

var recordsListLimit int

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent estimate records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		recs, err := st.QueryRecent(ctx, recordsListLimit)
		if err != nil {
			return err
		}
		return printJSON(recs)
	},
}

// seedRecord is one row of a YAML seed file: a known property with its
// agreed amount, used to bootstrap the comparison pool.
type seedRecord struct {
	Layout    string   `yaml:"layout"`
	AreaSqm   *float64 `yaml:"area_sqm"`
	Region    string   `yaml:"region"`
	Notes     string   `yaml:"notes"`
	Features  []string `yaml:"features"`
	Amount    float64  `yaml:"amount"`
	YearBuilt *float64 `yaml:"year_built"`
}

var recordsImportFile string

var recordsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import seed comparables from a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		data, err := os.ReadFile(recordsImportFile)
		if err != nil {
			return eris.Wrap(err, "read seed file")
		}
		var seeds []seedRecord
		if err := yaml.Unmarshal(data, &seeds); err != nil {
			return eris.Wrap(err, "parse seed file")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		now := time.Now().UTC()
		for i, s := range seeds {
			amount := s.Amount
			rec := model.ComparableRecord{
				ID:           uuid.NewString(),
				PartitionKey: records.PartitionKey(s.Region),
				Status:       model.StatusFinalized,
				Property: model.PropertyProfile{
					Layout:    s.Layout,
					AreaSqm:   s.AreaSqm,
					Region:    s.Region,
					Notes:     s.Notes,
					Features:  s.Features,
					YearBuilt: s.YearBuilt,
				},
				Estimate: model.EstimateResult{
					Amount:     s.Amount,
					Currency:   model.DefaultCurrency,
					Method:     model.MethodManual,
					UserAmount: &amount,
				},
				Version:   1,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := st.Insert(ctx, rec); err != nil {
				return eris.Wrapf(err, "insert seed %d", i)
			}
		}

		zap.L().Info("seed records imported",
			zap.Int("count", len(seeds)),
			zap.String("file", recordsImportFile))
		return nil
	},
}

var (
	recordsExportFile  string
	recordsExportLimit int
)

var recordsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recent records to an Excel workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		recs, err := st.QueryRecent(ctx, recordsExportLimit)
		if err != nil {
			return err
		}

		file := xlsx.NewFile()
		sheet, err := file.AddSheet("Estimates")
		if err != nil {
			return eris.Wrap(err, "add sheet")
		}

		header := sheet.AddRow()
		for _, h := range []string{"ID", "Status", "Layout", "Area (sqm)", "Region", "Amount", "User Amount", "Method", "Created"} {
			header.AddCell().SetString(h)
		}

		for _, rec := range recs {
			row := sheet.AddRow()
			row.AddCell().SetString(rec.ID)
			row.AddCell().SetString(string(rec.Status))
			row.AddCell().SetString(rec.Property.Layout)
			row.AddCell().SetString(floatCell(rec.Property.AreaSqm))
			row.AddCell().SetString(rec.Property.Region)
			row.AddCell().SetFloat(rec.Estimate.Amount)
			row.AddCell().SetString(floatCell(rec.Estimate.UserAmount))
			row.AddCell().SetString(string(rec.Estimate.Method))
			row.AddCell().SetString(rec.CreatedAt.Format(time.RFC3339))
		}

		if err := file.Save(recordsExportFile); err != nil {
			return eris.Wrap(err, "save workbook")
		}

		zap.L().Info("records exported",
			zap.Int("count", len(recs)),
			zap.String("file", recordsExportFile))
		fmt.Printf("wrote %d records to %s\n", len(recs), recordsExportFile)
		return nil
	},
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func init() {
	recordsListCmd.Flags().IntVar(&recordsListLimit, "limit", 50, "max records to list")

	recordsImportCmd.Flags().StringVar(&recordsImportFile, "file", "", "YAML seed file")
	recordsImportCmd.MarkFlagRequired("file")

	recordsExportCmd.Flags().StringVar(&recordsExportFile, "out", "estimates.xlsx", "output workbook path")
	recordsExportCmd.Flags().IntVar(&recordsExportLimit, "limit", 200, "max records to export")

	recordsCmd.AddCommand(recordsListCmd, recordsImportCmd, recordsExportCmd)
	rootCmd.AddCommand(recordsCmd)
}
