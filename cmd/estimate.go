package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sumika/estimator/internal/model"
)

var (
	estimateLayout   string
	estimateArea     string
	estimateRegion   string
	estimateAddress  string
	estimateType     string
	estimateRooms    string
	estimateYear     string
	estimateNotes    string
	estimateFeatures []string
	estimateFiles    []string
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Create a service-fee estimate from property details and documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		engine, st, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		input := model.PropertyInput{
			Layout:       estimateLayout,
			AreaSqm:      estimateArea,
			Region:       estimateRegion,
			Address:      estimateAddress,
			BuildingType: estimateType,
			Rooms:        estimateRooms,
			YearBuilt:    estimateYear,
			Notes:        estimateNotes,
			Features:     estimateFeatures,
		}

		attachments, err := loadAttachments(estimateFiles)
		if err != nil {
			return err
		}

		res, err := engine.CreateEstimate(ctx, input, attachments)
		if err != nil {
			return err
		}

		zap.L().Info("estimate created",
			zap.String("estimate_id", res.EstimateID),
			zap.Float64("amount", res.Estimate.Amount),
			zap.String("method", string(res.Estimate.Method)))

		return printJSON(res)
	},
}

func init() {
	estimateCmd.Flags().StringVar(&estimateLayout, "layout", "", "floor plan, e.g. 2LDK")
	estimateCmd.Flags().StringVar(&estimateArea, "area", "", "area, e.g. 66 or 20坪")
	estimateCmd.Flags().StringVar(&estimateRegion, "region", "", "region or city")
	estimateCmd.Flags().StringVar(&estimateAddress, "address", "", "street address")
	estimateCmd.Flags().StringVar(&estimateType, "building-type", "", "building type, e.g. apartment")
	estimateCmd.Flags().StringVar(&estimateRooms, "rooms", "", "room count")
	estimateCmd.Flags().StringVar(&estimateYear, "year-built", "", "construction year")
	estimateCmd.Flags().StringVar(&estimateNotes, "notes", "", "free-form notes")
	estimateCmd.Flags().StringSliceVar(&estimateFeatures, "feature", nil, "property feature (repeatable)")
	estimateCmd.Flags().StringSliceVar(&estimateFiles, "file", nil, "PDF or image to attach (repeatable)")
	rootCmd.AddCommand(estimateCmd)
}

// loadAttachments reads local files and packs them as inline data URLs, the
// same shape a browser client submits.
func loadAttachments(paths []string) ([]model.RawAttachment, error) {
	var out []model.RawAttachment
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, eris.Wrapf(err, "read attachment %s", p)
		}
		contentType := mime.TypeByExtension(filepath.Ext(p))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		out = append(out, model.RawAttachment{
			Name:        filepath.Base(p),
			ContentType: contentType,
			Size:        int64(len(data)),
			DataURL:     fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data)),
		})
	}
	return out, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
