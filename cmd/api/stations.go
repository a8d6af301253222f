package main

import (
	"github.com/chachabrian/railparcel-backend/internal/config"
	"github.com/chachabrian/railparcel-backend/internal/services"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newStationsCommand(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stations",
		Short: "List stations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cfg(), func(db *gorm.DB) error {
				stations, err := services.NewStationService(db, cfg().OTP.PhoneRegion).ListStations(cmd.Context())
				if err != nil {
					return err
				}

				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.SetStyle(table.StyleRounded)
				tw.AppendHeader(table.Row{"ID", "Code", "Name", "Location", "Master"})
				for _, st := range stations {
					master := ""
					if st.IsMaster {
						master = "yes"
					}
					tw.AppendRow(table.Row{st.ID, st.Code, st.Name, st.Location, master})
				}
				tw.Render()
				return nil
			})
		},
	}
}
