package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rankgrid/internal/job"
	"github.com/sells-group/rankgrid/internal/model"
	"github.com/sells-group/rankgrid/internal/profile"
	"github.com/sells-group/rankgrid/internal/store"
)

var (
	runKeyword  string
	runLat      float64
	runLng      float64
	runPlaceID  string
	runCID      string
	runPhone    string
	runWebsite  string
	runName     string
	runGridSize int
	runSpacing  float64
	runDepth    int
	runProfile  string
	runSave     bool
	runJSON     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a rank grid for one keyword around a center point",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		api, err := initProvider()
		if err != nil {
			return err
		}

		target := model.TargetBusiness{
			PlaceID:     runPlaceID,
			CID:         runCID,
			Phone:       runPhone,
			WebsiteHost: runWebsite,
			Name:        runName,
		}
		if !target.HasSignal() {
			return eris.New("at least one of --place-id, --cid, --phone, --website, --name is required")
		}

		gridSize := runGridSize
		spacing := runSpacing
		opts := submitDefaults()
		if runDepth > 0 {
			opts.Depth = runDepth
		}

		if runProfile != "" {
			if cfg.Grid.ProfilesPath == "" {
				return eris.New("--profile requires grid.profiles_path in config")
			}
			profiles, err := profile.LoadConfig(cfg.Grid.ProfilesPath)
			if err != nil {
				return err
			}
			gc, err := profiles.Get(runProfile)
			if err != nil {
				return err
			}
			gridSize = gc.GridSize
			spacing = gc.SpacingMeters
			if gc.Depth > 0 {
				opts.Depth = gc.Depth
			}
			if gc.Zoom != "" {
				opts.Zoom = gc.Zoom
			}
			if gc.Device != "" {
				opts.Device = gc.Device
			}
			if gc.LanguageCode != "" {
				opts.LanguageCode = gc.LanguageCode
			}
		}
		if gridSize == 0 {
			gridSize = cfg.Grid.Size
		}
		if spacing == 0 {
			spacing = cfg.Grid.SpacingMeters
		}

		var st store.Store
		if runSave {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		coord := job.NewCoordinator(
			job.NewSubmitter(api),
			job.NewPoller(api, cfg.Poll.Concurrency),
			nil,
			coordinatorConfigWithProgress(),
		)

		center := model.Coordinate{Latitude: runLat, Longitude: runLng}
		j, err := coord.Start(ctx, runKeyword, center, gridSize, spacing, target, opts)
		if err != nil {
			return eris.Wrap(err, "start run")
		}

		zap.L().Info("run started",
			zap.String("run_id", j.ID),
			zap.String("keyword", runKeyword),
			zap.Int("tasks", len(j.Tasks)),
		)
		if st != nil {
			if err := st.CreateRun(ctx, j); err != nil {
				return eris.Wrap(err, "persist run")
			}
		}

		runErr := coord.Run(ctx, j)
		if st != nil {
			snap := coord.Snapshot(j)
			if err := store.SaveProgress(ctx, st, &snap); err != nil {
				zap.L().Warn("persist run progress failed", zap.Error(err))
			}
		}
		if runErr != nil {
			return eris.Wrap(runErr, "poll run")
		}

		if runJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(coord.Snapshot(j))
		}

		fmt.Printf("keyword: %s  grid: %dx%d  spacing: %.0fm\n\n", j.Keyword, gridSize, gridSize, spacing)
		fmt.Print(formatRankGrid(j))
		return nil
	},
}

func coordinatorConfigWithProgress() job.CoordinatorConfig {
	c := coordinatorDefaults()
	c.OnProgress = func(done, total int) {
		fmt.Fprintf(os.Stderr, "\rresolved %d/%d cells", done, total)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}
	return c
}

func init() {
	runCmd.Flags().StringVar(&runKeyword, "keyword", "", "search keyword (required)")
	runCmd.Flags().Float64Var(&runLat, "lat", 0, "center latitude (required)")
	runCmd.Flags().Float64Var(&runLng, "lng", 0, "center longitude (required)")
	runCmd.Flags().StringVar(&runPlaceID, "place-id", "", "target place ID")
	runCmd.Flags().StringVar(&runCID, "cid", "", "target CID")
	runCmd.Flags().StringVar(&runPhone, "phone", "", "target phone")
	runCmd.Flags().StringVar(&runWebsite, "website", "", "target website host")
	runCmd.Flags().StringVar(&runName, "name", "", "target business name")
	runCmd.Flags().IntVar(&runGridSize, "grid-size", 0, "odd grid dimension (default from config)")
	runCmd.Flags().Float64Var(&runSpacing, "spacing", 0, "cell spacing in meters (default from config)")
	runCmd.Flags().IntVar(&runDepth, "depth", 0, "results per cell (default from config)")
	runCmd.Flags().StringVar(&runProfile, "profile", "", "named grid profile")
	runCmd.Flags().BoolVar(&runSave, "save", false, "persist the run to the store")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the full run as JSON")
	_ = runCmd.MarkFlagRequired("keyword")
	_ = runCmd.MarkFlagRequired("lat")
	_ = runCmd.MarkFlagRequired("lng")
	rootCmd.AddCommand(runCmd)
}
