package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fosdem/framexform/lib/api"
	"github.com/fosdem/framexform/lib/config"
	"github.com/fosdem/framexform/lib/log"
	"github.com/fosdem/framexform/lib/pipeline"
)

var (
	jobName    string
	srcSize    string
	dstSize    string
	rotation   int
	keepAspect bool
	box        string
)

var rootCmd = &cobra.Command{
	Use:          "framexform",
	Short:        "Camera frame conversion and coordinate transforms",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run <config file>",
	Short: "Run every job (or one with --job) once and exit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJobs(args[0])
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve <config file>",
	Short: "Start the sources and serve the HTTP API",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(args[0])
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <config file>",
	Short: "Check a config file and print it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Parse(args[0])
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		fmt.Print("Config valid!\n\n")
		fmt.Print(cfg)
		return nil
	},
}

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Print the affine transform between two frame sizes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printTransform(cmd)
	},
}

func init() {
	runCmd.Flags().StringVar(&jobName, "job", "", "only run this job")

	transformCmd.Flags().StringVar(&srcSize, "src", "", "source size as WIDTHxHEIGHT")
	transformCmd.Flags().StringVar(&dstSize, "dst", "", "destination size as WIDTHxHEIGHT")
	transformCmd.Flags().IntVar(&rotation, "rotation", 0, "rotation in degrees, a multiple of 90")
	transformCmd.Flags().BoolVar(&keepAspect, "keep-aspect", false, "scale both axes by the same factor")
	transformCmd.Flags().StringVar(&box, "box", "", "destination box left,top,right,bottom to map back to the source")
	_ = transformCmd.MarkFlagRequired("src")
	_ = transformCmd.MarkFlagRequired("dst")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(transformCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cfgFile string) (*config.Config, *pipeline.Pipeline, error) {
	cfg, err := config.Parse(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger := log.New("framexform", level)

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	err = p.Start()
	if err != nil {
		p.Close()
		return nil, nil, err
	}
	return cfg, p, nil
}

func runJobs(cfgFile string) error {
	_, p, err := setup(cfgFile)
	if err != nil {
		return err
	}
	defer p.Close()

	var results []*pipeline.Result
	if jobName != "" {
		res, err := p.Run(jobName)
		if err != nil {
			return err
		}
		results = append(results, res)
	} else {
		results, err = p.RunAll()
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func serve(cfgFile string) error {
	cfg, p, err := setup(cfgFile)
	if err != nil {
		return err
	}
	defer p.Close()

	a := startServer(cfg, p)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	return stopServer(a)
}

// startServer runs every job once so results and media are available right
// away, then serves the API. Failed jobs are logged and do not stop the
// server.
func startServer(cfg *config.Config, p *pipeline.Pipeline) *api.Api {
	// already checked by setup
	level, _ := log.ParseLevel(cfg.LogLevel)
	logger := log.New("api", level)

	_, err := p.RunAll()
	if err != nil {
		logger.Warn("not every job ran", "err", err)
	}

	apiCfg := cfg.Api
	if apiCfg == nil {
		apiCfg = &config.ApiCfg{Bind: ":8000"}
	}
	return api.ServeInBackground(p, apiCfg, logger)
}

// stopServer waits for in-flight requests before the pipeline unmaps its
// sources.
func stopServer(a *api.Api) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.Shutdown(ctx)
}
