package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/NethermindEth/snplugin/plugin"
	"github.com/NethermindEth/snplugin/syntax"
	"github.com/NethermindEth/snplugin/utils"
)

var Version string

const (
	configF    = "config"
	verbosityF = "verbosity"
	colourF    = "colour"
	outDirF    = "out-dir"
	auxF       = "aux"
	jobsF      = "jobs"

	defaultConfig = ""
	defaultColour = true
	defaultOutDir = ""
	defaultAux    = false
	defaultJobs   = uint(4)

	configFlagUsage = "The yaml configuration file."
	verbosityUsage  = "Verbosity of the logs. Options: debug, info, warn, error, fatal."
	colourUsage     = "Use colour in log output."
	outDirUsage     = "Directory the generated contract files are written to. " +
		"Generated code goes to stdout when unset."
	auxUsage  = "Emit the auxiliary data (contract names, patch map) as yaml."
	jobsUsage = "Maximum number of files expanded concurrently."
)

type config struct {
	Verbosity utils.LogLevel `mapstructure:"verbosity"`
	Colour    bool           `mapstructure:"colour"`
	OutDir    string         `mapstructure:"out-dir"`
	Aux       bool           `mapstructure:"aux"`
	Jobs      uint           `mapstructure:"jobs"`
}

func NewCmd() *cobra.Command {
	var cfgFile string
	verbosity := utils.INFO

	cmd := &cobra.Command{
		Use:     "snplugin [flags] <file>...",
		Short:   "Starknet contract module expander.",
		Version: Version,
		Args:    cobra.MinimumNArgs(1),
	}

	cmd.Flags().StringVar(&cfgFile, configF, defaultConfig, configFlagUsage)
	cmd.Flags().Var(&verbosity, verbosityF, verbosityUsage)
	cmd.Flags().Bool(colourF, defaultColour, colourUsage)
	cmd.Flags().String(outDirF, defaultOutDir, outDirUsage)
	cmd.Flags().Bool(auxF, defaultAux, auxUsage)
	cmd.Flags().Uint(jobsF, defaultJobs, jobsUsage)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		if cfgFile != "" {
			v.SetConfigType("yaml")
			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return err
			}
		}
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return err
		}

		cfg := config{Verbosity: utils.INFO, Jobs: defaultJobs}
		if err := v.Unmarshal(&cfg, viper.DecodeHook(
			mapstructure.TextUnmarshallerHookFunc(),
		)); err != nil {
			return err
		}
		if cfg.Jobs == 0 {
			cfg.Jobs = 1
		}

		log, err := utils.NewZapLogger(cfg.Verbosity, cfg.Colour)
		if err != nil {
			return err
		}
		defer func() {
			_ = log.Sync()
		}()

		return expandFiles(cmd, &cfg, log, args)
	}

	return cmd
}

func expandFiles(cmd *cobra.Command, cfg *config, log utils.Logger, files []string) error {
	expander := plugin.New(log)
	// Generated code from concurrently expanded files must not interleave.
	var outMu sync.Mutex

	workerPool := pool.New().WithErrors().WithMaxGoroutines(int(cfg.Jobs))
	for _, file := range files {
		workerPool.Go(func() error {
			return expandFile(cmd, cfg, log, expander, file, &outMu)
		})
	}
	return workerPool.Wait()
}

func expandFile(
	cmd *cobra.Command,
	cfg *config,
	log utils.Logger,
	expander *plugin.Plugin,
	file string,
	outMu *sync.Mutex,
) error {
	source, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}

	db := syntax.NewDB(string(source))
	parsed, parseDiagnostics := syntax.Parse(db)
	results := expander.ExpandFile(db, parsed)
	log.Debugw("Expanded file", "file", file, "contracts", len(results))

	outMu.Lock()
	defer outMu.Unlock()

	for _, diag := range parseDiagnostics {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s:%d: %s\n", file, diag.Ptr.Span.Start, diag.Message)
	}
	for _, res := range results {
		for _, diag := range res.Diagnostics {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s:%d: %s\n", file, diag.Ptr.Span.Start, diag.Message)
		}
		if res.Code == nil {
			continue
		}
		if err := writeGenerated(cmd, cfg, file, res.Code); err != nil {
			return err
		}
	}
	return nil
}

func writeGenerated(cmd *cobra.Command, cfg *config, file string, code *plugin.GeneratedFile) error {
	if cfg.OutDir == "" {
		if _, err := fmt.Fprint(cmd.OutOrStdout(), code.Content); err != nil {
			return err
		}
	} else {
		name := code.AuxData.ContractName + ".cairo"
		path := filepath.Join(cfg.OutDir, name)
		if err := os.WriteFile(path, []byte(code.Content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	if !cfg.Aux {
		return nil
	}
	auxYAML, err := yaml.Marshal(code.AuxData)
	if err != nil {
		return fmt.Errorf("marshal aux data for %s: %w", file, err)
	}
	if cfg.OutDir == "" {
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "---\n%s", auxYAML)
		return err
	}
	path := filepath.Join(cfg.OutDir, code.AuxData.ContractName+".aux.yaml")
	if err := os.WriteFile(path, auxYAML, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
