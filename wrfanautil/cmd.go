/*
Copyright © 2025 the wrfana authors.
This file is part of wrfana.

wrfana is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

wrfana is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with wrfana.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package wrfanautil holds the command-line interface of wrfana.
package wrfanautil

import (
	"fmt"
	"os"
	"strings"
	"time"

	wrfana "github.com/YakultSmoothie/visualization-atmospheric"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

// Log receives progress and warning messages.
var Log logrus.FieldLogger = logrus.StandardLogger()

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to wrfana.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Duration.InputFile",
			usage: `
              Duration.InputFile is the CSV file of case analysis results,
              with columns start_time, end_time, and duration_hours.`,
			defaultVal: "case_analysis_results.csv",
			flagsets:   []*pflag.FlagSet{durationCmd.Flags()},
		},
		{
			name: "Duration.OutputFile",
			usage: `
              Duration.OutputFile is the path of the boxplot image to create.`,
			defaultVal: "ana_duration_hours_boxplot.png",
			flagsets:   []*pflag.FlagSet{durationCmd.Flags()},
		},
		{
			name: "Duration.Reference",
			usage: `
              Duration.Reference is the reference duration [hours] the mean
              case duration is tested against.`,
			defaultVal: 42.0,
			flagsets:   []*pflag.FlagSet{durationCmd.Flags()},
		},
		{
			name: "ThetaE.ThetaEFile",
			usage: `
              ThetaE.ThetaEFile is the NetCDF file of equivalent potential
              temperature on pressure levels.`,
			defaultVal: "extract_wrf_to_nc/eth.nc",
			flagsets:   []*pflag.FlagSet{thetaeCmd.Flags()},
		},
		{
			name: "ThetaE.WindFile",
			usage: `
              ThetaE.WindFile is the NetCDF file of horizontal wind components
              on the same grid and levels as ThetaE.ThetaEFile.`,
			defaultVal: "extract_wrf_to_nc/ua,va.nc",
			flagsets:   []*pflag.FlagSet{thetaeCmd.Flags()},
		},
		{
			name: "ThetaE.OutputFile",
			usage: `
              ThetaE.OutputFile is the path of the NetCDF file of derived
              fields to create.`,
			defaultVal: "output/theta_e/WRF/the_gra.nc",
			flagsets:   []*pflag.FlagSet{thetaeCmd.Flags()},
		},
		{
			name: "ThetaE.Levels",
			usage: `
              ThetaE.Levels are the pressure levels [hPa] to process. Levels
              that are not in the input are skipped with a warning.`,
			defaultVal: []int{875, 850, 825},
			flagsets:   []*pflag.FlagSet{thetaeCmd.Flags()},
		},
		{
			name: "Front.ThetaFile",
			usage: `
              Front.ThetaFile is the NetCDF file of potential temperature on
              pressure levels.`,
			defaultVal: "output-w2nc/th.nc",
			flagsets:   []*pflag.FlagSet{frontCmd.Flags()},
		},
		{
			name: "Front.WindFile",
			usage: `
              Front.WindFile is the NetCDF file of horizontal wind components
              on the same grid and levels as Front.ThetaFile.`,
			defaultVal: "output-w2nc/ua,va.nc",
			flagsets:   []*pflag.FlagSet{frontCmd.Flags()},
		},
		{
			name: "Front.OutputDir",
			usage: `
              Front.OutputDir is the directory the comparison figure is
              written to.`,
			defaultVal: "frontogenesis_comparison",
			flagsets:   []*pflag.FlagSet{frontCmd.Flags()},
		},
		{
			name: "Front.BorderFile",
			usage: `
              Front.BorderFile is an optional shapefile of coastlines or
              political borders, in geographic coordinates, to overlay on
              the maps.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{frontCmd.Flags()},
		},
		{
			name: "Front.Level",
			usage: `
              Front.Level is the pressure level [hPa] to analyze.`,
			defaultVal: 850,
			flagsets:   []*pflag.FlagSet{frontCmd.Flags()},
		},
		{
			name: "Front.Member",
			usage: `
              Front.Member is the ensemble member number to analyze.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{frontCmd.Flags()},
		},
		{
			name: "Front.TargetTime",
			usage: `
              Front.TargetTime is the analysis time in the format
              2006-01-02T15:04:05. Fields one hour before and after it must
              also be present in the input.`,
			defaultVal: "2006-06-09T01:00:00",
			flagsets:   []*pflag.FlagSet{frontCmd.Flags()},
		},
		{
			name: "Front.ColorRange",
			usage: `
              Front.ColorRange is the symmetric color scale limit
              [K/(km hr)] shared by the two map panels.`,
			defaultVal: 0.05,
			flagsets:   []*pflag.FlagSet{frontCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("WRFANA")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case []int:
				if option.shorthand == "" {
					set.IntSlice(option.name, option.defaultVal.([]int), option.usage)
				} else {
					set.IntSliceP(option.name, option.shorthand, option.defaultVal.([]int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(durationCmd)
	Root.AddCommand(thetaeCmd)
	Root.AddCommand(frontCmd)
}

// outChan returns a channel that logs everything sent to it.
func outChan() chan string {
	outChan := make(chan string)
	go func() {
		for msg := range outChan {
			Log.Info(msg)
		}
	}()
	return outChan
}

// intSliceOption returns the value of an integer-slice option. A value
// set through a flag arrives as the string "[875,850,825]", while a
// configuration file yields a slice.
func intSliceOption(name string) ([]int, error) {
	v := Cfg.Get(name)
	if s, ok := v.(string); ok {
		s = strings.Trim(s, "[]")
		if s == "" {
			return nil, nil
		}
		return cast.ToIntSliceE(strings.Split(s, ","))
	}
	return cast.ToIntSliceE(v)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("wrfana: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "wrfana",
	Short: "Post-processing analyses of WRF ensemble output.",
	Long: `wrfana computes statistics and derived meteorological fields from
WRF ensemble simulation output. Use the subcommands specified below to
access the individual analyses.

Refer to the subcommand documentation for configuration options and default
settings. Configuration can be changed by using a configuration file (and
providing the path to the file using the --config flag), by using
command-line arguments, or by setting environment variables in the format
'WRFANA_var' where 'var' is the name of the variable to be set.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of wrfana.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("wrfana v%s\n", wrfana.Version)
	},
	DisableAutoGenTag: true,
}

var durationCmd = &cobra.Command{
	Use:   "duration",
	Short: "Analyze case durations",
	Long: `duration computes summary statistics of heavy-rainfall case
durations, tests whether their mean differs from a reference duration,
and draws a boxplot of the distribution with one jittered point per case.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outChan := outChan()

		c := wrfana.DurationConfig{
			InputFile:         os.ExpandEnv(Cfg.GetString("Duration.InputFile")),
			OutputFile:        os.ExpandEnv(Cfg.GetString("Duration.OutputFile")),
			ReferenceDuration: Cfg.GetFloat64("Duration.Reference"),
		}
		return c.Run(outChan)
	},
	DisableAutoGenTag: true,
}

var thetaeCmd = &cobra.Command{
	Use:   "thetae",
	Short: "Compute equivalent potential temperature diagnostics",
	Long: `thetae computes the horizontal gradient of equivalent potential
temperature along with wind divergence and vorticity for every ensemble
member, time, and requested pressure level, and writes the results to a
NetCDF file. A failure on an individual member, time, and level leaves
that slice as NaN and does not stop the run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outChan := outChan()

		levels, err := intSliceOption("ThetaE.Levels")
		if err != nil {
			return fmt.Errorf("wrfana: parsing ThetaE.Levels: %v", err)
		}
		c := wrfana.ThetaEConfig{
			ThetaEFile: os.ExpandEnv(Cfg.GetString("ThetaE.ThetaEFile")),
			WindFile:   os.ExpandEnv(Cfg.GetString("ThetaE.WindFile")),
			OutputFile: os.ExpandEnv(Cfg.GetString("ThetaE.OutputFile")),
			Levels:     levels,
		}
		report, err := c.Process(outChan)
		if err != nil {
			return err
		}
		if report.Failed > 0 {
			Log.WithFields(logrus.Fields{
				"completed": report.Completed,
				"failed":    report.Failed,
			}).Warn("some slices could not be processed")
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var frontCmd = &cobra.Command{
	Use:   "front",
	Short: "Compare frontogenesis with the gradient tendency",
	Long: `front draws the Petterssen frontogenesis function next to the time
tendency of the potential temperature gradient magnitude, both at one
pressure level, ensemble member, and time, on a pair of maps with a
shared color scale.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outChan := outChan()

		target, err := time.Parse("2006-01-02T15:04:05",
			Cfg.GetString("Front.TargetTime"))
		if err != nil {
			return fmt.Errorf("wrfana: parsing Front.TargetTime: %v", err)
		}
		c := wrfana.FrontConfig{
			ThetaFile:  os.ExpandEnv(Cfg.GetString("Front.ThetaFile")),
			WindFile:   os.ExpandEnv(Cfg.GetString("Front.WindFile")),
			OutputDir:  os.ExpandEnv(Cfg.GetString("Front.OutputDir")),
			BorderFile: os.ExpandEnv(Cfg.GetString("Front.BorderFile")),
			Level:      Cfg.GetInt("Front.Level"),
			Member:     Cfg.GetInt("Front.Member"),
			TargetTime: target,
			ColorRange: Cfg.GetFloat64("Front.ColorRange"),
		}
		_, err = c.Run(outChan)
		return err
	},
	DisableAutoGenTag: true,
}
