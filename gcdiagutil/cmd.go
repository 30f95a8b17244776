/*
Copyright © 2019 the InMAP authors.
This file is part of gcdiag.

gcdiag is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gcdiag is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gcdiag.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package gcdiagutil contains the command-line interface for gcdiag.
package gcdiagutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"time"

	"github.com/ctessum/gobra"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
	"github.com/spatialmodel/gcdiag"
	"github.com/spatialmodel/gcdiag/internal/metrics"
	"github.com/spatialmodel/gcdiag/ncio"
	"github.com/spatialmodel/gcdiag/report"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to gcdiag.
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
			name: "verbose",
			usage: `
              verbose turns on debug logging.`,
			shorthand:  "v",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "MetricsFile",
			usage: `
              MetricsFile is the path of a file to write run metrics to
              in the Prometheus text format. If empty, no metrics are written.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "ObsDir",
			usage: `
              ObsDir is the directory holding EBAS station files in NASA Ames
              format. Every file whose name ends in "nas" is read.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{obsCmd.Flags()},
		},
		{
			name: "Year",
			usage: `
              Year is the year of observations to compare with. Set it to 0
              to use every year in the files.`,
			defaultVal: 2019,
			flagsets:   []*pflag.FlagSet{obsCmd.Flags()},
		},
		{
			name: "RefFiles",
			usage: `
              RefFiles are the output files of the reference model run, in
              time order. For the compare command only the first file is used.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{obsCmd.Flags(), compareCmd.Flags()},
		},
		{
			name: "RefLabel",
			usage: `
              RefLabel names the reference model run in plots and reports.`,
			defaultVal: "Ref",
			flagsets:   []*pflag.FlagSet{obsCmd.Flags(), compareCmd.Flags()},
		},
		{
			name: "DevFiles",
			usage: `
              DevFiles are the output files of the model run being evaluated,
              in time order. For the compare command only the first file is used.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{obsCmd.Flags(), compareCmd.Flags()},
		},
		{
			name: "DevLabel",
			usage: `
              DevLabel names the model run being evaluated in plots and reports.`,
			defaultVal: "Dev",
			flagsets:   []*pflag.FlagSet{obsCmd.Flags(), compareCmd.Flags()},
		},
		{
			name: "Variable",
			usage: `
              Variable is the model variable to compare with the observations.
              If it is not in the model files, the variable with "VV" removed
              from its name is used instead.`,
			defaultVal: "SpeciesConcVV_O3",
			flagsets:   []*pflag.FlagSet{obsCmd.Flags()},
		},
		{
			name: "LevelsFile",
			usage: `
              LevelsFile is a CSV file with the columns level and altitude_m
              giving the midpoint altitude of each model level in meters,
              from the surface upward. If empty, the standard 72-level
              GEOS-Chem grid is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{obsCmd.Flags()},
		},
		{
			name: "NameTable",
			usage: `
              NameTable is a TOML file of rules for converting legacy bpch
              diagnostic names to netCDF names. If empty, the built-in rules
              are used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{renameCmd.Flags(), compareCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory plots and reports are written to.`,
			shorthand:  "o",
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{obsCmd.Flags(), compareCmd.Flags()},
		},
		{
			name: "ReportFormat",
			usage: `
              ReportFormat is the format of the statistics report: text, csv,
              or xlsx.`,
			defaultVal: "text",
			flagsets:   []*pflag.FlagSet{obsCmd.Flags()},
		},
		{
			name: "open",
			usage: `
              open specifies whether to open the plots when they are done.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{obsCmd.Flags()},
		},
		{
			name: "Prefix",
			usage: `
              Prefix restricts the compare command to variables whose names
              start with it, e.g. SpeciesConc_.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "Lumped",
			usage: `
              Lumped is a YAML file of lumped species definitions to add to
              both datasets before comparing. Set it to "default" to use the
              built-in definitions. If empty, no lumped species are added.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "Counter",
			usage: `
              Counter is the name of a variable that every other variable in
              both datasets is divided by before comparing, for diagnostics
              that are accumulated over time.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "DerivedVariables",
			usage: `
              DerivedVariables maps new variable names to expressions of
              existing variables, e.g. {"NOx": "SpeciesConc_NO + SpeciesConc_NO2"}.
              They are added to both datasets before comparing.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "SigDiffThreshold",
			usage: `
              SigDiffThreshold is the relative difference in global mean
              above which a variable is listed as significantly different.`,
			defaultVal: 0.1,
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("GCDIAG")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(v)
				set.StringP(option.name, option.shorthand, b.String(), option.usage)
			default:
				panic("invalid argument type")
			}
		}
		Cfg.BindPFlag(option.name, option.flagsets[0].Lookup(option.name))
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(obsCmd)
	Root.AddCommand(renameCmd)
	Root.AddCommand(compareCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets up logging.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("gcdiag: problem reading configuration file: %v", err)
		}
	}
	setLogging(Cfg.GetBool("verbose"))
	return nil
}

func setLogging(verbose bool) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// runMetrics holds the metrics of the current command, which are written
// to MetricsFile when it finishes.
var runMetrics *metrics.Metrics

func writeMetrics() error {
	f := os.ExpandEnv(Cfg.GetString("MetricsFile"))
	if f == "" || runMetrics == nil {
		return nil
	}
	return runMetrics.WriteTextfile(f)
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "gcdiag",
	Short: "Evaluate GEOS-Chem output against observations.",
	Long: `gcdiag compares GEOS-Chem model output with surface observations and
with the output of other model runs. Use the subcommands specified below to
access the functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'GCDIAG_var' where 'var' is the
name of the variable to be set. File paths may contain environment variables.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		runMetrics = metrics.New()
		return setConfig()
	},
	PersistentPostRunE: func(*cobra.Command, []string) error { return writeMetrics() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of gcdiag.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("gcdiag v%s\n", gcdiag.Version)
	},
	DisableAutoGenTag: true,
}

var obsCmd = &cobra.Command{
	Use:   "obs",
	Short: "Compare two model runs with surface observations.",
	Long: `obs reads EBAS surface observations and the same variable from two
model runs, finds the model values nearest to each station, and plots
monthly means of the observations and both runs, three-by-three stations to a
page, from north to south. Statistics for each station are written to a
report alongside the plots.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(Cfg.GetString("ReportFormat"))
		if err != nil {
			return err
		}
		refFiles, err := stringSlice("RefFiles")
		if err != nil {
			return err
		}
		devFiles, err := stringSlice("DevFiles")
		if err != nil {
			return err
		}
		c := &ObsConfig{
			ObsDir:     os.ExpandEnv(Cfg.GetString("ObsDir")),
			Year:       Cfg.GetInt("Year"),
			RefFiles:   refFiles,
			DevFiles:   devFiles,
			RefLabel:   Cfg.GetString("RefLabel"),
			DevLabel:   Cfg.GetString("DevLabel"),
			Variable:   Cfg.GetString("Variable"),
			LevelsFile: os.ExpandEnv(Cfg.GetString("LevelsFile")),
			OutputDir:  os.ExpandEnv(Cfg.GetString("OutputDir")),
			Format:     format,
		}
		r := &ncio.Reader{Log: logrus.StandardLogger(), Metrics: runMetrics}
		pdf, rpt, err := Obs(cmd.Context(), c, r, logrus.StandardLogger(), runMetrics)
		if err != nil {
			return err
		}
		cmd.Printf("Plots written to %s\nStatistics written to %s\n", pdf, rpt)
		if Cfg.GetBool("open") {
			return open.Run(pdf)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var renameCmd = &cobra.Command{
	Use:   "rename [file or names...]",
	Short: "Convert legacy diagnostic names to netCDF names.",
	Long: `rename prints the netCDF name of each legacy bpch diagnostic name given
as an argument. If the only argument is a netCDF file, the names of the
variables in the file are converted instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadNameTable(os.ExpandEnv(Cfg.GetString("NameTable")))
		if err != nil {
			return err
		}
		t.Log = logrus.StandardLogger()
		names := args
		if len(args) == 1 {
			if _, err := os.Stat(args[0]); err == nil {
				r := &ncio.Reader{Log: logrus.StandardLogger(), Metrics: runMetrics}
				ds, err := r.Dataset(cmd.Context(), os.ExpandEnv(args[0]))
				if err != nil {
					return err
				}
				names = ds.Names()
			}
		}
		return Rename(cmd.OutOrStdout(), t, names, runMetrics)
	},
	DisableAutoGenTag: true,
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare the variables in the output of two model runs.",
	Long: `compare lists the variables that two model output files have in common
and calculates global statistics for each common variable. Variables whose
global means differ by more than SigDiffThreshold are listed in a
significant-differences file in OutputDir.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		refFiles, err := stringSlice("RefFiles")
		if err != nil {
			return err
		}
		devFiles, err := stringSlice("DevFiles")
		if err != nil {
			return err
		}
		if len(refFiles) == 0 || len(devFiles) == 0 {
			return fmt.Errorf("gcdiag: both RefFiles and DevFiles must be specified")
		}
		var t *gcdiag.NameTable
		if nt := Cfg.GetString("NameTable"); nt != "" {
			if t, err = loadNameTable(os.ExpandEnv(nt)); err != nil {
				return err
			}
		}
		lumped, err := loadLumped(os.ExpandEnv(Cfg.GetString("Lumped")))
		if err != nil {
			return err
		}
		derived, err := derivedVariables(GetStringMapString("DerivedVariables", Cfg))
		if err != nil {
			return err
		}
		c := &CompareConfig{
			RefFile:          refFiles[0],
			DevFile:          devFiles[0],
			RefLabel:         Cfg.GetString("RefLabel"),
			DevLabel:         Cfg.GetString("DevLabel"),
			Prefix:           Cfg.GetString("Prefix"),
			NameTable:        t,
			Lumped:           lumped,
			Counter:          Cfg.GetString("Counter"),
			Derived:          derived,
			SigDiffThreshold: Cfg.GetFloat64("SigDiffThreshold"),
			OutputDir:        os.ExpandEnv(Cfg.GetString("OutputDir")),
		}
		r := &ncio.Reader{Log: logrus.StandardLogger(), Metrics: runMetrics}
		return Compare(cmd.Context(), cmd.OutOrStdout(), c, r, logrus.StandardLogger())
	},
	DisableAutoGenTag: true,
}

// stringSlice returns a configuration slice with environment variables
// expanded.
func stringSlice(name string) ([]string, error) {
	s, err := cast.ToStringSliceE(Cfg.Get(name))
	if err != nil {
		return nil, fmt.Errorf("gcdiag: reading '%s': %v", name, err)
	}
	return expandStringSlice(s), nil
}

// StartWebServer starts a browser interface for configuring and running
// commands.
func StartWebServer() {
	setConfig() // Ignore any errors for now.

	http.HandleFunc("/setConfig", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		configFile := r.Form["config"][0]
		Root.PersistentFlags().Set("config", configFile)
		err := setConfig()
		if err != nil {
			http.Error(w, err.Error(), 204)
			return
		}
		config := make(map[string]interface{})
		for _, option := range options {
			config[option.name] = Cfg.Get(option.name)
		}
		e := json.NewEncoder(w)
		if err := e.Encode(config); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
	})

	logrus.Info("loading front-end")

	for _, cmd := range []*cobra.Command{Root, versionCmd, obsCmd, renameCmd, compareCmd} {
		cmd.SilenceUsage = true // We don't want the usage messages in the GUI.
	}

	const address = "localhost:7272"
	const tmpl = `
<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>gcdiag</title>
	<style>
		html, body {padding: 0; margin: 2% 0; font-family: sans-serif;}
		.container { max-width: 700px; margin: 0 auto; padding: 10px; }
		div[id^="gobra-"] blockquote { border-left: 3px solid #bbb; margin: .3em; color: #333; padding-left: 5px; font-size: 75%; }
		div[id^="gobra-"] code { font-weight: bold; }
		div[id^="gobra-"] input { font-family: monospace; margin-left: .2em; width: 50%; outline:none; }
		.red-border{ border: 1px solid #c35; }
		.green-border{ border: 1px solid #3c5; }
		.blue-border{ border: 1px solid #35c; }
	</style>
</head>
<body>
<div class="container">
	<h1>gcdiag</h1>
	<p>Configure the comparison below.</p>
	<p>
		Color key: black=default;
		<font color="red">red</font>=error;
		<font color="green">green</font>=value from config file;
		<font color="blue">blue</font>=user entered
	</p>
	<div>
		{{.}}
	</div>
</div>

<script>
let allFlags = [...document.querySelectorAll('[data-name]')];
allFlags.forEach(x => {
	let inputField = x.children[0];
	inputField.addEventListener("input", e => {
		inputField.classList.remove("green-border");
		inputField.classList.add("blue-border");
	})
})

let configInput = allFlags.filter(x => x.dataset.name == "config")[0].children[0];
configInput.addEventListener("input", e => {
	fetch("http://` + address + `/setConfig?config="+configInput.value)
		.then( res => {
			if (res.status == 204) {
				configInput.classList.remove("blue-border");
				configInput.classList.remove("green-border");
				configInput.classList.add("red-border");
				return;
			}
			res.json().then( data => {
				configInput.classList.remove("red-border");
				for (let key in data)
					for(let f of allFlags)
						if (f.dataset.name == key) {
							let input = f.children[0];
							var newValue = JSON.stringify(data[key]).replace(/^"+|"+$/g,'');
							if (input.value != newValue) {
								input.value = newValue
								input.classList.remove("blue-border");
								input.classList.add("green-border");
							}
						}
			})
		})
		.catch( err => {
			console.log("Error fetching /setConfig", err)
		})
})
</script>
</body>
</html>`

	output := template.Must(template.New("").Parse(tmpl))
	server := gobra.Server{Root: Root, ServerAddress: address, AllowCORS: false, HTML: output}
	logrus.WithField("address", address).Info("server starting")
	open.Run("http://" + address)
	fmt.Println("If not opened automatically, please visit http://" + address)
	server.Start()
}
