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

package gcdiag

import (
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestCanonicalize(t *testing.T) {
	names := DefaultNameTable()
	tests := []struct {
		old, want string
		outcome   Outcome
	}{
		{old: "IJ_AVG_S_O3", want: "SpeciesConc_O3", outcome: Renamed},
		{old: "IJ_AVG_S_NO2", want: "SpeciesConc_NO2", outcome: Renamed},
		{old: "IJ_SOA_S_PM25", want: "PM25", outcome: Renamed},
		{old: "IJ_SOA_S_OC", want: "OC", outcome: Renamed},
		{old: "IJ_SOA_S_TSOA", want: "AerMassTSOA", outcome: Renamed},
		{old: "JV_MAP_S_JNO2", want: "Jval_NO2", outcome: Renamed},
		{old: "DRYD_FLX_O3df", want: "DryDep_O3", outcome: Renamed},
		{old: "DRYD_VEL_HNO3dv", want: "DryDepVel_HNO3", outcome: Renamed},
		{old: "ANTHSRCE_NO", want: "EmisNO_Anthro", outcome: Renamed},
		{old: "BIOGSRCE_ISOP", want: "EmisISOP_Biogenic", outcome: Renamed},
		{old: "BIOBSRCE_CO", want: "EmisCO_BioBurn", outcome: Renamed},
		{old: "BIOFSRCE_SO2", want: "EmisSO2_BioFuel", outcome: Renamed},
		{old: "DAO_FLDS_PBL", want: "Met_PBLH", outcome: Renamed},
		{old: "DAO_3D_S_UWND", want: "Met_U", outcome: Renamed},
		{old: "DAO_3D_S_VWND", want: "Met_V", outcome: Renamed},
		{old: "BXHGHT_S_BXHEIGHT", want: "Met_BXHEIGHT", outcome: Renamed},
		{old: "WETDLS_S_HNO3", want: "WetLossLS_HNO3", outcome: Renamed},
		{old: "WETDCV_S_SO4", want: "WetLossConv_SO4", outcome: Renamed},
		{old: "PEDGE_S_PSURF", want: "Met_PSC2WET", outcome: Renamed},
		{old: "TR_PAUSE_TP_LEVEL", want: "Met_TropLev", outcome: Renamed},
		{old: "TR_PAUSE_TP_HGHT", want: "Met_TropHt", outcome: Renamed},
		{old: "TR_PAUSE_TP_PRESS", want: "Met_TropP", outcome: Renamed},
		{old: "DXYP_DXYP", want: "AREA", outcome: Renamed},
		{old: "RN_DECAY_Rn", want: "RadDecay_Rn", outcome: Renamed},
		{old: "PL_SUL_SO4", want: "ProdSO4_SO4", outcome: Renamed},
		{old: "CV_FLX_S_CO", want: "CloudConvFlux_CO", outcome: Renamed},
		{old: "EW_FLX_S_CO", want: "AdvFluxZonal_CO", outcome: Renamed},
		{old: "NS_FLX_S_CO", want: "AdvFluxMerid_CO", outcome: Renamed},
		{old: "UP_FLX_S_CO", want: "AdvFluxVert_CO", outcome: Renamed},
		{old: "MC_FRC_S_CO", want: "CloudMassFrac_CO", outcome: Renamed},
		{old: "IJ_SOA_S_biogOA", want: "TotalBiogenicOA", outcome: Renamed},
		{old: "IJ_SOA_S_sumOA", want: "TotalOA", outcome: Renamed},
		{old: "IJ_SOA_S_sumOC", want: "TotalOC", outcome: Renamed},
		{old: "IJ_SOA_S_BNO", want: "BetaNO", outcome: Renamed},
		{old: "BXHGHT_S_AIRNUMDE", want: "Met_AIRNUMDEN", outcome: Renamed},
		{old: "DAO_FLDS_CLDTOP", want: "Met_CLDTOPS", outcome: Renamed},
		{old: "DAO_FLDS_GWET", want: "Met_GWETTOP", outcome: Renamed},
		{old: "DAO_FLDS_PRECON", want: "Met_PRECCON", outcome: Renamed},
		{old: "DAO_FLDS_PREACC", want: "Met_PRECTOT", outcome: Renamed},
		{old: "DAO_FLDS_PS_PBL", outcome: Dropped},
		{old: "DAO_FLDS_TROPPRAW", outcome: Dropped},
		{old: "TIME_SER_O3", outcome: Dropped},
		{old: "SpeciesConc_O3", want: "SpeciesConc_O3", outcome: Unchanged},
		{old: "lat", want: "lat", outcome: Unchanged},
	}
	for _, test := range tests {
		t.Run(test.old, func(t *testing.T) {
			have, outcome := names.Canonicalize(test.old)
			if outcome != test.outcome {
				t.Errorf("outcome: have %v, want %v", outcome, test.outcome)
			}
			if have != test.want {
				t.Errorf("name: have %q, want %q", have, test.want)
			}
		})
	}
}

func TestCanonicalizeFirstMatchWins(t *testing.T) {
	names, err := NewNameTable([]NameMappingRule{
		{Match: "AVG_", Stem: "First", Action: Append},
		{Match: "IJ_AVG_S_", Stem: "SpeciesConc", Action: Append},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if have, _ := names.Canonicalize("IJ_AVG_S_O3"); have != "First_O3" {
		t.Errorf("have %s, want First_O3", have)
	}
}

func TestCanonicalizeReportsMisses(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	names := DefaultNameTable()
	names.Log = logger

	have, outcome := names.Canonicalize("Not_A_Legacy_Name")
	if have != "Not_A_Legacy_Name" || outcome != Unchanged {
		t.Errorf("have %s (%v)", have, outcome)
	}
	if len(hook.Entries) != 1 {
		t.Fatalf("have %d log entries, want 1", len(hook.Entries))
	}
	if v := hook.LastEntry().Data["variable"]; v != "Not_A_Legacy_Name" {
		t.Errorf("logged variable %v", v)
	}
}

func TestLoadNameTable(t *testing.T) {
	const table = `
[[rules]]
match = "IJ_AVG_S_"
stem = "SpeciesConcVV"
action = "append"

[overrides]
SpeciesConcVV_NOx = "NOx"
`
	names, err := LoadNameTable(strings.NewReader(table))
	if err != nil {
		t.Fatal(err)
	}
	if have, _ := names.Canonicalize("IJ_AVG_S_NOx"); have != "NOx" {
		t.Errorf("have %s, want NOx", have)
	}
	if len(names.Rules()) != 1 {
		t.Errorf("have %d rules", len(names.Rules()))
	}

	for _, bad := range []string{
		"[[rules]]\nmatch = \"A_\"\nstem = \"B\"\naction = \"prepend\"\n",
		"[[rules]]\nstem = \"B\"\naction = \"append\"\n",
		"[[rules]]\nmatch = \"A_\"\naction = \"append\"\n",
		"[[rules]]\nmatch = \"A_\"\nstem = \"B\"\naction = \"custom\"\n",
		"[[rules]\n",
	} {
		if _, err := LoadNameTable(strings.NewReader(bad)); err == nil {
			t.Errorf("expected an error for table %q", bad)
		}
	}
}

func TestRenameAll(t *testing.T) {
	renames, dropped, missed := DefaultNameTable().RenameAll([]string{
		"IJ_AVG_S_O3", "TIME_SER_O3", "lon", "DAO_FLDS_PBL",
	})
	wantRenames := map[string]string{"IJ_AVG_S_O3": "SpeciesConc_O3", "DAO_FLDS_PBL": "Met_PBLH"}
	if !reflect.DeepEqual(renames, wantRenames) {
		t.Errorf("renames: have %v, want %v", renames, wantRenames)
	}
	if !reflect.DeepEqual(dropped, []string{"TIME_SER_O3"}) {
		t.Errorf("dropped: %v", dropped)
	}
	if !reflect.DeepEqual(missed, []string{"lon"}) {
		t.Errorf("missed: %v", missed)
	}
}

func TestRenameDataset(t *testing.T) {
	field := func(name string) *ModelField {
		return &ModelField{Name: name, Units: "ppbv", Data: sparse.ZerosDense(1)}
	}
	ds := Dataset{
		"IJ_AVG_S_O3": field("IJ_AVG_S_O3"),
		"TIME_SER_O3": field("TIME_SER_O3"),
		"AREA":        field("AREA"),
	}
	o, err := DefaultNameTable().RenameDataset(ds)
	if err != nil {
		t.Fatal(err)
	}
	names := o.Names()
	sort.Strings(names)
	if want := []string{"AREA", "SpeciesConc_O3"}; !reflect.DeepEqual(names, want) {
		t.Errorf("have %v, want %v", names, want)
	}
	if o["SpeciesConc_O3"].Name != "SpeciesConc_O3" {
		t.Errorf("field name not updated: %s", o["SpeciesConc_O3"].Name)
	}
	if ds["IJ_AVG_S_O3"].Name != "IJ_AVG_S_O3" {
		t.Error("input dataset was modified")
	}

	ds["SpeciesConc_O3"] = field("SpeciesConc_O3")
	if _, err := DefaultNameTable().RenameDataset(ds); err == nil {
		t.Error("expected a name collision error")
	}
}
