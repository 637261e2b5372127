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

package wrfanautil

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaults(t *testing.T) {
	if got := Cfg.GetInt("Front.Level"); got != 850 {
		t.Errorf("Front.Level: got %d, want 850", got)
	}
	if got := Cfg.GetInt("Front.Member"); got != 1 {
		t.Errorf("Front.Member: got %d, want 1", got)
	}
	if got := Cfg.GetFloat64("Front.ColorRange"); got != 0.05 {
		t.Errorf("Front.ColorRange: got %g, want 0.05", got)
	}
	if got := Cfg.GetString("Front.TargetTime"); got != "2006-06-09T01:00:00" {
		t.Errorf("Front.TargetTime: got %q", got)
	}
	if got := Cfg.GetFloat64("Duration.Reference"); got != 42 {
		t.Errorf("Duration.Reference: got %g, want 42", got)
	}
	// The intSlice flag yields its default as the string "[875,850,825]".
	levels, err := intSliceOption("ThetaE.Levels")
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{875, 850, 825}; !reflect.DeepEqual(levels, want) {
		t.Errorf("ThetaE.Levels: got %v, want %v", levels, want)
	}
}

func TestSetConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wrfana.toml")
	contents := `[Front]
Level = 700
Member = 3

[ThetaE]
Levels = [700, 650]
`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	Cfg.Set("config", path)
	defer Cfg.Set("config", "")
	if err := setConfig(); err != nil {
		t.Fatal(err)
	}
	if got := Cfg.GetInt("Front.Level"); got != 700 {
		t.Errorf("Front.Level from config file: got %d, want 700", got)
	}
	if got := Cfg.GetInt("Front.Member"); got != 3 {
		t.Errorf("Front.Member from config file: got %d, want 3", got)
	}
	levels, err := intSliceOption("ThetaE.Levels")
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{700, 650}; !reflect.DeepEqual(levels, want) {
		t.Errorf("ThetaE.Levels from config file: got %v, want %v", levels, want)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"version": false, "duration": false, "thetae": false, "front": false}
	for _, cmd := range Root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %s is not registered", name)
		}
	}
}
