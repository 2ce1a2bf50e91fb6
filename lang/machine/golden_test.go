// Smallstep
// Copyright (C) James Shubin and the project contributors
// Written by James Shubin <james@shubin.ca> and the project contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

//go:build !root

package machine

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/purpleidea/smallstep/lang/yamlexpr"
	"github.com/purpleidea/smallstep/util"

	"github.com/kylelemons/godebug/pretty"
	"github.com/spf13/afero"
	"golang.org/x/tools/txtar"
)

const (
	// magicError is the prefix of an OUTPUT file which expects a failure.
	// The rest of the file must be contained in the error message.
	magicError = "# err: "

	// inputFile is the name of the yaml document inside each archive.
	inputFile = "main.yaml"

	// outputFile is the name of the expected trace inside each archive.
	outputFile = "OUTPUT"
)

// TestGolden runs every txtar archive in the testdata directory. Each archive
// contains a main.yaml expression document and the expected trace in OUTPUT.
func TestGolden(t *testing.T) {
	dir := "testdata/"

	type test struct { // an individual test
		name string
		path string // relative txtar path inside tests dir
	}
	testCases := []test{}

	// build test array automatically from reading the dir
	files, err := os.ReadDir(dir)
	if err != nil {
		t.Errorf("could not read through tests directory: %+v", err)
		return
	}
	sorted := []string{}
	for _, f := range files {
		if !strings.HasSuffix(f.Name(), ".txtar") {
			continue
		}
		sorted = append(sorted, f.Name())
	}
	sort.Strings(sorted)
	for _, f := range sorted {
		// add automatic test case
		testCases = append(testCases, test{
			name: f,
			path: f, // <something>.txtar
		})
	}
	if len(testCases) == 0 {
		t.Errorf("no golden tests were found")
		return
	}

	names := []string{}
	for index, tc := range testCases { // run all the tests
		if util.StrInList(tc.name, names) {
			t.Errorf("test #%d: duplicate sub test name of: %s", index, tc.name)
			continue
		}
		names = append(names, tc.name)

		testName := fmt.Sprintf("test #%d (%s)", index, tc.name)
		if testing.Short() { // make listing tests easier
			t.Logf("%s", testName)
			continue
		}
		t.Run(testName, func(t *testing.T) {
			txtarFile := filepath.Join(dir, tc.path)
			archive, err := txtar.ParseFile(txtarFile)
			if err != nil {
				t.Errorf("err parsing txtar(%s): %+v", txtarFile, err)
				return
			}
			comment := strings.TrimSpace(string(archive.Comment))
			t.Logf("comment: %s\n", comment)

			// copy files out into an in memory filesystem
			fs := afero.NewMemMapFs()
			afs := &afero.Afero{Fs: fs} // wrap so that we're implementing ioutil
			var testOutput []byte
			found := false
			for _, file := range archive.Files {
				if file.Name == outputFile {
					testOutput = file.Data
					found = true
					continue
				}
				if err := afs.WriteFile("/"+file.Name, file.Data, 0660); err != nil {
					t.Errorf("err writing file(%s): %+v", file.Name, err)
					return
				}
			}
			if !found {
				t.Errorf("test #%d: missing %s file", index, outputFile)
				return
			}

			expstr := string(testOutput)
			errStr := ""
			if strings.HasPrefix(expstr, magicError) {
				errStr = strings.TrimSpace(strings.TrimPrefix(expstr, magicError))
			}
			fail := errStr != ""

			logf := func(format string, v ...interface{}) {
				t.Logf(fmt.Sprintf("test #%d", index)+": "+format, v...)
			}

			expr, env, err := yamlexpr.Load(fs, "/"+inputFile)
			if err != nil {
				t.Errorf("test #%d: FAIL", index)
				t.Errorf("test #%d: load failed with: %+v", index, err)
				return
			}

			out := &bytes.Buffer{}
			m := &Machine{
				Expr:   expr,
				Env:    env,
				Output: out,

				Debug: testing.Verbose(),
				Logf: func(format string, v ...interface{}) {
					logf("machine: "+format, v...)
				},
			}
			if err := m.Init(); err != nil {
				t.Errorf("test #%d: FAIL", index)
				t.Errorf("test #%d: init failed with: %+v", index, err)
				return
			}
			err = m.Run()

			if !fail && err != nil {
				t.Errorf("test #%d: FAIL", index)
				t.Errorf("test #%d: run failed with: %+v", index, err)
				return
			}
			if fail && err == nil {
				t.Errorf("test #%d: FAIL", index)
				t.Errorf("test #%d: run passed, expected fail", index)
				t.Logf("test #%d: trace:\n%s", index, out.String())
				return
			}
			if fail {
				if s := err.Error(); !strings.Contains(s, errStr) {
					t.Errorf("test #%d: FAIL", index)
					t.Errorf("test #%d: expected error containing: %s", index, errStr)
					t.Errorf("test #%d:                    got: %s", index, s)
				}
				return
			}

			if actual := out.String(); actual != expstr {
				t.Errorf("test #%d: FAIL", index)
				t.Errorf("test #%d: trace did not match expected", index)
				t.Logf("test #%d: diff:\n%s", index, pretty.Compare(actual, expstr))
			}
		})
	}
}
