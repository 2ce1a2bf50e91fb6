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

package util

import (
	"strings"
)

// LogWriter is a simple interface that wraps our logf interface. Each line
// which is written becomes one separate call to Logf.
type LogWriter struct {
	Prefix string
	Logf   func(format string, v ...interface{})
}

// Write satisfies the io.Writer interface.
func (obj *LogWriter) Write(p []byte) (n int, err error) {
	s := strings.TrimSuffix(string(p), "\n")
	for _, line := range strings.Split(s, "\n") {
		obj.Logf("%s", obj.Prefix+line)
	}
	return len(p), nil
}
