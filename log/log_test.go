// Copyright 2024 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for _, tt := range []struct {
		str  string
		want Level
		err  bool
	}{
		{str: "dbg", want: LvlDebug},
		{str: "DEBUG", want: LvlDebug},
		{str: "info", want: LvlInfo},
		{str: "Warning", want: LvlWarning},
		{str: "err", want: LvlError},
		{str: "error", want: LvlError},
		{str: "42", want: Level(42)},
		{str: "-3", want: Level(-3)},
		{str: "verbose", err: true},
	} {
		t.Run(tt.str, func(t *testing.T) {
			got, err := ParseLevel(tt.str)
			switch {
			case tt.err && err == nil:
				t.Fatalf("expected an error")
			case !tt.err && err != nil:
				t.Fatalf("could not parse level: %+v", err)
			}
			if got != tt.want {
				t.Fatalf("invalid level: got=%v, want=%v", got, tt.want)
			}
		})
	}
}

func TestMsgStream(t *testing.T) {
	buf := new(bytes.Buffer)
	msg := NewMsgStream("rct", LvlInfo, buf)

	msg.Debugf("hidden %d", 1)
	msg.Infof("visible %d", 2)
	msg.Warnf("careful %s", "now")
	msg.Msg(Level(15), "custom\n")

	got := buf.String()
	for _, want := range []string{
		"rct                  INFO visible 2\n",
		"rct                  WARN careful now\n",
		"rct                  L15  custom\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing line %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "hidden") {
		t.Fatalf("debug message should have been filtered out:\n%s", got)
	}
}
