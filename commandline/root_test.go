// SPDX-License-Identifier: GPL-2.0-or-later

package commandline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"qvis/portal/portaltest"
	"qvis/pvs"
	"qvis/report"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	root := NewRoot()
	root.SetOut(&out)
	root.SetErr(&logs)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeLine(t *testing.T, dir string) string {
	t.Helper()
	name := filepath.Join(dir, "line.prt")
	text := portaltest.Line([2]float32{0, 4}, [2]float32{0, 4}).Text()
	if err := os.WriteFile(name, text, 0644); err != nil {
		t.Fatal(err)
	}
	return name
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	prt := writeLine(t, dir)
	cfg := filepath.Join(dir, "qvis.toml")
	if err := os.WriteFile(cfg, []byte("threads = 7\nfast = true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	rep := filepath.Join(dir, "line.report")

	out, err := execute(t, prt, "--config", cfg, "-t", "2", "--report", rep)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "line.vis") {
		t.Errorf("summary does not name the output:\n%s", out)
	}

	b, err := os.ReadFile(filepath.Join(dir, "line.vis"))
	if err != nil {
		t.Fatalf("no lump written: %v", err)
	}
	lump, err := pvs.ParseLump(b, 3)
	if err != nil {
		t.Fatalf("ParseLump: %v", err)
	}
	rows, err := lump.Rows()
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range rows {
		if r.Count() != 3 {
			t.Errorf("leaf %d sees %d leafs, want 3", i, r.Count())
		}
	}

	b, err = os.ReadFile(rep)
	if err != nil {
		t.Fatalf("no report written: %v", err)
	}
	var r report.Report
	if err := r.UnmarshalBinary(b); err != nil {
		t.Fatal(err)
	}
	// threads from the flag, fast from the file
	if r.Leafs != 3 || r.Threads != 2 || !r.Fast || r.Input != prt {
		t.Errorf("report = %+v", r)
	}

	out, err = execute(t, "inspect", prt, filepath.Join(dir, "line.vis"))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, "leaf 2") || !strings.Contains(out, "3.0") {
		t.Errorf("inspect output:\n%s", out)
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.prt")
	if err := os.WriteFile(bad, []byte("PRT1\n2\n1\n3 0 5 (0 0 0)\n"), 0644); err != nil {
		t.Fatal(err)
	}
	prt := writeLine(t, dir)
	cfg := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(cfg, []byte("colour = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		args []string
	}{
		{"no input", nil},
		{"missing", []string{filepath.Join(dir, "missing.prt")}},
		{"malformed", []string{bad}},
		{"config", []string{prt, "--config", cfg}},
		{"threads", []string{prt, "-t", "0"}},
		{"bsp", []string{prt, "--bsp", filepath.Join(dir, "missing.bsp")}},
		{"report", []string{prt, "--report", filepath.Join(dir, "missing", "line.report")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := execute(t, tc.args...); err == nil {
				t.Errorf("qvis %v succeeded", tc.args)
			}
		})
	}
	// an unwritable output must not leave the report behind
	rep := filepath.Join(dir, "out.report")
	if _, err := execute(t, prt, "--report", rep, "-o", filepath.Join(dir, "missing", "line.vis")); err == nil {
		t.Errorf("run with an unwritable output succeeded")
	}
	for _, name := range []string{"bad.vis", "line.vis", "out.report"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			t.Errorf("%s written on error", name)
		}
	}
}

func TestExecuteCancelled(t *testing.T) {
	prt := writeLine(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Execute(ctx, []string{prt}); err == nil {
		t.Errorf("cancelled run succeeded")
	}
}
