package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConvertCmd_LocalFileToMixed(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "sub.txt")
	// aes-128-gcm:pw
	if err := os.WriteFile(in, []byte("ss://YWVzLTEyOC1nY206cHc@hk.example.com:8388#HK%2001\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := filepath.Join(dir, "out.txt")

	cmd := convertCmd()
	cmd.SetArgs([]string{"--in", in, "--target", "mixed", "--out", out})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	body, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(body), "ss://") {
		t.Fatalf("expected ss link in output:\n%s", body)
	}
}

func TestConvertCmd_UnsupportedTarget(t *testing.T) {
	cmd := convertCmd()
	cmd.SetArgs([]string{"--in", "x", "--target", "nope"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for unsupported target")
	}
}
